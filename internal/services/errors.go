// Package services defines the business logic for users, forums, feedback
// and hashtag statistics. This file centralizes the service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is the generic not-found failure. The entity-specific errors
// below wrap it, so errors.Is(err, ErrNotFound) matches all of them.
var ErrNotFound = errors.New("not found")

var (
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrForumNotFound    = fmt.Errorf("forum %w", ErrNotFound)
	ErrFeedbackNotFound = fmt.Errorf("feedback %w", ErrNotFound)
	ErrHashtagNotFound  = fmt.Errorf("hashtag %w", ErrNotFound)
)

var (
	// ErrUnauthenticated is returned when a write is attempted without an
	// acting user.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrPermissionDenied indicates the actor lacks the required capability.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrSelfFeedbackNotAllowed is returned for P2P feedback addressed to its
	// own author.
	ErrSelfFeedbackNotAllowed = errors.New("cannot give feedback to yourself")

	// ErrInvalidTransition is returned for a status change on a P2P record or
	// to an unknown status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForumNameTaken is returned when another forum already uses the name.
	ErrForumNameTaken = errors.New("forum name already taken")

	// ErrEmailTaken is returned when another user already uses the email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrCreatorNotRemovable is returned when removing a forum's creator from
	// its members.
	ErrCreatorNotRemovable = errors.New("forum creator cannot be removed")

	// ErrInvalidForum is returned when forum fields are out of bounds.
	ErrInvalidForum = errors.New("invalid forum")

	// ErrInvalidInput covers other malformed arguments (unknown enum values,
	// blank identifiers, bad emoji).
	ErrInvalidInput = errors.New("invalid input")
)
