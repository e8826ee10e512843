// Package services – UserService
//
// Users are a collaborator of the feedback core: forums and feedback only
// reference them. This service registers users and resolves the acting
// identity for the other services.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/repo"
)

// validate checks bare addresses; display-name forms like "Ada <ada@x.io>"
// are rejected so the stored email stays the unique key.
var validate = validator.New()

// UserService registers and looks up users.
type UserService struct {
	DB  *gorm.DB
	Now Clock
}

// Create registers a user. Role defaults to user.
func (s *UserService) Create(ctx context.Context, name, email string, role domain.Role) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return nil, ErrInvalidInput
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidInput
	}
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, ErrInvalidInput
	}
	u, err := repo.CreateUser(ctx, s.DB, name, email, role, s.Now.now())
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	return u, err
}

// Get returns the user or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Actor resolves an optional caller identity. A blank id is an anonymous
// caller (nil, nil); an id that matches no user is ErrUnauthenticated.
func (s *UserService) Actor(ctx context.Context, id string) (*domain.User, error) {
	return resolveActor(ctx, s.DB, id)
}

func resolveActor(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	u, err := repo.FindUser(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

// requireActor is resolveActor for writes: anonymous callers are rejected.
func requireActor(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	u, err := resolveActor(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUnauthenticated
	}
	return u, nil
}
