// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

// CreateUser inserts a user. Emails are stored lower-cased; a taken email
// yields ErrDuplicate.
func CreateUser(ctx context.Context, db *gorm.DB, name, email string, role domain.Role, now time.Time) (*domain.User, error) {
	u := &domain.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// GetUser fetches a user by id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUser is GetUser for optional identities: an empty id or a missing row
// returns (nil, nil).
func FindUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	u, err := GetUser(ctx, db, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return u, err
}
