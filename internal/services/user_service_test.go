package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

func TestUserService(t *testing.T) {
	s := &UserService{DB: newSvcDB(t), Now: fixedClock}
	ctx := context.Background()

	u, err := s.Create(ctx, "Carol", "Carol@Example.com", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Role != domain.RoleUser || u.Email != "carol@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := s.Create(ctx, "Carol Two", "carol@example.com", domain.RoleUser); err != ErrEmailTaken {
		t.Fatalf("duplicate email: want ErrEmailTaken, got %v", err)
	}
	if _, err := s.Create(ctx, "Dan", "not-an-email", domain.RoleUser); err != ErrInvalidInput {
		t.Fatalf("bad email: want ErrInvalidInput, got %v", err)
	}
	for _, email := range []string{"Ada <ada@example.com>", "<ada@example.com>", "ada@", ""} {
		if _, err := s.Create(ctx, "Ada", email, domain.RoleUser); err != ErrInvalidInput {
			t.Fatalf("email %q: want ErrInvalidInput, got %v", email, err)
		}
	}
	if u, err := s.Create(ctx, "Ada", "  ada@example.com ", domain.RoleUser); err != nil || u.Email != "ada@example.com" {
		t.Fatalf("bare address: got (%+v, %v)", u, err)
	}
	if _, err := s.Create(ctx, "Dan", "dan@example.com", "root"); err != ErrInvalidInput {
		t.Fatalf("bad role: want ErrInvalidInput, got %v", err)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) || !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing: got %v", err)
	}

	if a, err := s.Actor(ctx, ""); a != nil || err != nil {
		t.Fatalf("blank actor = (%v, %v)", a, err)
	}
	if _, err := s.Actor(ctx, "ghost"); err != ErrUnauthenticated {
		t.Fatalf("unknown actor: want ErrUnauthenticated, got %v", err)
	}
	if a, _ := s.Actor(ctx, "admin"); !a.IsAdmin() {
		t.Fatalf("admin actor not resolved")
	}
}
