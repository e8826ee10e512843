package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

func TestGetIdempotency_BlankScope_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	rec, err := GetIdempotency(context.Background(), db, "u1", "   ", "k1", t0)
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for blank scope, got (%v, %v)", rec, err)
	}
}

func TestIdempotency_CreateGetExpire(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "u1", "feedback.forum", "k1", "fb-1", 201, t0, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if !rec.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("expires_at = %v", rec.ExpiresAt)
	}

	got, err := GetIdempotency(ctx, db, "u1", "feedback.forum", "k1", t0.Add(time.Minute))
	if err != nil || got.ResourceID != "fb-1" || got.Status != 201 {
		t.Fatalf("GetIdempotency = (%+v, %v)", got, err)
	}

	// Other scope and other user do not match.
	if _, err := GetIdempotency(ctx, db, "u1", "feedback.p2p", "k1", t0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("scope leak: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "u2", "feedback.forum", "k1", t0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("user leak: %v", err)
	}

	// Expired.
	if _, err := GetIdempotency(ctx, db, "u1", "feedback.forum", "k1", t0.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record returned: %v", err)
	}
}

func TestCreateIdempotency_Duplicate(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "s", "k", "r1", 201, t0, time.Hour); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "u1", "s", "k", "r2", 201, t0, time.Hour); err != ErrDuplicate {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestCreateIdempotency_Error_NoTable(t *testing.T) {
	db := newTestDB(t)
	if _, err := CreateIdempotency(context.Background(), db, "u", "s", "k", "r", 201, t0, time.Hour); err == nil {
		t.Fatalf("expected error without table")
	}
}

func TestPurgeIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	_, _ = CreateIdempotency(ctx, db, "u", "s", "old", "r", 201, t0.Add(-2*time.Hour), time.Hour)
	_, _ = CreateIdempotency(ctx, db, "u", "s", "new", "r", 201, t0, time.Hour)

	n, err := PurgeIdempotency(ctx, db, t0)
	if err != nil || n != 1 {
		t.Fatalf("PurgeIdempotency = (%d, %v)", n, err)
	}
}
