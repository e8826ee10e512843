package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

func TestRecordHashtagUses_CreateThenIncrement(t *testing.T) {
	db := newTestDB(t, &domain.HashtagStats{})
	ctx := context.Background()

	if err := RecordHashtagUses(ctx, db, []string{"awesome", "teamwork"}, t0); err != nil {
		t.Fatalf("RecordHashtagUses: %v", err)
	}
	s, err := GetHashtag(ctx, db, "awesome")
	if err != nil {
		t.Fatalf("GetHashtag: %v", err)
	}
	if s.TotalUses != 1 || s.UsesThisWeek != 1 || s.UsesThisMonth != 1 || !s.Active {
		t.Fatalf("unexpected first-use row %+v", s)
	}
	if !s.FirstUsedAt.Equal(t0) || !s.LastUsedAt.Equal(t0) {
		t.Fatalf("timestamps %v %v", s.FirstUsedAt, s.LastUsedAt)
	}

	later := t0.Add(time.Hour)
	if err := RecordHashtagUses(ctx, db, []string{"awesome"}, later); err != nil {
		t.Fatalf("RecordHashtagUses: %v", err)
	}
	s, _ = GetHashtag(ctx, db, "awesome")
	if s.TotalUses != 2 || s.UsesThisWeek != 2 || s.UsesThisMonth != 2 {
		t.Fatalf("counters not incremented: %+v", s)
	}
	if !s.FirstUsedAt.Equal(t0) || !s.LastUsedAt.Equal(later) {
		t.Fatalf("first/last used: %v %v", s.FirstUsedAt, s.LastUsedAt)
	}
}

func TestRecordHashtagUses_DuplicatesCountIndependently(t *testing.T) {
	db := newTestDB(t, &domain.HashtagStats{})
	ctx := context.Background()
	if err := RecordHashtagUses(ctx, db, []string{"go", "go", "go"}, t0); err != nil {
		t.Fatalf("RecordHashtagUses: %v", err)
	}
	s, _ := GetHashtag(ctx, db, "go")
	if s.TotalUses != 3 {
		t.Fatalf("TotalUses = %d, want 3", s.TotalUses)
	}
}

func TestRecordHashtagUses_ReactivatesTag(t *testing.T) {
	db := newTestDB(t, &domain.HashtagStats{})
	ctx := context.Background()
	_ = RecordHashtagUses(ctx, db, []string{"old"}, t0)
	if _, err := DeactivateInactiveHashtags(ctx, db, t0.Add(time.Second)); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_ = RecordHashtagUses(ctx, db, []string{"old"}, t0.Add(time.Minute))
	s, _ := GetHashtag(ctx, db, "old")
	if !s.Active {
		t.Fatalf("reuse must reactivate the tag")
	}
}

func TestResetCounters(t *testing.T) {
	db := newTestDB(t, &domain.HashtagStats{})
	ctx := context.Background()
	_ = RecordHashtagUses(ctx, db, []string{"a", "a", "b"}, t0)

	n, err := ResetWeeklyHashtagCounters(ctx, db)
	if err != nil || n != 2 {
		t.Fatalf("weekly reset = (%d, %v)", n, err)
	}
	a, _ := GetHashtag(ctx, db, "a")
	if a.UsesThisWeek != 0 || a.UsesThisMonth != 2 || a.TotalUses != 2 {
		t.Fatalf("after weekly reset %+v", a)
	}
	if n, _ := ResetWeeklyHashtagCounters(ctx, db); n != 0 {
		t.Fatalf("second weekly reset touched %d rows", n)
	}

	if _, err := ResetMonthlyHashtagCounters(ctx, db); err != nil {
		t.Fatalf("monthly reset: %v", err)
	}
	a, _ = GetHashtag(ctx, db, "a")
	if a.UsesThisMonth != 0 || a.TotalUses != 2 {
		t.Fatalf("after monthly reset %+v", a)
	}
}

func TestDeactivateInactiveHashtags_StrictCutoffAndIdempotent(t *testing.T) {
	db := newTestDB(t, &domain.HashtagStats{})
	ctx := context.Background()
	now := t0.AddDate(0, 0, 200)
	cutoff := now.AddDate(0, 0, -90)

	_ = RecordHashtagUses(ctx, db, []string{"stale1", "stale2"}, cutoff.Add(-time.Second))
	_ = RecordHashtagUses(ctx, db, []string{"edge"}, cutoff)
	_ = RecordHashtagUses(ctx, db, []string{"fresh"}, now)

	n, err := DeactivateInactiveHashtags(ctx, db, cutoff)
	if err != nil || n != 2 {
		t.Fatalf("first sweep = (%d, %v), want 2", n, err)
	}
	if s, _ := GetHashtag(ctx, db, "edge"); !s.Active {
		t.Fatalf("tag used exactly at the cutoff must stay active")
	}
	if n, _ := DeactivateInactiveHashtags(ctx, db, cutoff); n != 0 {
		t.Fatalf("second sweep flipped %d", n)
	}
}

func seedStats(t *testing.T, ctx context.Context, store HashtagStore, rows []domain.HashtagStats) {
	t.Helper()
	for _, r := range rows {
		if err := store.DB.WithContext(ctx).Create(&r).Error; err != nil {
			t.Fatalf("seed %s: %v", r.Tag, err)
		}
	}
	// default:true hides explicit false on insert.
	for _, r := range rows {
		if !r.Active {
			store.DB.Model(&domain.HashtagStats{}).Where("tag = ?", r.Tag).Update("active", false)
		}
	}
}

func TestRankings(t *testing.T) {
	db := newTestDB(t, &domain.HashtagStats{})
	ctx := context.Background()
	store := HashtagStore{DB: db}
	seedStats(t, ctx, store, []domain.HashtagStats{
		{Tag: "golang", TotalUses: 40, UsesThisWeek: 5, FirstUsedAt: t0, LastUsedAt: t0, Active: true},
		{Tag: "go_tips", TotalUses: 12, UsesThisWeek: 5, FirstUsedAt: t0, LastUsedAt: t0.Add(time.Hour), Active: true},
		{Tag: "rust", TotalUses: 30, UsesThisWeek: 2, FirstUsedAt: t0, LastUsedAt: t0, Active: true},
		{Tag: "legacy_go", TotalUses: 99, UsesThisWeek: 9, FirstUsedAt: t0, LastUsedAt: t0, Active: false},
		{Tag: "ux", TotalUses: 3, UsesThisWeek: 3, FirstUsedAt: t0, LastUsedAt: t0, Active: true},
	})

	pop, err := store.Popular(ctx, 3)
	if err != nil {
		t.Fatalf("Popular: %v", err)
	}
	if tags(pop) != "golang,rust,go_tips" {
		t.Fatalf("popular = %s", tags(pop))
	}

	tr, err := store.Trending(ctx, domain.TrendingThreshold, 10)
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	// Tie on weekly uses broken by most recent use.
	if tags(tr) != "go_tips,golang,ux" {
		t.Fatalf("trending = %s", tags(tr))
	}

	found, err := store.Search(ctx, "GO", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if tags(found) != "golang,go_tips" {
		t.Fatalf("search = %s", tags(found))
	}

	// Underscore is literal, not a LIKE wildcard.
	found, _ = store.Search(ctx, "o_t", 10)
	if tags(found) != "go_tips" {
		t.Fatalf("escaped search = %s", tags(found))
	}

	totals, err := store.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	want := domain.HashtagTotals{Total: 5, Active: 4, Trending: 3, Popular: 3}
	if totals != want {
		t.Fatalf("totals = %+v, want %+v", totals, want)
	}
}

func TestCountHashtagsSince(t *testing.T) {
	db := newTestDB(t, &domain.HashtagStats{})
	ctx := context.Background()
	_ = RecordHashtagUses(ctx, db, []string{"old"}, t0)
	_ = RecordHashtagUses(ctx, db, []string{"new"}, t0.AddDate(0, 0, 10))

	n, err := HashtagStore{DB: db}.CountSince(ctx, t0.AddDate(0, 0, 5))
	if err != nil || n != 1 {
		t.Fatalf("CountSince = (%d, %v)", n, err)
	}
}

func TestGetHashtag_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.HashtagStats{})
	if _, err := GetHashtag(context.Background(), db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRecordHashtagUses_Error_NoTable(t *testing.T) {
	db := newTestDB(t)
	if err := RecordHashtagUses(context.Background(), db, []string{"x"}, t0); err == nil {
		t.Fatalf("expected error without table")
	}
}

func tags(rows []domain.HashtagStats) string {
	out := ""
	for i, r := range rows {
		if i > 0 {
			out += ","
		}
		out += r.Tag
	}
	return out
}
