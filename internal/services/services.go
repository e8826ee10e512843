package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

// Clock returns the current time. Services default to UTC wall time.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func (c Clock) now() time.Time {
	if c == nil {
		return systemClock()
	}
	return c().UTC()
}

// HashtagStore is the statistics store behind hashtag counters and
// rankings. repo.HashtagStore (SQL) and mongostore.HashtagStore implement
// it. Get returns repo.ErrNotFound for unknown tags.
type HashtagStore interface {
	RecordUses(ctx context.Context, tags []string, now time.Time) error
	ResetWeekly(ctx context.Context) (int64, error)
	ResetMonthly(ctx context.Context) (int64, error)
	DeactivateInactive(ctx context.Context, cutoff time.Time) (int64, error)

	Get(ctx context.Context, tag string) (*domain.HashtagStats, error)
	Popular(ctx context.Context, limit int) ([]domain.HashtagStats, error)
	Trending(ctx context.Context, minWeekly int64, limit int) ([]domain.HashtagStats, error)
	Search(ctx context.Context, text string, limit int) ([]domain.HashtagStats, error)
	Totals(ctx context.Context) (domain.HashtagTotals, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// RankingCache caches ranking results by key. A miss is (nil, false, nil).
type RankingCache interface {
	Get(ctx context.Context, key string) ([]domain.HashtagStats, bool, error)
	Set(ctx context.Context, key string, v []domain.HashtagStats) error
	Invalidate(ctx context.Context) error
}

// pageWindow turns 1-based page/pageSize into offset/limit, applying the
// same defaults as the handlers.
func pageWindow(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}

func logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

var (
	feedbackCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_created_total",
			Help: "Feedback records created, by kind.",
		},
		[]string{"kind"},
	)

	hashtagUses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hashtag_uses_recorded_total",
			Help: "Hashtag uses recorded in the statistics store.",
		},
	)

	reactionChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reaction_changes_total",
			Help: "Reaction changes applied, by operation.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(feedbackCreated, hashtagUses, reactionChanges)
}
