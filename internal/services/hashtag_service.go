// Package services – HashtagService
//
// HashtagService serves the read side of hashtag statistics (popular and
// trending rankings, search, suggestions, per-tag detail and period
// analysis) and the maintenance operations run by the scheduler: weekly and
// monthly counter resets and the inactivity sweep. Ranking reads go through
// an optional cache that the maintenance operations invalidate.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/hashtag"
	"github.com/tbourn/go-feedback-backend/internal/repo"
)

// Ranking limits.
const (
	DefaultRankingLimit = 10
	MaxRankingLimit     = 100
	// suggestionsPerToken caps the tags contributed by one word of text.
	suggestionsPerToken = 2

	DefaultAnalysisDays = 30
	MaxAnalysisDays     = 365
	detailRecent        = 5
)

// HashtagDetail is one tag with its classification and recent feedback.
type HashtagDetail struct {
	Stats         domain.HashtagStats
	Popular       bool
	Trending      bool
	Recent        []domain.Feedback
	FeedbackCount int64
}

// HashtagOverview summarizes the statistics collection.
type HashtagOverview struct {
	Totals       domain.HashtagTotals
	WeeklyGrowth int64
	TopPopular   []domain.HashtagStats
	TopTrending  []domain.HashtagStats
}

// HashtagAnalysis aggregates tag usage over a trailing window.
type HashtagAnalysis struct {
	Days      int
	Since     time.Time
	TotalUses int64
	NewTags   int64
	TopTags   []domain.TagCount
}

// HashtagService implements the hashtag use-cases.
type HashtagService struct {
	// DB serves the feedback-side aggregations (tag usage, recent records).
	DB    *gorm.DB
	Store HashtagStore
	// Cache holds popular/trending rankings. Optional.
	Cache RankingCache
	Now   Clock
	// InactivityDays is the sweep threshold used when callers pass <= 0.
	InactivityDays int
}

// Popular ranks active tags by total uses.
func (s *HashtagService) Popular(ctx context.Context, limit int) ([]domain.HashtagStats, error) {
	limit = clampLimit(limit)
	return s.cached(ctx, "popular:"+strconv.Itoa(limit), func() ([]domain.HashtagStats, error) {
		return s.Store.Popular(ctx, limit)
	})
}

// Trending ranks active tags with at least domain.TrendingThreshold uses
// this week.
func (s *HashtagService) Trending(ctx context.Context, limit int) ([]domain.HashtagStats, error) {
	limit = clampLimit(limit)
	return s.cached(ctx, "trending:"+strconv.Itoa(limit), func() ([]domain.HashtagStats, error) {
		return s.Store.Trending(ctx, domain.TrendingThreshold, limit)
	})
}

// Search returns active tags containing text, most used first. Blank text
// yields an empty result.
func (s *HashtagService) Search(ctx context.Context, text string, limit int) ([]domain.HashtagStats, error) {
	text = hashtag.Fold(strings.TrimPrefix(strings.TrimSpace(text), "#"))
	if text == "" {
		return []domain.HashtagStats{}, nil
	}
	return s.Store.Search(ctx, text, clampLimit(limit))
}

// Suggest proposes tags for free text: each word of at least three
// characters contributes up to two matching active tags, in word order,
// until limit tags are collected.
func (s *HashtagService) Suggest(ctx context.Context, text string, limit int) ([]string, error) {
	tr := otel.Tracer("services/HashtagService")
	ctx, span := tr.Start(ctx, "Suggest", trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	limit = clampLimit(limit)
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, tok := range hashtag.SuggestionTokens(text) {
		if len(out) >= limit {
			break
		}
		matches, err := s.Store.Search(ctx, tok, suggestionsPerToken)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, dup := seen[m.Tag]; dup {
				continue
			}
			seen[m.Tag] = struct{}{}
			out = append(out, m.Tag)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Detail returns a tag's statistics with the most recent feedback carrying
// it that the viewer may see.
func (s *HashtagService) Detail(ctx context.Context, viewerID, tag string) (*HashtagDetail, error) {
	tr := otel.Tracer("services/HashtagService")
	ctx, span := tr.Start(ctx, "Detail", trace.WithAttributes(attribute.String("tag", tag)))
	defer span.End()

	tag = hashtag.Normalize(tag)
	if tag == "" {
		return nil, ErrInvalidInput
	}
	viewer, err := resolveActor(ctx, s.DB, viewerID)
	if err != nil {
		return nil, err
	}
	st, err := s.Store.Get(ctx, tag)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrHashtagNotFound
		}
		return nil, err
	}
	recent, total, err := repo.ListFeedback(ctx, s.DB, repo.FeedbackFilter{Tag: tag}, viewerScope(viewer), 0, detailRecent)
	if err != nil {
		return nil, err
	}
	for i := range recent {
		hideAuthor(&recent[i], viewer)
	}
	return &HashtagDetail{
		Stats:         *st,
		Popular:       st.IsPopular(),
		Trending:      st.IsTrending(),
		Recent:        recent,
		FeedbackCount: total,
	}, nil
}

// Overview summarizes the collection with the top ten of each ranking.
func (s *HashtagService) Overview(ctx context.Context) (*HashtagOverview, error) {
	totals, err := s.Store.Totals(ctx)
	if err != nil {
		return nil, err
	}
	popular, err := s.Popular(ctx, DefaultRankingLimit)
	if err != nil {
		return nil, err
	}
	trending, err := s.Trending(ctx, DefaultRankingLimit)
	if err != nil {
		return nil, err
	}
	return &HashtagOverview{
		Totals:       totals,
		WeeklyGrowth: totals.Trending,
		TopPopular:   popular,
		TopTrending:  trending,
	}, nil
}

// Analysis aggregates tag usage on feedback created in the last days days
// (default 30, at most 365).
func (s *HashtagService) Analysis(ctx context.Context, days int) (*HashtagAnalysis, error) {
	tr := otel.Tracer("services/HashtagService")
	ctx, span := tr.Start(ctx, "Analysis", trace.WithAttributes(attribute.Int("days", days)))
	defer span.End()

	if days <= 0 {
		days = DefaultAnalysisDays
	}
	days = min(days, MaxAnalysisDays)
	since := s.Now.now().AddDate(0, 0, -days)

	uses, err := repo.TagUsesSince(ctx, s.DB, since)
	if err != nil {
		return nil, err
	}
	fresh, err := s.Store.CountSince(ctx, since)
	if err != nil {
		return nil, err
	}
	top, err := repo.TagUsageSince(ctx, s.DB, since, DefaultRankingLimit)
	if err != nil {
		return nil, err
	}
	return &HashtagAnalysis{Days: days, Since: since, TotalUses: uses, NewTags: fresh, TopTags: top}, nil
}

// RequireAdmin checks that actorID is an admin, for the maintenance
// endpoints.
func (s *HashtagService) RequireAdmin(ctx context.Context, actorID string) error {
	actor, err := requireActor(ctx, s.DB, actorID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	return nil
}

// ResetWeekly zeroes every weekly counter and reports how many changed.
func (s *HashtagService) ResetWeekly(ctx context.Context) (int64, error) {
	return s.maintain(ctx, "ResetWeekly", s.Store.ResetWeekly)
}

// ResetMonthly zeroes every monthly counter and reports how many changed.
func (s *HashtagService) ResetMonthly(ctx context.Context) (int64, error) {
	return s.maintain(ctx, "ResetMonthly", s.Store.ResetMonthly)
}

// DeactivateInactive flags tags unused for more than days days (the service
// default when days <= 0) as inactive and returns how many were flipped.
func (s *HashtagService) DeactivateInactive(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = s.InactivityDays
	}
	if days <= 0 {
		days = domain.DefaultInactivityDays
	}
	cutoff := s.Now.now().AddDate(0, 0, -days)
	return s.maintain(ctx, "DeactivateInactive", func(ctx context.Context) (int64, error) {
		return s.Store.DeactivateInactive(ctx, cutoff)
	})
}

func (s *HashtagService) maintain(ctx context.Context, name string, op func(context.Context) (int64, error)) (int64, error) {
	tr := otel.Tracer("services/HashtagService")
	ctx, span := tr.Start(ctx, name)
	defer span.End()

	n, err := op(ctx)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("rows", n))
	s.invalidate(ctx)
	logger(ctx).Info().Str("op", name).Int64("rows", n).Msg("hashtag maintenance")
	return n, nil
}

func (s *HashtagService) cached(ctx context.Context, key string, load func() ([]domain.HashtagStats, error)) ([]domain.HashtagStats, error) {
	if s.Cache != nil {
		v, ok, err := s.Cache.Get(ctx, key)
		if err != nil {
			logger(ctx).Warn().Err(err).Str("key", key).Msg("ranking cache read failed")
		} else if ok {
			return v, nil
		}
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []domain.HashtagStats{}
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, key, v); err != nil {
			logger(ctx).Warn().Err(err).Str("key", key).Msg("ranking cache write failed")
		}
	}
	return v, nil
}

func (s *HashtagService) invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		logger(ctx).Warn().Err(err).Msg("ranking cache invalidation failed")
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRankingLimit
	}
	return min(limit, MaxRankingLimit)
}
