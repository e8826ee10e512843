// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the SQL implementation of the hashtag
// statistics store.
//
// Counter updates are INSERT ... ON CONFLICT DO UPDATE statements with
// relative increments, so concurrent uses of one tag never lose updates.
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

// RecordHashtagUses upserts one use per element of tags. Repeated elements
// are counted once each.
func RecordHashtagUses(ctx context.Context, db *gorm.DB, tags []string, now time.Time) error {
	if len(tags) == 0 {
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, tag := range tags {
			row := domain.HashtagStats{
				Tag:           tag,
				TotalUses:     1,
				UsesThisWeek:  1,
				UsesThisMonth: 1,
				FirstUsedAt:   now,
				LastUsedAt:    now,
				Active:        true,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "tag"}},
				DoUpdates: clause.Assignments(map[string]any{
					"total_uses":      gorm.Expr("hashtag_stats.total_uses + 1"),
					"uses_this_week":  gorm.Expr("hashtag_stats.uses_this_week + 1"),
					"uses_this_month": gorm.Expr("hashtag_stats.uses_this_month + 1"),
					"last_used_at":    now,
					"active":          true,
				}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ResetWeeklyHashtagCounters zeroes uses_this_week everywhere and returns the
// number of rows that changed.
func ResetWeeklyHashtagCounters(ctx context.Context, db *gorm.DB) (int64, error) {
	return resetColumn(ctx, db, "uses_this_week")
}

// ResetMonthlyHashtagCounters zeroes uses_this_month everywhere and returns
// the number of rows that changed.
func ResetMonthlyHashtagCounters(ctx context.Context, db *gorm.DB) (int64, error) {
	return resetColumn(ctx, db, "uses_this_month")
}

func resetColumn(ctx context.Context, db *gorm.DB, col string) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.HashtagStats{}).
		Where(col+" <> ?", 0).
		Update(col, 0)
	return res.RowsAffected, res.Error
}

// DeactivateInactiveHashtags clears active on rows last used strictly before
// cutoff and returns how many were flipped.
func DeactivateInactiveHashtags(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.HashtagStats{}).
		Where("active = ? AND last_used_at < ?", true, cutoff).
		Update("active", false)
	return res.RowsAffected, res.Error
}

// GetHashtag fetches one row by tag, or ErrNotFound.
func GetHashtag(ctx context.Context, db *gorm.DB, tag string) (*domain.HashtagStats, error) {
	var s domain.HashtagStats
	if err := db.WithContext(ctx).First(&s, "tag = ?", tag).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// PopularHashtags lists active tags by total uses.
func PopularHashtags(ctx context.Context, db *gorm.DB, limit int) ([]domain.HashtagStats, error) {
	var out []domain.HashtagStats
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("total_uses DESC, tag ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// TrendingHashtags lists active tags with at least minWeekly uses this week,
// by weekly uses then recency.
func TrendingHashtags(ctx context.Context, db *gorm.DB, minWeekly int64, limit int) ([]domain.HashtagStats, error) {
	var out []domain.HashtagStats
	err := db.WithContext(ctx).
		Where("active = ? AND uses_this_week >= ?", true, minWeekly).
		Order("uses_this_week DESC, last_used_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SearchHashtags lists active tags containing text (case-insensitive) by
// total uses.
func SearchHashtags(ctx context.Context, db *gorm.DB, text string, limit int) ([]domain.HashtagStats, error) {
	var out []domain.HashtagStats
	err := db.WithContext(ctx).
		Where("active = ? AND LOWER(tag) LIKE ? ESCAPE '\\'", true, "%"+escapeLike(strings.ToLower(text))+"%").
		Order("total_uses DESC, tag ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountHashtags computes the collection summary.
func CountHashtags(ctx context.Context, db *gorm.DB) (domain.HashtagTotals, error) {
	var t domain.HashtagTotals
	err := db.WithContext(ctx).Model(&domain.HashtagStats{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN active THEN 1 ELSE 0 END), 0) AS active, "+
				"COALESCE(SUM(CASE WHEN active AND uses_this_week >= ? THEN 1 ELSE 0 END), 0) AS trending, "+
				"COALESCE(SUM(CASE WHEN active AND total_uses >= ? THEN 1 ELSE 0 END), 0) AS popular",
			domain.TrendingThreshold, domain.PopularThreshold,
		).
		Scan(&t).Error
	return t, err
}

// CountHashtagsSince counts tags first used at or after since.
func CountHashtagsSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.HashtagStats{}).
		Where("first_used_at >= ?", since).
		Count(&n).Error
	return n, err
}

// HashtagStore exposes the functions above through the statistics-store
// interface used by the services, so SQL and MongoDB backends are
// interchangeable.
type HashtagStore struct {
	DB *gorm.DB
}

// RecordUses proxies RecordHashtagUses.
func (s HashtagStore) RecordUses(ctx context.Context, tags []string, now time.Time) error {
	return RecordHashtagUses(ctx, s.DB, tags, now)
}

// ResetWeekly proxies ResetWeeklyHashtagCounters.
func (s HashtagStore) ResetWeekly(ctx context.Context) (int64, error) {
	return ResetWeeklyHashtagCounters(ctx, s.DB)
}

// ResetMonthly proxies ResetMonthlyHashtagCounters.
func (s HashtagStore) ResetMonthly(ctx context.Context) (int64, error) {
	return ResetMonthlyHashtagCounters(ctx, s.DB)
}

// DeactivateInactive proxies DeactivateInactiveHashtags.
func (s HashtagStore) DeactivateInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	return DeactivateInactiveHashtags(ctx, s.DB, cutoff)
}

// Get proxies GetHashtag.
func (s HashtagStore) Get(ctx context.Context, tag string) (*domain.HashtagStats, error) {
	return GetHashtag(ctx, s.DB, tag)
}

// Popular proxies PopularHashtags.
func (s HashtagStore) Popular(ctx context.Context, limit int) ([]domain.HashtagStats, error) {
	return PopularHashtags(ctx, s.DB, limit)
}

// Trending proxies TrendingHashtags.
func (s HashtagStore) Trending(ctx context.Context, minWeekly int64, limit int) ([]domain.HashtagStats, error) {
	return TrendingHashtags(ctx, s.DB, minWeekly, limit)
}

// Search proxies SearchHashtags.
func (s HashtagStore) Search(ctx context.Context, text string, limit int) ([]domain.HashtagStats, error) {
	return SearchHashtags(ctx, s.DB, text, limit)
}

// Totals proxies CountHashtags.
func (s HashtagStore) Totals(ctx context.Context) (domain.HashtagTotals, error) {
	return CountHashtags(ctx, s.DB)
}

// CountSince proxies CountHashtagsSince.
func (s HashtagStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return CountHashtagsSince(ctx, s.DB, since)
}
