// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the aggregate behind the weak ETag of
// feedback listings.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

// FeedbackStats returns the number of records matching filter that viewer
// may read and the greatest UpdatedAt among them. maxUpdatedAt is nil when
// nothing matches.
func FeedbackStats(ctx context.Context, db *gorm.DB, filter FeedbackFilter, viewer Viewer) (count int64, maxUpdatedAt *time.Time, err error) {
	q := func() *gorm.DB {
		return viewer.scope(filter.scope(db.WithContext(ctx).Model(&domain.Feedback{})))
	}

	if err = q().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q().Select("feedback.updated_at").Order("feedback.updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
