// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file stores the last completion time of scheduled
// jobs.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

// JobRunStore persists job completion times for the scheduler.
type JobRunStore struct {
	DB *gorm.DB
}

// LastRun returns when name last completed. ok is false when it never ran.
func (s JobRunStore) LastRun(ctx context.Context, name string) (at time.Time, ok bool, err error) {
	var rec domain.JobRun
	err = s.DB.WithContext(ctx).First(&rec, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return rec.LastRunAt.UTC(), true, nil
}

// MarkRun records that name completed at at, replacing any earlier time.
func (s JobRunStore) MarkRun(ctx context.Context, name string, at time.Time) error {
	rec := domain.JobRun{Name: name, LastRunAt: at.UTC()}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_run_at", "updated_at"}),
	}).Create(&rec).Error
}
