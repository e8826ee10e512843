package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-backend/internal/repo"
)

// Job names.
const (
	ResetWeekly        = "hashtags.reset_weekly"
	ResetMonthly       = "hashtags.reset_monthly"
	DeactivateInactive = "hashtags.deactivate_inactive"
	PurgeIdempotency   = "idempotency.purge"
)

// HashtagMaintainer is the part of the hashtag service the jobs drive.
type HashtagMaintainer interface {
	ResetWeekly(ctx context.Context) (int64, error)
	ResetMonthly(ctx context.Context) (int64, error)
	DeactivateInactive(ctx context.Context, days int) (int64, error)
}

// Intervals configures the maintenance jobs. Zero durations select the
// defaults: weekly 7 days, monthly 30 days, sweep and purge 24 hours.
type Intervals struct {
	Weekly         time.Duration
	Monthly        time.Duration
	Sweep          time.Duration
	Purge          time.Duration
	InactivityDays int
}

func (iv Intervals) withDefaults() Intervals {
	def := func(d *time.Duration, v time.Duration) {
		if *d <= 0 {
			*d = v
		}
	}
	def(&iv.Weekly, 7*24*time.Hour)
	def(&iv.Monthly, 30*24*time.Hour)
	def(&iv.Sweep, 24*time.Hour)
	def(&iv.Purge, 24*time.Hour)
	return iv
}

// HashtagJobs builds the reset and sweep jobs over h.
func HashtagJobs(h HashtagMaintainer, iv Intervals) []Job {
	iv = iv.withDefaults()
	counted := func(name string, fn func(context.Context) (int64, error)) func(context.Context) error {
		return func(ctx context.Context) error {
			n, err := fn(ctx)
			if err == nil {
				log.Info().Str("job", name).Int64("rows", n).Msg("hashtag maintenance applied")
			}
			return err
		}
	}
	return []Job{
		{
			Name:        ResetWeekly,
			Description: "zero the weekly hashtag counters",
			Interval:    iv.Weekly,
			Fn:          counted(ResetWeekly, h.ResetWeekly),
		},
		{
			Name:        ResetMonthly,
			Description: "zero the monthly hashtag counters",
			Interval:    iv.Monthly,
			Fn:          counted(ResetMonthly, h.ResetMonthly),
		},
		{
			Name:        DeactivateInactive,
			Description: "deactivate hashtags unused past the inactivity threshold",
			Interval:    iv.Sweep,
			Fn: counted(DeactivateInactive, func(ctx context.Context) (int64, error) {
				return h.DeactivateInactive(ctx, iv.InactivityDays)
			}),
		},
	}
}

// IdempotencyPurgeJob deletes expired idempotency records.
func IdempotencyPurgeJob(db *gorm.DB, every time.Duration) Job {
	if every <= 0 {
		every = 24 * time.Hour
	}
	return Job{
		Name:        PurgeIdempotency,
		Description: "delete expired idempotency keys",
		Interval:    every,
		Fn: func(ctx context.Context) error {
			n, err := repo.PurgeIdempotency(ctx, db, time.Now().UTC())
			if err == nil && n > 0 {
				log.Info().Int64("rows", n).Msg("idempotency keys purged")
			}
			return err
		},
	}
}
