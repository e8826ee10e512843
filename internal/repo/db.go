// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and schema migrations.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

// OpenOptions tunes OpenSQLite.
type OpenOptions struct {
	// Tracing registers the OpenTelemetry GORM plugin so every statement
	// becomes a child span of the request span.
	Tracing bool
	// Silent disables GORM's statement logger.
	Silent bool
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string, opts ...OpenOptions) (*gorm.DB, error) {
	var o OpenOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	cfg := &gorm.Config{NowFunc: func() time.Time { return time.Now().UTC() }}
	if o.Silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if o.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// Models lists every table owned by the SQL store, parents first.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Forum{},
		&domain.ForumMember{},
		&domain.Feedback{},
		&domain.FeedbackTag{},
		&domain.FeedbackReaction{},
		&domain.HashtagStats{},
		&domain.Idempotency{},
		&domain.JobRun{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
