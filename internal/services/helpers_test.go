package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/repo"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return t0 }

// newSvcDB opens a fresh in-memory database with every model migrated and
// three users: "admin" (admin), "alice" and "bob" (plain users).
func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: fixedClock,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	for _, u := range []domain.User{
		{ID: "admin", Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin},
		{ID: "alice", Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser},
		{ID: "bob", Name: "Bob", Email: "bob@example.com", Role: domain.RoleUser},
	} {
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("seed user %s: %v", u.ID, err)
		}
	}
	return db
}

// seedForum inserts a forum created by admin with the given settings and
// extra members.
func seedForum(t *testing.T, db *gorm.DB, id string, settings domain.ForumSettings, members ...string) {
	t.Helper()
	f := &domain.Forum{
		ID:        id,
		Name:      "Forum " + id,
		CreatorID: "admin",
		Status:    domain.ForumActive,
		Settings:  datatypes.NewJSONType(settings),
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	if err := repo.CreateForum(context.Background(), db, f); err != nil {
		t.Fatalf("seed forum: %v", err)
	}
	for _, m := range members {
		if _, err := repo.AddForumMember(context.Background(), db, id, m, t0); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
}

func openSettings() domain.ForumSettings {
	s := domain.DefaultForumSettings()
	s.MembersOnly = false
	return s
}
