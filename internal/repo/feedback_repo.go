// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for feedback
// records, their tags and their reaction counters.
//
// Reaction and status changes are single UPDATE/UPSERT statements so that
// concurrent writers never lose increments.
package repo

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

// FeedbackFilter narrows feedback listings. Zero fields are ignored.
type FeedbackFilter struct {
	Kind        domain.FeedbackKind
	Category    domain.Category
	Status      domain.Status
	Priority    domain.Priority
	AuthorID    string
	ForumID     string
	RecipientID string
	Tag         string
	Anonymous   *bool
	Private     *bool
	From        *time.Time
	To          *time.Time
}

// Viewer restricts listings to records the viewer may read. A zero Viewer
// is an unauthenticated visitor.
type Viewer struct {
	ID    string
	Admin bool
}

func (f FeedbackFilter) scope(q *gorm.DB) *gorm.DB {
	if f.Kind != "" {
		q = q.Where("feedback.kind = ?", f.Kind)
	}
	if f.Category != "" {
		q = q.Where("feedback.category = ?", f.Category)
	}
	if f.Status != "" {
		q = q.Where("feedback.status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("feedback.priority = ?", f.Priority)
	}
	if f.AuthorID != "" {
		q = q.Where("feedback.author_id = ?", f.AuthorID)
	}
	if f.ForumID != "" {
		q = q.Where("feedback.forum_id = ?", f.ForumID)
	}
	if f.RecipientID != "" {
		q = q.Where("feedback.recipient_id = ?", f.RecipientID)
	}
	if f.Tag != "" {
		q = q.Where("feedback.id IN (?)",
			q.Session(&gorm.Session{NewDB: true}).Model(&domain.FeedbackTag{}).Select("feedback_id").Where("tag = ?", f.Tag))
	}
	if f.Anonymous != nil {
		q = q.Where("feedback.anonymous = ?", *f.Anonymous)
	}
	if f.Private != nil {
		q = q.Where("feedback.private = ?", *f.Private)
	}
	if f.From != nil {
		q = q.Where("feedback.created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("feedback.created_at <= ?", *f.To)
	}
	return q
}

func (v Viewer) scope(q *gorm.DB) *gorm.DB {
	if v.Admin {
		return q
	}
	if v.ID == "" {
		membersOnly := q.Session(&gorm.Session{NewDB: true}).Model(&domain.Forum{}).
			Select("id").
			Where(datatypes.JSONQuery("settings").Equals(true, "members_only"))
		return q.Where("feedback.private = ?", false).
			Where("feedback.forum_id IS NULL OR feedback.forum_id NOT IN (?)", membersOnly)
	}
	return q.Where("feedback.private = ? OR feedback.author_id = ? OR feedback.recipient_id = ?", false, v.ID, v.ID)
}

func withChildren(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Tags", func(q *gorm.DB) *gorm.DB { return q.Order("position ASC") }).
		Preload("Reactions", func(q *gorm.DB) *gorm.DB { return q.Order("emoji ASC") })
}

// CreateFeedback validates fb and inserts it with its tag rows.
func CreateFeedback(ctx context.Context, db *gorm.DB, fb *domain.Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(fb).Error; err != nil {
			return err
		}
		return insertTags(tx, fb)
	})
}

func insertTags(tx *gorm.DB, fb *domain.Feedback) error {
	if len(fb.Tags) == 0 {
		return nil
	}
	for i := range fb.Tags {
		fb.Tags[i].FeedbackID = fb.ID
	}
	return tx.Create(&fb.Tags).Error
}

// GetFeedback fetches a record with tags and reactions, or ErrNotFound.
func GetFeedback(ctx context.Context, db *gorm.DB, id string) (*domain.Feedback, error) {
	var fb domain.Feedback
	if err := withChildren(db.WithContext(ctx)).First(&fb, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &fb, nil
}

// ListFeedback returns one page of records matching filter that viewer may
// read, newest first, plus the total number of such records.
func ListFeedback(ctx context.Context, db *gorm.DB, filter FeedbackFilter, viewer Viewer, offset, limit int) ([]domain.Feedback, int64, error) {
	base := func() *gorm.DB {
		return viewer.scope(filter.scope(db.WithContext(ctx).Model(&domain.Feedback{})))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Feedback{}, 0, nil
	}

	var items []domain.Feedback
	err := withChildren(base()).
		Order("feedback.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// SaveFeedback validates fb and writes its mutable columns. When replaceTags
// is true the stored tag rows are replaced by fb.Tags.
func SaveFeedback(ctx context.Context, db *gorm.DB, fb *domain.Feedback, replaceTags bool) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Feedback{}).Where("id = ?", fb.ID).Updates(map[string]any{
			"content":      fb.Content,
			"private":      fb.Private,
			"category":     fb.Category,
			"priority":     fb.Priority,
			"status":       fb.Status,
			"moderator_id": fb.ModeratorID,
			"updated_at":   fb.UpdatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if !replaceTags {
			return nil
		}
		if err := tx.Where("feedback_id = ?", fb.ID).Delete(&domain.FeedbackTag{}).Error; err != nil {
			return err
		}
		return insertTags(tx, fb)
	})
}

// DeleteFeedback removes a record with its tags and reactions in one
// transaction.
func DeleteFeedback(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("feedback_id = ?", id).Delete(&domain.FeedbackTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("feedback_id = ?", id).Delete(&domain.FeedbackReaction{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Feedback{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// IncrementReaction atomically adds one to the emoji counter of a record,
// creating the counter at 1.
func IncrementReaction(ctx context.Context, db *gorm.DB, feedbackID, emoji string, now time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "feedback_id"}, {Name: "emoji"}},
			DoUpdates: clause.Assignments(map[string]any{"count": gorm.Expr("feedback_reactions.count + 1")}),
		}).Create(&domain.FeedbackReaction{FeedbackID: feedbackID, Emoji: emoji, Count: 1}).Error
		if err != nil {
			return err
		}
		return touch(tx, feedbackID, now)
	})
}

// DecrementReaction atomically subtracts one from a positive emoji counter
// and drops the row once it reaches zero. It reports false when there was
// nothing to remove.
func DecrementReaction(ctx context.Context, db *gorm.DB, feedbackID, emoji string, now time.Time) (bool, error) {
	changed := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.FeedbackReaction{}).
			Where("feedback_id = ? AND emoji = ? AND count > 0", feedbackID, emoji).
			Update("count", gorm.Expr("count - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		if err := tx.Where("feedback_id = ? AND emoji = ? AND count <= 0", feedbackID, emoji).
			Delete(&domain.FeedbackReaction{}).Error; err != nil {
			return err
		}
		return touch(tx, feedbackID, now)
	})
	return changed, err
}

// SetFeedbackStatus sets the moderation status and moderator of a forum
// record. P2P records are never matched.
func SetFeedbackStatus(ctx context.Context, db *gorm.DB, feedbackID string, status domain.Status, moderatorID string, now time.Time) error {
	res := db.WithContext(ctx).Model(&domain.Feedback{}).
		Where("id = ? AND kind = ?", feedbackID, domain.KindForum).
		Updates(map[string]any{"status": status, "moderator_id": moderatorID, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func touch(tx *gorm.DB, feedbackID string, now time.Time) error {
	res := tx.Model(&domain.Feedback{}).Where("id = ?", feedbackID).Update("updated_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TagUsageSince groups the tags of records created at or after since, most
// used first.
func TagUsageSince(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]domain.TagCount, error) {
	var out []domain.TagCount
	err := db.WithContext(ctx).
		Table("feedback_tags").
		Select("feedback_tags.tag AS tag, COUNT(*) AS count").
		Joins("JOIN feedback ON feedback.id = feedback_tags.feedback_id").
		Where("feedback.created_at >= ?", since).
		Group("feedback_tags.tag").
		Order("count DESC, tag ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// TagUsesSince counts tag occurrences on records created at or after since.
func TagUsesSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Table("feedback_tags").
		Joins("JOIN feedback ON feedback.id = feedback_tags.feedback_id").
		Where("feedback.created_at >= ?", since).
		Count(&n).Error
	return n, err
}
