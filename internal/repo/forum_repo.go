// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for forums and
// their membership rows.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

// ForumFilter narrows ListForums. Zero fields are ignored.
type ForumFilter struct {
	Status    domain.ForumStatus
	CreatorID string
	// Project matches case-insensitively as a substring.
	Project string
	// MemberID keeps forums the user created or belongs to.
	MemberID string
}

func (f ForumFilter) scope(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CreatorID != "" {
		q = q.Where("creator_id = ?", f.CreatorID)
	}
	if p := strings.TrimSpace(f.Project); p != "" {
		q = q.Where("LOWER(project) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(p))+"%")
	}
	if f.MemberID != "" {
		q = q.Where("creator_id = ? OR id IN (?)", f.MemberID,
			q.Session(&gorm.Session{NewDB: true}).Model(&domain.ForumMember{}).Select("forum_id").Where("user_id = ?", f.MemberID))
	}
	return q
}

// forumScope keeps the forums v may open: admins see every forum, others
// see open forums plus the members-only ones they created or joined.
func (v Viewer) forumScope(q *gorm.DB) *gorm.DB {
	if v.Admin {
		return q
	}
	sub := q.Session(&gorm.Session{NewDB: true})
	membersOnly := sub.Model(&domain.Forum{}).
		Select("id").
		Where(datatypes.JSONQuery("settings").Equals(true, "members_only"))
	if v.ID == "" {
		return q.Where("id NOT IN (?)", membersOnly)
	}
	joined := sub.Model(&domain.ForumMember{}).Select("forum_id").Where("user_id = ?", v.ID)
	return q.Where("id NOT IN (?) OR creator_id = ? OR id IN (?)", membersOnly, v.ID, joined)
}

// CreateForum inserts f and a membership row for its creator in one
// transaction. A taken name yields ErrDuplicate.
func CreateForum(ctx context.Context, db *gorm.DB, f *domain.Forum) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(f).Error; err != nil {
			return err
		}
		m := domain.ForumMember{ForumID: f.ID, UserID: f.CreatorID, JoinedAt: f.CreatedAt}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		f.Members = []domain.ForumMember{m}
		return nil
	})
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetForum fetches a forum with its members, or ErrNotFound.
func GetForum(ctx context.Context, db *gorm.DB, id string) (*domain.Forum, error) {
	var f domain.Forum
	err := db.WithContext(ctx).
		Preload("Members", func(q *gorm.DB) *gorm.DB { return q.Order("joined_at ASC") }).
		First(&f, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFeedbackRefs fills f.FeedbackRefs with the ids of the forum's
// feedback, newest first.
func LoadFeedbackRefs(ctx context.Context, db *gorm.DB, f *domain.Forum) error {
	ids := []string{}
	err := db.WithContext(ctx).Model(&domain.Feedback{}).
		Where("forum_id = ?", f.ID).
		Order("created_at DESC").
		Pluck("id", &ids).Error
	if err != nil {
		return err
	}
	f.FeedbackRefs = ids
	return nil
}

// ForumNameTaken reports whether another forum (not excludeID) uses name.
func ForumNameTaken(ctx context.Context, db *gorm.DB, name, excludeID string) (bool, error) {
	var n int64
	q := db.WithContext(ctx).Model(&domain.Forum{}).Where("name = ?", name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListForums returns forums matching filter with members loaded, newest
// first.
func ListForums(ctx context.Context, db *gorm.DB, filter ForumFilter) ([]domain.Forum, error) {
	var out []domain.Forum
	q := filter.scope(db.WithContext(ctx).Model(&domain.Forum{}))
	err := q.Preload("Members").Order("created_at DESC").Find(&out).Error
	return out, err
}

// ListVisibleForums returns one page of forums matching filter that viewer
// may open, newest first, and the total number of such forums.
func ListVisibleForums(ctx context.Context, db *gorm.DB, filter ForumFilter, viewer Viewer, offset, limit int) ([]domain.Forum, int64, error) {
	base := func() *gorm.DB {
		return viewer.forumScope(filter.scope(db.WithContext(ctx).Model(&domain.Forum{})))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 || offset >= int(total) {
		return []domain.Forum{}, total, nil
	}

	var out []domain.Forum
	err := base().
		Preload("Members").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateForum applies column updates to a forum. Only the listed columns are
// written; updated_at is always bumped to now.
func UpdateForum(ctx context.Context, db *gorm.DB, id string, fields map[string]any, now time.Time) error {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["updated_at"] = now
	res := db.WithContext(ctx).Model(&domain.Forum{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteForum removes a forum together with its membership rows and all of
// its feedback (tags and reactions included) in one transaction.
func DeleteForum(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fbIDs := tx.Model(&domain.Feedback{}).Select("id").Where("forum_id = ?", id)
		if err := tx.Where("feedback_id IN (?)", fbIDs).Delete(&domain.FeedbackTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("feedback_id IN (?)", fbIDs).Delete(&domain.FeedbackReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("forum_id = ?", id).Delete(&domain.Feedback{}).Error; err != nil {
			return err
		}
		if err := tx.Where("forum_id = ?", id).Delete(&domain.ForumMember{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Forum{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AddForumMember inserts a membership row. It reports false when the user
// already was a member.
func AddForumMember(ctx context.Context, db *gorm.DB, forumID, userID string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.ForumMember{ForumID: forumID, UserID: userID, JoinedAt: now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RemoveForumMember deletes a membership row. It reports false when the user
// was not a member.
func RemoveForumMember(ctx context.Context, db *gorm.DB, forumID, userID string) (bool, error) {
	res := db.WithContext(ctx).
		Where("forum_id = ? AND user_id = ?", forumID, userID).
		Delete(&domain.ForumMember{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IsForumMember reports whether userID has a membership row in forumID.
func IsForumMember(ctx context.Context, db *gorm.DB, forumID, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.ForumMember{}).
		Where("forum_id = ? AND user_id = ?", forumID, userID).
		Count(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return n > 0, err
}
