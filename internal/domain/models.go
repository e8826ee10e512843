// Package domain defines the persistence models for users, forums, feedback
// records, and hashtag statistics. These types are mapped with GORM and form
// the core data layer of the feedback platform.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Role is the platform-wide role of a user.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin is true for admin and super_admin.
func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperAdmin }

// User is a registered platform user. Users are referenced by forums and
// feedback records but their lifecycle (registration, credentials) lives
// outside this service.
//
// Fields:
//   - ID: UUID primary key.
//   - Name: display name.
//   - Email: unique login email.
//   - Role: user, admin or super_admin.
type User struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(100);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex"`
	Role      Role      `json:"role"       gorm:"type:varchar(16);not null;default:'user'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsAdmin reports whether u holds an admin role. A nil user is never admin.
func (u *User) IsAdmin() bool { return u != nil && u.Role.IsAdmin() }

// ForumStatus is the lifecycle state of a forum.
type ForumStatus string

const (
	ForumActive    ForumStatus = "active"
	ForumPaused    ForumStatus = "paused"
	ForumCompleted ForumStatus = "completed"
	ForumArchived  ForumStatus = "archived"
)

// Valid reports whether s is a known forum status.
func (s ForumStatus) Valid() bool {
	switch s {
	case ForumActive, ForumPaused, ForumCompleted, ForumArchived:
		return true
	}
	return false
}

// ForumSettings holds the per-forum feature switches.
type ForumSettings struct {
	AnonymousFeedbackAllowed bool `json:"anonymous_feedback_allowed"`
	MembersOnly              bool `json:"members_only"`
	NotificationsEnabled     bool `json:"notifications_enabled"`
}

// DefaultForumSettings returns the settings applied to new forums.
func DefaultForumSettings() ForumSettings {
	return ForumSettings{
		AnonymousFeedbackAllowed: true,
		MembersOnly:              true,
		NotificationsEnabled:     true,
	}
}

// Forum is a discussion space scoped to a team or project. The creator is a
// permanent, privileged member.
//
// Fields:
//   - Name: unique, 5–100 chars.
//   - Description: up to 500 chars.
//   - Project: optional project label, up to 100 chars.
//   - CreatorID: immutable reference to the creating user.
//   - Settings: JSON column with the feature switches.
//   - Members: membership rows (creator included).
//   - FeedbackRefs: ids of feedback posted in the forum; derived, not stored.
type Forum struct {
	ID           string                            `json:"id"          gorm:"type:char(36);primaryKey"`
	Name         string                            `json:"name"        gorm:"type:varchar(100);not null;uniqueIndex"`
	Description  string                            `json:"description" gorm:"type:varchar(500);not null;default:''"`
	Project      string                            `json:"project"     gorm:"type:varchar(100);not null;default:'';index"`
	CreatorID    string                            `json:"creator_id"  gorm:"type:char(36);not null;index"`
	Status       ForumStatus                       `json:"status"      gorm:"type:varchar(16);not null;default:'active';index"`
	Settings     datatypes.JSONType[ForumSettings] `json:"settings"`
	CreatedAt    time.Time                         `json:"created_at"`
	UpdatedAt    time.Time                         `json:"updated_at"`
	Members      []ForumMember                     `json:"-"           gorm:"foreignKey:ForumID;references:ID"`
	FeedbackRefs []string                          `json:"feedback_refs,omitempty" gorm:"-"`
}

// TableName returns the database table name for Forum.
func (Forum) TableName() string { return "forums" }

// Config returns the decoded forum settings.
func (f *Forum) Config() ForumSettings { return f.Settings.Data() }

// MemberIDs lists the user ids of the loaded membership rows.
func (f *Forum) MemberIDs() []string {
	out := make([]string, 0, len(f.Members))
	for _, m := range f.Members {
		out = append(out, m.UserID)
	}
	return out
}

// HasMember reports whether userID appears in the loaded membership rows.
func (f *Forum) HasMember(userID string) bool {
	for _, m := range f.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// ForumMember links a user to a forum.
type ForumMember struct {
	ForumID  string    `json:"forum_id"  gorm:"type:char(36);primaryKey"`
	UserID   string    `json:"user_id"   gorm:"type:char(36);primaryKey;index"`
	JoinedAt time.Time `json:"joined_at" gorm:"not null"`
}

// TableName returns the database table name for ForumMember.
func (ForumMember) TableName() string { return "forum_members" }

// FeedbackTag stores one normalized tag of a feedback record. Position keeps
// the merge order so reads return tags exactly as they were written.
type FeedbackTag struct {
	FeedbackID string `gorm:"type:char(36);primaryKey"`
	Tag        string `gorm:"type:varchar(50);primaryKey;index"`
	Position   int    `gorm:"not null"`
}

// TableName returns the database table name for FeedbackTag.
func (FeedbackTag) TableName() string { return "feedback_tags" }

// FeedbackReaction is the counter for one emoji on a feedback record. Rows
// with a zero count are deleted.
type FeedbackReaction struct {
	FeedbackID string `gorm:"type:char(36);primaryKey"`
	Emoji      string `gorm:"type:varchar(32);primaryKey"`
	Count      int64  `gorm:"not null;default:0"`
}

// TableName returns the database table name for FeedbackReaction.
func (FeedbackReaction) TableName() string { return "feedback_reactions" }
