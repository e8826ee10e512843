package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tbourn/go-feedback-backend/internal/hashtag"
)

// Content bounds for feedback text, measured in characters after trimming.
const (
	MinContentLength = 15
	MaxContentLength = 500
	MaxEmojiLength   = 10
)

var (
	// ErrInvalidRecordShape is returned when the kind of a feedback record
	// does not match the references it carries.
	ErrInvalidRecordShape = errors.New("invalid feedback record shape")

	// ErrInvalidContent is returned when feedback content is outside the
	// allowed length once trimmed.
	ErrInvalidContent = errors.New("feedback content must be between 15 and 500 characters")

	// ErrInvalidReaction is returned for an empty or oversized emoji key.
	ErrInvalidReaction = errors.New("invalid reaction emoji")
)

// FeedbackKind discriminates forum feedback from peer-to-peer feedback.
type FeedbackKind string

const (
	KindForum FeedbackKind = "forum"
	KindP2P   FeedbackKind = "p2p"
)

// Category classifies forum feedback.
type Category string

const (
	CategoryBug         Category = "bug"
	CategoryImprovement Category = "improvement"
	CategoryPraise      Category = "praise"
	CategoryCriticism   Category = "criticism"
	CategorySuggestion  Category = "suggestion"
	CategoryOther       Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryBug, CategoryImprovement, CategoryPraise, CategoryCriticism, CategorySuggestion, CategoryOther:
		return true
	}
	return false
}

// Priority ranks forum feedback.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status is the moderation state of forum feedback.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInAnalysis Status = "in_analysis"
	StatusResolved   Status = "resolved"
	StatusDiscarded  Status = "discarded"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInAnalysis, StatusResolved, StatusDiscarded:
		return true
	}
	return false
}

// Feedback is the persisted feedback row. Forum-only columns are nullable and
// must be nil for P2P records; use Target to work with the kind-specific part.
//
// Fields:
//   - AuthorID: immutable reference to the writer.
//   - Kind: forum or p2p, immutable.
//   - ForumID / RecipientID: exactly one is set, matching Kind.
//   - Content: trimmed text, 15–500 chars.
//   - Category / Priority / Status / ModeratorID: forum feedback only.
//   - Tags / Reactions: child rows, loaded by the repository.
type Feedback struct {
	ID          string             `json:"id"           gorm:"type:char(36);primaryKey"`
	AuthorID    string             `json:"author_id"    gorm:"type:char(36);not null;index"`
	Kind        FeedbackKind       `json:"kind"         gorm:"type:varchar(8);not null;index"`
	ForumID     *string            `json:"forum_id"     gorm:"type:char(36);index"`
	RecipientID *string            `json:"recipient_id" gorm:"type:char(36);index"`
	Content     string             `json:"content"      gorm:"type:text;not null"`
	Anonymous   bool               `json:"anonymous"    gorm:"not null;default:false"`
	Private     bool               `json:"private"      gorm:"not null;default:false"`
	Category    *Category          `json:"category"     gorm:"type:varchar(16)"`
	Priority    *Priority          `json:"priority"     gorm:"type:varchar(16)"`
	Status      *Status            `json:"status"       gorm:"type:varchar(16);index"`
	ModeratorID *string            `json:"moderator_id" gorm:"type:char(36)"`
	CreatedAt   time.Time          `json:"created_at"   gorm:"index"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Tags        []FeedbackTag      `json:"-"            gorm:"foreignKey:FeedbackID;references:ID"`
	Reactions   []FeedbackReaction `json:"-"            gorm:"foreignKey:FeedbackID;references:ID"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }

// Target is the kind-specific part of a feedback record: either ForumTarget
// or PeerTarget.
type Target interface {
	Kind() FeedbackKind
	apply(fb *Feedback)
}

// ForumTarget carries the forum reference and the moderation fields.
type ForumTarget struct {
	ForumID     string
	Category    Category
	Priority    Priority
	Status      Status
	ModeratorID string
}

// Kind implements Target.
func (ForumTarget) Kind() FeedbackKind { return KindForum }

func (t ForumTarget) apply(fb *Feedback) {
	fb.Kind = KindForum
	fb.ForumID = strPtr(t.ForumID)
	fb.RecipientID = nil
	cat, pri, st := t.Category, t.Priority, t.Status
	if cat == "" {
		cat = CategoryOther
	}
	if pri == "" {
		pri = PriorityMedium
	}
	if st == "" {
		st = StatusPending
	}
	fb.Category, fb.Priority, fb.Status = &cat, &pri, &st
	fb.ModeratorID = nil
	if t.ModeratorID != "" {
		fb.ModeratorID = strPtr(t.ModeratorID)
	}
}

// PeerTarget carries the recipient of peer-to-peer feedback.
type PeerTarget struct {
	RecipientID string
}

// Kind implements Target.
func (PeerTarget) Kind() FeedbackKind { return KindP2P }

func (t PeerTarget) apply(fb *Feedback) {
	fb.Kind = KindP2P
	fb.RecipientID = strPtr(t.RecipientID)
	fb.ForumID = nil
	fb.Category, fb.Priority, fb.Status, fb.ModeratorID = nil, nil, nil, nil
}

// SetTarget overwrites the kind-specific columns of fb with t. Columns that
// do not belong to t's kind are cleared.
func (fb *Feedback) SetTarget(t Target) { t.apply(fb) }

// Target returns the kind-specific view of fb, or ErrInvalidRecordShape when
// the row's references or moderation fields do not match its kind.
func (fb *Feedback) Target() (Target, error) {
	switch fb.Kind {
	case KindForum:
		if isBlank(fb.ForumID) || fb.RecipientID != nil {
			return nil, ErrInvalidRecordShape
		}
		t := ForumTarget{ForumID: *fb.ForumID}
		if fb.Category != nil {
			t.Category = *fb.Category
		}
		if fb.Priority != nil {
			t.Priority = *fb.Priority
		}
		if fb.Status != nil {
			t.Status = *fb.Status
		}
		if fb.ModeratorID != nil {
			t.ModeratorID = *fb.ModeratorID
		}
		return t, nil
	case KindP2P:
		if isBlank(fb.RecipientID) || fb.ForumID != nil {
			return nil, ErrInvalidRecordShape
		}
		if fb.Category != nil || fb.Priority != nil || fb.Status != nil || fb.ModeratorID != nil {
			return nil, ErrInvalidRecordShape
		}
		return PeerTarget{RecipientID: *fb.RecipientID}, nil
	}
	return nil, ErrInvalidRecordShape
}

// Validate checks the record before it is written: shape first, then
// content length, then enum values of the moderation fields.
func (fb *Feedback) Validate() error {
	t, err := fb.Target()
	if err != nil {
		return err
	}
	if err := ValidateContent(fb.Content); err != nil {
		return err
	}
	if ft, ok := t.(ForumTarget); ok {
		if !ft.Category.Valid() || !ft.Priority.Valid() || !ft.Status.Valid() {
			return ErrInvalidRecordShape
		}
	}
	if len(fb.Tags) > hashtag.MaxTags {
		return ErrInvalidRecordShape
	}
	return nil
}

// TagNames returns the record's tags in stored order.
func (fb *Feedback) TagNames() []string {
	out := make([]string, len(fb.Tags))
	for _, t := range fb.Tags {
		if t.Position >= 0 && t.Position < len(out) {
			out[t.Position] = t.Tag
		}
	}
	return out
}

// SetTags replaces the tag rows of fb with tags, keeping their order.
func (fb *Feedback) SetTags(tags []string) {
	fb.Tags = make([]FeedbackTag, 0, len(tags))
	for i, t := range tags {
		fb.Tags = append(fb.Tags, FeedbackTag{FeedbackID: fb.ID, Tag: t, Position: i})
	}
}

// ReactionCounts returns the loaded reaction rows as a Reactions map.
func (fb *Feedback) ReactionCounts() Reactions {
	out := make(Reactions, len(fb.Reactions))
	for _, r := range fb.Reactions {
		if r.Count > 0 {
			out[r.Emoji] = r.Count
		}
	}
	return out
}

// Draft is the caller-supplied input for a new feedback record. Both
// references are present so malformed requests can be rejected rather than
// silently reshaped.
type Draft struct {
	Kind        FeedbackKind
	ForumID     string
	RecipientID string
	Content     string
	Tags        []string
	Anonymous   bool
	Private     bool
	Category    Category
	Priority    Priority
}

// Target resolves the draft into its kind-specific part. Forum drafts need a
// forum and no recipient; P2P drafts need a recipient, no forum, and no
// moderation fields.
func (d Draft) Target() (Target, error) {
	forum, recipient := strings.TrimSpace(d.ForumID), strings.TrimSpace(d.RecipientID)
	switch d.Kind {
	case KindForum:
		if forum == "" || recipient != "" {
			return nil, ErrInvalidRecordShape
		}
		if (d.Category != "" && !d.Category.Valid()) || (d.Priority != "" && !d.Priority.Valid()) {
			return nil, ErrInvalidRecordShape
		}
		return ForumTarget{ForumID: forum, Category: d.Category, Priority: d.Priority}, nil
	case KindP2P:
		if recipient == "" || forum != "" {
			return nil, ErrInvalidRecordShape
		}
		if d.Category != "" || d.Priority != "" {
			return nil, ErrInvalidRecordShape
		}
		return PeerTarget{RecipientID: recipient}, nil
	}
	return nil, ErrInvalidRecordShape
}

// NewFeedback builds a validated record from a draft. Content is trimmed and
// tags are merged from the explicit list and the content, capped at
// hashtag.MaxTags.
func NewFeedback(id, authorID string, d Draft, now time.Time) (*Feedback, error) {
	t, err := d.Target()
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(d.Content)
	if err := ValidateContent(content); err != nil {
		return nil, err
	}
	fb := &Feedback{
		ID:        id,
		AuthorID:  authorID,
		Content:   content,
		Anonymous: d.Anonymous,
		Private:   d.Private,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fb.SetTarget(t)
	fb.SetTags(hashtag.Merge(d.Tags, content))
	return fb, nil
}

// ValidateContent enforces the trimmed length bounds.
func ValidateContent(content string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n < MinContentLength || n > MaxContentLength {
		return ErrInvalidContent
	}
	return nil
}

// ValidateEmoji checks a reaction key.
func ValidateEmoji(emoji string) error {
	n := utf8.RuneCountInString(emoji)
	if strings.TrimSpace(emoji) == "" || n > MaxEmojiLength {
		return ErrInvalidReaction
	}
	return nil
}

// Reactions maps an emoji to its positive count.
type Reactions map[string]int64

// Add returns a copy of r with emoji incremented, creating it at 1.
func (r Reactions) Add(emoji string) Reactions {
	out := r.clone()
	out[emoji]++
	return out
}

// Remove returns a copy of r with emoji decremented. The entry disappears at
// zero; removing a missing emoji returns an equal copy.
func (r Reactions) Remove(emoji string) Reactions {
	out := r.clone()
	n, ok := out[emoji]
	if !ok {
		return out
	}
	if n <= 1 {
		delete(out, emoji)
		return out
	}
	out[emoji] = n - 1
	return out
}

func (r Reactions) clone() Reactions {
	out := make(Reactions, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

func strPtr(s string) *string { return &s }

func isBlank(p *string) bool { return p == nil || strings.TrimSpace(*p) == "" }
