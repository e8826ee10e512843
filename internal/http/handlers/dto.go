package handlers

import (
	"time"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/permission"
	"github.com/tbourn/go-feedback-backend/internal/services"
)

//
// Requests
//

// CreateUserRequest registers a user.
type CreateUserRequest struct {
	Name  string      `json:"name"  binding:"required" example:"Ada Lovelace"`
	Email string      `json:"email" binding:"required,email" example:"ada@example.com"`
	Role  domain.Role `json:"role"  example:"user" enums:"user,admin,super_admin"`
}

// CreateForumRequest creates a forum. Omitted settings use the defaults.
type CreateForumRequest struct {
	Name        string                `json:"name"        binding:"required" example:"Platform Team Retro"`
	Description string                `json:"description" example:"Quarterly retrospective"`
	Project     string                `json:"project"     example:"platform"`
	Settings    *domain.ForumSettings `json:"settings,omitempty"`
}

// UpdateForumRequest patches a forum; omitted fields are unchanged.
type UpdateForumRequest struct {
	Name        *string               `json:"name,omitempty"`
	Description *string               `json:"description,omitempty"`
	Project     *string               `json:"project,omitempty"`
	Settings    *domain.ForumSettings `json:"settings,omitempty"`
}

// ForumStatusRequest changes a forum's lifecycle state.
type ForumStatusRequest struct {
	Status domain.ForumStatus `json:"status" binding:"required" example:"paused" enums:"active,paused,completed,archived"`
}

// AddMemberRequest adds a user to a forum.
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required" example:"9b2d3c4e-0000-4000-8000-000000000001"`
}

// CreateFeedbackRequest creates forum or P2P feedback. The endpoint decides
// the kind; sending the other kind's reference is rejected.
type CreateFeedbackRequest struct {
	ForumID     string          `json:"forum_id,omitempty"     example:"5f0c7a1e-0000-4000-8000-000000000002"`
	RecipientID string          `json:"recipient_id,omitempty" example:""`
	Content     string          `json:"content"                binding:"required" example:"Great job on the release! #teamwork #shipping"`
	Tags        []string        `json:"tags,omitempty"         example:"release"`
	Anonymous   bool            `json:"anonymous"`
	Private     bool            `json:"private"`
	Category    domain.Category `json:"category,omitempty"     example:"suggestion"`
	Priority    domain.Priority `json:"priority,omitempty"     example:"medium"`
}

func (r CreateFeedbackRequest) draft(kind domain.FeedbackKind) domain.Draft {
	return domain.Draft{
		Kind:        kind,
		ForumID:     r.ForumID,
		RecipientID: r.RecipientID,
		Content:     r.Content,
		Tags:        r.Tags,
		Anonymous:   r.Anonymous,
		Private:     r.Private,
		Category:    r.Category,
		Priority:    r.Priority,
	}
}

// UpdateFeedbackRequest edits a record; omitted fields are unchanged.
type UpdateFeedbackRequest struct {
	Content  *string          `json:"content,omitempty"`
	Tags     *[]string        `json:"tags,omitempty"`
	Private  *bool            `json:"private,omitempty"`
	Category *domain.Category `json:"category,omitempty"`
	Priority *domain.Priority `json:"priority,omitempty"`
}

func (r UpdateFeedbackRequest) patch() services.FeedbackPatch {
	return services.FeedbackPatch{
		Content:  r.Content,
		Tags:     r.Tags,
		Private:  r.Private,
		Category: r.Category,
		Priority: r.Priority,
	}
}

// ReactionRequest adds one emoji reaction.
type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required" example:"👍"`
}

// FeedbackStatusRequest moves forum feedback through moderation.
type FeedbackStatusRequest struct {
	Status domain.Status `json:"status" binding:"required" example:"resolved" enums:"pending,in_analysis,resolved,discarded"`
}

//
// Responses
//

// FeedbackView is the wire form of a feedback record. AuthorID is empty
// when the author is hidden from the caller.
type FeedbackView struct {
	ID          string              `json:"id"`
	Kind        domain.FeedbackKind `json:"kind"`
	AuthorID    string              `json:"author_id,omitempty"`
	ForumID     *string             `json:"forum_id,omitempty"`
	RecipientID *string             `json:"recipient_id,omitempty"`
	Content     string              `json:"content"`
	Tags        []string            `json:"tags"`
	Reactions   map[string]int64    `json:"reactions"`
	Anonymous   bool                `json:"anonymous"`
	Private     bool                `json:"private"`
	Category    *domain.Category    `json:"category,omitempty"`
	Priority    *domain.Priority    `json:"priority,omitempty"`
	Status      *domain.Status      `json:"status,omitempty"`
	ModeratorID *string             `json:"moderator_id,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func feedbackView(fb *domain.Feedback) FeedbackView {
	tags := fb.TagNames()
	if tags == nil {
		tags = []string{}
	}
	reactions := map[string]int64(fb.ReactionCounts())
	if reactions == nil {
		reactions = map[string]int64{}
	}
	return FeedbackView{
		ID:          fb.ID,
		Kind:        fb.Kind,
		AuthorID:    fb.AuthorID,
		ForumID:     fb.ForumID,
		RecipientID: fb.RecipientID,
		Content:     fb.Content,
		Tags:        tags,
		Reactions:   reactions,
		Anonymous:   fb.Anonymous,
		Private:     fb.Private,
		Category:    fb.Category,
		Priority:    fb.Priority,
		Status:      fb.Status,
		ModeratorID: fb.ModeratorID,
		CreatedAt:   fb.CreatedAt,
		UpdatedAt:   fb.UpdatedAt,
	}
}

func feedbackViews(items []domain.Feedback) []FeedbackView {
	out := make([]FeedbackView, 0, len(items))
	for i := range items {
		out = append(out, feedbackView(&items[i]))
	}
	return out
}

// FeedbackPage is one page of feedback.
type FeedbackPage struct {
	Feedback   []FeedbackView `json:"feedback"`
	Pagination Pagination     `json:"pagination"`
}

// ForumView is the wire form of a forum with its member ids and, on single
// reads, the caller's capability set.
type ForumView struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	Description  string                   `json:"description"`
	Project      string                   `json:"project"`
	CreatorID    string                   `json:"creator_id"`
	Status       domain.ForumStatus       `json:"status"`
	Settings     domain.ForumSettings     `json:"settings"`
	Members      []string                 `json:"members"`
	FeedbackRefs []string                 `json:"feedback_refs,omitempty"`
	Permissions  *permission.Capabilities `json:"permissions,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

func forumView(f *domain.Forum) ForumView {
	return ForumView{
		ID:           f.ID,
		Name:         f.Name,
		Description:  f.Description,
		Project:      f.Project,
		CreatorID:    f.CreatorID,
		Status:       f.Status,
		Settings:     f.Config(),
		Members:      f.MemberIDs(),
		FeedbackRefs: f.FeedbackRefs,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func forumViews(items []domain.Forum) []ForumView {
	out := make([]ForumView, 0, len(items))
	for i := range items {
		out = append(out, forumView(&items[i]))
	}
	return out
}

// ForumPage is one page of forums.
type ForumPage struct {
	Forums     []ForumView `json:"forums"`
	Pagination Pagination  `json:"pagination"`
}

// HashtagView is a tag's statistics plus its classification.
type HashtagView struct {
	Tag           string    `json:"tag"`
	TotalUses     int64     `json:"total_uses"`
	UsesThisWeek  int64     `json:"uses_this_week"`
	UsesThisMonth int64     `json:"uses_this_month"`
	FirstUsedAt   time.Time `json:"first_used_at"`
	LastUsedAt    time.Time `json:"last_used_at"`
	Active        bool      `json:"active"`
	Popular       bool      `json:"is_popular"`
	Trending      bool      `json:"is_trending"`
}

func hashtagView(s domain.HashtagStats) HashtagView {
	return HashtagView{
		Tag:           s.Tag,
		TotalUses:     s.TotalUses,
		UsesThisWeek:  s.UsesThisWeek,
		UsesThisMonth: s.UsesThisMonth,
		FirstUsedAt:   s.FirstUsedAt,
		LastUsedAt:    s.LastUsedAt,
		Active:        s.Active,
		Popular:       s.IsPopular(),
		Trending:      s.IsTrending(),
	}
}

func hashtagViews(items []domain.HashtagStats) []HashtagView {
	out := make([]HashtagView, 0, len(items))
	for _, s := range items {
		out = append(out, hashtagView(s))
	}
	return out
}

// HashtagList wraps a ranking or search result.
type HashtagList struct {
	Hashtags []HashtagView `json:"hashtags"`
}

// SuggestionList wraps tag suggestions.
type SuggestionList struct {
	Suggestions []string `json:"suggestions"`
}

// HashtagDetailResponse is one tag with its most recent visible feedback.
type HashtagDetailResponse struct {
	Hashtag       HashtagView    `json:"hashtag"`
	Recent        []FeedbackView `json:"recent_feedback"`
	FeedbackCount int64          `json:"feedback_count"`
}

// HashtagOverviewResponse summarizes the statistics collection.
type HashtagOverviewResponse struct {
	Totals       domain.HashtagTotals `json:"totals"`
	WeeklyGrowth int64                `json:"weekly_growth"`
	TopPopular   []HashtagView        `json:"top_popular"`
	TopTrending  []HashtagView        `json:"top_trending"`
}

// HashtagAnalysisResponse aggregates tag usage over a trailing window.
type HashtagAnalysisResponse struct {
	Days      int               `json:"days"`
	Since     time.Time         `json:"since"`
	TotalUses int64             `json:"total_uses"`
	NewTags   int64             `json:"new_tags"`
	TopTags   []domain.TagCount `json:"top_tags"`
}

// MaintenanceResult reports the rows touched by a maintenance run.
type MaintenanceResult struct {
	Operation string `json:"operation" example:"reset_weekly"`
	Affected  int64  `json:"affected"  example:"12"`
}
