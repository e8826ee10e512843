// Package handlers exposes the feedback platform over HTTP. Handlers are
// transport-thin: they bind and check request shape, call the services with
// the caller id taken from X-User-ID, and translate results and service
// errors into JSON responses.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/http/middleware"
	"github.com/tbourn/go-feedback-backend/internal/permission"
	"github.com/tbourn/go-feedback-backend/internal/repo"
	"github.com/tbourn/go-feedback-backend/internal/services"
)

// UserService registers and reads users.
type UserService interface {
	Create(ctx context.Context, name, email string, role domain.Role) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
}

// ForumService manages forums and their membership.
type ForumService interface {
	Create(ctx context.Context, actorID string, in services.ForumInput) (*domain.Forum, error)
	Get(ctx context.Context, actorID, id string) (*domain.Forum, permission.Capabilities, error)
	List(ctx context.Context, actorID string, filter repo.ForumFilter, page, pageSize int) ([]domain.Forum, int64, error)
	ForUser(ctx context.Context, actorID string) ([]domain.Forum, error)
	Permissions(ctx context.Context, actorID, id string) (permission.Capabilities, error)
	Update(ctx context.Context, actorID, id string, patch services.ForumPatch) (*domain.Forum, error)
	ChangeStatus(ctx context.Context, actorID, id string, status domain.ForumStatus) (*domain.Forum, error)
	Delete(ctx context.Context, actorID, id string) error
	AddMember(ctx context.Context, actorID, id, userID string) (*domain.Forum, error)
	RemoveMember(ctx context.Context, actorID, id, userID string) (*domain.Forum, error)
}

// FeedbackService creates, reads, edits and moderates feedback records.
type FeedbackService interface {
	CreateForum(ctx context.Context, actorID string, d domain.Draft) (*domain.Feedback, error)
	CreateP2P(ctx context.Context, actorID string, d domain.Draft) (*domain.Feedback, error)
	CreateOnce(ctx context.Context, actorID, scope, key string, create func() (*domain.Feedback, error)) (*domain.Feedback, bool, error)
	Get(ctx context.Context, viewerID, id string) (*domain.Feedback, error)
	List(ctx context.Context, viewerID string, filter repo.FeedbackFilter, page, pageSize int) ([]domain.Feedback, int64, error)
	ListETag(ctx context.Context, viewerID string, filter repo.FeedbackFilter, page, pageSize int) (string, error)
	Sent(ctx context.Context, viewerID, userID string, page, pageSize int) ([]domain.Feedback, int64, error)
	Received(ctx context.Context, viewerID, userID string, page, pageSize int) ([]domain.Feedback, int64, error)
	ByHashtag(ctx context.Context, viewerID, tag string, page, pageSize int) ([]domain.Feedback, int64, error)
	Update(ctx context.Context, actorID, id string, patch services.FeedbackPatch) (*domain.Feedback, error)
	Delete(ctx context.Context, actorID, id string) error
	AddReaction(ctx context.Context, actorID, id, emoji string) (*domain.Feedback, error)
	RemoveReaction(ctx context.Context, actorID, id, emoji string) (*domain.Feedback, error)
	ChangeStatus(ctx context.Context, actorID, id string, status domain.Status) (*domain.Feedback, error)
}

// HashtagService serves tag rankings, lookups and maintenance.
type HashtagService interface {
	Popular(ctx context.Context, limit int) ([]domain.HashtagStats, error)
	Trending(ctx context.Context, limit int) ([]domain.HashtagStats, error)
	Search(ctx context.Context, text string, limit int) ([]domain.HashtagStats, error)
	Suggest(ctx context.Context, text string, limit int) ([]string, error)
	Detail(ctx context.Context, viewerID, tag string) (*services.HashtagDetail, error)
	Overview(ctx context.Context) (*services.HashtagOverview, error)
	Analysis(ctx context.Context, days int) (*services.HashtagAnalysis, error)
	RequireAdmin(ctx context.Context, actorID string) error
	ResetWeekly(ctx context.Context) (int64, error)
	ResetMonthly(ctx context.Context) (int64, error)
	DeactivateInactive(ctx context.Context, days int) (int64, error)
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	users    UserService
	forums   ForumService
	feedback FeedbackService
	hashtags HashtagService
}

// New binds handlers to their services.
func New(users UserService, forums ForumService, feedback FeedbackService, hashtags HashtagService) *Handlers {
	return &Handlers{
		users:    users,
		forums:   forums,
		feedback: feedback,
		hashtags: hashtags,
	}
}

// actorID is the caller id from X-User-ID, "" for anonymous callers.
func actorID(c *gin.Context) string { return middleware.UserID(c) }
