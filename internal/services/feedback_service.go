// Package services – FeedbackService
//
// FeedbackService governs forum and peer-to-peer feedback: creation with tag
// extraction, visibility-filtered reads, author/admin edits, emoji reactions
// and moderation status changes. Records are validated by the domain model
// before every write; hashtag statistics are recorded after the write has
// committed and never fail the request.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/hashtag"
	"github.com/tbourn/go-feedback-backend/internal/permission"
	"github.com/tbourn/go-feedback-backend/internal/repo"
)

// FeedbackPatch lists the fields an author or admin may change. Nil fields
// are left as is. Category and Priority only apply to forum feedback.
type FeedbackPatch struct {
	Content  *string
	Tags     *[]string
	Private  *bool
	Category *domain.Category
	Priority *domain.Priority
}

// FeedbackService implements the feedback use-cases.
type FeedbackService struct {
	DB *gorm.DB
	// Hashtags receives tag uses of new and edited records. Optional.
	Hashtags HashtagStore
	// Cache holds hashtag rankings; it is dropped after tag uses are
	// recorded. Optional.
	Cache RankingCache
	Now   Clock
	// IdempotencyTTL bounds how long create replays are honored.
	IdempotencyTTL time.Duration
}

// CreateForum posts feedback to a forum. The draft's kind is forced to
// forum; the actor needs the give-feedback capability, and anonymous
// feedback requires a forum that allows it.
func (s *FeedbackService) CreateForum(ctx context.Context, actorID string, d domain.Draft) (*domain.Feedback, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "CreateForum",
		trace.WithAttributes(attribute.String("user.id", actorID), attribute.String("forum.id", d.ForumID)),
	)
	defer span.End()

	actor, err := requireActor(ctx, s.DB, actorID)
	if err != nil {
		return nil, err
	}
	d.Kind = domain.KindForum
	fb, err := domain.NewFeedback(uuid.NewString(), actor.ID, d, s.Now.now())
	if err != nil {
		return nil, err
	}

	forum, err := repo.GetForum(ctx, s.DB, *fb.ForumID)
	if err != nil {
		return nil, mapForumErr(err)
	}
	if !permission.ForForum(forum, actor).GiveFeedback {
		return nil, ErrPermissionDenied
	}
	if fb.Anonymous && !forum.Config().AnonymousFeedbackAllowed {
		return nil, ErrPermissionDenied
	}
	return s.persist(ctx, fb)
}

// CreateP2P sends feedback to another user. Feedback to oneself fails with
// ErrSelfFeedbackNotAllowed.
func (s *FeedbackService) CreateP2P(ctx context.Context, actorID string, d domain.Draft) (*domain.Feedback, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "CreateP2P",
		trace.WithAttributes(attribute.String("user.id", actorID), attribute.String("recipient.id", d.RecipientID)),
	)
	defer span.End()

	actor, err := requireActor(ctx, s.DB, actorID)
	if err != nil {
		return nil, err
	}
	d.Kind = domain.KindP2P
	fb, err := domain.NewFeedback(uuid.NewString(), actor.ID, d, s.Now.now())
	if err != nil {
		return nil, err
	}
	if *fb.RecipientID == actor.ID {
		return nil, ErrSelfFeedbackNotAllowed
	}
	if _, err := repo.GetUser(ctx, s.DB, *fb.RecipientID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.persist(ctx, fb)
}

func (s *FeedbackService) persist(ctx context.Context, fb *domain.Feedback) (*domain.Feedback, error) {
	if err := repo.CreateFeedback(ctx, s.DB, fb); err != nil {
		return nil, err
	}
	feedbackCreated.WithLabelValues(string(fb.Kind)).Inc()
	s.recordTags(ctx, fb.TagNames())
	logger(ctx).Info().
		Str("feedback_id", fb.ID).
		Str("kind", string(fb.Kind)).
		Int("tags", len(fb.Tags)).
		Msg("feedback created")
	return fb, nil
}

// recordTags bumps the statistics of tags. Failures are logged only: the
// feedback write has already committed.
func (s *FeedbackService) recordTags(ctx context.Context, tags []string) {
	if s.Hashtags == nil || len(tags) == 0 {
		return
	}
	if err := s.Hashtags.RecordUses(ctx, tags, s.Now.now()); err != nil {
		logger(ctx).Warn().Err(err).Strs("tags", tags).Msg("hashtag stats not recorded")
		return
	}
	hashtagUses.Add(float64(len(tags)))
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx); err != nil {
			logger(ctx).Warn().Err(err).Msg("ranking cache not invalidated")
		}
	}
}

// CreateOnce runs create unless actorID already used key for scope within
// IdempotencyTTL, in which case the originally created record is returned
// with replayed set. A blank key always creates.
func (s *FeedbackService) CreateOnce(ctx context.Context, actorID, scope, key string, create func() (*domain.Feedback, error)) (fb *domain.Feedback, replayed bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" || actorID == "" || s.IdempotencyTTL <= 0 {
		fb, err = create()
		return fb, false, err
	}
	now := s.Now.now()
	rec, err := repo.GetIdempotency(ctx, s.DB, actorID, scope, key, now)
	switch {
	case err == nil:
		fb, err := repo.GetFeedback(ctx, s.DB, rec.ResourceID)
		if err != nil {
			return nil, false, mapFeedbackErr(err)
		}
		return fb, true, nil
	case !errors.Is(err, repo.ErrNotFound):
		return nil, false, err
	}

	fb, err = create()
	if err != nil {
		return nil, false, err
	}
	if _, err := repo.CreateIdempotency(ctx, s.DB, actorID, scope, key, fb.ID, http.StatusCreated, now, s.IdempotencyTTL); err != nil {
		logger(ctx).Warn().Err(err).Str("key", key).Msg("idempotency record not stored")
	}
	return fb, false, nil
}

// Get returns a record the viewer may see. Anonymous authorship is hidden
// from everyone but the author and admins.
func (s *FeedbackService) Get(ctx context.Context, viewerID, id string) (*domain.Feedback, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("feedback.id", id)))
	defer span.End()

	viewer, err := resolveActor(ctx, s.DB, viewerID)
	if err != nil {
		return nil, err
	}
	fb, err := s.loadVisible(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	hideAuthor(fb, viewer)
	return fb, nil
}

// List returns one page of records matching filter that the viewer may see,
// newest first, and the number of such records.
func (s *FeedbackService) List(ctx context.Context, viewerID string, filter repo.FeedbackFilter, page, pageSize int) ([]domain.Feedback, int64, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize)),
	)
	defer span.End()

	viewer, err := resolveActor(ctx, s.DB, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return s.list(ctx, viewer, filter, page, pageSize)
}

// ListETag returns a weak validator for one List page of viewerID and
// filter. It changes whenever a matching visible record is added, removed or
// touched.
func (s *FeedbackService) ListETag(ctx context.Context, viewerID string, filter repo.FeedbackFilter, page, pageSize int) (string, error) {
	viewer, err := resolveActor(ctx, s.DB, viewerID)
	if err != nil {
		return "", err
	}
	count, last, err := repo.FeedbackStats(ctx, s.DB, filter, viewerScope(viewer))
	if err != nil {
		return "", err
	}
	var ts int64
	if last != nil {
		ts = last.UnixNano()
	}
	who := "anon"
	if viewer != nil {
		who = viewer.ID
	}
	offset, limit := pageWindow(page, pageSize)
	return fmt.Sprintf(`W/"feedback:%s:%d:%d:%d:%d"`, who, offset, limit, count, ts), nil
}

func (s *FeedbackService) list(ctx context.Context, viewer *domain.User, filter repo.FeedbackFilter, page, pageSize int) ([]domain.Feedback, int64, error) {
	offset, limit := pageWindow(page, pageSize)
	items, total, err := repo.ListFeedback(ctx, s.DB, filter, viewerScope(viewer), offset, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		hideAuthor(&items[i], viewer)
	}
	return items, total, nil
}

// Sent lists feedback written by userID. Other viewers do not see the
// user's anonymous records.
func (s *FeedbackService) Sent(ctx context.Context, viewerID, userID string, page, pageSize int) ([]domain.Feedback, int64, error) {
	viewer, err := s.userListing(ctx, viewerID, userID)
	if err != nil {
		return nil, 0, err
	}
	filter := repo.FeedbackFilter{AuthorID: userID}
	if viewer == nil || (viewer.ID != userID && !viewer.IsAdmin()) {
		named := false
		filter.Anonymous = &named
	}
	return s.list(ctx, viewer, filter, page, pageSize)
}

// Received lists P2P feedback addressed to userID.
func (s *FeedbackService) Received(ctx context.Context, viewerID, userID string, page, pageSize int) ([]domain.Feedback, int64, error) {
	viewer, err := s.userListing(ctx, viewerID, userID)
	if err != nil {
		return nil, 0, err
	}
	return s.list(ctx, viewer, repo.FeedbackFilter{Kind: domain.KindP2P, RecipientID: userID}, page, pageSize)
}

func (s *FeedbackService) userListing(ctx context.Context, viewerID, userID string) (*domain.User, error) {
	viewer, err := resolveActor(ctx, s.DB, viewerID)
	if err != nil {
		return nil, err
	}
	if _, err := repo.GetUser(ctx, s.DB, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return viewer, nil
}

// ByHashtag lists visible records carrying tag.
func (s *FeedbackService) ByHashtag(ctx context.Context, viewerID, tag string, page, pageSize int) ([]domain.Feedback, int64, error) {
	tag = hashtag.Normalize(tag)
	if tag == "" {
		return nil, 0, ErrInvalidInput
	}
	return s.List(ctx, viewerID, repo.FeedbackFilter{Tag: tag}, page, pageSize)
}

// Update edits a record. Only its author or an admin may do so. Changing
// the content or the tag list re-merges the tags; tags new to the record
// are recorded in the statistics.
func (s *FeedbackService) Update(ctx context.Context, actorID, id string, patch FeedbackPatch) (*domain.Feedback, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(attribute.String("feedback.id", id)))
	defer span.End()

	actor, fb, err := s.modifiable(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if fb.Kind == domain.KindP2P && (patch.Category != nil || patch.Priority != nil) {
		return nil, domain.ErrInvalidRecordShape
	}
	if patch.Category != nil {
		c := *patch.Category
		fb.Category = &c
	}
	if patch.Priority != nil {
		p := *patch.Priority
		fb.Priority = &p
	}
	if patch.Private != nil {
		fb.Private = *patch.Private
	}

	prevTags := fb.TagNames()
	retag := false
	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if err := domain.ValidateContent(content); err != nil {
			return nil, err
		}
		retag = content != fb.Content
		fb.Content = content
	}
	if patch.Tags != nil {
		fb.SetTags(hashtag.Merge(*patch.Tags, fb.Content))
		retag = true
	} else if retag {
		fb.SetTags(hashtag.Merge(prevTags, fb.Content))
	}

	fb.UpdatedAt = s.Now.now()
	if err := repo.SaveFeedback(ctx, s.DB, fb, retag); err != nil {
		return nil, mapFeedbackErr(err)
	}
	if retag {
		s.recordTags(ctx, hashtag.Added(prevTags, fb.TagNames()))
	}
	logger(ctx).Info().Str("feedback_id", fb.ID).Str("actor_id", actor.ID).Msg("feedback updated")
	return s.reload(ctx, fb.ID, actor)
}

// Delete removes a record with its tags and reactions. Only its author or
// an admin may do so.
func (s *FeedbackService) Delete(ctx context.Context, actorID, id string) error {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("feedback.id", id)))
	defer span.End()

	actor, fb, err := s.modifiable(ctx, actorID, id)
	if err != nil {
		return err
	}
	if err := repo.DeleteFeedback(ctx, s.DB, fb.ID); err != nil {
		return mapFeedbackErr(err)
	}
	logger(ctx).Info().Str("feedback_id", fb.ID).Str("actor_id", actor.ID).Msg("feedback deleted")
	return nil
}

// AddReaction adds one emoji reaction from the actor to a visible record.
func (s *FeedbackService) AddReaction(ctx context.Context, actorID, id, emoji string) (*domain.Feedback, error) {
	return s.react(ctx, actorID, id, emoji, true)
}

// RemoveReaction takes one emoji reaction off a visible record. Removing an
// absent reaction is a no-op.
func (s *FeedbackService) RemoveReaction(ctx context.Context, actorID, id, emoji string) (*domain.Feedback, error) {
	return s.react(ctx, actorID, id, emoji, false)
}

func (s *FeedbackService) react(ctx context.Context, actorID, id, emoji string, add bool) (*domain.Feedback, error) {
	op := "remove"
	if add {
		op = "add"
	}
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Reaction",
		trace.WithAttributes(attribute.String("feedback.id", id), attribute.String("op", op)),
	)
	defer span.End()

	emoji = strings.TrimSpace(emoji)
	if err := domain.ValidateEmoji(emoji); err != nil {
		return nil, err
	}
	actor, err := requireActor(ctx, s.DB, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadVisible(ctx, id, actor); err != nil {
		return nil, err
	}

	now := s.Now.now()
	if add {
		err = repo.IncrementReaction(ctx, s.DB, id, emoji, now)
	} else {
		var changed bool
		changed, err = repo.DecrementReaction(ctx, s.DB, id, emoji, now)
		if !changed {
			op = "noop"
		}
	}
	if err != nil {
		return nil, mapFeedbackErr(err)
	}
	reactionChanges.WithLabelValues(op).Inc()
	return s.reload(ctx, id, actor)
}

// ChangeStatus moves forum feedback to status and stamps the acting admin
// as moderator. Non-admins get ErrPermissionDenied; P2P records and unknown
// statuses get ErrInvalidTransition.
func (s *FeedbackService) ChangeStatus(ctx context.Context, actorID, id string, status domain.Status) (*domain.Feedback, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "ChangeStatus",
		trace.WithAttributes(attribute.String("feedback.id", id), attribute.String("status", string(status))),
	)
	defer span.End()

	actor, err := requireActor(ctx, s.DB, actorID)
	if err != nil {
		return nil, err
	}
	fb, err := repo.GetFeedback(ctx, s.DB, id)
	if err != nil {
		return nil, mapFeedbackErr(err)
	}
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if fb.Kind != domain.KindForum || !status.Valid() {
		return nil, ErrInvalidTransition
	}
	if err := repo.SetFeedbackStatus(ctx, s.DB, fb.ID, status, actor.ID, s.Now.now()); err != nil {
		return nil, mapFeedbackErr(err)
	}
	logger(ctx).Info().
		Str("feedback_id", fb.ID).
		Str("moderator_id", actor.ID).
		Str("status", string(status)).
		Msg("feedback status changed")
	return s.reload(ctx, fb.ID, actor)
}

// loadVisible fetches a record and checks the viewer may read it.
func (s *FeedbackService) loadVisible(ctx context.Context, id string, viewer *domain.User) (*domain.Feedback, error) {
	fb, err := repo.GetFeedback(ctx, s.DB, id)
	if err != nil {
		return nil, mapFeedbackErr(err)
	}
	var forum *domain.Forum
	if fb.Kind == domain.KindForum && fb.ForumID != nil {
		forum, err = repo.GetForum(ctx, s.DB, *fb.ForumID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}
	if !permission.CanViewFeedback(fb, viewer, forum) {
		return nil, ErrPermissionDenied
	}
	return fb, nil
}

// modifiable resolves the actor and the record and checks the actor may
// edit or delete it.
func (s *FeedbackService) modifiable(ctx context.Context, actorID, id string) (*domain.User, *domain.Feedback, error) {
	actor, err := requireActor(ctx, s.DB, actorID)
	if err != nil {
		return nil, nil, err
	}
	fb, err := repo.GetFeedback(ctx, s.DB, id)
	if err != nil {
		return nil, nil, mapFeedbackErr(err)
	}
	if !permission.CanModifyFeedback(fb, actor) {
		return nil, nil, ErrPermissionDenied
	}
	return actor, fb, nil
}

func (s *FeedbackService) reload(ctx context.Context, id string, viewer *domain.User) (*domain.Feedback, error) {
	fb, err := repo.GetFeedback(ctx, s.DB, id)
	if err != nil {
		return nil, mapFeedbackErr(err)
	}
	hideAuthor(fb, viewer)
	return fb, nil
}

func hideAuthor(fb *domain.Feedback, viewer *domain.User) {
	if !permission.CanSeeAuthor(fb, viewer) {
		fb.AuthorID = ""
	}
}

func viewerScope(u *domain.User) repo.Viewer {
	if u == nil {
		return repo.Viewer{}
	}
	return repo.Viewer{ID: u.ID, Admin: u.IsAdmin()}
}

func mapFeedbackErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrFeedbackNotFound
	}
	return err
}
