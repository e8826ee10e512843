// Package services – ForumService
//
// ForumService owns the forum lifecycle: creation by admins, membership
// changes, status changes and deletion. Every operation computes the actor's
// capability set with the permission package before touching storage.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/permission"
	"github.com/tbourn/go-feedback-backend/internal/repo"
)

// Forum field bounds, in characters.
const (
	ForumNameMin        = 5
	ForumNameMax        = 100
	ForumDescriptionMax = 500
	ForumProjectMax     = 100
)

// ForumInput is the payload for creating a forum. Nil Settings selects
// domain.DefaultForumSettings.
type ForumInput struct {
	Name        string
	Description string
	Project     string
	Settings    *domain.ForumSettings
}

// ForumPatch lists the forum fields to change. Nil fields are left as is.
type ForumPatch struct {
	Name        *string
	Description *string
	Project     *string
	Settings    *domain.ForumSettings
}

// ForumService implements the forum use-cases.
type ForumService struct {
	DB  *gorm.DB
	Now Clock
}

// Create inserts a forum owned by the acting admin. The creator becomes its
// first member.
func (s *ForumService) Create(ctx context.Context, actorID string, in ForumInput) (*domain.Forum, error) {
	tr := otel.Tracer("services/ForumService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", actorID)))
	defer span.End()

	actor, err := requireActor(ctx, s.DB, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	name, desc, project := strings.TrimSpace(in.Name), strings.TrimSpace(in.Description), strings.TrimSpace(in.Project)
	if err := validateForumFields(name, desc, project); err != nil {
		return nil, err
	}
	settings := domain.DefaultForumSettings()
	if in.Settings != nil {
		settings = *in.Settings
	}

	now := s.Now.now()
	f := &domain.Forum{
		ID:          uuid.NewString(),
		Name:        name,
		Description: desc,
		Project:     project,
		CreatorID:   actor.ID,
		Status:      domain.ForumActive,
		Settings:    datatypes.NewJSONType(settings),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.CreateForum(ctx, s.DB, f); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrForumNameTaken
		}
		return nil, err
	}
	f.FeedbackRefs = []string{}
	logger(ctx).Info().Str("forum_id", f.ID).Str("creator_id", actor.ID).Msg("forum created")
	return f, nil
}

// Get returns a forum with members, feedback references and the viewer's
// capabilities. actorID may be blank for an anonymous viewer.
func (s *ForumService) Get(ctx context.Context, actorID, id string) (*domain.Forum, permission.Capabilities, error) {
	tr := otel.Tracer("services/ForumService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("forum.id", id)))
	defer span.End()

	actor, err := resolveActor(ctx, s.DB, actorID)
	if err != nil {
		return nil, permission.Capabilities{}, err
	}
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, permission.Capabilities{}, err
	}
	caps := permission.ForForum(f, actor)
	if !caps.View {
		return nil, caps, ErrPermissionDenied
	}
	if err := repo.LoadFeedbackRefs(ctx, s.DB, f); err != nil {
		return nil, caps, err
	}
	return f, caps, nil
}

// List returns one page of the forums matching filter that the viewer can
// see, newest first, and the number of such forums.
func (s *ForumService) List(ctx context.Context, actorID string, filter repo.ForumFilter, page, pageSize int) ([]domain.Forum, int64, error) {
	tr := otel.Tracer("services/ForumService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize)),
	)
	defer span.End()

	actor, err := resolveActor(ctx, s.DB, actorID)
	if err != nil {
		return nil, 0, err
	}
	offset, limit := pageWindow(page, pageSize)
	return repo.ListVisibleForums(ctx, s.DB, filter, viewerScope(actor), offset, limit)
}

// ForUser lists the forums the acting user created or belongs to.
func (s *ForumService) ForUser(ctx context.Context, actorID string) ([]domain.Forum, error) {
	actor, err := requireActor(ctx, s.DB, actorID)
	if err != nil {
		return nil, err
	}
	return repo.ListForums(ctx, s.DB, repo.ForumFilter{MemberID: actor.ID})
}

// Permissions computes the capability set of the actor on a forum.
func (s *ForumService) Permissions(ctx context.Context, actorID, id string) (permission.Capabilities, error) {
	actor, err := resolveActor(ctx, s.DB, actorID)
	if err != nil {
		return permission.Capabilities{}, err
	}
	f, err := s.load(ctx, id)
	if err != nil {
		return permission.Capabilities{}, err
	}
	return permission.ForForum(f, actor), nil
}

// Update applies patch to a forum. Requires the edit capability.
func (s *ForumService) Update(ctx context.Context, actorID, id string, patch ForumPatch) (*domain.Forum, error) {
	tr := otel.Tracer("services/ForumService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(attribute.String("forum.id", id)))
	defer span.End()

	f, actor, err := s.authorize(ctx, actorID, id, func(c permission.Capabilities) bool { return c.Edit })
	if err != nil {
		return nil, err
	}

	name, desc, project := f.Name, f.Description, f.Project
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		desc = strings.TrimSpace(*patch.Description)
	}
	if patch.Project != nil {
		project = strings.TrimSpace(*patch.Project)
	}
	if err := validateForumFields(name, desc, project); err != nil {
		return nil, err
	}
	if name != f.Name {
		taken, err := repo.ForumNameTaken(ctx, s.DB, name, f.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrForumNameTaken
		}
	}

	fields := map[string]any{"name": name, "description": desc, "project": project}
	if patch.Settings != nil {
		fields["settings"] = datatypes.NewJSONType(*patch.Settings)
	}
	if err := repo.UpdateForum(ctx, s.DB, f.ID, fields, s.Now.now()); err != nil {
		return nil, mapForumErr(err)
	}
	logger(ctx).Info().Str("forum_id", f.ID).Str("actor_id", actor.ID).Msg("forum updated")
	return s.load(ctx, f.ID)
}

// ChangeStatus moves a forum to status. Requires the edit capability.
func (s *ForumService) ChangeStatus(ctx context.Context, actorID, id string, status domain.ForumStatus) (*domain.Forum, error) {
	if !status.Valid() {
		return nil, ErrInvalidInput
	}
	f, _, err := s.authorize(ctx, actorID, id, func(c permission.Capabilities) bool { return c.Edit })
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateForum(ctx, s.DB, f.ID, map[string]any{"status": status}, s.Now.now()); err != nil {
		return nil, mapForumErr(err)
	}
	return s.load(ctx, f.ID)
}

// Delete removes a forum with its members and feedback. Requires the delete
// capability.
func (s *ForumService) Delete(ctx context.Context, actorID, id string) error {
	tr := otel.Tracer("services/ForumService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("forum.id", id)))
	defer span.End()

	f, actor, err := s.authorize(ctx, actorID, id, func(c permission.Capabilities) bool { return c.Delete })
	if err != nil {
		return err
	}
	if err := repo.DeleteForum(ctx, s.DB, f.ID); err != nil {
		return mapForumErr(err)
	}
	logger(ctx).Info().Str("forum_id", f.ID).Str("actor_id", actor.ID).Msg("forum deleted")
	return nil
}

// AddMember adds userID to a forum. Adding an existing member is a no-op.
func (s *ForumService) AddMember(ctx context.Context, actorID, id, userID string) (*domain.Forum, error) {
	f, _, err := s.authorize(ctx, actorID, id, func(c permission.Capabilities) bool { return c.AddMembers })
	if err != nil {
		return nil, err
	}
	if _, err := repo.GetUser(ctx, s.DB, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if _, err := repo.AddForumMember(ctx, s.DB, f.ID, userID, s.Now.now()); err != nil {
		return nil, err
	}
	return s.load(ctx, f.ID)
}

// RemoveMember removes userID from a forum. The creator cannot be removed;
// removing a non-member is a no-op.
func (s *ForumService) RemoveMember(ctx context.Context, actorID, id, userID string) (*domain.Forum, error) {
	f, _, err := s.authorize(ctx, actorID, id, func(c permission.Capabilities) bool { return c.RemoveMembers })
	if err != nil {
		return nil, err
	}
	if userID == f.CreatorID {
		return nil, ErrCreatorNotRemovable
	}
	if _, err := repo.RemoveForumMember(ctx, s.DB, f.ID, userID); err != nil {
		return nil, err
	}
	return s.load(ctx, f.ID)
}

func (s *ForumService) load(ctx context.Context, id string) (*domain.Forum, error) {
	f, err := repo.GetForum(ctx, s.DB, id)
	if err != nil {
		return nil, mapForumErr(err)
	}
	return f, nil
}

// authorize loads the forum and checks the actor's capability with allowed.
func (s *ForumService) authorize(ctx context.Context, actorID, id string, allowed func(permission.Capabilities) bool) (*domain.Forum, *domain.User, error) {
	actor, err := requireActor(ctx, s.DB, actorID)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !allowed(permission.ForForum(f, actor)) {
		return nil, nil, ErrPermissionDenied
	}
	return f, actor, nil
}

func mapForumErr(err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrForumNotFound
	case errors.Is(err, repo.ErrDuplicate):
		return ErrForumNameTaken
	}
	return err
}

func validateForumFields(name, desc, project string) error {
	if n := utf8.RuneCountInString(name); n < ForumNameMin || n > ForumNameMax {
		return ErrInvalidForum
	}
	if utf8.RuneCountInString(desc) > ForumDescriptionMax || utf8.RuneCountInString(project) > ForumProjectMax {
		return ErrInvalidForum
	}
	return nil
}
