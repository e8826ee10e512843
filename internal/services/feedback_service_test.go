package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/repo"
)

func newFeedbackSvc(t *testing.T) (*FeedbackService, *gorm.DB) {
	t.Helper()
	db := newSvcDB(t)
	return &FeedbackService{
		DB:             db,
		Hashtags:       repo.HashtagStore{DB: db},
		Now:            fixedClock,
		IdempotencyTTL: time.Hour,
	}, db
}

type failingStore struct{ repo.HashtagStore }

func (failingStore) RecordUses(context.Context, []string, time.Time) error {
	return errors.New("stats down")
}

func TestFeedback_RecordedTagsInvalidateRankingCache(t *testing.T) {
	s, _ := newFeedbackSvc(t)
	cache := &memCache{data: map[string][]domain.HashtagStats{"popular:10": nil}}
	s.Cache = cache
	ctx := context.Background()

	if _, err := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "Plain thanks for the review"}); err != nil {
		t.Fatalf("CreateP2P: %v", err)
	}
	if cache.invalidated != 0 {
		t.Fatalf("untagged feedback invalidated the cache")
	}
	if _, err := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "Great pairing session #golang"}); err != nil {
		t.Fatalf("CreateP2P: %v", err)
	}
	if cache.invalidated != 1 || cache.data != nil {
		t.Fatalf("invalidated = %d, data = %v", cache.invalidated, cache.data)
	}

	s.Hashtags = failingStore{}
	if _, err := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "Another tagged note #golang"}); err != nil {
		t.Fatalf("CreateP2P: %v", err)
	}
	if cache.invalidated != 1 {
		t.Fatalf("failed record still invalidated the cache")
	}
}

func TestFeedback_TagsAndStatsEndToEnd(t *testing.T) {
	s, db := newFeedbackSvc(t)
	ctx := context.Background()

	fb, err := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "Great job! #awesome #teamwork"})
	if err != nil {
		t.Fatalf("CreateP2P: %v", err)
	}
	if got := fb.TagNames(); !reflect.DeepEqual(got, []string{"awesome", "teamwork"}) {
		t.Fatalf("tags = %v", got)
	}
	st, err := repo.GetHashtag(ctx, db, "awesome")
	if err != nil {
		t.Fatalf("GetHashtag: %v", err)
	}
	if st.TotalUses != 1 || st.UsesThisWeek != 1 {
		t.Fatalf("stats after first use = %+v", st)
	}

	if _, err := s.CreateP2P(ctx, "bob", domain.Draft{RecipientID: "alice", Content: "Thanks, you too #awesome"}); err != nil {
		t.Fatalf("CreateP2P: %v", err)
	}
	st, _ = repo.GetHashtag(ctx, db, "awesome")
	if st.TotalUses != 2 {
		t.Fatalf("TotalUses = %d, want 2", st.TotalUses)
	}
}

func TestFeedback_StatusChangeEndToEnd(t *testing.T) {
	s, db := newFeedbackSvc(t)
	ctx := context.Background()
	seedForum(t, db, "f1", openSettings())

	fb, err := s.CreateForum(ctx, "alice", domain.Draft{ForumID: "f1", Content: "The build is flaky on main"})
	if err != nil {
		t.Fatalf("CreateForum: %v", err)
	}
	if fb.Status == nil || *fb.Status != domain.StatusPending {
		t.Fatalf("new forum feedback should be pending, got %v", fb.Status)
	}

	if _, err := s.ChangeStatus(ctx, "alice", fb.ID, domain.StatusResolved); err != ErrPermissionDenied {
		t.Fatalf("non-admin: want ErrPermissionDenied, got %v", err)
	}
	got, err := s.ChangeStatus(ctx, "admin", fb.ID, domain.StatusResolved)
	if err != nil {
		t.Fatalf("admin ChangeStatus: %v", err)
	}
	if *got.Status != domain.StatusResolved || got.ModeratorID == nil || *got.ModeratorID != "admin" {
		t.Fatalf("status=%v moderator=%v", *got.Status, got.ModeratorID)
	}
}

func TestFeedback_ChangeStatus_InvalidTransitions(t *testing.T) {
	s, db := newFeedbackSvc(t)
	ctx := context.Background()
	seedForum(t, db, "f1", openSettings())

	p, _ := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "peer feedback content"})
	if _, err := s.ChangeStatus(ctx, "admin", p.ID, domain.StatusResolved); err != ErrInvalidTransition {
		t.Fatalf("p2p: want ErrInvalidTransition, got %v", err)
	}
	f, _ := s.CreateForum(ctx, "alice", domain.Draft{ForumID: "f1", Content: "forum feedback content"})
	if _, err := s.ChangeStatus(ctx, "admin", f.ID, "closed"); err != ErrInvalidTransition {
		t.Fatalf("unknown status: want ErrInvalidTransition, got %v", err)
	}
	if _, err := s.ChangeStatus(ctx, "admin", "missing", domain.StatusResolved); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: want not found, got %v", err)
	}
}

func TestFeedback_Create_ShapeAndSelfChecks(t *testing.T) {
	s, db := newFeedbackSvc(t)
	ctx := context.Background()
	seedForum(t, db, "f1", openSettings())

	if _, err := s.CreateForum(ctx, "alice", domain.Draft{Content: "no forum given here"}); !errors.Is(err, domain.ErrInvalidRecordShape) {
		t.Fatalf("missing forum: want ErrInvalidRecordShape, got %v", err)
	}
	if _, err := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", ForumID: "f1", Content: "both refs are set"}); !errors.Is(err, domain.ErrInvalidRecordShape) {
		t.Fatalf("both refs: want ErrInvalidRecordShape, got %v", err)
	}
	if _, err := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "alice", Content: "note to myself here"}); err != ErrSelfFeedbackNotAllowed {
		t.Fatalf("self: want ErrSelfFeedbackNotAllowed, got %v", err)
	}
	if _, err := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "too short"}); !errors.Is(err, domain.ErrInvalidContent) {
		t.Fatalf("short: want ErrInvalidContent, got %v", err)
	}
	if _, err := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "ghost", Content: "nobody will read this"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown recipient: want ErrUserNotFound, got %v", err)
	}
	if _, err := s.CreateForum(ctx, "alice", domain.Draft{ForumID: "nope", Content: "forum does not exist"}); !errors.Is(err, ErrForumNotFound) {
		t.Fatalf("unknown forum: want ErrForumNotFound, got %v", err)
	}
	if _, err := s.CreateP2P(ctx, "", domain.Draft{RecipientID: "bob", Content: "who is writing this"}); err != ErrUnauthenticated {
		t.Fatalf("anonymous writer: want ErrUnauthenticated, got %v", err)
	}
}

func TestFeedback_CreateForum_Permissions(t *testing.T) {
	s, db := newFeedbackSvc(t)
	ctx := context.Background()
	seedForum(t, db, "closed", domain.DefaultForumSettings(), "alice")
	noAnon := openSettings()
	noAnon.AnonymousFeedbackAllowed = false
	seedForum(t, db, "named", noAnon)

	if _, err := s.CreateForum(ctx, "bob", domain.Draft{ForumID: "closed", Content: "outsider feedback text"}); err != ErrPermissionDenied {
		t.Fatalf("non-member: want ErrPermissionDenied, got %v", err)
	}
	if _, err := s.CreateForum(ctx, "alice", domain.Draft{ForumID: "closed", Content: "member feedback text"}); err != nil {
		t.Fatalf("member: %v", err)
	}
	if _, err := s.CreateForum(ctx, "bob", domain.Draft{ForumID: "named", Content: "secret identity here", Anonymous: true}); err != ErrPermissionDenied {
		t.Fatalf("anonymous disallowed: want ErrPermissionDenied, got %v", err)
	}
}

func TestFeedback_GetVisibilityAndAnonymity(t *testing.T) {
	s, db := newFeedbackSvc(t)
	ctx := context.Background()
	seedForum(t, db, "closed", domain.DefaultForumSettings(), "alice")

	priv, _ := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "private note for bob", Private: true, Anonymous: true})
	inClosed, _ := s.CreateForum(ctx, "alice", domain.Draft{ForumID: "closed", Content: "members only content"})

	got, err := s.Get(ctx, "bob", priv.ID)
	if err != nil {
		t.Fatalf("recipient Get: %v", err)
	}
	if got.AuthorID != "" {
		t.Fatalf("anonymous author leaked to recipient: %q", got.AuthorID)
	}
	got, _ = s.Get(ctx, "alice", priv.ID)
	if got.AuthorID != "alice" {
		t.Fatalf("author should see own identity")
	}
	got, _ = s.Get(ctx, "admin", priv.ID)
	if got.AuthorID != "alice" {
		t.Fatalf("admin should see author")
	}

	if _, err := s.Get(ctx, "", priv.ID); err != ErrPermissionDenied {
		t.Fatalf("anonymous viewer on private: want ErrPermissionDenied, got %v", err)
	}
	if _, err := s.Get(ctx, "", inClosed.ID); err != ErrPermissionDenied {
		t.Fatalf("anonymous viewer on members-only forum: want ErrPermissionDenied, got %v", err)
	}
	if _, err := s.Get(ctx, "bob", inClosed.ID); err != nil {
		t.Fatalf("signed-in viewer on public record: %v", err)
	}
	if _, err := s.Get(ctx, "ghost", inClosed.ID); err != ErrUnauthenticated {
		t.Fatalf("unknown viewer id: want ErrUnauthenticated, got %v", err)
	}
}

func TestFeedback_ListSentReceived(t *testing.T) {
	s, _ := newFeedbackSvc(t)
	ctx := context.Background()

	_, _ = s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "named feedback to bob"})
	_, _ = s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "anonymous feedback to bob", Anonymous: true})

	items, total, err := s.Sent(ctx, "bob", "alice", 1, 10)
	if err != nil {
		t.Fatalf("Sent: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Anonymous {
		t.Fatalf("others must not see anonymous sent records: total=%d", total)
	}
	_, total, _ = s.Sent(ctx, "alice", "alice", 1, 10)
	if total != 2 {
		t.Fatalf("own sent total = %d, want 2", total)
	}

	items, total, err = s.Received(ctx, "bob", "bob", 1, 10)
	if err != nil || total != 2 {
		t.Fatalf("Received = (%d, %v)", total, err)
	}
	for _, it := range items {
		if it.Anonymous && it.AuthorID != "" {
			t.Fatalf("anonymous author leaked in list")
		}
	}
	if _, _, err := s.Received(ctx, "bob", "ghost", 1, 10); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: want ErrUserNotFound, got %v", err)
	}
}

func TestFeedback_ByHashtag(t *testing.T) {
	s, _ := newFeedbackSvc(t)
	ctx := context.Background()
	_, _ = s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "loving the new #GoLang docs"})
	_, _ = s.CreateP2P(ctx, "bob", domain.Draft{RecipientID: "alice", Content: "nothing tagged in here"})

	items, total, err := s.ByHashtag(ctx, "", "#golang", 1, 10)
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("ByHashtag = (%d, %v)", total, err)
	}
	if _, _, err := s.ByHashtag(ctx, "", "#", 1, 10); err != ErrInvalidInput {
		t.Fatalf("blank tag: want ErrInvalidInput, got %v", err)
	}
}

func TestFeedback_ReactionsRoundTrip(t *testing.T) {
	s, _ := newFeedbackSvc(t)
	ctx := context.Background()
	fb, _ := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "react to this please"})

	got, err := s.AddReaction(ctx, "bob", fb.ID, "👍")
	if err != nil {
		t.Fatalf("AddReaction: %v", err)
	}
	if !reflect.DeepEqual(got.ReactionCounts(), domain.Reactions{"👍": 1}) {
		t.Fatalf("after add: %v", got.ReactionCounts())
	}
	got, err = s.RemoveReaction(ctx, "bob", fb.ID, "👍")
	if err != nil {
		t.Fatalf("RemoveReaction: %v", err)
	}
	if len(got.ReactionCounts()) != 0 {
		t.Fatalf("after remove: %v", got.ReactionCounts())
	}
	if _, err := s.RemoveReaction(ctx, "bob", fb.ID, "👍"); err != nil {
		t.Fatalf("removing absent reaction must be a no-op, got %v", err)
	}
	if _, err := s.AddReaction(ctx, "bob", fb.ID, "   "); !errors.Is(err, domain.ErrInvalidReaction) {
		t.Fatalf("blank emoji: want ErrInvalidReaction, got %v", err)
	}
	if _, err := s.AddReaction(ctx, "", fb.ID, "👍"); err != ErrUnauthenticated {
		t.Fatalf("anonymous reaction: want ErrUnauthenticated, got %v", err)
	}
}

func TestFeedback_Update(t *testing.T) {
	s, db := newFeedbackSvc(t)
	ctx := context.Background()
	seedForum(t, db, "f1", openSettings())
	p, _ := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "first version #draft"})
	f, _ := s.CreateForum(ctx, "alice", domain.Draft{ForumID: "f1", Content: "forum record content"})

	bug := domain.CategoryBug
	if _, err := s.Update(ctx, "alice", p.ID, FeedbackPatch{Category: &bug}); !errors.Is(err, domain.ErrInvalidRecordShape) {
		t.Fatalf("category on p2p: want ErrInvalidRecordShape, got %v", err)
	}
	content := "second version #final"
	if _, err := s.Update(ctx, "bob", p.ID, FeedbackPatch{Content: &content}); err != ErrPermissionDenied {
		t.Fatalf("non-author: want ErrPermissionDenied, got %v", err)
	}

	got, err := s.Update(ctx, "alice", p.ID, FeedbackPatch{Content: &content})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Content != content || !reflect.DeepEqual(got.TagNames(), []string{"draft", "final"}) {
		t.Fatalf("content=%q tags=%v", got.Content, got.TagNames())
	}
	st, err := repo.GetHashtag(ctx, db, "final")
	if err != nil || st.TotalUses != 1 {
		t.Fatalf("new tag not recorded: %+v %v", st, err)
	}
	st, _ = repo.GetHashtag(ctx, db, "draft")
	if st.TotalUses != 1 {
		t.Fatalf("kept tag recorded twice: %d", st.TotalUses)
	}

	got, err = s.Update(ctx, "admin", f.ID, FeedbackPatch{Category: &bug})
	if err != nil || *got.Category != domain.CategoryBug {
		t.Fatalf("admin category update = (%v, %v)", got, err)
	}
	bad := domain.Category("nonsense")
	if _, err := s.Update(ctx, "admin", f.ID, FeedbackPatch{Category: &bad}); !errors.Is(err, domain.ErrInvalidRecordShape) {
		t.Fatalf("bad category: want ErrInvalidRecordShape, got %v", err)
	}
}

func TestFeedback_Delete(t *testing.T) {
	s, _ := newFeedbackSvc(t)
	ctx := context.Background()
	fb, _ := s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "delete me eventually"})

	if err := s.Delete(ctx, "bob", fb.ID); err != ErrPermissionDenied {
		t.Fatalf("recipient delete: want ErrPermissionDenied, got %v", err)
	}
	if err := s.Delete(ctx, "admin", fb.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := s.Get(ctx, "alice", fb.ID); !errors.Is(err, ErrFeedbackNotFound) {
		t.Fatalf("after delete: want ErrFeedbackNotFound, got %v", err)
	}
}

func TestFeedback_StatsFailureDoesNotFailCreate(t *testing.T) {
	s, db := newFeedbackSvc(t)
	s.Hashtags = failingStore{repo.HashtagStore{DB: db}}

	fb, err := s.CreateP2P(context.Background(), "alice", domain.Draft{RecipientID: "bob", Content: "stats are down #oops"})
	if err != nil {
		t.Fatalf("CreateP2P: %v", err)
	}
	if _, err := repo.GetFeedback(context.Background(), db, fb.ID); err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
}

func TestFeedback_CreateOnce_Replays(t *testing.T) {
	s, db := newFeedbackSvc(t)
	ctx := context.Background()
	calls := 0
	create := func() (*domain.Feedback, error) {
		calls++
		return s.CreateP2P(ctx, "alice", domain.Draft{RecipientID: "bob", Content: "only once please"})
	}

	first, replayed, err := s.CreateOnce(ctx, "alice", "feedback.p2p", "key-1", create)
	if err != nil || replayed {
		t.Fatalf("first = (%v, %v)", replayed, err)
	}
	second, replayed, err := s.CreateOnce(ctx, "alice", "feedback.p2p", "key-1", create)
	if err != nil || !replayed || second.ID != first.ID {
		t.Fatalf("replay = (%v, %v, %v)", second, replayed, err)
	}
	if calls != 1 {
		t.Fatalf("create ran %d times", calls)
	}

	var n int64
	db.Model(&domain.Feedback{}).Count(&n)
	if n != 1 {
		t.Fatalf("records = %d", n)
	}

	if _, replayed, _ := s.CreateOnce(ctx, "alice", "feedback.p2p", "", create); replayed || calls != 2 {
		t.Fatalf("blank key must always create")
	}
}
