package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/permission"
)

func TestCreateForum(t *testing.T) {
	a := newAPI(t)

	w := a.call(http.MethodPost, "/forums", "admin", CreateForumRequest{
		Name:        "Platform Team Retro",
		Description: "Quarterly retrospective",
		Project:     "platform",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	f := decode[ForumView](t, w)
	assert.Equal(t, "admin", f.CreatorID)
	assert.Equal(t, domain.ForumActive, f.Status)
	assert.Equal(t, domain.DefaultForumSettings(), f.Settings)
	assert.Equal(t, []string{"admin"}, f.Members)

	requireError(t, a.call(http.MethodPost, "/forums", "admin", CreateForumRequest{Name: "Platform Team Retro"}),
		http.StatusConflict, ErrCodeConflict)
	requireError(t, a.call(http.MethodPost, "/forums", "alice", CreateForumRequest{Name: "Alice's own forum"}),
		http.StatusForbidden, ErrCodeForbidden)
	requireError(t, a.call(http.MethodPost, "/forums", "", CreateForumRequest{Name: "Nobody's forum"}),
		http.StatusUnauthorized, ErrCodeUnauthorized)
	requireError(t, a.call(http.MethodPost, "/forums", "admin", CreateForumRequest{Name: "abc"}),
		http.StatusBadRequest, ErrCodeBadRequest)
	requireError(t, a.call(http.MethodPost, "/forums", "admin", `{"description":"no name"}`),
		http.StatusBadRequest, ErrCodeBadRequest)
}

func TestGetForum_PermissionsAndVisibility(t *testing.T) {
	a := newAPI(t)
	w := a.call(http.MethodPost, "/forums", "admin", CreateForumRequest{Name: "Members Only Forum"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[ForumView](t, w).ID

	w = a.call(http.MethodGet, "/forums/"+id, "admin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	f := decode[ForumView](t, w)
	require.NotNil(t, f.Permissions)
	assert.True(t, f.Permissions.Edit)
	assert.True(t, f.Permissions.GiveFeedback)

	// Members-only forum hidden from outsiders.
	requireError(t, a.call(http.MethodGet, "/forums/"+id, "alice", nil), http.StatusForbidden, ErrCodeForbidden)
	requireError(t, a.call(http.MethodGet, "/forums/missing", "alice", nil), http.StatusNotFound, ErrCodeNotFound)

	w = a.call(http.MethodGet, "/forums/"+id+"/permissions", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, permission.Capabilities{}, decode[permission.Capabilities](t, w))
}

func TestForumMembership(t *testing.T) {
	a := newAPI(t)
	w := a.call(http.MethodPost, "/forums", "admin", CreateForumRequest{Name: "Membership Forum"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[ForumView](t, w).ID

	requireError(t, a.call(http.MethodPost, "/forums/"+id+"/members", "alice", AddMemberRequest{UserID: "alice"}),
		http.StatusForbidden, ErrCodeForbidden)

	for range 2 {
		w = a.call(http.MethodPost, "/forums/"+id+"/members", "admin", AddMemberRequest{UserID: "alice"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.ElementsMatch(t, []string{"admin", "alice"}, decode[ForumView](t, w).Members)

	requireError(t, a.call(http.MethodPost, "/forums/"+id+"/members", "admin", AddMemberRequest{UserID: "nobody"}),
		http.StatusNotFound, ErrCodeNotFound)

	// Alice now sees the forum and it shows up in her list.
	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, "/forums/"+id, "alice", nil).Code)
	w = a.call(http.MethodGet, "/forums/mine", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	mine := decode[[]ForumView](t, w)
	require.Len(t, mine, 1)
	assert.Equal(t, id, mine[0].ID)

	requireError(t, a.call(http.MethodDelete, "/forums/"+id+"/members/admin", "admin", nil),
		http.StatusConflict, ErrCodeCreatorNotRemovable)

	w = a.call(http.MethodDelete, "/forums/"+id+"/members/alice", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"admin"}, decode[ForumView](t, w).Members)

	requireError(t, a.call(http.MethodGet, "/forums/mine", "", nil), http.StatusUnauthorized, ErrCodeUnauthorized)
}

func TestUpdateStatusAndDeleteForum(t *testing.T) {
	a := newAPI(t)
	id := a.openForum(t, "Lifecycle Forum")
	a.openForum(t, "Another Forum")

	name := "Lifecycle Forum Renamed"
	w := a.call(http.MethodPut, "/forums/"+id, "admin", UpdateForumRequest{Name: &name})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, name, decode[ForumView](t, w).Name)

	taken := "Another Forum"
	requireError(t, a.call(http.MethodPut, "/forums/"+id, "admin", UpdateForumRequest{Name: &taken}),
		http.StatusConflict, ErrCodeConflict)
	requireError(t, a.call(http.MethodPut, "/forums/"+id, "alice", UpdateForumRequest{Name: &name}),
		http.StatusForbidden, ErrCodeForbidden)

	w = a.call(http.MethodPatch, "/forums/"+id+"/status", "admin", ForumStatusRequest{Status: domain.ForumPaused})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.ForumPaused, decode[ForumView](t, w).Status)
	requireError(t, a.call(http.MethodPatch, "/forums/"+id+"/status", "admin", ForumStatusRequest{Status: "frozen"}),
		http.StatusBadRequest, ErrCodeBadRequest)

	w = a.call(http.MethodGet, "/forums?status=paused", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[ForumPage](t, w)
	require.Len(t, page.Forums, 1)
	assert.Equal(t, id, page.Forums[0].ID)
	requireError(t, a.call(http.MethodGet, "/forums?status=frozen", "", nil), http.StatusBadRequest, ErrCodeBadRequest)

	w = a.call(http.MethodPost, "/feedback/forum", "alice", CreateFeedbackRequest{ForumID: id, Content: "Feedback removed with the forum"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	fbID := decode[FeedbackView](t, w).ID

	requireError(t, a.call(http.MethodDelete, "/forums/"+id, "alice", nil), http.StatusForbidden, ErrCodeForbidden)
	assert.Equal(t, http.StatusNoContent, a.call(http.MethodDelete, "/forums/"+id, "admin", nil).Code)
	requireError(t, a.call(http.MethodGet, "/forums/"+id, "admin", nil), http.StatusNotFound, ErrCodeNotFound)
	requireError(t, a.call(http.MethodGet, "/feedback/"+fbID, "admin", nil), http.StatusNotFound, ErrCodeNotFound)
}
