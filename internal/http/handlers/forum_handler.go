// Forum HTTP handlers.
//
// Forums are team or project spaces that collect feedback. Creation requires
// an admin caller; every other write is gated by the caller's capability set
// on the forum.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/repo"
	"github.com/tbourn/go-feedback-backend/internal/services"
	"github.com/tbourn/go-feedback-backend/internal/utils"
)

// CreateForum godoc
// @ID          createForum
// @Summary     Create a forum
// @Description Admin only. The creator becomes the first member; omitted settings use the defaults.
// @Tags        Forums
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                       true  "Caller user ID"
// @Param       body       body    handlers.CreateForumRequest  true  "Forum payload"
// @Success     201  {object}  handlers.ForumView
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not an admin"
// @Failure     409  {object}  handlers.ErrorResponse  "Name already taken"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /forums [post]
func (h *Handlers) CreateForum(c *gin.Context) {
	var req CreateForumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name is required")
		return
	}
	f, err := h.forums.Create(c.Request.Context(), actorID(c), services.ForumInput{
		Name:        req.Name,
		Description: req.Description,
		Project:     req.Project,
		Settings:    req.Settings,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, forumView(f))
}

// ListForums godoc
// @ID          listForums
// @Summary     List forums
// @Description Paged, newest first, limited to forums the caller can view.
// @Tags        Forums
// @Produce     json
// @Param       X-User-ID   header  string  false  "Caller user ID"
// @Param       status      query   string  false  "Forum status"  Enums(active,paused,completed,archived)
// @Param       creator_id  query   string  false  "Creator user ID"
// @Param       project     query   string  false  "Project substring (case-insensitive)"
// @Param       page        query   int     false  "Page (1-based)"  default(1)
// @Param       page_size   query   int     false  "Items per page"  default(20)
// @Success     200  {object}  handlers.ForumPage
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid filter"
// @Failure     401  {object}  handlers.ErrorResponse  "Unknown caller"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /forums [get]
func (h *Handlers) ListForums(c *gin.Context) {
	filter := repo.ForumFilter{
		Status:    domain.ForumStatus(strings.TrimSpace(c.Query("status"))),
		CreatorID: strings.TrimSpace(c.Query("creator_id")),
		Project:   c.Query("project"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid status filter")
		return
	}
	page, pageSize := utils.Page(c.Query("page"), c.Query("page_size"))
	items, total, err := h.forums.List(c.Request.Context(), actorID(c), filter, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, ForumPage{
		Forums:     forumViews(items),
		Pagination: paginate(page, pageSize, total),
	})
}

// MyForums godoc
// @ID          myForums
// @Summary     Forums of the caller
// @Description Forums the caller created or is a member of.
// @Tags        Forums
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller user ID"
// @Success     200  {array}   handlers.ForumView
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /forums/mine [get]
func (h *Handlers) MyForums(c *gin.Context) {
	items, err := h.forums.ForUser(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, forumViews(items))
}

// GetForum godoc
// @ID          getForum
// @Summary     Get a forum
// @Description Returns the forum with its members, feedback ids and the caller's permissions.
// @Tags        Forums
// @Produce     json
// @Param       X-User-ID  header  string  false  "Caller user ID"
// @Param       id         path    string  true   "Forum ID"
// @Success     200  {object}  handlers.ForumView
// @Failure     403  {object}  handlers.ErrorResponse  "Caller cannot view the forum"
// @Failure     404  {object}  handlers.ErrorResponse  "Forum not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /forums/{id} [get]
func (h *Handlers) GetForum(c *gin.Context) {
	f, caps, err := h.forums.Get(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	v := forumView(f)
	v.Permissions = &caps
	ok(c, http.StatusOK, v)
}

// UpdateForum godoc
// @ID          updateForum
// @Summary     Update a forum
// @Description Partial update; omitted fields are left unchanged. Requires the edit capability.
// @Tags        Forums
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                       true  "Caller user ID"
// @Param       id         path    string                       true  "Forum ID"
// @Param       body       body    handlers.UpdateForumRequest  true  "Fields to change"
// @Success     200  {object}  handlers.ForumView
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Not allowed"
// @Failure     404  {object}  handlers.ErrorResponse  "Forum not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Name already taken"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /forums/{id} [put]
func (h *Handlers) UpdateForum(c *gin.Context) {
	var req UpdateForumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	f, err := h.forums.Update(c.Request.Context(), actorID(c), c.Param("id"), services.ForumPatch{
		Name:        req.Name,
		Description: req.Description,
		Project:     req.Project,
		Settings:    req.Settings,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, forumView(f))
}

// DeleteForum godoc
// @ID          deleteForum
// @Summary     Delete a forum
// @Description Removes the forum, its members and all of its feedback.
// @Tags        Forums
// @Param       X-User-ID  header  string  true  "Caller user ID"
// @Param       id         path    string  true  "Forum ID"
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Not allowed"
// @Failure     404  {object}  handlers.ErrorResponse  "Forum not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /forums/{id} [delete]
func (h *Handlers) DeleteForum(c *gin.Context) {
	if err := h.forums.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	noContent(c)
}

// ChangeForumStatus godoc
// @ID          changeForumStatus
// @Summary     Change a forum's status
// @Tags        Forums
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                       true  "Caller user ID"
// @Param       id         path    string                       true  "Forum ID"
// @Param       body       body    handlers.ForumStatusRequest  true  "New status"
// @Success     200  {object}  handlers.ForumView
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown status"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Not allowed"
// @Failure     404  {object}  handlers.ErrorResponse  "Forum not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /forums/{id}/status [patch]
func (h *Handlers) ChangeForumStatus(c *gin.Context) {
	var req ForumStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status is required")
		return
	}
	f, err := h.forums.ChangeStatus(c.Request.Context(), actorID(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, forumView(f))
}

// ForumPermissions godoc
// @ID          forumPermissions
// @Summary     Caller's permissions on a forum
// @Tags        Forums
// @Produce     json
// @Param       X-User-ID  header  string  false  "Caller user ID"
// @Param       id         path    string  true   "Forum ID"
// @Success     200  {object}  permission.Capabilities
// @Failure     404  {object}  handlers.ErrorResponse  "Forum not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /forums/{id}/permissions [get]
func (h *Handlers) ForumPermissions(c *gin.Context) {
	caps, err := h.forums.Permissions(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, caps)
}

// AddForumMember godoc
// @ID          addForumMember
// @Summary     Add a member
// @Description Idempotent: adding an existing member is a no-op.
// @Tags        Forums
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                     true  "Caller user ID"
// @Param       id         path    string                     true  "Forum ID"
// @Param       body       body    handlers.AddMemberRequest  true  "Member to add"
// @Success     200  {object}  handlers.ForumView
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Not allowed"
// @Failure     404  {object}  handlers.ErrorResponse  "Forum or user not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /forums/{id}/members [post]
func (h *Handlers) AddForumMember(c *gin.Context) {
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id is required")
		return
	}
	f, err := h.forums.AddMember(c.Request.Context(), actorID(c), c.Param("id"), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, forumView(f))
}

// RemoveForumMember godoc
// @ID          removeForumMember
// @Summary     Remove a member
// @Description The forum creator cannot be removed.
// @Tags        Forums
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller user ID"
// @Param       id         path    string  true  "Forum ID"
// @Param       userId     path    string  true  "Member user ID"
// @Success     200  {object}  handlers.ForumView
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Not allowed"
// @Failure     404  {object}  handlers.ErrorResponse  "Forum not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Creator cannot be removed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /forums/{id}/members/{userId} [delete]
func (h *Handlers) RemoveForumMember(c *gin.Context) {
	f, err := h.forums.RemoveMember(c.Request.Context(), actorID(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, forumView(f))
}
