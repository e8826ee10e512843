// Feedback HTTP handlers.
//
// This file exposes the feedback endpoints:
//   - POST   /feedback/forum                    (create forum feedback)
//   - POST   /feedback/p2p                      (create peer-to-peer feedback)
//   - GET    /feedback                          (filtered listing, ETag aware)
//   - GET    /feedback/{id}                     (read)
//   - PUT    /feedback/{id}                     (edit)
//   - DELETE /feedback/{id}                     (delete)
//   - POST   /feedback/{id}/reactions           (add reaction)
//   - DELETE /feedback/{id}/reactions/{emoji}   (remove reaction)
//   - PATCH  /feedback/{id}/status              (moderation status)
//
// Both create endpoints honor Idempotency-Key: a retried request returns the
// record created by the first one with Idempotency-Replayed: true.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/http/middleware"
	"github.com/tbourn/go-feedback-backend/internal/repo"
	"github.com/tbourn/go-feedback-backend/internal/utils"
)

// CreateForumFeedback godoc
// @ID          createForumFeedback
// @Summary     Post feedback to a forum
// @Description Hashtags in the content are merged with the explicit tags. Category defaults to "other", priority to "medium" and status starts at "pending".
// @Tags        Feedback
// @Accept      json
// @Produce     json
// @Param       X-User-ID        header  string                          true   "Caller user ID"
// @Param       Idempotency-Key  header  string                          false  "Retry-safe creation key"
// @Param       body             body    handlers.CreateFeedbackRequest  true   "Feedback payload (forum_id required)"
// @Success     201  {object}  handlers.FeedbackView
// @Header      201  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload or record shape"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Not allowed to post in this forum"
// @Failure     404  {object}  handlers.ErrorResponse  "Forum not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /feedback/forum [post]
func (h *Handlers) CreateForumFeedback(c *gin.Context) {
	h.createFeedback(c, domain.KindForum)
}

// CreateP2PFeedback godoc
// @ID          createP2PFeedback
// @Summary     Give feedback to a peer
// @Description P2P records carry no category, priority or status and cannot be addressed to their author.
// @Tags        Feedback
// @Accept      json
// @Produce     json
// @Param       X-User-ID        header  string                          true   "Caller user ID"
// @Param       Idempotency-Key  header  string                          false  "Retry-safe creation key"
// @Param       body             body    handlers.CreateFeedbackRequest  true   "Feedback payload (recipient_id required)"
// @Success     201  {object}  handlers.FeedbackView
// @Header      201  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload or record shape"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipient not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Feedback addressed to self"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /feedback/p2p [post]
func (h *Handlers) CreateP2PFeedback(c *gin.Context) {
	h.createFeedback(c, domain.KindP2P)
}

func (h *Handlers) createFeedback(c *gin.Context, kind domain.FeedbackKind) {
	var req CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is required")
		return
	}

	ctx := c.Request.Context()
	uid := actorID(c)
	draft := req.draft(kind)
	create := func() (*domain.Feedback, error) {
		if kind == domain.KindP2P {
			return h.feedback.CreateP2P(ctx, uid, draft)
		}
		return h.feedback.CreateForum(ctx, uid, draft)
	}

	key, _ := middleware.GetIdempotencyKey(c)
	fb, replayed, err := h.feedback.CreateOnce(ctx, uid, middleware.IdempotencyScope(c), key, create)
	if err != nil {
		writeError(c, err)
		return
	}
	if replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	ok(c, http.StatusCreated, feedbackView(fb))
}

// ListFeedback godoc
// @ID          listFeedback
// @Summary     List feedback
// @Description Paged, newest first, limited to records the caller may see. Supports conditional GET via ETag / If-None-Match.
// @Tags        Feedback
// @Produce     json
// @Param       X-User-ID      header  string  false  "Caller user ID"
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
// @Param       kind           query   string  false  "Record kind"  Enums(forum,p2p)
// @Param       category       query   string  false  "Category"     Enums(bug,improvement,praise,criticism,suggestion,other)
// @Param       status         query   string  false  "Status"       Enums(pending,in_analysis,resolved,discarded)
// @Param       priority       query   string  false  "Priority"     Enums(low,medium,high,urgent)
// @Param       author_id      query   string  false  "Author user ID"
// @Param       forum_id       query   string  false  "Forum ID"
// @Param       recipient_id   query   string  false  "Recipient user ID"
// @Param       tag            query   string  false  "Hashtag"
// @Param       anonymous      query   bool    false  "Anonymous records only / excluded"
// @Param       private        query   bool    false  "Private records only / excluded"
// @Param       from           query   string  false  "Created at or after (RFC3339 or YYYY-MM-DD)"
// @Param       to             query   string  false  "Created at or before (RFC3339 or YYYY-MM-DD)"
// @Param       page           query   int     false  "Page (1-based)"  default(1)
// @Param       page_size      query   int     false  "Items per page"  default(20)
// @Success     200  {object}  handlers.FeedbackPage
// @Success     304  {string}  string  "Not Modified"
// @Header      200  {string}  ETag    "Weak validator of this page"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid filter"
// @Failure     401  {object}  handlers.ErrorResponse  "Unknown caller"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /feedback [get]
func (h *Handlers) ListFeedback(c *gin.Context) {
	filter, err := feedbackFilter(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	page, pageSize := utils.Page(c.Query("page"), c.Query("page_size"))
	ctx := c.Request.Context()
	uid := actorID(c)

	etag, err := h.feedback.ListETag(ctx, uid, filter, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("ETag", etag)
	if match := c.GetHeader("If-None-Match"); match != "" && etagMatches(match, etag) {
		c.Status(http.StatusNotModified)
		return
	}

	items, total, err := h.feedback.List(ctx, uid, filter, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, FeedbackPage{
		Feedback:   feedbackViews(items),
		Pagination: paginate(page, pageSize, total),
	})
}

type filterError string

func (e filterError) Error() string { return string(e) }

func feedbackFilter(c *gin.Context) (repo.FeedbackFilter, error) {
	f := repo.FeedbackFilter{
		Kind:        domain.FeedbackKind(strings.TrimSpace(c.Query("kind"))),
		Category:    domain.Category(strings.TrimSpace(c.Query("category"))),
		Status:      domain.Status(strings.TrimSpace(c.Query("status"))),
		Priority:    domain.Priority(strings.TrimSpace(c.Query("priority"))),
		AuthorID:    strings.TrimSpace(c.Query("author_id")),
		ForumID:     strings.TrimSpace(c.Query("forum_id")),
		RecipientID: strings.TrimSpace(c.Query("recipient_id")),
		Tag:         strings.TrimSpace(c.Query("tag")),
	}
	switch {
	case f.Kind != "" && f.Kind != domain.KindForum && f.Kind != domain.KindP2P:
		return f, filterError("invalid kind filter")
	case f.Category != "" && !f.Category.Valid():
		return f, filterError("invalid category filter")
	case f.Status != "" && !f.Status.Valid():
		return f, filterError("invalid status filter")
	case f.Priority != "" && !f.Priority.Valid():
		return f, filterError("invalid priority filter")
	}

	var err error
	if f.Anonymous, err = utils.OptionalBool(c.Query("anonymous")); err != nil {
		return f, filterError("invalid anonymous filter")
	}
	if f.Private, err = utils.OptionalBool(c.Query("private")); err != nil {
		return f, filterError("invalid private filter")
	}
	if f.From, err = utils.OptionalTime(c.Query("from")); err != nil {
		return f, filterError("invalid from timestamp")
	}
	if f.To, err = utils.OptionalTime(c.Query("to")); err != nil {
		return f, filterError("invalid to timestamp")
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, filterError("to must not be before from")
	}
	return f, nil
}

// etagMatches implements the weak comparison of If-None-Match.
func etagMatches(header, etag string) bool {
	want := strings.TrimPrefix(etag, "W/")
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "*" || strings.TrimPrefix(part, "W/") == want {
			return true
		}
	}
	return false
}

// GetFeedback godoc
// @ID          getFeedback
// @Summary     Get a feedback record
// @Description The author of anonymous records is hidden from everyone but the author and admins.
// @Tags        Feedback
// @Produce     json
// @Param       X-User-ID  header  string  false  "Caller user ID"
// @Param       id         path    string  true   "Feedback ID"
// @Success     200  {object}  handlers.FeedbackView
// @Failure     401  {object}  handlers.ErrorResponse  "Unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Not visible to the caller"
// @Failure     404  {object}  handlers.ErrorResponse  "Feedback not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /feedback/{id} [get]
func (h *Handlers) GetFeedback(c *gin.Context) {
	fb, err := h.feedback.Get(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, feedbackView(fb))
}

// UpdateFeedback godoc
// @ID          updateFeedback
// @Summary     Edit a feedback record
// @Description Author or admin. Content is re-validated and tags re-merged; category and priority apply to forum feedback only.
// @Tags        Feedback
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                          true  "Caller user ID"
// @Param       id         path    string                          true  "Feedback ID"
// @Param       body       body    handlers.UpdateFeedbackRequest  true  "Fields to change"
// @Success     200  {object}  handlers.FeedbackView
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload or record shape"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Not allowed"
// @Failure     404  {object}  handlers.ErrorResponse  "Feedback not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /feedback/{id} [put]
func (h *Handlers) UpdateFeedback(c *gin.Context) {
	var req UpdateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	fb, err := h.feedback.Update(c.Request.Context(), actorID(c), c.Param("id"), req.patch())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, feedbackView(fb))
}

// DeleteFeedback godoc
// @ID          deleteFeedback
// @Summary     Delete a feedback record
// @Description Author or admin. Tags and reactions are removed with the record.
// @Tags        Feedback
// @Param       X-User-ID  header  string  true  "Caller user ID"
// @Param       id         path    string  true  "Feedback ID"
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Not allowed"
// @Failure     404  {object}  handlers.ErrorResponse  "Feedback not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /feedback/{id} [delete]
func (h *Handlers) DeleteFeedback(c *gin.Context) {
	if err := h.feedback.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	noContent(c)
}

// AddReaction godoc
// @ID          addReaction
// @Summary     React to a feedback record
// @Tags        Feedback
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                    true  "Caller user ID"
// @Param       id         path    string                    true  "Feedback ID"
// @Param       body       body    handlers.ReactionRequest  true  "Emoji"
// @Success     200  {object}  handlers.FeedbackView
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid emoji"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Not visible to the caller"
// @Failure     404  {object}  handlers.ErrorResponse  "Feedback not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /feedback/{id}/reactions [post]
func (h *Handlers) AddReaction(c *gin.Context) {
	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "emoji is required")
		return
	}
	fb, err := h.feedback.AddReaction(c.Request.Context(), actorID(c), c.Param("id"), req.Emoji)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, feedbackView(fb))
}

// RemoveReaction godoc
// @ID          removeReaction
// @Summary     Withdraw a reaction
// @Description Decrements the emoji's count; it disappears at zero.
// @Tags        Feedback
// @Produce     json
// @Param       X-User-ID  header  string  true  "Caller user ID"
// @Param       id         path    string  true  "Feedback ID"
// @Param       emoji      path    string  true  "Emoji (URL-encoded)"
// @Success     200  {object}  handlers.FeedbackView
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid emoji"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Not visible to the caller"
// @Failure     404  {object}  handlers.ErrorResponse  "Feedback not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /feedback/{id}/reactions/{emoji} [delete]
func (h *Handlers) RemoveReaction(c *gin.Context) {
	fb, err := h.feedback.RemoveReaction(c.Request.Context(), actorID(c), c.Param("id"), c.Param("emoji"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, feedbackView(fb))
}

// ChangeFeedbackStatus godoc
// @ID          changeFeedbackStatus
// @Summary     Moderate forum feedback
// @Description Admin only. The caller becomes the record's moderator. P2P records have no status.
// @Tags        Feedback
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                          true  "Caller user ID"
// @Param       id         path    string                          true  "Feedback ID"
// @Param       body       body    handlers.FeedbackStatusRequest  true  "New status"
// @Success     200  {object}  handlers.FeedbackView
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not an admin"
// @Failure     404  {object}  handlers.ErrorResponse  "Feedback not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Invalid transition"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /feedback/{id}/status [patch]
func (h *Handlers) ChangeFeedbackStatus(c *gin.Context) {
	var req FeedbackStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status is required")
		return
	}
	fb, err := h.feedback.ChangeStatus(c.Request.Context(), actorID(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, feedbackView(fb))
}
