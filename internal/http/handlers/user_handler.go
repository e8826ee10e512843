// User HTTP handlers.
//
// Users are collaborator records referenced by forums and feedback:
//   - POST /users                         (register)
//   - GET  /users/{id}                    (read)
//   - GET  /users/{id}/feedback/sent      (feedback written by the user)
//   - GET  /users/{id}/feedback/received  (P2P feedback addressed to the user)
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/utils"
)

// CreateUser godoc
// @ID          createUser
// @Summary     Register a user
// @Description Creates a user. Email must be unique; role defaults to "user".
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CreateUserRequest  true  "User payload"
// @Success     201   {object}  domain.User
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     409   {object}  handlers.ErrorResponse  "Email already registered"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and a valid email are required")
		return
	}
	u, err := h.users.Create(c.Request.Context(), req.Name, req.Email, req.Role)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, u)
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user
// @Tags        Users
// @Produce     json
// @Param       id   path      string  true  "User ID"
// @Success     200  {object}  domain.User
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// SentFeedback godoc
// @ID          listSentFeedback
// @Summary     Feedback written by a user
// @Description Paged, newest first, limited to records the caller may see.
// @Tags        Users
// @Produce     json
// @Param       X-User-ID  header  string  false  "Caller user ID"
// @Param       id         path    string  true   "User ID"
// @Param       page       query   int     false  "Page (1-based)"   default(1)
// @Param       page_size  query   int     false  "Items per page"   default(20)
// @Success     200  {object}  handlers.FeedbackPage
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /users/{id}/feedback/sent [get]
func (h *Handlers) SentFeedback(c *gin.Context) {
	h.userFeedback(c, h.feedback.Sent)
}

// ReceivedFeedback godoc
// @ID          listReceivedFeedback
// @Summary     P2P feedback addressed to a user
// @Description Paged, newest first, limited to records the caller may see.
// @Tags        Users
// @Produce     json
// @Param       X-User-ID  header  string  false  "Caller user ID"
// @Param       id         path    string  true   "User ID"
// @Param       page       query   int     false  "Page (1-based)"   default(1)
// @Param       page_size  query   int     false  "Items per page"   default(20)
// @Success     200  {object}  handlers.FeedbackPage
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Router      /users/{id}/feedback/received [get]
func (h *Handlers) ReceivedFeedback(c *gin.Context) {
	h.userFeedback(c, h.feedback.Received)
}

type userListing func(ctx context.Context, viewerID, userID string, page, pageSize int) ([]domain.Feedback, int64, error)

func (h *Handlers) userFeedback(c *gin.Context, list userListing) {
	page, pageSize := utils.Page(c.Query("page"), c.Query("page_size"))
	items, total, err := list(c.Request.Context(), actorID(c), c.Param("id"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, FeedbackPage{
		Feedback:   feedbackViews(items),
		Pagination: paginate(page, pageSize, total),
	})
}
