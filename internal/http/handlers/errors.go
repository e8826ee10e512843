package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/services"
)

// Stable error codes carried in ErrorResponse.Code.
const (
	ErrCodeBadRequest          = "bad_request"
	ErrCodeUnauthorized        = "unauthorized"
	ErrCodeForbidden           = "forbidden"
	ErrCodeNotFound            = "not_found"
	ErrCodeConflict            = "conflict"
	ErrCodeRateLimited         = "too_many_requests"
	ErrCodeInternal            = "internal_error"
	ErrCodeMethodNotAllowed    = "method_not_allowed"
	ErrCodeInvalidRecordShape  = "invalid_record_shape"
	ErrCodeInvalidContent      = "invalid_content"
	ErrCodeInvalidTransition   = "invalid_transition"
	ErrCodeSelfFeedback        = "self_feedback_not_allowed"
	ErrCodeCreatorNotRemovable = "creator_not_removable"
)

type errMapping struct {
	target error
	status int
	code   string
}

// Order matters: the first match wins.
var errMappings = []errMapping{
	{services.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrUnauthenticated, http.StatusUnauthorized, ErrCodeUnauthorized},
	{services.ErrPermissionDenied, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrInvalidRecordShape, http.StatusBadRequest, ErrCodeInvalidRecordShape},
	{domain.ErrInvalidContent, http.StatusBadRequest, ErrCodeInvalidContent},
	{domain.ErrInvalidReaction, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidForum, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrSelfFeedbackNotAllowed, http.StatusUnprocessableEntity, ErrCodeSelfFeedback},
	{services.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition},
	{services.ErrForumNameTaken, http.StatusConflict, ErrCodeConflict},
	{services.ErrEmailTaken, http.StatusConflict, ErrCodeConflict},
	{services.ErrCreatorNotRemovable, http.StatusConflict, ErrCodeCreatorNotRemovable},
}

// writeError maps a service error to its status and code. Unknown errors
// become a 500 whose message does not leak internals.
func writeError(c *gin.Context, err error) {
	for _, m := range errMappings {
		if errors.Is(err, m.target) {
			fail(c, m.status, m.code, err.Error())
			return
		}
	}
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
}
