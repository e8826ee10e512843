package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/services"
)

func TestWriteError_Mappings(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"feedback not found", services.ErrFeedbackNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", services.ErrForumNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"unauthenticated", services.ErrUnauthenticated, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"denied", services.ErrPermissionDenied, http.StatusForbidden, ErrCodeForbidden},
		{"shape", domain.ErrInvalidRecordShape, http.StatusBadRequest, ErrCodeInvalidRecordShape},
		{"content", domain.ErrInvalidContent, http.StatusBadRequest, ErrCodeInvalidContent},
		{"reaction", domain.ErrInvalidReaction, http.StatusBadRequest, ErrCodeBadRequest},
		{"self", services.ErrSelfFeedbackNotAllowed, http.StatusUnprocessableEntity, ErrCodeSelfFeedback},
		{"transition", services.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition},
		{"creator", services.ErrCreatorNotRemovable, http.StatusConflict, ErrCodeCreatorNotRemovable},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { writeError(c, tc.err) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tc.status, w.Code)
			er := decode[ErrorResponse](t, w)
			assert.Equal(t, tc.code, er.Code)
			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", er.Message)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, PageSize: 20, Total: 0, TotalPages: 0}, paginate(1, 20, 0))
	assert.Equal(t, Pagination{Page: 1, PageSize: 20, Total: 41, TotalPages: 3, HasNext: true}, paginate(1, 20, 41))
	assert.Equal(t, Pagination{Page: 3, PageSize: 20, Total: 41, TotalPages: 3}, paginate(3, 20, 41))
}
