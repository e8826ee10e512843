package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/http/middleware"
	"github.com/tbourn/go-feedback-backend/internal/repo"
	"github.com/tbourn/go-feedback-backend/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

type api struct {
	r  *gin.Engine
	db *gorm.DB
}

// newAPI serves the full route table over real services backed by a fresh
// in-memory database seeded with "admin" (admin), "alice" and "bob".
func newAPI(t *testing.T) *api {
	t.Helper()
	dsn := fmt.Sprintf("file:h_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	require.NoError(t, repo.AutoMigrate(db))
	for _, u := range []domain.User{
		{ID: "admin", Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin},
		{ID: "alice", Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser},
		{ID: "bob", Name: "Bob", Email: "bob@example.com", Role: domain.RoleUser},
	} {
		require.NoError(t, db.Create(&u).Error)
	}

	store := repo.HashtagStore{DB: db}
	h := New(
		&services.UserService{DB: db},
		&services.ForumService{DB: db},
		&services.FeedbackService{DB: db, Hashtags: store, IdempotencyTTL: time.Hour},
		&services.HashtagService{DB: db, Store: store},
	)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Identity())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			return err == nil && rec != nil, nil
		}))
	h.Register(r.Group("/api/v1"))
	return &api{r: r, db: db}
}

// call performs a request as user ("" for anonymous). Extra headers come in
// name/value pairs.
func (a *api) call(method, path, user string, body any, hdr ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			buf, _ := json.Marshal(b)
			rd = bytes.NewReader(buf)
		}
	}
	req := httptest.NewRequest(method, "/api/v1"+path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	er := decode[ErrorResponse](t, w)
	require.Equal(t, code, er.Code)
	require.NotEmpty(t, er.Message)
}

// openForum creates a forum as admin that any user may post to and returns
// its id.
func (a *api) openForum(t *testing.T, name string) string {
	t.Helper()
	settings := domain.DefaultForumSettings()
	settings.MembersOnly = false
	w := a.call(http.MethodPost, "/forums", "admin", CreateForumRequest{Name: name, Settings: &settings})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[ForumView](t, w).ID
}
