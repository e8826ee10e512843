// Package httpapi wires the HTTP transport (Gin) to the application
// services, middleware and route handlers. It centralizes cross-cutting
// concerns: correlation ids, caller identity, tracing, structured logging,
// panic recovery, metrics, security headers, CORS, idempotency and rate
// limiting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-backend/docs"
	"github.com/tbourn/go-feedback-backend/internal/config"
	"github.com/tbourn/go-feedback-backend/internal/http/handlers"
	"github.com/tbourn/go-feedback-backend/internal/http/middleware"
	"github.com/tbourn/go-feedback-backend/internal/repo"
	"github.com/tbourn/go-feedback-backend/internal/services"
)

// Services bundles the application services behind the handlers.
type Services struct {
	Users    *services.UserService
	Forums   *services.ForumService
	Feedback *services.FeedbackService
	Hashtags *services.HashtagService
}

// NewServices builds the services over db. store holds hashtag statistics;
// cache may be nil to disable ranking caching.
func NewServices(db *gorm.DB, store services.HashtagStore, cache services.RankingCache, cfg config.Config) Services {
	return Services{
		Users:  &services.UserService{DB: db},
		Forums: &services.ForumService{DB: db},
		Feedback: &services.FeedbackService{
			DB:             db,
			Hashtags:       store,
			Cache:          cache,
			IdempotencyTTL: cfg.IdempotencyTTL,
		},
		Hashtags: &services.HashtagService{
			DB:             db,
			Store:          store,
			Cache:          cache,
			InactivityDays: cfg.Jobs.InactivityDays,
		},
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to r and mounts
// the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. RequestID: generate/propagate correlation id
//  2. Identity: caller id from X-User-ID (needed by logs and rate keys)
//  3. OpenTelemetry: trace everything
//  4. Logger: structured access log with redaction
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Security headers and CORS
//  9. Gzip
//  10. Idempotency validator (before rate limiter to allow bypass on replay)
//  11. Rate limiter (per user/IP, bypass on replay)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svc Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID())
	r.Use(middleware.Identity())
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.Logger(middleware.LoggerOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc.Users, svc.Forums, svc.Feedback, svc.Hashtags)
	h.Register(groupWithPrefix(r, cfg.APIBasePath))
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match",
		},
		ExposeHeaders:    []string{"X-Request-ID", middleware.HeaderIdempotencyReplayed, "ETag", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(c.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowedOrigins
	}
	return cc
}

// limitBody caps the request body size at maxBytes. Reads past the cap fail,
// which surfaces as a binding error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
