// Command server runs the feedback API.
//
// @title           Feedback API
// @version         1.0
// @description     Community feedback platform: forums, forum and peer-to-peer feedback, reactions, moderation and hashtag analytics.
// @BasePath        /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tbourn/go-feedback-backend/internal/cache"
	"github.com/tbourn/go-feedback-backend/internal/config"
	httpapi "github.com/tbourn/go-feedback-backend/internal/http"
	"github.com/tbourn/go-feedback-backend/internal/jobs"
	"github.com/tbourn/go-feedback-backend/internal/observability"
	"github.com/tbourn/go-feedback-backend/internal/repo"
	"github.com/tbourn/go-feedback-backend/internal/repo/mongostore"
	"github.com/tbourn/go-feedback-backend/internal/services"
	"github.com/tbourn/go-feedback-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	gin.SetMode(cfg.GinMode)

	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	sysutil.SetupLogger(sysutil.LoggerOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: appVersion,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.Storage.DBPath, repo.OpenOptions{Tracing: cfg.OTEL.Enabled})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Storage.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var (
		store       services.HashtagStore = repo.HashtagStore{DB: db}
		ranking     services.RankingCache
		mongoClient *mongo.Client
		rdb         *redis.Client
	)
	if cfg.Storage.HashtagStore == config.HashtagStoreMongo {
		mongoClient, err = mongostore.Connect(ctx, cfg.Storage.MongoURI)
		if err != nil {
			log.Fatal().Err(err).Msg("connect mongo")
		}
		ms := mongostore.New(mongoClient.Database(cfg.Storage.MongoDatabase))
		if err := ms.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("create hashtag indexes")
		}
		store = ms
		log.Info().Str("database", cfg.Storage.MongoDatabase).Msg("hashtag statistics in mongo")
	}
	if cfg.Storage.RedisURL != "" {
		rdb, err = cache.Connect(ctx, cfg.Storage.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		ranking = cache.NewRanking(rdb, "feedback:hashtags:", cfg.Storage.RankingCacheTTL)
		log.Info().Dur("ttl", cfg.Storage.RankingCacheTTL).Msg("hashtag ranking cache enabled")
	}

	svc := httpapi.NewServices(db, store, ranking, cfg)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, svc, cfg)

	if cfg.Jobs.Enabled {
		sched := jobs.New(jobs.WithRunStore(repo.JobRunStore{DB: db}))
		all := jobs.HashtagJobs(svc.Hashtags, jobs.Intervals{
			Weekly:         cfg.Jobs.WeeklyEvery,
			Monthly:        cfg.Jobs.MonthlyEvery,
			Sweep:          cfg.Jobs.SweepEvery,
			InactivityDays: cfg.Jobs.InactivityDays,
		})
		all = append(all, jobs.IdempotencyPurgeJob(db, cfg.Jobs.PurgeEvery))
		for _, j := range all {
			if err := sched.Register(j); err != nil {
				log.Fatal().Err(err).Str("job", j.Name).Msg("register job")
			}
		}
		sched.Start(ctx)
		for _, info := range sched.List() {
			log.Info().
				Str("job", info.Name).
				Str("interval", info.Interval).
				Time("next_run_at", info.NextRunAt).
				Msg("job scheduled")
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if mongoClient != nil {
		_ = mongoClient.Disconnect(shutdownCtx)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}
