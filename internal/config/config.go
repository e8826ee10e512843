// Package config loads the feedback service configuration from environment
// variables, applies defaults and validates the result. It covers the HTTP
// server, logging, storage backends (SQLite, optional MongoDB hashtag store,
// optional Redis ranking cache), the maintenance scheduler, rate limiting
// and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Hashtag store backends.
const (
	HashtagStoreSQL   = "sql"
	HashtagStoreMongo = "mongo"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StorageConfig selects and locates the persistence backends.
type StorageConfig struct {
	DBPath          string        // DB_PATH, SQLite file
	HashtagStore    string        // HASHTAG_STORE: sql|mongo
	MongoURI        string        // MONGO_URI
	MongoDatabase   string        // MONGO_DATABASE
	RedisURL        string        // REDIS_URL; empty disables the ranking cache
	RankingCacheTTL time.Duration // RANKING_CACHE_TTL
}

// JobsConfig drives the maintenance scheduler.
type JobsConfig struct {
	Enabled        bool          // JOBS_ENABLED
	WeeklyEvery    time.Duration // JOB_WEEKLY_INTERVAL
	MonthlyEvery   time.Duration // JOB_MONTHLY_INTERVAL
	SweepEvery     time.Duration // JOB_SWEEP_INTERVAL
	PurgeEvery     time.Duration // JOB_PURGE_INTERVAL
	InactivityDays int           // HASHTAG_INACTIVITY_DAYS
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	Storage StorageConfig
	Jobs    JobsConfig

	// Rate limiting
	RateRPS   float64
	RateBurst int

	CORS     CORSConfig
	Security SecurityConfig

	// IdempotencyTTL is how long a feedback Idempotency-Key replays.
	IdempotencyTTL time.Duration

	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		Storage: StorageConfig{
			DBPath:          getenv("DB_PATH", "feedback.db"),
			HashtagStore:    strings.ToLower(strings.TrimSpace(getenv("HASHTAG_STORE", HashtagStoreSQL))),
			MongoURI:        getenv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase:   getenv("MONGO_DATABASE", "feedback"),
			RedisURL:        getenv("REDIS_URL", ""),
			RankingCacheTTL: getdur("RANKING_CACHE_TTL", time.Minute),
		},
		Jobs: JobsConfig{
			Enabled:        getbool("JOBS_ENABLED", true),
			WeeklyEvery:    getdur("JOB_WEEKLY_INTERVAL", 7*24*time.Hour),
			MonthlyEvery:   getdur("JOB_MONTHLY_INTERVAL", 30*24*time.Hour),
			SweepEvery:     getdur("JOB_SWEEP_INTERVAL", 24*time.Hour),
			PurgeEvery:     getdur("JOB_PURGE_INTERVAL", 24*time.Hour),
			InactivityDays: getint("HASHTAG_INACTIVITY_DAYS", 90),
		},

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-feedback-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}

	st := cfg.Storage
	if strings.TrimSpace(st.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	switch st.HashtagStore {
	case HashtagStoreSQL:
	case HashtagStoreMongo:
		if strings.TrimSpace(st.MongoURI) == "" || strings.TrimSpace(st.MongoDatabase) == "" {
			return errors.New("MONGO_URI and MONGO_DATABASE are required when HASHTAG_STORE=mongo")
		}
	default:
		return errors.New("HASHTAG_STORE must be sql or mongo")
	}
	if st.RankingCacheTTL <= 0 {
		return errors.New("RANKING_CACHE_TTL must be > 0")
	}

	j := cfg.Jobs
	if j.WeeklyEvery <= 0 || j.MonthlyEvery <= 0 || j.SweepEvery <= 0 || j.PurgeEvery <= 0 {
		return errors.New("JOB_*_INTERVAL must be positive durations")
	}
	if j.InactivityDays < 1 {
		return errors.New("HASHTAG_INACTIVITY_DAYS must be >= 1")
	}

	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

// getdur accepts Go durations plus a "d" suffix for whole days ("7d").
func getdur(k string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	v = strings.TrimSpace(v)
	if days, found := strings.CutSuffix(v, "d"); found {
		if n, err := strconv.Atoi(days); err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
