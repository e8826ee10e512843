// Package cache keeps hashtag ranking results in Redis so the popular and
// trending endpoints do not aggregate the statistics store on every read.
// Entries expire after a TTL and are dropped as a whole after counter
// resets and inactivity sweeps.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

const (
	// DefaultPrefix namespaces ranking keys.
	DefaultPrefix = "feedback:rankings:"
	// DefaultTTL applies when NewRanking gets a non-positive ttl.
	DefaultTTL = time.Minute

	scanBatch = 100
)

// Connect parses a redis:// URL, dials, and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Ranking stores ranking slices as JSON under Prefix+key.
type Ranking struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRanking returns a ranking cache on rdb. Blank prefix and non-positive
// ttl select the defaults.
func NewRanking(rdb *redis.Client, prefix string, ttl time.Duration) *Ranking {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ranking{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Key returns the Redis key for a ranking key.
func (r *Ranking) Key(key string) string { return r.prefix + key }

// Pattern matches every key of this cache.
func (r *Ranking) Pattern() string { return r.prefix + "*" }

// TTL is the expiry applied by Set.
func (r *Ranking) TTL() time.Duration { return r.ttl }

// Get returns the cached ranking for key. A missing key is a miss, not an
// error.
func (r *Ranking) Get(ctx context.Context, key string) ([]domain.HashtagStats, bool, error) {
	raw, err := r.rdb.Get(ctx, r.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Set stores v under key for the cache TTL.
func (r *Ranking) Set(ctx context.Context, key string, v []domain.HashtagStats) error {
	raw, err := encode(v)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.Key(key), raw, r.ttl).Err()
}

// Invalidate deletes every key of this cache.
func (r *Ranking) Invalidate(ctx context.Context) error {
	iter := r.rdb.Scan(ctx, 0, r.Pattern(), scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

func encode(v []domain.HashtagStats) ([]byte, error) {
	if v == nil {
		v = []domain.HashtagStats{}
	}
	return json.Marshal(v)
}

func decode(raw []byte) ([]domain.HashtagStats, error) {
	var out []domain.HashtagStats
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode cached ranking: %w", err)
	}
	return out, nil
}
