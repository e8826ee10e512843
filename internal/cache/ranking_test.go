package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

func TestNewRanking_Defaults(t *testing.T) {
	r := NewRanking(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "", 0)
	assert.Equal(t, DefaultTTL, r.TTL())
	assert.Equal(t, DefaultPrefix+"popular:10", r.Key("popular:10"))
	assert.Equal(t, DefaultPrefix+"*", r.Pattern())

	r = NewRanking(nil, "x:", 5*time.Second)
	assert.Equal(t, "x:trending:3", r.Key("trending:3"))
	assert.Equal(t, 5*time.Second, r.TTL())
}

func TestEncodeDecode(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []domain.HashtagStats{{Tag: "golang", TotalUses: 12, UsesThisWeek: 4, FirstUsedAt: at, LastUsedAt: at, Active: true}}

	raw, err := encode(in)
	require.NoError(t, err)
	out, err := decode(raw)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "golang", out[0].Tag)
	assert.Equal(t, int64(12), out[0].TotalUses)
	assert.True(t, out[0].LastUsedAt.Equal(at))

	raw, err = encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))

	_, err = decode([]byte("{not json"))
	assert.Error(t, err)
}

func TestConnect_Errors(t *testing.T) {
	_, err := Connect(context.Background(), "http://not-redis")
	assert.ErrorContains(t, err, "invalid redis url")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = Connect(ctx, "redis://127.0.0.1:1/0")
	assert.ErrorContains(t, err, "redis ping failed")
}
