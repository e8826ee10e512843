package mongostore

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tbourn/go-feedback-backend/internal/domain"
)

func TestRecordUpdate(t *testing.T) {
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	u := recordUpdate(now)

	assert.Equal(t, bson.M{"total_uses": 1, "uses_this_week": 1, "uses_this_month": 1}, u["$inc"])
	assert.Equal(t, bson.M{"last_used_at": now, "active": true}, u["$set"])
	assert.Equal(t, bson.M{"first_used_at": now}, u["$setOnInsert"])
}

func TestFilters(t *testing.T) {
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, bson.M{"active": true, "last_used_at": bson.M{"$lt": cutoff}}, inactiveFilter(cutoff))
	assert.Equal(t, bson.M{"active": true, "uses_this_week": bson.M{"$gte": int64(3)}}, trendingFilter(3))
}

func TestSearchFilter_EscapesRegex(t *testing.T) {
	f := searchFilter("  Go.* ")
	tag := f["tag"].(bson.M)
	pattern := tag["$regex"].(string)

	assert.Equal(t, `go\.\*`, pattern)
	assert.Equal(t, "i", tag["$options"])
	re := regexp.MustCompile(pattern)
	assert.True(t, re.MatchString("learn_go.*_now"))
	assert.False(t, re.MatchString("golang"))
}

func TestTotalsPipeline(t *testing.T) {
	p := totalsPipeline()
	require.Len(t, p, 1)
	require.Equal(t, "$group", p[0][0].Key)

	group := p[0][0].Value.(bson.M)
	assert.Nil(t, group["_id"])
	for _, k := range []string{"total", "active", "trending", "popular"} {
		assert.Contains(t, group, k)
	}

	// The pipeline must round-trip through the bson encoder.
	_, err := bson.Marshal(bson.D{{Key: "pipeline", Value: p}})
	require.NoError(t, err)

	// Field names decode into HashtagTotals.
	raw, err := bson.Marshal(bson.M{"total": int64(4), "active": int64(3), "trending": int64(2), "popular": int64(1)})
	require.NoError(t, err)
	var got domain.HashtagTotals
	require.NoError(t, bson.Unmarshal(raw, &got))
	assert.Equal(t, domain.HashtagTotals{Total: 4, Active: 3, Trending: 2, Popular: 1}, got)
}

func TestStatsDocumentShape(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	raw, err := bson.Marshal(domain.HashtagStats{Tag: "golang", TotalUses: 2, FirstUsedAt: at, LastUsedAt: at, Active: true})
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	for _, k := range []string{"tag", "total_uses", "uses_this_week", "uses_this_month", "first_used_at", "last_used_at", "active"} {
		assert.Contains(t, doc, k)
	}
}
