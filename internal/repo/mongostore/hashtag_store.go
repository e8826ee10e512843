// Package mongostore implements the hashtag statistics store on MongoDB.
// Each tag is one document in the hashtag_stats collection, keyed by a
// unique index on tag. Counter changes are $inc updates with upsert, so
// concurrent uses of a tag never lose increments.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tbourn/go-feedback-backend/internal/domain"
	"github.com/tbourn/go-feedback-backend/internal/repo"
)

// Collection is the name of the statistics collection.
const Collection = "hashtag_stats"

// Connect dials uri and verifies the deployment answers.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// HashtagStore is the MongoDB statistics store.
type HashtagStore struct {
	coll *mongo.Collection
}

// New returns a store on db's hashtag_stats collection.
func New(db *mongo.Database) *HashtagStore {
	return &HashtagStore{coll: db.Collection(Collection)}
}

// EnsureIndexes creates the unique tag index and the ranking indexes.
func (s *HashtagStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tag", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "total_uses", Value: -1}}},
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "uses_this_week", Value: -1}, {Key: "last_used_at", Value: -1}}},
		{Keys: bson.D{{Key: "last_used_at", Value: 1}}},
	})
	return err
}

// RecordUses upserts one use per element of tags, in order.
func (s *HashtagStore) RecordUses(ctx context.Context, tags []string, now time.Time) error {
	if len(tags) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(tags))
	for _, tag := range tags {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"tag": tag}).
			SetUpdate(recordUpdate(now)).
			SetUpsert(true))
	}
	_, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

// ResetWeekly zeroes uses_this_week and returns the number of changed
// documents.
func (s *HashtagStore) ResetWeekly(ctx context.Context) (int64, error) {
	return s.reset(ctx, "uses_this_week")
}

// ResetMonthly zeroes uses_this_month and returns the number of changed
// documents.
func (s *HashtagStore) ResetMonthly(ctx context.Context) (int64, error) {
	return s.reset(ctx, "uses_this_month")
}

func (s *HashtagStore) reset(ctx context.Context, field string) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{field: bson.M{"$ne": 0}},
		bson.M{"$set": bson.M{field: 0}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeactivateInactive clears active on tags last used strictly before
// cutoff and returns how many were flipped.
func (s *HashtagStore) DeactivateInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx, inactiveFilter(cutoff), bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Get returns the statistics of tag, or repo.ErrNotFound.
func (s *HashtagStore) Get(ctx context.Context, tag string) (*domain.HashtagStats, error) {
	var out domain.HashtagStats
	err := s.coll.FindOne(ctx, bson.M{"tag": tag}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Popular ranks active tags by total uses.
func (s *HashtagStore) Popular(ctx context.Context, limit int) ([]domain.HashtagStats, error) {
	return s.find(ctx, bson.M{"active": true}, popularSort, limit)
}

// Trending ranks active tags with at least minWeekly uses this week.
func (s *HashtagStore) Trending(ctx context.Context, minWeekly int64, limit int) ([]domain.HashtagStats, error) {
	return s.find(ctx, trendingFilter(minWeekly), trendingSort, limit)
}

// Search returns active tags containing text, case-insensitively.
func (s *HashtagStore) Search(ctx context.Context, text string, limit int) ([]domain.HashtagStats, error) {
	return s.find(ctx, searchFilter(text), popularSort, limit)
}

// Totals computes the collection summary in one aggregation.
func (s *HashtagStore) Totals(ctx context.Context) (domain.HashtagTotals, error) {
	var t domain.HashtagTotals
	cur, err := s.coll.Aggregate(ctx, totalsPipeline())
	if err != nil {
		return t, err
	}
	defer cur.Close(ctx)
	if cur.Next(ctx) {
		if err := cur.Decode(&t); err != nil {
			return t, err
		}
	}
	return t, cur.Err()
}

// CountSince counts tags first used at or after since.
func (s *HashtagStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"first_used_at": bson.M{"$gte": since}})
}

func (s *HashtagStore) find(ctx context.Context, filter bson.M, sort bson.D, limit int) ([]domain.HashtagStats, error) {
	opts := options.Find().SetSort(sort)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []domain.HashtagStats{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var (
	popularSort  = bson.D{{Key: "total_uses", Value: -1}, {Key: "tag", Value: 1}}
	trendingSort = bson.D{{Key: "uses_this_week", Value: -1}, {Key: "last_used_at", Value: -1}}
)

func recordUpdate(now time.Time) bson.M {
	return bson.M{
		"$inc": bson.M{
			"total_uses":      1,
			"uses_this_week":  1,
			"uses_this_month": 1,
		},
		"$set":         bson.M{"last_used_at": now, "active": true},
		"$setOnInsert": bson.M{"first_used_at": now},
	}
}

func inactiveFilter(cutoff time.Time) bson.M {
	return bson.M{"active": true, "last_used_at": bson.M{"$lt": cutoff}}
}

func trendingFilter(minWeekly int64) bson.M {
	return bson.M{"active": true, "uses_this_week": bson.M{"$gte": minWeekly}}
}

func searchFilter(text string) bson.M {
	pattern := regexp.QuoteMeta(strings.ToLower(strings.TrimSpace(text)))
	return bson.M{
		"active": true,
		"tag":    bson.M{"$regex": pattern, "$options": "i"},
	}
}

func totalsPipeline() mongo.Pipeline {
	countIf := func(cond bson.M) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{cond, 1, 0}}}
	}
	active := bson.M{"$eq": bson.A{"$active", true}}
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"total":  bson.M{"$sum": 1},
			"active": countIf(active),
			"trending": countIf(bson.M{"$and": bson.A{
				active,
				bson.M{"$gte": bson.A{"$uses_this_week", domain.TrendingThreshold}},
			}}),
			"popular": countIf(bson.M{"$and": bson.A{
				active,
				bson.M{"$gte": bson.A{"$total_uses", domain.PopularThreshold}},
			}}),
		}}},
	}
}
