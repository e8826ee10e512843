package domain

import "time"

// Classification thresholds and the default inactivity window.
const (
	PopularThreshold      = 10
	TrendingThreshold     = 3
	DefaultInactivityDays = 90
)

// HashtagStats holds the usage counters of one tag. The same shape is stored
// in SQL (GORM) and in MongoDB (bson).
//
// Fields:
//   - Tag: normalized unique key.
//   - TotalUses / UsesThisWeek / UsesThisMonth: counters; the windowed ones
//     are zeroed by scheduled resets.
//   - FirstUsedAt / LastUsedAt: first and most recent recorded use.
//   - Active: cleared by the inactivity sweep, set again on the next use.
type HashtagStats struct {
	Tag           string    `json:"tag"             bson:"tag"             gorm:"type:varchar(50);primaryKey"`
	TotalUses     int64     `json:"total_uses"      bson:"total_uses"      gorm:"not null;default:0;index"`
	UsesThisWeek  int64     `json:"uses_this_week"  bson:"uses_this_week"  gorm:"not null;default:0"`
	UsesThisMonth int64     `json:"uses_this_month" bson:"uses_this_month" gorm:"not null;default:0"`
	FirstUsedAt   time.Time `json:"first_used_at"   bson:"first_used_at"   gorm:"not null"`
	LastUsedAt    time.Time `json:"last_used_at"    bson:"last_used_at"    gorm:"not null;index"`
	Active        bool      `json:"active"          bson:"active"          gorm:"not null;default:true;index"`
}

// TableName returns the database table name for HashtagStats.
func (HashtagStats) TableName() string { return "hashtag_stats" }

// IsPopular reports whether the tag reached PopularThreshold uses.
func (s HashtagStats) IsPopular() bool { return s.TotalUses >= PopularThreshold }

// IsTrending reports whether the tag reached TrendingThreshold uses this week.
func (s HashtagStats) IsTrending() bool { return s.UsesThisWeek >= TrendingThreshold }

// TagCount is one row of a group-by-tag aggregation.
type TagCount struct {
	Tag   string `json:"tag"   bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// HashtagTotals summarizes the statistics collection.
type HashtagTotals struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Trending int64 `json:"trending"`
	Popular  int64 `json:"popular"`
}
