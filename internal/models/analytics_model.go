package models

import "time"

// DailyAnalyticsSnapshot holds one day of account-level metrics. Upsert key
// is (account_id, snapshot_date); re-syncing a day overwrites the row.
type DailyAnalyticsSnapshot struct {
	ID              int64     `db:"id" json:"id"`
	AccountID       int64     `db:"account_id" json:"account_id"`
	SnapshotDate    time.Time `db:"snapshot_date" json:"snapshot_date"`
	FollowersCount  int64     `db:"followers_count" json:"followers_count"`
	FollowersChange int64     `db:"followers_change" json:"followers_change"`
	Impressions     int64     `db:"impressions" json:"impressions"`
	Reach           int64     `db:"reach" json:"reach"`
	Engagement      int64     `db:"engagement" json:"engagement"`
	Likes           int64     `db:"likes" json:"likes"`
	Comments        int64     `db:"comments" json:"comments"`
	Shares          int64     `db:"shares" json:"shares"`
	Clicks          int64     `db:"clicks" json:"clicks"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type PostAnalytics struct {
	ID          int64     `db:"id" json:"id"`
	PostID      int64     `db:"post_id" json:"post_id"`
	AccountID   int64     `db:"account_id" json:"account_id"`
	Impressions int64     `db:"impressions" json:"impressions"`
	Reach       int64     `db:"reach" json:"reach"`
	Engagement  int64     `db:"engagement" json:"engagement"`
	Likes       int64     `db:"likes" json:"likes"`
	Comments    int64     `db:"comments" json:"comments"`
	Shares      int64     `db:"shares" json:"shares"`
	SyncedAt    time.Time `db:"synced_at" json:"synced_at"`
}

// PostPerformance pairs a target's publish time with its latest synced
// metrics, the input row for optimal-time scoring.
type PostPerformance struct {
	PostID      int64     `db:"post_id" json:"post_id"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	Impressions int64     `db:"impressions" json:"impressions"`
	Reach       int64     `db:"reach" json:"reach"`
	Engagement  int64     `db:"engagement" json:"engagement"`
}

// OptimalTimeSlot scores one (weekday, hour) bucket for an account. Weekday
// follows time.Weekday (Sunday = 0).
type OptimalTimeSlot struct {
	ID         int64     `db:"id" json:"id"`
	AccountID  int64     `db:"account_id" json:"account_id"`
	Weekday    int       `db:"weekday" json:"weekday"`
	Hour       int       `db:"hour" json:"hour"`
	Score      float64   `db:"score" json:"score"`
	Confidence float64   `db:"confidence" json:"confidence"`
	SampleSize int       `db:"sample_size" json:"sample_size"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
