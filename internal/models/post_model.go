package models

import (
	"database/sql"
	"time"
)

type Post struct {
	ID            int64     `db:"id" json:"id"`
	SiteID        int64     `db:"site_id" json:"site_id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	PostType      string    `db:"post_type" json:"post_type"`
	Caption       string    `db:"caption" json:"caption"`
	Title         string    `db:"title" json:"title"`
	ScheduledTime time.Time `db:"scheduled_time" json:"scheduled_time"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// PublishAttempt tracks one (post, account) target through its own state
// machine. A transient failure goes back to pending with attempt_count
// incremented; failed is terminal.
type PublishAttempt struct {
	ID                int64          `db:"id" json:"id"`
	PostID            int64          `db:"post_id" json:"post_id"`
	AccountID         int64          `db:"account_id" json:"account_id"`
	PlatformContentID sql.NullString `db:"platform_content_id" json:"platform_content_id"`
	AttemptCount      int            `db:"attempt_count" json:"attempt_count"`
	Status            string         `db:"status" json:"status"`
	LastError         sql.NullString `db:"last_error" json:"last_error"`
	PublishedAt       sql.NullTime   `db:"published_at" json:"published_at"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	FileName  string    `db:"file_name"`
	FileType  string    `db:"file_type"`
	FileSize  int64     `db:"file_size"`
	Width     int       `db:"width"`
	Height    int       `db:"height"`
	FileURL   string    `db:"file_url"`
	CreatedAt time.Time `db:"created_at"`
}

type PostMedia struct {
	PostID       int64     `db:"post_id"`
	AssetID      int64     `db:"asset_id"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
}

const (
	PostStatusDraft           = "draft"
	PostStatusScheduled       = "scheduled"
	PostStatusPublishing      = "publishing"
	PostStatusPublished       = "published"
	PostStatusPartiallyFailed = "partially_failed"
	PostStatusFailed          = "failed"
)

const (
	AttemptStatusPending    = "pending"
	AttemptStatusPublishing = "publishing"
	AttemptStatusPublished  = "published"
	AttemptStatusFailed     = "failed"
)
