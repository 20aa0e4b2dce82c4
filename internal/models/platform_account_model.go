package models

import (
	"database/sql"
	"time"
)

type PlatformAccount struct {
	ID              int64          `db:"id" json:"id"`
	SiteID          int64          `db:"site_id" json:"site_id"`
	UserID          int64          `db:"user_id" json:"user_id"`
	Platform        string         `db:"platform" json:"platform"`
	Instance        sql.NullString `db:"instance" json:"instance,omitempty"`
	AccountID       string         `db:"account_id" json:"account_id"`
	AccountName     string         `db:"account_name" json:"account_name"`
	AccountUsername string         `db:"account_username" json:"account_username"`
	ProfilePicture  string         `db:"profile_picture_url" json:"profile_picture"`
	AccessToken     string         `db:"access_token" json:"-"`
	RefreshToken    string         `db:"refresh_token" json:"-"`
	TokenExpiresAt  time.Time      `db:"token_expires_at" json:"token_expires_at"`
	Scopes          string         `db:"scopes" json:"scopes"`
	FollowersCount  int64          `db:"followers_count" json:"followers_count"`
	FollowingCount  int64          `db:"following_count" json:"following_count"`
	PostsCount      int64          `db:"posts_count" json:"posts_count"`
	AccountStatus   string         `db:"account_status" json:"account_status"`
	LastSyncedAt    sql.NullTime   `db:"last_synced_at" json:"last_synced_at"`
	LastError       sql.NullString `db:"last_error" json:"-"`
	LastErrorAt     sql.NullTime   `db:"last_error_at" json:"-"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`

	// Health is recomputed from the fields above on every read, never stored.
	Health int `db:"-" json:"health"`
}

const (
	AccountStatusActive      = "active"
	AccountStatusExpired     = "expired"
	AccountStatusRateLimited = "rate_limited"
	AccountStatusRevoked     = "revoked"
)
