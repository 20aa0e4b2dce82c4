package models

import (
	"database/sql"
	"time"
)

// OAuthSession is an ephemeral record of an in-flight authorization. Keyed by
// the state token, consumed (deleted) on first callback, dead after 10 minutes.
type OAuthSession struct {
	State        string         `db:"state" json:"state"`
	Platform     string         `db:"platform" json:"platform"`
	SiteID       int64          `db:"site_id" json:"site_id"`
	UserID       int64          `db:"user_id" json:"user_id"`
	CodeVerifier sql.NullString `db:"code_verifier" json:"-"`
	Instance     sql.NullString `db:"instance" json:"instance"`
	ExpiresAt    time.Time      `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// MastodonApp caches the client registered against one Mastodon instance so
// repeat connects to the same domain skip the /api/v1/apps round trip.
type MastodonApp struct {
	Instance     string    `db:"instance" json:"instance"`
	ClientID     string    `db:"client_id" json:"client_id"`
	ClientSecret string    `db:"client_secret" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
