package platforms

import (
	"context"
	"time"
)

const (
	AuthTypeOAuth2              = "oauth2"
	AuthTypeOAuth2PKCE          = "oauth2_pkce"
	AuthTypeAppPassword         = "app_password"
	AuthTypeDynamicRegistration = "dynamic_registration"
)

const (
	PlatformTwitter   = "twitter"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLinkedIn  = "linkedin"
	PlatformThreads   = "threads"
	PlatformPinterest = "pinterest"
	PlatformTiktok    = "tiktok"
	PlatformYoutube   = "youtube"
	PlatformBluesky   = "bluesky"
	PlatformMastodon  = "mastodon"
)

// PlatformConfig is the static descriptor for one platform: endpoints, auth
// variant and content constraints. Client credentials come from the
// environment; a descriptor without them is unusable.
type PlatformConfig struct {
	Platform     string
	AuthType     string
	AuthURL      string
	TokenURL     string
	RevokeURL    string
	APIBase      string
	Scopes       []string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Constraints  Constraints
}

// Configured reports whether the platform can be used at all. App-password
// and dynamic-registration platforms need no static client.
func (c *PlatformConfig) Configured() bool {
	switch c.AuthType {
	case AuthTypeAppPassword, AuthTypeDynamicRegistration:
		return true
	default:
		return c.ClientID != "" && c.ClientSecret != ""
	}
}

// AuthParams carries everything an adapter needs to build an authorization
// URL. Challenge is set for PKCE platforms, Instance for Mastodon.
type AuthParams struct {
	State     string
	Challenge string
	Instance  string
}

type ExchangeParams struct {
	Code     string
	Verifier string
	Instance string
}

// Session is the per-account context adapters operate under. Tokens arrive
// already decrypted; Instance is set for Mastodon accounts.
type Session struct {
	AccessToken  string
	RefreshToken string
	AccountID    string
	Instance     string
}

// Token is what a code exchange or refresh yields. A zero ExpiresAt means the
// token never expires (Mastodon). An empty RefreshToken on refresh means the
// platform reuses the original; callers must not blank the stored one.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       string
}

type Profile struct {
	AccountID      string
	Username       string
	Name           string
	AvatarURL      string
	FollowersCount int64
	FollowingCount int64
	PostsCount     int64
}

type MediaItem struct {
	URL       string
	MIME      string
	SizeBytes int64
	Width     int
	Height    int
}

// Content is the platform-agnostic publish payload. Constraint enforcement
// happens before Publish is called, at translation time.
type Content struct {
	Title string
	Text  string
	Media []MediaItem
}

type AccountMetrics struct {
	FollowersCount int64
	FollowingCount int64
	PostsCount     int64
	Impressions    int64
	Reach          int64
	Engagement     int64
	Likes          int64
	Comments       int64
	Shares         int64
	Clicks         int64
}

type PostMetrics struct {
	Impressions int64
	Reach       int64
	Engagement  int64
	Likes       int64
	Comments    int64
	Shares      int64
}

// Adapter is the per-platform implementation of auth, publishing and
// analytics. All platform dispatch goes through this interface; nothing
// outside this package branches on platform strings.
type Adapter interface {
	Config() *PlatformConfig
	AuthorizeURL(ctx context.Context, p AuthParams) (string, error)
	Exchange(ctx context.Context, p ExchangeParams) (*Token, error)
	Refresh(ctx context.Context, s Session) (*Token, error)
	Revoke(ctx context.Context, s Session) error
	Profile(ctx context.Context, s Session) (*Profile, error)
	Publish(ctx context.Context, s Session, content *Content) (string, error)
	AccountMetrics(ctx context.Context, s Session) (*AccountMetrics, error)
	PostMetrics(ctx context.Context, s Session, contentID string) (*PostMetrics, error)
}
