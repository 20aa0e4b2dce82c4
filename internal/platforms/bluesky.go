package platforms

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const blueskyAPIBase = "https://bsky.social/xrpc"

// blueskySessionTTL is how long an accessJwt stays valid. The PDS does not
// report an expiry, so the session lifetime is pinned here.
const blueskySessionTTL = 2 * time.Hour

// PasswordConnector is implemented by adapters that exchange user-supplied
// credentials directly instead of running a redirect flow.
type PasswordConnector interface {
	CreateSession(ctx context.Context, handle, appPassword string) (*Token, *Profile, error)
}

type blueskyAdapter struct {
	cfg *PlatformConfig
}

func NewBlueskyAdapter() Adapter {
	return &blueskyAdapter{
		cfg: &PlatformConfig{
			Platform: PlatformBluesky,
			AuthType: AuthTypeAppPassword,
			APIBase:  blueskyAPIBase,
			Constraints: Constraints{
				MaxTextChars:  300,
				MaxImageBytes: 1 * 1024 * 1024,
				MaxMediaCount: 4,
			},
		},
	}
}

func (a *blueskyAdapter) Config() *PlatformConfig { return a.cfg }

func (a *blueskyAdapter) AuthorizeURL(ctx context.Context, p AuthParams) (string, error) {
	return "", errors.New("bluesky connects with an app password, not an authorization redirect")
}

func (a *blueskyAdapter) Exchange(ctx context.Context, p ExchangeParams) (*Token, error) {
	return nil, errors.New("bluesky connects with an app password, not a code exchange")
}

// CreateSession trades a handle and app password for a session token pair and
// the account's profile in one step.
func (a *blueskyAdapter) CreateSession(ctx context.Context, handle, appPassword string) (*Token, *Profile, error) {
	var res struct {
		AccessJwt  string `json:"accessJwt"`
		RefreshJwt string `json:"refreshJwt"`
		DID        string `json:"did"`
		Handle     string `json:"handle"`
	}

	body := map[string]string{"identifier": handle, "password": appPassword}
	if err := postJSON(ctx, a.cfg.APIBase+"/com.atproto.server.createSession", "", body, &res); err != nil {
		return nil, nil, err
	}

	token := &Token{
		AccessToken:  res.AccessJwt,
		RefreshToken: res.RefreshJwt,
		ExpiresAt:    time.Now().Add(blueskySessionTTL),
	}

	profile, err := a.Profile(ctx, Session{AccessToken: res.AccessJwt, AccountID: res.DID})
	if err != nil {
		return nil, nil, err
	}
	profile.AccountID = res.DID

	return token, profile, nil
}

// Refresh rotates the session; the PDS issues a fresh accessJwt/refreshJwt
// pair and the old refreshJwt stops working.
func (a *blueskyAdapter) Refresh(ctx context.Context, s Session) (*Token, error) {
	var res struct {
		AccessJwt  string `json:"accessJwt"`
		RefreshJwt string `json:"refreshJwt"`
	}

	if err := postJSON(ctx, a.cfg.APIBase+"/com.atproto.server.refreshSession", s.RefreshToken, nil, &res); err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  res.AccessJwt,
		RefreshToken: res.RefreshJwt,
		ExpiresAt:    time.Now().Add(blueskySessionTTL),
	}, nil
}

func (a *blueskyAdapter) Revoke(ctx context.Context, s Session) error {
	return postJSON(ctx, a.cfg.APIBase+"/com.atproto.server.deleteSession", s.RefreshToken, nil, nil)
}

func (a *blueskyAdapter) Profile(ctx context.Context, s Session) (*Profile, error) {
	var res struct {
		DID            string `json:"did"`
		Handle         string `json:"handle"`
		DisplayName    string `json:"displayName"`
		Avatar         string `json:"avatar"`
		FollowersCount int64  `json:"followersCount"`
		FollowsCount   int64  `json:"followsCount"`
		PostsCount     int64  `json:"postsCount"`
	}

	reqURL := fmt.Sprintf("%s/app.bsky.actor.getProfile?actor=%s", a.cfg.APIBase, s.AccountID)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	return &Profile{
		AccountID:      res.DID,
		Username:       res.Handle,
		Name:           res.DisplayName,
		AvatarURL:      res.Avatar,
		FollowersCount: res.FollowersCount,
		FollowingCount: res.FollowsCount,
		PostsCount:     res.PostsCount,
	}, nil
}

func (a *blueskyAdapter) Publish(ctx context.Context, s Session, content *Content) (string, error) {
	record := map[string]interface{}{
		"$type":     "app.bsky.feed.post",
		"text":      content.Text,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}
	body := map[string]interface{}{
		"repo":       s.AccountID,
		"collection": "app.bsky.feed.post",
		"record":     record,
	}

	var res struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}
	if err := postJSON(ctx, a.cfg.APIBase+"/com.atproto.repo.createRecord", s.AccessToken, body, &res); err != nil {
		return "", err
	}

	return res.URI, nil
}

func (a *blueskyAdapter) AccountMetrics(ctx context.Context, s Session) (*AccountMetrics, error) {
	profile, err := a.Profile(ctx, s)
	if err != nil {
		return nil, err
	}

	return &AccountMetrics{
		FollowersCount: profile.FollowersCount,
		FollowingCount: profile.FollowingCount,
		PostsCount:     profile.PostsCount,
	}, nil
}

func (a *blueskyAdapter) PostMetrics(ctx context.Context, s Session, contentID string) (*PostMetrics, error) {
	var res struct {
		Thread struct {
			Post struct {
				LikeCount   int64 `json:"likeCount"`
				RepostCount int64 `json:"repostCount"`
				ReplyCount  int64 `json:"replyCount"`
				QuoteCount  int64 `json:"quoteCount"`
			} `json:"post"`
		} `json:"thread"`
	}

	reqURL := fmt.Sprintf("%s/app.bsky.feed.getPostThread?uri=%s&depth=0", a.cfg.APIBase, contentID)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	p := res.Thread.Post
	return &PostMetrics{
		Engagement: p.LikeCount + p.RepostCount + p.ReplyCount + p.QuoteCount,
		Likes:      p.LikeCount,
		Comments:   p.ReplyCount,
		Shares:     p.RepostCount + p.QuoteCount,
	}, nil
}
