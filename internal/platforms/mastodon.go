package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/maheshrc27/socialflow/internal/models"
)

// MastodonAppStore caches clients registered per remote instance. Backed by
// the mastodon_apps table.
type MastodonAppStore interface {
	Get(ctx context.Context, instance string) (*models.MastodonApp, error)
	Save(ctx context.Context, app *models.MastodonApp) error
}

type mastodonAdapter struct {
	cfg  *PlatformConfig
	apps MastodonAppStore
}

func NewMastodonAdapter(callbackBaseURL string, apps MastodonAppStore) Adapter {
	return &mastodonAdapter{
		cfg: &PlatformConfig{
			Platform:    PlatformMastodon,
			AuthType:    AuthTypeDynamicRegistration,
			Scopes:      []string{"read", "write"},
			RedirectURI: callbackBaseURL + "/auth/mastodon/callback",
			Constraints: Constraints{
				MaxTextChars:  500,
				MaxImageBytes: 8 * 1024 * 1024,
				MaxVideoBytes: 40 * 1024 * 1024,
				MaxMediaCount: 4,
			},
		},
		apps: apps,
	}
}

func (a *mastodonAdapter) Config() *PlatformConfig { return a.cfg }

// ensureApp returns the client registered against instance, registering one
// via POST /api/v1/apps on first contact with that domain.
func (a *mastodonAdapter) ensureApp(ctx context.Context, instance string) (*models.MastodonApp, error) {
	if instance == "" {
		return nil, errors.New("mastodon instance is required")
	}

	app, err := a.apps.Get(ctx, instance)
	if err != nil {
		return nil, err
	}
	if app != nil {
		return app, nil
	}

	data := url.Values{}
	data.Set("client_name", "socialflow")
	data.Set("redirect_uris", a.cfg.RedirectURI)
	data.Set("scopes", strings.Join(a.cfg.Scopes, " "))

	var res struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := postForm(ctx, fmt.Sprintf("https://%s/api/v1/apps", instance), data, &res); err != nil {
		return nil, err
	}

	app = &models.MastodonApp{
		Instance:     instance,
		ClientID:     res.ClientID,
		ClientSecret: res.ClientSecret,
	}
	if err := a.apps.Save(ctx, app); err != nil {
		return nil, err
	}

	return app, nil
}

func (a *mastodonAdapter) AuthorizeURL(ctx context.Context, p AuthParams) (string, error) {
	app, err := a.ensureApp(ctx, p.Instance)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Add("client_id", app.ClientID)
	params.Add("redirect_uri", a.cfg.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", strings.Join(a.cfg.Scopes, " "))
	params.Add("state", p.State)

	return fmt.Sprintf("https://%s/oauth/authorize?%s", p.Instance, params.Encode()), nil
}

func (a *mastodonAdapter) Exchange(ctx context.Context, p ExchangeParams) (*Token, error) {
	app, err := a.ensureApp(ctx, p.Instance)
	if err != nil {
		return nil, err
	}

	data := url.Values{}
	data.Set("client_id", app.ClientID)
	data.Set("client_secret", app.ClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("code", p.Code)
	data.Set("redirect_uri", a.cfg.RedirectURI)
	data.Set("scope", strings.Join(a.cfg.Scopes, " "))

	var res struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := postForm(ctx, fmt.Sprintf("https://%s/oauth/token", p.Instance), data, &res); err != nil {
		return nil, err
	}

	// Mastodon access tokens never expire; the zero ExpiresAt encodes that.
	return &Token{AccessToken: res.AccessToken, Scopes: res.Scope}, nil
}

// Refresh is a no-op: mastodon tokens do not expire and there is no refresh
// grant. The stored token is returned unchanged.
func (a *mastodonAdapter) Refresh(ctx context.Context, s Session) (*Token, error) {
	return &Token{AccessToken: s.AccessToken}, nil
}

func (a *mastodonAdapter) Revoke(ctx context.Context, s Session) error {
	app, err := a.ensureApp(ctx, s.Instance)
	if err != nil {
		return err
	}

	data := url.Values{}
	data.Set("client_id", app.ClientID)
	data.Set("client_secret", app.ClientSecret)
	data.Set("token", s.AccessToken)

	return postForm(ctx, fmt.Sprintf("https://%s/oauth/revoke", s.Instance), data, nil)
}

func (a *mastodonAdapter) Profile(ctx context.Context, s Session) (*Profile, error) {
	var res struct {
		ID             string `json:"id"`
		Username       string `json:"username"`
		DisplayName    string `json:"display_name"`
		Avatar         string `json:"avatar"`
		FollowersCount int64  `json:"followers_count"`
		FollowingCount int64  `json:"following_count"`
		StatusesCount  int64  `json:"statuses_count"`
	}

	reqURL := fmt.Sprintf("https://%s/api/v1/accounts/verify_credentials", s.Instance)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	return &Profile{
		AccountID:      res.ID,
		Username:       res.Username,
		Name:           res.DisplayName,
		AvatarURL:      res.Avatar,
		FollowersCount: res.FollowersCount,
		FollowingCount: res.FollowingCount,
		PostsCount:     res.StatusesCount,
	}, nil
}

func (a *mastodonAdapter) Publish(ctx context.Context, s Session, content *Content) (string, error) {
	body := map[string]interface{}{"status": content.Text}

	var res struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, fmt.Sprintf("https://%s/api/v1/statuses", s.Instance), s.AccessToken, body, &res); err != nil {
		return "", err
	}

	return res.ID, nil
}

func (a *mastodonAdapter) AccountMetrics(ctx context.Context, s Session) (*AccountMetrics, error) {
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

func (a *mastodonAdapter) PostMetrics(ctx context.Context, s Session, contentID string) (*PostMetrics, error) {
	var res struct {
		FavouritesCount int64 `json:"favourites_count"`
		ReblogsCount    int64 `json:"reblogs_count"`
		RepliesCount    int64 `json:"replies_count"`
	}

	reqURL := fmt.Sprintf("https://%s/api/v1/statuses/%s", s.Instance, contentID)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	return &PostMetrics{
		Engagement: res.FavouritesCount + res.ReblogsCount + res.RepliesCount,
		Likes:      res.FavouritesCount,
		Comments:   res.RepliesCount,
		Shares:     res.ReblogsCount,
	}, nil
}
