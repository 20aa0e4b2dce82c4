package platforms

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/socialflow/configs"
)

const (
	pinterestAuthURL  = "https://www.pinterest.com/oauth/"
	pinterestTokenURL = "https://api.pinterest.com/v5/oauth/token"
	pinterestAPIBase  = "https://api.pinterest.com/v5"
)

type pinterestAdapter struct {
	cfg *PlatformConfig
}

func NewPinterestAdapter(creds config.PlatformCredentials) Adapter {
	return &pinterestAdapter{
		cfg: &PlatformConfig{
			Platform:     PlatformPinterest,
			AuthType:     AuthTypeOAuth2,
			AuthURL:      pinterestAuthURL,
			TokenURL:     pinterestTokenURL,
			APIBase:      pinterestAPIBase,
			Scopes:       []string{"boards:read", "pins:read", "pins:write", "user_accounts:read"},
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURI:  creds.RedirectURI,
			Constraints: Constraints{
				MaxTextChars:  500,
				MaxImageBytes: 20 * 1024 * 1024,
				MaxVideoBytes: 2 * 1024 * 1024 * 1024,
				MaxMediaCount: 1,
			},
		},
	}
}

func (a *pinterestAdapter) Config() *PlatformConfig { return a.cfg }

func (a *pinterestAdapter) AuthorizeURL(ctx context.Context, p AuthParams) (string, error) {
	params := url.Values{}
	params.Add("client_id", a.cfg.ClientID)
	params.Add("redirect_uri", a.cfg.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", strings.Join(a.cfg.Scopes, ","))
	params.Add("state", p.State)

	return fmt.Sprintf("%s?%s", a.cfg.AuthURL, params.Encode()), nil
}

func (a *pinterestAdapter) Exchange(ctx context.Context, p ExchangeParams) (*Token, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", p.Code)
	data.Set("redirect_uri", a.cfg.RedirectURI)
	data.Set("client_id", a.cfg.ClientID)
	data.Set("client_secret", a.cfg.ClientSecret)

	var res struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := postForm(ctx, a.cfg.TokenURL, data, &res); err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(res.ExpiresIn) * time.Second),
		Scopes:       res.Scope,
	}, nil
}

// Refresh keeps the original refresh token; pinterest refresh tokens live
// for a year and are not rotated per call.
func (a *pinterestAdapter) Refresh(ctx context.Context, s Session) (*Token, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", s.RefreshToken)
	data.Set("client_id", a.cfg.ClientID)
	data.Set("client_secret", a.cfg.ClientSecret)

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := postForm(ctx, a.cfg.TokenURL, data, &res); err != nil {
		return nil, err
	}

	return &Token{
		AccessToken: res.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(res.ExpiresIn) * time.Second),
	}, nil
}

func (a *pinterestAdapter) Revoke(ctx context.Context, s Session) error {
	return nil
}

func (a *pinterestAdapter) Profile(ctx context.Context, s Session) (*Profile, error) {
	var res struct {
		Username       string `json:"username"`
		ID             string `json:"id"`
		ProfileImage   string `json:"profile_image"`
		FollowerCount  int64  `json:"follower_count"`
		FollowingCount int64  `json:"following_count"`
		PinCount       int64  `json:"pin_count"`
	}

	if err := getJSON(ctx, a.cfg.APIBase+"/user_account", s.AccessToken, &res); err != nil {
		return nil, err
	}

	return &Profile{
		AccountID:      res.ID,
		Username:       res.Username,
		Name:           res.Username,
		AvatarURL:      res.ProfileImage,
		FollowersCount: res.FollowerCount,
		FollowingCount: res.FollowingCount,
		PostsCount:     res.PinCount,
	}, nil
}

// Publish creates a pin on the account's first board. Pins always need an
// image, so a text-only payload is rejected as permanent.
func (a *pinterestAdapter) Publish(ctx context.Context, s Session, content *Content) (string, error) {
	if len(content.Media) == 0 {
		return "", &PublishError{
			Platform: a.cfg.Platform,
			Code:     400,
			Message:  "pinterest pins require an image",
		}
	}

	var boards struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := getJSON(ctx, a.cfg.APIBase+"/boards?page_size=1", s.AccessToken, &boards); err != nil {
		return "", err
	}
	if len(boards.Items) == 0 {
		return "", &PublishError{
			Platform: a.cfg.Platform,
			Code:     400,
			Message:  "account has no boards to pin to",
		}
	}

	body := map[string]interface{}{
		"board_id":    boards.Items[0].ID,
		"title":       content.Title,
		"description": content.Text,
		"media_source": map[string]string{
			"source_type": "image_url",
			"url":         content.Media[0].URL,
		},
	}

	var res struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, a.cfg.APIBase+"/pins", s.AccessToken, body, &res); err != nil {
		return "", err
	}

	return res.ID, nil
}

func (a *pinterestAdapter) AccountMetrics(ctx context.Context, s Session) (*AccountMetrics, error) {
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

func (a *pinterestAdapter) PostMetrics(ctx context.Context, s Session, contentID string) (*PostMetrics, error) {
	var res struct {
		All struct {
			LifetimeMetrics struct {
				Impression int64 `json:"IMPRESSION"`
				Save       int64 `json:"SAVE"`
				PinClick   int64 `json:"PIN_CLICK"`
			} `json:"lifetime_metrics"`
		} `json:"all"`
	}

	reqURL := fmt.Sprintf("%s/pins/%s/analytics?metric_types=IMPRESSION,SAVE,PIN_CLICK", a.cfg.APIBase, contentID)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	m := res.All.LifetimeMetrics
	return &PostMetrics{
		Impressions: m.Impression,
		Reach:       m.Impression,
		Engagement:  m.Save + m.PinClick,
		Shares:      m.Save,
	}, nil
}
