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
	facebookAuthURL  = "https://www.facebook.com/v19.0/dialog/oauth"
	facebookTokenURL = "https://graph.facebook.com/v19.0/oauth/access_token"
	facebookAPIBase  = "https://graph.facebook.com/v19.0"
)

type facebookAdapter struct {
	cfg *PlatformConfig
}

func NewFacebookAdapter(creds config.PlatformCredentials) Adapter {
	return &facebookAdapter{
		cfg: &PlatformConfig{
			Platform:     PlatformFacebook,
			AuthType:     AuthTypeOAuth2,
			AuthURL:      facebookAuthURL,
			TokenURL:     facebookTokenURL,
			APIBase:      facebookAPIBase,
			Scopes:       []string{"pages_manage_posts", "pages_read_engagement", "read_insights"},
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURI:  creds.RedirectURI,
			Constraints: Constraints{
				MaxTextChars:  63206,
				MaxImageBytes: 4 * 1024 * 1024,
				MaxVideoBytes: 1024 * 1024 * 1024,
				MaxMediaCount: 10,
			},
		},
	}
}

func (a *facebookAdapter) Config() *PlatformConfig { return a.cfg }

func (a *facebookAdapter) AuthorizeURL(ctx context.Context, p AuthParams) (string, error) {
	params := url.Values{}
	params.Add("client_id", a.cfg.ClientID)
	params.Add("redirect_uri", a.cfg.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", strings.Join(a.cfg.Scopes, ","))
	params.Add("state", p.State)

	return fmt.Sprintf("%s?%s", a.cfg.AuthURL, params.Encode()), nil
}

func (a *facebookAdapter) Exchange(ctx context.Context, p ExchangeParams) (*Token, error) {
	params := url.Values{}
	params.Add("client_id", a.cfg.ClientID)
	params.Add("client_secret", a.cfg.ClientSecret)
	params.Add("redirect_uri", a.cfg.RedirectURI)
	params.Add("code", p.Code)

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := getJSON(ctx, fmt.Sprintf("%s?%s", a.cfg.TokenURL, params.Encode()), "", &res); err != nil {
		return nil, err
	}

	// Trade the short-lived token for a ~60 day one straight away. The
	// long-lived token doubles as the refresh credential.
	return a.exchangeLongLived(ctx, res.AccessToken)
}

func (a *facebookAdapter) exchangeLongLived(ctx context.Context, shortLived string) (*Token, error) {
	params := url.Values{}
	params.Add("grant_type", "fb_exchange_token")
	params.Add("client_id", a.cfg.ClientID)
	params.Add("client_secret", a.cfg.ClientSecret)
	params.Add("fb_exchange_token", shortLived)

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := getJSON(ctx, fmt.Sprintf("%s?%s", a.cfg.TokenURL, params.Encode()), "", &res); err != nil {
		return nil, err
	}

	expiresIn := res.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 60 * 24 * 3600
	}

	return &Token{
		AccessToken:  res.AccessToken,
		RefreshToken: res.AccessToken,
		ExpiresAt:    time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// Refresh re-runs the fb_exchange_token grant against the current long-lived
// token; there is no separate refresh token.
func (a *facebookAdapter) Refresh(ctx context.Context, s Session) (*Token, error) {
	return a.exchangeLongLived(ctx, s.AccessToken)
}

// Revoke deletes the app's permissions for the user.
func (a *facebookAdapter) Revoke(ctx context.Context, s Session) error {
	req := fmt.Sprintf("%s/me/permissions?method=delete&access_token=%s", a.cfg.APIBase, url.QueryEscape(s.AccessToken))
	return getJSON(ctx, req, "", nil)
}

func (a *facebookAdapter) Profile(ctx context.Context, s Session) (*Profile, error) {
	var res struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
		FollowersCount int64 `json:"followers_count"`
	}

	reqURL := fmt.Sprintf("%s/me?fields=id,name,picture,followers_count", a.cfg.APIBase)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	return &Profile{
		AccountID:      res.ID,
		Username:       res.Name,
		Name:           res.Name,
		AvatarURL:      res.Picture.Data.URL,
		FollowersCount: res.FollowersCount,
	}, nil
}

func (a *facebookAdapter) Publish(ctx context.Context, s Session, content *Content) (string, error) {
	var res struct {
		ID string `json:"id"`
	}

	if len(content.Media) > 0 && strings.HasPrefix(content.Media[0].MIME, "image/") {
		data := url.Values{}
		data.Set("url", content.Media[0].URL)
		data.Set("caption", content.Text)
		data.Set("access_token", s.AccessToken)

		if err := postForm(ctx, fmt.Sprintf("%s/%s/photos", a.cfg.APIBase, s.AccountID), data, &res); err != nil {
			return "", err
		}
		return res.ID, nil
	}

	data := url.Values{}
	data.Set("message", content.Text)
	data.Set("access_token", s.AccessToken)

	if err := postForm(ctx, fmt.Sprintf("%s/%s/feed", a.cfg.APIBase, s.AccountID), data, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

func (a *facebookAdapter) AccountMetrics(ctx context.Context, s Session) (*AccountMetrics, error) {
	profile, err := a.Profile(ctx, s)
	if err != nil {
		return nil, err
	}

	metrics := &AccountMetrics{FollowersCount: profile.FollowersCount}

	var res struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	reqURL := fmt.Sprintf("%s/%s/insights?metric=page_impressions,page_impressions_unique&period=day", a.cfg.APIBase, s.AccountID)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	for _, d := range res.Data {
		if len(d.Values) == 0 {
			continue
		}
		latest := d.Values[len(d.Values)-1].Value
		switch d.Name {
		case "page_impressions":
			metrics.Impressions = latest
		case "page_impressions_unique":
			metrics.Reach = latest
		}
	}

	return metrics, nil
}

func (a *facebookAdapter) PostMetrics(ctx context.Context, s Session, contentID string) (*PostMetrics, error) {
	var res struct {
		Likes struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"likes"`
		Comments struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"comments"`
		Shares struct {
			Count int64 `json:"count"`
		} `json:"shares"`
	}

	reqURL := fmt.Sprintf("%s/%s?fields=likes.summary(true),comments.summary(true),shares", a.cfg.APIBase, contentID)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	likes := res.Likes.Summary.TotalCount
	comments := res.Comments.Summary.TotalCount
	shares := res.Shares.Count

	return &PostMetrics{
		Engagement: likes + comments + shares,
		Likes:      likes,
		Comments:   comments,
		Shares:     shares,
	}, nil
}
