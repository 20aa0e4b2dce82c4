package platforms

import (
	"context"
	"fmt"
	"net/url"
	"time"

	config "github.com/maheshrc27/socialflow/configs"
)

const (
	threadsAuthURL  = "https://threads.net/oauth/authorize"
	threadsTokenURL = "https://graph.threads.net/oauth/access_token"
	threadsAPIBase  = "https://graph.threads.net/v1.0"
)

type threadsAdapter struct {
	cfg *PlatformConfig
}

func NewThreadsAdapter(creds config.PlatformCredentials) Adapter {
	return &threadsAdapter{
		cfg: &PlatformConfig{
			Platform:     PlatformThreads,
			AuthType:     AuthTypeOAuth2,
			AuthURL:      threadsAuthURL,
			TokenURL:     threadsTokenURL,
			APIBase:      threadsAPIBase,
			Scopes:       []string{"threads_basic", "threads_content_publish", "threads_manage_insights"},
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURI:  creds.RedirectURI,
			Constraints: Constraints{
				MaxTextChars:  500,
				MaxImageBytes: 8 * 1024 * 1024,
				MaxVideoBytes: 1024 * 1024 * 1024,
				MaxMediaCount: 10,
			},
		},
	}
}

func (a *threadsAdapter) Config() *PlatformConfig { return a.cfg }

func (a *threadsAdapter) AuthorizeURL(ctx context.Context, p AuthParams) (string, error) {
	params := url.Values{}
	params.Add("client_id", a.cfg.ClientID)
	params.Add("redirect_uri", a.cfg.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", "threads_basic,threads_content_publish,threads_manage_insights")
	params.Add("state", p.State)

	return fmt.Sprintf("%s?%s", a.cfg.AuthURL, params.Encode()), nil
}

func (a *threadsAdapter) Exchange(ctx context.Context, p ExchangeParams) (*Token, error) {
	data := url.Values{}
	data.Set("client_id", a.cfg.ClientID)
	data.Set("client_secret", a.cfg.ClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", a.cfg.RedirectURI)
	data.Set("code", p.Code)

	var shortLived struct {
		AccessToken string `json:"access_token"`
	}
	if err := postForm(ctx, a.cfg.TokenURL, data, &shortLived); err != nil {
		return nil, fmt.Errorf("failed to get short-lived token: %w", err)
	}

	reqURL := fmt.Sprintf("https://graph.threads.net/access_token?grant_type=th_exchange_token&client_secret=%s&access_token=%s",
		a.cfg.ClientSecret, shortLived.AccessToken)

	var longLived struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := getJSON(ctx, reqURL, "", &longLived); err != nil {
		return nil, fmt.Errorf("failed to get long-lived token: %w", err)
	}

	return &Token{
		AccessToken:  longLived.AccessToken,
		RefreshToken: longLived.AccessToken,
		ExpiresAt:    time.Now().Add(time.Duration(longLived.ExpiresIn) * time.Second),
	}, nil
}

// Refresh extends the long-lived token via the th_refresh_token grant; a new
// token replaces the old one each time.
func (a *threadsAdapter) Refresh(ctx context.Context, s Session) (*Token, error) {
	reqURL := fmt.Sprintf("https://graph.threads.net/refresh_access_token?grant_type=th_refresh_token&access_token=%s", s.AccessToken)

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := getJSON(ctx, reqURL, "", &res); err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  res.AccessToken,
		RefreshToken: res.AccessToken,
		ExpiresAt:    time.Now().Add(time.Duration(res.ExpiresIn) * time.Second),
	}, nil
}

func (a *threadsAdapter) Revoke(ctx context.Context, s Session) error {
	return nil
}

func (a *threadsAdapter) Profile(ctx context.Context, s Session) (*Profile, error) {
	var res struct {
		ID             string `json:"id"`
		Username       string `json:"username"`
		Name           string `json:"name"`
		ProfilePicture string `json:"threads_profile_picture_url"`
	}

	reqURL := fmt.Sprintf("%s/me?fields=id,username,name,threads_profile_picture_url", a.cfg.APIBase)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	return &Profile{
		AccountID: res.ID,
		Username:  res.Username,
		Name:      res.Name,
		AvatarURL: res.ProfilePicture,
	}, nil
}

// Publish creates a thread container then publishes it, mirroring the
// instagram two-phase flow.
func (a *threadsAdapter) Publish(ctx context.Context, s Session, content *Content) (string, error) {
	data := url.Values{}
	data.Set("text", content.Text)
	data.Set("access_token", s.AccessToken)

	if len(content.Media) > 0 {
		first := content.Media[0]
		if first.MIME == "video/mp4" || first.MIME == "video/quicktime" {
			data.Set("media_type", "VIDEO")
			data.Set("video_url", first.URL)
		} else {
			data.Set("media_type", "IMAGE")
			data.Set("image_url", first.URL)
		}
	} else {
		data.Set("media_type", "TEXT")
	}

	var container struct {
		ID string `json:"id"`
	}
	if err := postForm(ctx, fmt.Sprintf("%s/%s/threads", a.cfg.APIBase, s.AccountID), data, &container); err != nil {
		return "", err
	}

	publishData := url.Values{}
	publishData.Set("creation_id", container.ID)
	publishData.Set("access_token", s.AccessToken)

	var published struct {
		ID string `json:"id"`
	}
	if err := postForm(ctx, fmt.Sprintf("%s/%s/threads_publish", a.cfg.APIBase, s.AccountID), publishData, &published); err != nil {
		return "", err
	}

	return published.ID, nil
}

func (a *threadsAdapter) AccountMetrics(ctx context.Context, s Session) (*AccountMetrics, error) {
	var res struct {
		Data []struct {
			Name        string `json:"name"`
			TotalValue  struct {
				Value int64 `json:"value"`
			} `json:"total_value"`
		} `json:"data"`
	}

	reqURL := fmt.Sprintf("%s/%s/threads_insights?metric=views,likes,replies,reposts,followers_count", a.cfg.APIBase, s.AccountID)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	var metrics AccountMetrics
	for _, d := range res.Data {
		switch d.Name {
		case "views":
			metrics.Impressions = d.TotalValue.Value
		case "likes":
			metrics.Likes = d.TotalValue.Value
		case "replies":
			metrics.Comments = d.TotalValue.Value
		case "reposts":
			metrics.Shares = d.TotalValue.Value
		case "followers_count":
			metrics.FollowersCount = d.TotalValue.Value
		}
	}
	metrics.Engagement = metrics.Likes + metrics.Comments + metrics.Shares

	return &metrics, nil
}

func (a *threadsAdapter) PostMetrics(ctx context.Context, s Session, contentID string) (*PostMetrics, error) {
	var res struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}

	reqURL := fmt.Sprintf("%s/%s/insights?metric=views,likes,replies,reposts", a.cfg.APIBase, contentID)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	var metrics PostMetrics
	for _, d := range res.Data {
		if len(d.Values) == 0 {
			continue
		}
		v := d.Values[len(d.Values)-1].Value
		switch d.Name {
		case "views":
			metrics.Impressions = v
		case "likes":
			metrics.Likes = v
		case "replies":
			metrics.Comments = v
		case "reposts":
			metrics.Shares = v
		}
	}
	metrics.Engagement = metrics.Likes + metrics.Comments + metrics.Shares

	return &metrics, nil
}
