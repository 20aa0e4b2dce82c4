package platforms

import (
	"context"
	"fmt"
	"net/url"
	"time"

	config "github.com/maheshrc27/socialflow/configs"
)

const (
	instagramAuthURL  = "https://www.instagram.com/oauth/authorize"
	instagramTokenURL = "https://api.instagram.com/oauth/access_token"
	instagramAPIBase  = "https://graph.instagram.com"
)

type instagramAdapter struct {
	cfg *PlatformConfig
}

func NewInstagramAdapter(creds config.PlatformCredentials) Adapter {
	return &instagramAdapter{
		cfg: &PlatformConfig{
			Platform:     PlatformInstagram,
			AuthType:     AuthTypeOAuth2,
			AuthURL:      instagramAuthURL,
			TokenURL:     instagramTokenURL,
			APIBase:      instagramAPIBase,
			Scopes:       []string{"instagram_business_basic", "instagram_business_content_publish", "instagram_business_manage_insights"},
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURI:  creds.RedirectURI,
			Constraints: Constraints{
				MaxTextChars:  2200,
				MaxImageBytes: 8 * 1024 * 1024,
				MaxVideoBytes: 100 * 1024 * 1024,
				MinAspect:     0.8,
				MaxAspect:     1.91,
				MaxMediaCount: 10,
			},
		},
	}
}

func (a *instagramAdapter) Config() *PlatformConfig { return a.cfg }

func (a *instagramAdapter) AuthorizeURL(ctx context.Context, p AuthParams) (string, error) {
	params := url.Values{}
	params.Add("client_id", a.cfg.ClientID)
	params.Add("redirect_uri", a.cfg.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", "instagram_business_basic,instagram_business_content_publish,instagram_business_manage_insights")
	params.Add("state", p.State)

	return fmt.Sprintf("%s?%s", a.cfg.AuthURL, params.Encode()), nil
}

// Exchange runs the two-step instagram dance: a short-lived token from the
// code, then an ig_exchange_token upgrade to a ~60 day token. The long-lived
// token is also the refresh credential.
func (a *instagramAdapter) Exchange(ctx context.Context, p ExchangeParams) (*Token, error) {
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

	reqURL := fmt.Sprintf("%s/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		a.cfg.APIBase, a.cfg.ClientSecret, shortLived.AccessToken)

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

// Refresh extends the long-lived token with the ig_refresh_token grant.
func (a *instagramAdapter) Refresh(ctx context.Context, s Session) (*Token, error) {
	reqURL := fmt.Sprintf("%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s", a.cfg.APIBase, s.AccessToken)

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

// Revoke has no instagram endpoint; the user removes the app from their
// settings. Local deletion is all we can do.
func (a *instagramAdapter) Revoke(ctx context.Context, s Session) error {
	return nil
}

func (a *instagramAdapter) Profile(ctx context.Context, s Session) (*Profile, error) {
	var res struct {
		UserID         string `json:"user_id"`
		Username       string `json:"username"`
		Name           string `json:"name"`
		ProfilePicture string `json:"profile_picture_url"`
		FollowersCount int64  `json:"followers_count"`
		FollowsCount   int64  `json:"follows_count"`
		MediaCount     int64  `json:"media_count"`
	}

	reqURL := fmt.Sprintf("%s/me?fields=user_id,username,name,profile_picture_url,followers_count,follows_count,media_count", a.cfg.APIBase)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	return &Profile{
		AccountID:      res.UserID,
		Username:       res.Username,
		Name:           res.Name,
		AvatarURL:      res.ProfilePicture,
		FollowersCount: res.FollowersCount,
		FollowingCount: res.FollowsCount,
		PostsCount:     res.MediaCount,
	}, nil
}

// Publish creates a media container then publishes it, the two-phase flow
// the content publishing API requires.
func (a *instagramAdapter) Publish(ctx context.Context, s Session, content *Content) (string, error) {
	if len(content.Media) == 0 {
		return "", &PublishError{
			Platform: a.cfg.Platform,
			Code:     400,
			Message:  "instagram posts require at least one media item",
		}
	}

	data := url.Values{}
	data.Set("caption", content.Text)
	data.Set("access_token", s.AccessToken)
	first := content.Media[0]
	if first.MIME == "video/mp4" || first.MIME == "video/quicktime" {
		data.Set("media_type", "REELS")
		data.Set("video_url", first.URL)
	} else {
		data.Set("image_url", first.URL)
	}

	var container struct {
		ID string `json:"id"`
	}
	if err := postForm(ctx, fmt.Sprintf("%s/me/media", a.cfg.APIBase), data, &container); err != nil {
		return "", err
	}

	publishData := url.Values{}
	publishData.Set("creation_id", container.ID)
	publishData.Set("access_token", s.AccessToken)

	var published struct {
		ID string `json:"id"`
	}
	if err := postForm(ctx, fmt.Sprintf("%s/me/media_publish", a.cfg.APIBase), publishData, &published); err != nil {
		return "", err
	}

	return published.ID, nil
}

func (a *instagramAdapter) AccountMetrics(ctx context.Context, s Session) (*AccountMetrics, error) {
	profile, err := a.Profile(ctx, s)
	if err != nil {
		return nil, err
	}

	metrics := &AccountMetrics{
		FollowersCount: profile.FollowersCount,
		FollowingCount: profile.FollowingCount,
		PostsCount:     profile.PostsCount,
	}

	var res struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	reqURL := fmt.Sprintf("%s/me/insights?metric=impressions,reach&period=day", a.cfg.APIBase)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	for _, d := range res.Data {
		if len(d.Values) == 0 {
			continue
		}
		latest := d.Values[len(d.Values)-1].Value
		switch d.Name {
		case "impressions":
			metrics.Impressions = latest
		case "reach":
			metrics.Reach = latest
		}
	}

	return metrics, nil
}

func (a *instagramAdapter) PostMetrics(ctx context.Context, s Session, contentID string) (*PostMetrics, error) {
	var res struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}

	reqURL := fmt.Sprintf("%s/%s/insights?metric=impressions,reach,likes,comments,shares", a.cfg.APIBase, contentID)
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
		case "impressions":
			metrics.Impressions = v
		case "reach":
			metrics.Reach = v
		case "likes":
			metrics.Likes = v
		case "comments":
			metrics.Comments = v
		case "shares":
			metrics.Shares = v
		}
	}
	metrics.Engagement = metrics.Likes + metrics.Comments + metrics.Shares

	return &metrics, nil
}
