package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/socialflow/configs"
)

const (
	twitterAuthURL   = "https://twitter.com/i/oauth2/authorize"
	twitterTokenURL  = "https://api.twitter.com/2/oauth2/token"
	twitterRevokeURL = "https://api.twitter.com/2/oauth2/revoke"
	twitterAPIBase   = "https://api.twitter.com/2"
)

type twitterAdapter struct {
	cfg *PlatformConfig
}

func NewTwitterAdapter(creds config.PlatformCredentials) Adapter {
	return &twitterAdapter{
		cfg: &PlatformConfig{
			Platform:     PlatformTwitter,
			AuthType:     AuthTypeOAuth2PKCE,
			AuthURL:      twitterAuthURL,
			TokenURL:     twitterTokenURL,
			RevokeURL:    twitterRevokeURL,
			APIBase:      twitterAPIBase,
			Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURI:  creds.RedirectURI,
			Constraints: Constraints{
				MaxTextChars:  280,
				MaxImageBytes: 5 * 1024 * 1024,
				MaxVideoBytes: 512 * 1024 * 1024,
				MaxMediaCount: 4,
			},
		},
	}
}

func (a *twitterAdapter) Config() *PlatformConfig { return a.cfg }

func (a *twitterAdapter) AuthorizeURL(ctx context.Context, p AuthParams) (string, error) {
	if p.Challenge == "" {
		return "", errors.New("twitter authorization requires a PKCE challenge")
	}

	params := url.Values{}
	params.Add("client_id", a.cfg.ClientID)
	params.Add("redirect_uri", a.cfg.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", strings.Join(a.cfg.Scopes, " "))
	params.Add("state", p.State)
	params.Add("code_challenge", p.Challenge)
	params.Add("code_challenge_method", "S256")

	return fmt.Sprintf("%s?%s", a.cfg.AuthURL, params.Encode()), nil
}

func (a *twitterAdapter) Exchange(ctx context.Context, p ExchangeParams) (*Token, error) {
	data := url.Values{}
	data.Set("client_id", a.cfg.ClientID)
	data.Set("grant_type", "authorization_code")
	data.Set("code", p.Code)
	data.Set("redirect_uri", a.cfg.RedirectURI)
	data.Set("code_verifier", p.Verifier)

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

// Refresh rotates both tokens; twitter issues a new refresh token on every
// call and invalidates the old one.
func (a *twitterAdapter) Refresh(ctx context.Context, s Session) (*Token, error) {
	data := url.Values{}
	data.Set("client_id", a.cfg.ClientID)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", s.RefreshToken)

	var res struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := postForm(ctx, a.cfg.TokenURL, data, &res); err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(res.ExpiresIn) * time.Second),
	}, nil
}

func (a *twitterAdapter) Revoke(ctx context.Context, s Session) error {
	data := url.Values{}
	data.Set("client_id", a.cfg.ClientID)
	data.Set("token", s.AccessToken)
	data.Set("token_type_hint", "access_token")

	return postForm(ctx, a.cfg.RevokeURL, data, nil)
}

func (a *twitterAdapter) Profile(ctx context.Context, s Session) (*Profile, error) {
	var res struct {
		Data struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			Username      string `json:"username"`
			ProfileImage  string `json:"profile_image_url"`
			PublicMetrics struct {
				FollowersCount int64 `json:"followers_count"`
				FollowingCount int64 `json:"following_count"`
				TweetCount     int64 `json:"tweet_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}

	reqURL := a.cfg.APIBase + "/users/me?user.fields=profile_image_url,public_metrics"
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	return &Profile{
		AccountID:      res.Data.ID,
		Username:       res.Data.Username,
		Name:           res.Data.Name,
		AvatarURL:      res.Data.ProfileImage,
		FollowersCount: res.Data.PublicMetrics.FollowersCount,
		FollowingCount: res.Data.PublicMetrics.FollowingCount,
		PostsCount:     res.Data.PublicMetrics.TweetCount,
	}, nil
}

func (a *twitterAdapter) Publish(ctx context.Context, s Session, content *Content) (string, error) {
	body := map[string]interface{}{"text": content.Text}

	var res struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := postJSON(ctx, a.cfg.APIBase+"/tweets", s.AccessToken, body, &res); err != nil {
		return "", err
	}

	return res.Data.ID, nil
}

func (a *twitterAdapter) AccountMetrics(ctx context.Context, s Session) (*AccountMetrics, error) {
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

func (a *twitterAdapter) PostMetrics(ctx context.Context, s Session, contentID string) (*PostMetrics, error) {
	var res struct {
		Data struct {
			PublicMetrics struct {
				RetweetCount    int64 `json:"retweet_count"`
				ReplyCount      int64 `json:"reply_count"`
				LikeCount       int64 `json:"like_count"`
				ImpressionCount int64 `json:"impression_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}

	reqURL := fmt.Sprintf("%s/tweets/%s?tweet.fields=public_metrics", a.cfg.APIBase, contentID)
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	m := res.Data.PublicMetrics
	return &PostMetrics{
		Impressions: m.ImpressionCount,
		Reach:       m.ImpressionCount,
		Engagement:  m.LikeCount + m.ReplyCount + m.RetweetCount,
		Likes:       m.LikeCount,
		Comments:    m.ReplyCount,
		Shares:      m.RetweetCount,
	}, nil
}
