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
	linkedinAuthURL   = "https://www.linkedin.com/oauth/v2/authorization"
	linkedinTokenURL  = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedinRevokeURL = "https://www.linkedin.com/oauth/v2/revoke"
	linkedinAPIBase   = "https://api.linkedin.com/v2"
)

type linkedinAdapter struct {
	cfg *PlatformConfig
}

func NewLinkedInAdapter(creds config.PlatformCredentials) Adapter {
	return &linkedinAdapter{
		cfg: &PlatformConfig{
			Platform:     PlatformLinkedIn,
			AuthType:     AuthTypeOAuth2,
			AuthURL:      linkedinAuthURL,
			TokenURL:     linkedinTokenURL,
			RevokeURL:    linkedinRevokeURL,
			APIBase:      linkedinAPIBase,
			Scopes:       []string{"openid", "profile", "w_member_social"},
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURI:  creds.RedirectURI,
			Constraints: Constraints{
				MaxTextChars:  3000,
				MaxImageBytes: 8 * 1024 * 1024,
				MaxVideoBytes: 200 * 1024 * 1024,
				MaxMediaCount: 9,
			},
		},
	}
}

func (a *linkedinAdapter) Config() *PlatformConfig { return a.cfg }

func (a *linkedinAdapter) AuthorizeURL(ctx context.Context, p AuthParams) (string, error) {
	params := url.Values{}
	params.Add("client_id", a.cfg.ClientID)
	params.Add("redirect_uri", a.cfg.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", strings.Join(a.cfg.Scopes, " "))
	params.Add("state", p.State)

	return fmt.Sprintf("%s?%s", a.cfg.AuthURL, params.Encode()), nil
}

func (a *linkedinAdapter) Exchange(ctx context.Context, p ExchangeParams) (*Token, error) {
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

// Refresh reuses the original refresh token; linkedin does not rotate it on
// refresh grants.
func (a *linkedinAdapter) Refresh(ctx context.Context, s Session) (*Token, error) {
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

func (a *linkedinAdapter) Revoke(ctx context.Context, s Session) error {
	data := url.Values{}
	data.Set("client_id", a.cfg.ClientID)
	data.Set("client_secret", a.cfg.ClientSecret)
	data.Set("token", s.AccessToken)

	return postForm(ctx, a.cfg.RevokeURL, data, nil)
}

func (a *linkedinAdapter) Profile(ctx context.Context, s Session) (*Profile, error) {
	var res struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}

	if err := getJSON(ctx, a.cfg.APIBase+"/userinfo", s.AccessToken, &res); err != nil {
		return nil, err
	}

	return &Profile{
		AccountID: res.Sub,
		Username:  res.Name,
		Name:      res.Name,
		AvatarURL: res.Picture,
	}, nil
}

func (a *linkedinAdapter) Publish(ctx context.Context, s Session, content *Content) (string, error) {
	body := map[string]interface{}{
		"author":         "urn:li:person:" + s.AccountID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary": map[string]string{
					"text": content.Text,
				},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var res struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, a.cfg.APIBase+"/ugcPosts", s.AccessToken, body, &res); err != nil {
		return "", err
	}

	return res.ID, nil
}

func (a *linkedinAdapter) AccountMetrics(ctx context.Context, s Session) (*AccountMetrics, error) {
	// The member API exposes no follower or impression analytics without a
	// partner program grant; profile-level zeros keep the daily snapshot
	// shape consistent.
	return &AccountMetrics{}, nil
}

func (a *linkedinAdapter) PostMetrics(ctx context.Context, s Session, contentID string) (*PostMetrics, error) {
	var res struct {
		LikesSummary struct {
			TotalLikes int64 `json:"totalLikes"`
		} `json:"likesSummary"`
		CommentsSummary struct {
			TotalComments int64 `json:"totalFirstLevelComments"`
		} `json:"commentsSummary"`
	}

	reqURL := fmt.Sprintf("%s/socialActions/%s", a.cfg.APIBase, url.PathEscape(contentID))
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	likes := res.LikesSummary.TotalLikes
	comments := res.CommentsSummary.TotalComments

	return &PostMetrics{
		Engagement: likes + comments,
		Likes:      likes,
		Comments:   comments,
	}, nil
}
