package platforms

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

const (
	tiktokAuthURL   = "https://www.tiktok.com/v2/auth/authorize"
	tiktokTokenURL  = "https://open.tiktokapis.com/v2/oauth/token/"
	tiktokRevokeURL = "https://open.tiktokapis.com/v2/oauth/revoke/"
	tiktokAPIBase   = "https://open.tiktokapis.com/v2"
)

type tiktokAdapter struct {
	cfg *PlatformConfig
}

func NewTiktokAdapter(creds config.PlatformCredentials) Adapter {
	return &tiktokAdapter{
		cfg: &PlatformConfig{
			Platform:     PlatformTiktok,
			AuthType:     AuthTypeOAuth2,
			AuthURL:      tiktokAuthURL,
			TokenURL:     tiktokTokenURL,
			RevokeURL:    tiktokRevokeURL,
			APIBase:      tiktokAPIBase,
			Scopes:       []string{"user.info.basic", "user.info.profile", "user.info.stats", "video.publish", "video.upload", "video.list"},
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURI:  creds.RedirectURI,
			Constraints: Constraints{
				MaxTextChars:  2200,
				MaxImageBytes: 20 * 1024 * 1024,
				MaxVideoBytes: 287 * 1024 * 1024,
				MaxMediaCount: 10,
			},
		},
	}
}

func (a *tiktokAdapter) Config() *PlatformConfig { return a.cfg }

func (a *tiktokAdapter) AuthorizeURL(ctx context.Context, p AuthParams) (string, error) {
	params := url.Values{}
	params.Add("client_key", a.cfg.ClientID)
	params.Add("scope", strings.Join(a.cfg.Scopes, ","))
	params.Add("response_type", "code")
	params.Add("redirect_uri", a.cfg.RedirectURI)
	params.Add("state", p.State)

	return fmt.Sprintf("%s?%s", a.cfg.AuthURL, params.Encode()), nil
}

func (a *tiktokAdapter) Exchange(ctx context.Context, p ExchangeParams) (*Token, error) {
	data := url.Values{}
	data.Add("client_key", a.cfg.ClientID)
	data.Add("client_secret", a.cfg.ClientSecret)
	data.Add("code", p.Code)
	data.Add("grant_type", "authorization_code")
	data.Add("redirect_uri", a.cfg.RedirectURI)

	var res transfer.TiktokTokenResponse
	if err := postForm(ctx, a.cfg.TokenURL, data, &res); err != nil {
		return nil, fmt.Errorf("tiktok code exchange failed: %w", err)
	}

	return &Token{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(res.ExpiresIn) * time.Second),
		Scopes:       res.Scope,
	}, nil
}

// Refresh rotates the refresh token; tiktok hands back a new one with its own
// refresh_expires_in window.
func (a *tiktokAdapter) Refresh(ctx context.Context, s Session) (*Token, error) {
	data := url.Values{}
	data.Set("client_key", a.cfg.ClientID)
	data.Set("client_secret", a.cfg.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", s.RefreshToken)

	var res transfer.TiktokTokenResponse
	if err := postForm(ctx, a.cfg.TokenURL, data, &res); err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(res.ExpiresIn) * time.Second),
	}, nil
}

func (a *tiktokAdapter) Revoke(ctx context.Context, s Session) error {
	data := url.Values{}
	data.Set("client_key", a.cfg.ClientID)
	data.Set("client_secret", a.cfg.ClientSecret)
	data.Set("token", s.AccessToken)

	return postForm(ctx, a.cfg.RevokeURL, data, nil)
}

func (a *tiktokAdapter) Profile(ctx context.Context, s Session) (*Profile, error) {
	reqURL := a.cfg.APIBase + "/user/info/?fields=open_id,avatar_url,display_name,username,follower_count,following_count,video_count"

	var res transfer.TiktokUserInfoResponse
	if err := getJSON(ctx, reqURL, s.AccessToken, &res); err != nil {
		return nil, err
	}

	u := res.Data.User
	return &Profile{
		AccountID:      u.OpenID,
		Username:       u.Username,
		Name:           u.DisplayName,
		AvatarURL:      u.AvatarURL,
		FollowersCount: u.FollowerCount,
		FollowingCount: u.FollowingCount,
		PostsCount:     u.VideoCount,
	}, nil
}

// Publish initializes a direct post pulled from the media URL. Videos go
// through video/init, photo sets through content/init.
func (a *tiktokAdapter) Publish(ctx context.Context, s Session, content *Content) (string, error) {
	if len(content.Media) == 0 {
		return "", &PublishError{
			Platform: a.cfg.Platform,
			Code:     400,
			Message:  "tiktok posts require video or photo media",
		}
	}

	first := content.Media[0]
	if strings.HasPrefix(first.MIME, "video/") {
		return a.publishVideo(ctx, s, content, first.URL)
	}
	return a.publishPhotos(ctx, s, content)
}

func (a *tiktokAdapter) publishVideo(ctx context.Context, s Session, content *Content, videoURL string) (string, error) {
	req := transfer.TiktokVideoUploadRequest{
		PostInfo: transfer.TiktokVideoPostInfo{
			Title:                 content.Text,
			PrivacyLevel:          "PUBLIC_TO_EVERYONE",
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.TiktokVideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: videoURL,
		},
	}

	var res transfer.TiktokUploadResponse
	if err := postJSON(ctx, a.cfg.APIBase+"/post/publish/video/init/", s.AccessToken, req, &res); err != nil {
		return "", err
	}
	if res.Error.Code != "" && res.Error.Code != "ok" {
		return "", &PublishError{Platform: a.cfg.Platform, Code: 400, Message: res.Error.Message}
	}

	return res.Data.PublishID, nil
}

func (a *tiktokAdapter) publishPhotos(ctx context.Context, s Session, content *Content) (string, error) {
	photos := make([]string, 0, len(content.Media))
	for _, m := range content.Media {
		photos = append(photos, m.URL)
	}

	req := transfer.TiktokPhotoUploadRequest{
		PostInfo: transfer.TiktokPhotoPostInfo{
			Title:        content.Title,
			Description:  content.Text,
			PrivacyLevel: "PUBLIC_TO_EVERYONE",
			AutoAddMusic: true,
		},
		SourceInfo: transfer.TiktokPhotoSourceInfo{
			Source:      "PULL_FROM_URL",
			PhotoImages: photos,
		},
		PostMode:  "DIRECT_POST",
		MediaType: "PHOTO",
	}

	var res transfer.TiktokUploadResponse
	if err := postJSON(ctx, a.cfg.APIBase+"/post/publish/content/init/", s.AccessToken, req, &res); err != nil {
		return "", err
	}
	if res.Error.Code != "" && res.Error.Code != "ok" {
		return "", &PublishError{Platform: a.cfg.Platform, Code: 400, Message: res.Error.Message}
	}

	return res.Data.PublishID, nil
}

func (a *tiktokAdapter) AccountMetrics(ctx context.Context, s Session) (*AccountMetrics, error) {
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

func (a *tiktokAdapter) PostMetrics(ctx context.Context, s Session, contentID string) (*PostMetrics, error) {
	body := map[string]interface{}{
		"filters": map[string]interface{}{
			"video_ids": []string{contentID},
		},
	}

	var res transfer.TiktokVideoQueryResponse
	reqURL := a.cfg.APIBase + "/video/query/?fields=id,like_count,comment_count,share_count,view_count"
	if err := postJSON(ctx, reqURL, s.AccessToken, body, &res); err != nil {
		return nil, err
	}
	if len(res.Data.Videos) == 0 {
		return &PostMetrics{}, nil
	}

	v := res.Data.Videos[0]
	return &PostMetrics{
		Impressions: v.ViewCount,
		Reach:       v.ViewCount,
		Engagement:  v.LikeCount + v.CommentCount + v.ShareCount,
		Likes:       v.LikeCount,
		Comments:    v.CommentCount,
		Shares:      v.ShareCount,
	}, nil
}
