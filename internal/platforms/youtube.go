package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	config "github.com/maheshrc27/socialflow/configs"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const googleRevokeURL = "https://oauth2.googleapis.com/revoke"

type youtubeAdapter struct {
	cfg *PlatformConfig
}

func NewYoutubeAdapter(creds config.PlatformCredentials) Adapter {
	return &youtubeAdapter{
		cfg: &PlatformConfig{
			Platform:     PlatformYoutube,
			AuthType:     AuthTypeOAuth2,
			AuthURL:      google.Endpoint.AuthURL,
			TokenURL:     google.Endpoint.TokenURL,
			RevokeURL:    googleRevokeURL,
			APIBase:      "https://www.googleapis.com",
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.profile", "https://www.googleapis.com/auth/youtube.upload", "https://www.googleapis.com/auth/youtube.readonly"},
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURI:  creds.RedirectURI,
			Constraints: Constraints{
				MaxTextChars:  5000,
				MaxVideoBytes: 128 * 1024 * 1024 * 1024,
				MaxMediaCount: 1,
			},
		},
	}
}

func (a *youtubeAdapter) Config() *PlatformConfig { return a.cfg }

func (a *youtubeAdapter) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		RedirectURL:  a.cfg.RedirectURI,
		Scopes:       a.cfg.Scopes,
		Endpoint:     google.Endpoint,
	}
}

func (a *youtubeAdapter) AuthorizeURL(ctx context.Context, p AuthParams) (string, error) {
	// access_type=offline is what makes google hand out a refresh token.
	return a.oauth2Config().AuthCodeURL(p.State, oauth2.AccessTypeOffline), nil
}

func (a *youtubeAdapter) Exchange(ctx context.Context, p ExchangeParams) (*Token, error) {
	token, err := a.oauth2Config().Exchange(ctx, p.Code)
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("google returned no refresh token; re-consent required")
	}

	return &Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}, nil
}

// Refresh reuses the stored refresh token; google does not rotate it.
func (a *youtubeAdapter) Refresh(ctx context.Context, s Session) (*Token, error) {
	src := a.oauth2Config().TokenSource(ctx, &oauth2.Token{RefreshToken: s.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.Expiry,
	}, nil
}

func (a *youtubeAdapter) Revoke(ctx context.Context, s Session) error {
	data := url.Values{}
	data.Set("token", s.AccessToken)
	return postForm(ctx, a.cfg.RevokeURL, data, nil)
}

func (a *youtubeAdapter) Profile(ctx context.Context, s Session) (*Profile, error) {
	svc, err := a.service(ctx, s)
	if err != nil {
		return nil, err
	}

	res, err := svc.Channels.List([]string{"snippet", "statistics"}).Mine(true).Do()
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, fmt.Errorf("no youtube channel for this account")
	}

	ch := res.Items[0]
	profile := &Profile{
		AccountID: ch.Id,
		Username:  ch.Snippet.CustomUrl,
		Name:      ch.Snippet.Title,
	}
	if ch.Snippet.Thumbnails != nil && ch.Snippet.Thumbnails.Default != nil {
		profile.AvatarURL = ch.Snippet.Thumbnails.Default.Url
	}
	if ch.Statistics != nil {
		profile.FollowersCount = int64(ch.Statistics.SubscriberCount)
		profile.PostsCount = int64(ch.Statistics.VideoCount)
	}

	return profile, nil
}

// Publish streams the video from its storage URL into videos.insert.
func (a *youtubeAdapter) Publish(ctx context.Context, s Session, content *Content) (string, error) {
	if len(content.Media) == 0 {
		return "", &PublishError{
			Platform: a.cfg.Platform,
			Code:     400,
			Message:  "youtube posts require a video",
		}
	}

	svc, err := a.service(ctx, s)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, content.Media[0].URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: "failed to fetch video from storage"}
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       content.Title,
			Description: content.Text,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: "public"},
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(resp.Body).Do()
	if err != nil {
		return "", err
	}

	return uploaded.Id, nil
}

func (a *youtubeAdapter) AccountMetrics(ctx context.Context, s Session) (*AccountMetrics, error) {
	profile, err := a.Profile(ctx, s)
	if err != nil {
		return nil, err
	}

	svc, err := a.service(ctx, s)
	if err != nil {
		return nil, err
	}

	res, err := svc.Channels.List([]string{"statistics"}).Mine(true).Do()
	if err != nil {
		return nil, err
	}

	metrics := &AccountMetrics{
		FollowersCount: profile.FollowersCount,
		PostsCount:     profile.PostsCount,
	}
	if len(res.Items) > 0 && res.Items[0].Statistics != nil {
		metrics.Impressions = int64(res.Items[0].Statistics.ViewCount)
	}

	return metrics, nil
}

func (a *youtubeAdapter) PostMetrics(ctx context.Context, s Session, contentID string) (*PostMetrics, error) {
	svc, err := a.service(ctx, s)
	if err != nil {
		return nil, err
	}

	res, err := svc.Videos.List([]string{"statistics"}).Id(contentID).Do()
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 || res.Items[0].Statistics == nil {
		return &PostMetrics{}, nil
	}

	st := res.Items[0].Statistics
	views := int64(st.ViewCount)
	likes := int64(st.LikeCount)
	comments := int64(st.CommentCount)

	return &PostMetrics{
		Impressions: views,
		Reach:       views,
		Engagement:  likes + comments,
		Likes:       likes,
		Comments:    comments,
	}, nil
}

func (a *youtubeAdapter) service(ctx context.Context, s Session) (*youtube.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.AccessToken})
	return youtube.NewService(ctx, option.WithTokenSource(src))
}
