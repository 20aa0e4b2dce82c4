package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platforms"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

const oauthSessionTTL = 10 * time.Minute

type OAuthService interface {
	Initiate(ctx context.Context, siteID, userID int64, platform, instance string) (string, error)
	Complete(ctx context.Context, state, code string) (*models.PlatformAccount, error)
	ConnectBluesky(ctx context.Context, siteID, userID int64, handle, appPassword string) (int64, error)
	CleanupSessions(ctx context.Context) (int64, error)
}

type oauthService struct {
	registry  *platforms.Registry
	sessions  repository.OAuthSessionRepository
	accounts  repository.PlatformAccountRepository
	secretKey []byte
}

func NewOAuthService(
	registry *platforms.Registry,
	sessions repository.OAuthSessionRepository,
	accounts repository.PlatformAccountRepository,
	secretKey string) OAuthService {
	return &oauthService{
		registry:  registry,
		sessions:  sessions,
		accounts:  accounts,
		secretKey: []byte(secretKey),
	}
}

// Initiate creates a pending authorization session and returns the URL to
// redirect the user to. For Mastodon the instance domain must be supplied;
// everything else ignores it.
func (s *oauthService) Initiate(ctx context.Context, siteID, userID int64, platform, instance string) (string, error) {
	adapter, ok := s.registry.Adapter(platform)
	if !ok {
		return "", fmt.Errorf("unknown platform: %s", platform)
	}

	cfg := adapter.Config()
	if !cfg.Configured() {
		return "", &platforms.ConfigurationError{Platform: platform}
	}
	if cfg.AuthType == platforms.AuthTypeAppPassword {
		return "", fmt.Errorf("%s connects with an app password, not a redirect flow", platform)
	}

	state, err := utils.RandomToken(32)
	if err != nil {
		return "", err
	}

	session := &models.OAuthSession{
		State:     state,
		Platform:  platform,
		SiteID:    siteID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(oauthSessionTTL),
	}
	params := platforms.AuthParams{State: state}

	if cfg.AuthType == platforms.AuthTypeOAuth2PKCE {
		verifier, challenge, err := utils.PKCEPair()
		if err != nil {
			return "", err
		}
		session.CodeVerifier = sql.NullString{String: verifier, Valid: true}
		params.Challenge = challenge
	}

	if cfg.AuthType == platforms.AuthTypeDynamicRegistration {
		instance = normalizeInstance(instance)
		if instance == "" {
			return "", errors.New("instance domain is required")
		}
		session.Instance = sql.NullString{String: instance, Valid: true}
		params.Instance = instance
	}

	redirectURL, err := adapter.AuthorizeURL(ctx, params)
	if err != nil {
		return "", err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}

	return redirectURL, nil
}

// Complete consumes the callback state, exchanges the code and upserts the
// connected account. The state row is gone after this call whether or not the
// exchange succeeds, so a replayed callback always fails with ErrInvalidState.
func (s *oauthService) Complete(ctx context.Context, state, code string) (*models.PlatformAccount, error) {
	session, err := s.sessions.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, platforms.ErrInvalidState
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, platforms.ErrExpiredState
	}

	adapter, ok := s.registry.Adapter(session.Platform)
	if !ok {
		return nil, fmt.Errorf("unknown platform: %s", session.Platform)
	}

	token, err := adapter.Exchange(ctx, platforms.ExchangeParams{
		Code:     code,
		Verifier: session.CodeVerifier.String,
		Instance: session.Instance.String,
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("code exchange failed for %s: %w", session.Platform, err)
	}

	profile, err := adapter.Profile(ctx, platforms.Session{
		AccessToken: token.AccessToken,
		Instance:    session.Instance.String,
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("profile fetch failed for %s: %w", session.Platform, err)
	}

	account, err := s.buildAccount(session.SiteID, session.UserID, session.Platform, session.Instance, token, profile)
	if err != nil {
		return nil, err
	}

	id, err := s.accounts.Upsert(ctx, account)
	if err != nil {
		return nil, err
	}
	account.ID = id

	return account, nil
}

// ConnectBluesky skips the redirect flow entirely: the handle and app
// password are traded for a session in one call.
func (s *oauthService) ConnectBluesky(ctx context.Context, siteID, userID int64, handle, appPassword string) (int64, error) {
	adapter, ok := s.registry.Adapter(platforms.PlatformBluesky)
	if !ok {
		return 0, errors.New("bluesky adapter is not registered")
	}
	connector, ok := adapter.(platforms.PasswordConnector)
	if !ok {
		return 0, errors.New("bluesky adapter does not support app passwords")
	}

	if handle == "" || appPassword == "" {
		return 0, errors.New("handle and app password are required")
	}

	token, profile, err := connector.CreateSession(ctx, handle, appPassword)
	if err != nil {
		slog.Info(err.Error())
		return 0, fmt.Errorf("bluesky session creation failed: %w", err)
	}

	account, err := s.buildAccount(siteID, userID, platforms.PlatformBluesky, sql.NullString{}, token, profile)
	if err != nil {
		return 0, err
	}

	return s.accounts.Upsert(ctx, account)
}

func (s *oauthService) buildAccount(siteID, userID int64, platform string, instance sql.NullString, token *platforms.Token, profile *platforms.Profile) (*models.PlatformAccount, error) {
	encAccess, err := utils.Encrypt([]byte(token.AccessToken), s.secretKey)
	if err != nil {
		return nil, err
	}

	var encRefresh string
	if token.RefreshToken != "" {
		encRefresh, err = utils.Encrypt([]byte(token.RefreshToken), s.secretKey)
		if err != nil {
			return nil, err
		}
	}

	expiresAt := token.ExpiresAt
	if expiresAt.IsZero() {
		// Non-expiring token; park the deadline far enough out that the
		// refresh sweep never picks it up.
		expiresAt = time.Now().AddDate(100, 0, 0)
	}

	return &models.PlatformAccount{
		SiteID:          siteID,
		UserID:          userID,
		Platform:        platform,
		Instance:        instance,
		AccountID:       profile.AccountID,
		AccountName:     profile.Name,
		AccountUsername: profile.Username,
		ProfilePicture:  profile.AvatarURL,
		AccessToken:     encAccess,
		RefreshToken:    encRefresh,
		TokenExpiresAt:  expiresAt,
		Scopes:          token.Scopes,
		FollowersCount:  profile.FollowersCount,
		FollowingCount:  profile.FollowingCount,
		PostsCount:      profile.PostsCount,
		AccountStatus:   models.AccountStatusActive,
	}, nil
}

func (s *oauthService) CleanupSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

func normalizeInstance(instance string) string {
	instance = strings.TrimSpace(instance)
	instance = strings.TrimPrefix(instance, "https://")
	instance = strings.TrimPrefix(instance, "http://")
	return strings.TrimSuffix(instance, "/")
}
