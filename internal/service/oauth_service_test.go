package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platforms"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

func TestInitiate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates session and returns redirect", func(t *testing.T) {
		adapter := newFakeAdapter(platforms.PlatformFacebook)
		sessions := newFakeSessionRepo()
		s := NewOAuthService(platforms.New(adapter), sessions, newFakeAccountRepo(), testSecretKey)

		url, err := s.Initiate(ctx, 1, 1, platforms.PlatformFacebook, "")
		if err != nil {
			t.Fatalf("Initiate() error = %v", err)
		}
		if url == "" {
			t.Fatal("redirect URL should not be empty")
		}

		if len(sessions.sessions) != 1 {
			t.Fatalf("stored sessions = %d, want 1", len(sessions.sessions))
		}
		for _, session := range sessions.sessions {
			if session.Platform != platforms.PlatformFacebook {
				t.Errorf("session platform = %q", session.Platform)
			}
			if time.Until(session.ExpiresAt) > oauthSessionTTL {
				t.Error("session TTL too long")
			}
			if session.CodeVerifier.Valid {
				t.Error("plain oauth2 should not carry a PKCE verifier")
			}
		}
	})

	t.Run("pkce platform stores verifier", func(t *testing.T) {
		adapter := newFakeAdapter(platforms.PlatformTwitter)
		adapter.cfg.AuthType = platforms.AuthTypeOAuth2PKCE
		var gotChallenge string
		adapter.authorizeFn = func(p platforms.AuthParams) (string, error) {
			gotChallenge = p.Challenge
			return "https://example.com/authorize", nil
		}
		sessions := newFakeSessionRepo()
		s := NewOAuthService(platforms.New(adapter), sessions, newFakeAccountRepo(), testSecretKey)

		if _, err := s.Initiate(ctx, 1, 1, platforms.PlatformTwitter, ""); err != nil {
			t.Fatalf("Initiate() error = %v", err)
		}
		if gotChallenge == "" {
			t.Error("authorize URL should carry a code challenge")
		}
		for _, session := range sessions.sessions {
			if !session.CodeVerifier.Valid || session.CodeVerifier.String == "" {
				t.Error("session should store the PKCE verifier")
			}
			if session.CodeVerifier.String == gotChallenge {
				t.Error("verifier must differ from the challenge")
			}
		}
	})

	t.Run("mastodon requires instance", func(t *testing.T) {
		adapter := newFakeAdapter(platforms.PlatformMastodon)
		adapter.cfg.AuthType = platforms.AuthTypeDynamicRegistration
		s := NewOAuthService(platforms.New(adapter), newFakeSessionRepo(), newFakeAccountRepo(), testSecretKey)

		if _, err := s.Initiate(ctx, 1, 1, platforms.PlatformMastodon, ""); err == nil {
			t.Error("missing instance should be rejected")
		}
	})

	t.Run("mastodon instance normalized", func(t *testing.T) {
		adapter := newFakeAdapter(platforms.PlatformMastodon)
		adapter.cfg.AuthType = platforms.AuthTypeDynamicRegistration
		sessions := newFakeSessionRepo()
		s := NewOAuthService(platforms.New(adapter), sessions, newFakeAccountRepo(), testSecretKey)

		if _, err := s.Initiate(ctx, 1, 1, platforms.PlatformMastodon, "https://mastodon.social/"); err != nil {
			t.Fatalf("Initiate() error = %v", err)
		}
		for _, session := range sessions.sessions {
			if session.Instance.String != "mastodon.social" {
				t.Errorf("instance = %q, want mastodon.social", session.Instance.String)
			}
		}
	})

	t.Run("app password platform rejected", func(t *testing.T) {
		adapter := newFakeAdapter(platforms.PlatformBluesky)
		adapter.cfg.AuthType = platforms.AuthTypeAppPassword
		s := NewOAuthService(platforms.New(adapter), newFakeSessionRepo(), newFakeAccountRepo(), testSecretKey)

		if _, err := s.Initiate(ctx, 1, 1, platforms.PlatformBluesky, ""); err == nil {
			t.Error("redirect flow should be refused for app-password platforms")
		}
	})

	t.Run("unconfigured platform rejected", func(t *testing.T) {
		adapter := newFakeAdapter(platforms.PlatformTwitter)
		adapter.cfg.ClientID = ""
		adapter.cfg.ClientSecret = ""
		s := NewOAuthService(platforms.New(adapter), newFakeSessionRepo(), newFakeAccountRepo(), testSecretKey)

		_, err := s.Initiate(ctx, 1, 1, platforms.PlatformTwitter, "")
		var ce *platforms.ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("error type = %T, want *ConfigurationError", err)
		}
	})
}

func TestComplete(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, sessions *fakeSessionRepo, expiresIn time.Duration) string {
		t.Helper()
		state := "state-token"
		if err := sessions.Create(ctx, &models.OAuthSession{
			State:     state,
			Platform:  platforms.PlatformFacebook,
			SiteID:    1,
			UserID:    1,
			ExpiresAt: time.Now().Add(expiresIn),
		}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		return state
	}

	t.Run("exchanges code and upserts account", func(t *testing.T) {
		adapter := newFakeAdapter(platforms.PlatformFacebook)
		sessions := newFakeSessionRepo()
		accounts := newFakeAccountRepo()
		s := NewOAuthService(platforms.New(adapter), sessions, accounts, testSecretKey)
		state := seed(t, sessions, oauthSessionTTL)

		account, err := s.Complete(ctx, state, "auth-code")
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if account.ID == 0 {
			t.Error("account should have an id after upsert")
		}
		if account.AccountStatus != models.AccountStatusActive {
			t.Errorf("status = %q, want active", account.AccountStatus)
		}
		if account.AccessToken == "access" {
			t.Error("access token must be stored encrypted")
		}
		plain, err := utils.Decrypt(account.AccessToken, []byte(testSecretKey))
		if err != nil || plain != "access" {
			t.Errorf("decrypted token = %q, %v; want access", plain, err)
		}
	})

	t.Run("unknown state rejected", func(t *testing.T) {
		s := NewOAuthService(platforms.New(newFakeAdapter(platforms.PlatformFacebook)),
			newFakeSessionRepo(), newFakeAccountRepo(), testSecretKey)

		if _, err := s.Complete(ctx, "nope", "code"); !errors.Is(err, platforms.ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("state consumed on first use", func(t *testing.T) {
		adapter := newFakeAdapter(platforms.PlatformFacebook)
		sessions := newFakeSessionRepo()
		s := NewOAuthService(platforms.New(adapter), sessions, newFakeAccountRepo(), testSecretKey)
		state := seed(t, sessions, oauthSessionTTL)

		if _, err := s.Complete(ctx, state, "code"); err != nil {
			t.Fatalf("first Complete() error = %v", err)
		}
		if _, err := s.Complete(ctx, state, "code"); !errors.Is(err, platforms.ErrInvalidState) {
			t.Errorf("replayed callback error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("expired state rejected", func(t *testing.T) {
		adapter := newFakeAdapter(platforms.PlatformFacebook)
		sessions := newFakeSessionRepo()
		s := NewOAuthService(platforms.New(adapter), sessions, newFakeAccountRepo(), testSecretKey)
		state := seed(t, sessions, -time.Minute)

		if _, err := s.Complete(ctx, state, "code"); !errors.Is(err, platforms.ErrExpiredState) {
			t.Errorf("error = %v, want ErrExpiredState", err)
		}
	})

	t.Run("non expiring token parked far out", func(t *testing.T) {
		adapter := newFakeAdapter(platforms.PlatformFacebook)
		adapter.exchangeFn = func(p platforms.ExchangeParams) (*platforms.Token, error) {
			return &platforms.Token{AccessToken: "forever"}, nil
		}
		sessions := newFakeSessionRepo()
		s := NewOAuthService(platforms.New(adapter), sessions, newFakeAccountRepo(), testSecretKey)
		state := seed(t, sessions, oauthSessionTTL)

		account, err := s.Complete(ctx, state, "code")
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if time.Until(account.TokenExpiresAt) < 50*365*24*time.Hour {
			t.Errorf("expiry = %v, want far future for non-expiring token", account.TokenExpiresAt)
		}
	})

	t.Run("reconnect updates existing row", func(t *testing.T) {
		adapter := newFakeAdapter(platforms.PlatformFacebook)
		sessions := newFakeSessionRepo()
		accounts := newFakeAccountRepo()
		s := NewOAuthService(platforms.New(adapter), sessions, accounts, testSecretKey)

		state := seed(t, sessions, oauthSessionTTL)
		first, err := s.Complete(ctx, state, "code")
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}

		state = seed(t, sessions, oauthSessionTTL)
		second, err := s.Complete(ctx, state, "code")
		if err != nil {
			t.Fatalf("second Complete() error = %v", err)
		}

		if first.ID != second.ID {
			t.Errorf("reconnect created a new row: %d vs %d", first.ID, second.ID)
		}
	})
}

// fakePasswordAdapter adds the app-password flow on top of the base fake.
type fakePasswordAdapter struct {
	*fakeAdapter
	createFn func(handle, appPassword string) (*platforms.Token, *platforms.Profile, error)
}

func (a *fakePasswordAdapter) CreateSession(ctx context.Context, handle, appPassword string) (*platforms.Token, *platforms.Profile, error) {
	if a.createFn != nil {
		return a.createFn(handle, appPassword)
	}
	return &platforms.Token{AccessToken: "jwt", RefreshToken: "refresh-jwt", ExpiresAt: time.Now().Add(2 * time.Hour)},
		&platforms.Profile{AccountID: "did:plc:abc", Username: "user.bsky.social", Name: "User"}, nil
}

func TestConnectBluesky(t *testing.T) {
	ctx := context.Background()

	newService := func(accounts *fakeAccountRepo) OAuthService {
		base := newFakeAdapter(platforms.PlatformBluesky)
		base.cfg.AuthType = platforms.AuthTypeAppPassword
		adapter := &fakePasswordAdapter{fakeAdapter: base}
		return NewOAuthService(platforms.New(adapter), newFakeSessionRepo(), accounts, testSecretKey)
	}

	t.Run("creates account from credentials", func(t *testing.T) {
		accounts := newFakeAccountRepo()
		s := newService(accounts)

		id, err := s.ConnectBluesky(ctx, 1, 1, "user.bsky.social", "app-pass")
		if err != nil {
			t.Fatalf("ConnectBluesky() error = %v", err)
		}

		account, _ := accounts.GetByID(ctx, id)
		if account == nil {
			t.Fatal("account not stored")
		}
		if account.Platform != platforms.PlatformBluesky {
			t.Errorf("platform = %q", account.Platform)
		}
		if account.AccountID != "did:plc:abc" {
			t.Errorf("account id = %q, want the DID", account.AccountID)
		}
	})

	t.Run("empty credentials rejected", func(t *testing.T) {
		s := newService(newFakeAccountRepo())
		if _, err := s.ConnectBluesky(ctx, 1, 1, "", ""); err == nil {
			t.Error("blank handle and password should be rejected")
		}
	})
}

func TestCleanupSessions(t *testing.T) {
	ctx := context.Background()

	sessions := newFakeSessionRepo()
	sessions.Create(ctx, &models.OAuthSession{State: "old", ExpiresAt: time.Now().Add(-time.Hour)})
	sessions.Create(ctx, &models.OAuthSession{State: "live", ExpiresAt: time.Now().Add(time.Hour)})

	s := NewOAuthService(platforms.New(), sessions, newFakeAccountRepo(), testSecretKey)

	n, err := s.CleanupSessions(ctx)
	if err != nil {
		t.Fatalf("CleanupSessions() error = %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if _, ok := sessions.sessions["live"]; !ok {
		t.Error("live session should survive cleanup")
	}
}
