package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platforms"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

// refreshMargin is how close to expiry a token may get before it is renewed
// ahead of use.
const refreshMargin = 5 * time.Minute

// refreshSweepHorizon is how far ahead the periodic sweep renews tokens. It
// must exceed the sweep interval (10m) plus the margin, or tokens expiring
// between ticks would only ever refresh inline.
const refreshSweepHorizon = 30 * time.Minute

type CredentialService interface {
	Session(ctx context.Context, account *models.PlatformAccount) (platforms.Session, error)
	EnsureValid(ctx context.Context, accountID int64) (*models.PlatformAccount, platforms.Session, error)
	WithSession(ctx context.Context, accountID int64, fn func(platforms.Adapter, platforms.Session) error) error
	RefreshExpiring(ctx context.Context) error
	Health(account *models.PlatformAccount) int
	ListAccounts(ctx context.Context, siteID int64) ([]*models.PlatformAccount, error)
	Disconnect(ctx context.Context, siteID, accountID int64) error
}

type credentialService struct {
	registry  *platforms.Registry
	accounts  repository.PlatformAccountRepository
	secretKey []byte

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewCredentialService(
	registry *platforms.Registry,
	accounts repository.PlatformAccountRepository,
	secretKey string) CredentialService {
	return &credentialService{
		registry:  registry,
		accounts:  accounts,
		secretKey: []byte(secretKey),
		locks:     make(map[int64]*sync.Mutex),
	}
}

// accountLock returns the mutex for one account, creating it on first use.
// Refreshes for different accounts proceed in parallel; two refreshes of the
// same account serialize so only one hits the provider.
func (s *credentialService) accountLock(accountID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	return l
}

// Session decrypts the stored token pair into a ready-to-use session. It does
// not check expiry; callers wanting a guaranteed-fresh token go through
// EnsureValid.
func (s *credentialService) Session(ctx context.Context, account *models.PlatformAccount) (platforms.Session, error) {
	access, err := utils.Decrypt(account.AccessToken, s.secretKey)
	if err != nil {
		return platforms.Session{}, err
	}

	var refresh string
	if account.RefreshToken != "" {
		refresh, err = utils.Decrypt(account.RefreshToken, s.secretKey)
		if err != nil {
			return platforms.Session{}, err
		}
	}

	return platforms.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		AccountID:    account.AccountID,
		Instance:     account.Instance.String,
	}, nil
}

// EnsureValid returns the account with a session whose access token is good
// for at least refreshMargin. A token inside the margin is refreshed under
// the per-account lock before the session is handed out.
func (s *credentialService) EnsureValid(ctx context.Context, accountID int64) (*models.PlatformAccount, platforms.Session, error) {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, platforms.Session{}, err
	}
	if account == nil {
		return nil, platforms.Session{}, fmt.Errorf("account %d not found", accountID)
	}
	if account.AccountStatus == models.AccountStatusRevoked {
		return nil, platforms.Session{}, fmt.Errorf("account %d has been revoked", accountID)
	}

	if time.Until(account.TokenExpiresAt) > refreshMargin {
		session, err := s.Session(ctx, account)
		return account, session, err
	}

	account, err = s.refreshLocked(ctx, account)
	if err != nil {
		return nil, platforms.Session{}, err
	}

	session, err := s.Session(ctx, account)
	return account, session, err
}

// refreshLocked renews the account's token. Caller holds the account lock.
func (s *credentialService) refreshLocked(ctx context.Context, account *models.PlatformAccount) (*models.PlatformAccount, error) {
	adapter, ok := s.registry.Adapter(account.Platform)
	if !ok {
		return nil, fmt.Errorf("unknown platform: %s", account.Platform)
	}

	session, err := s.Session(ctx, account)
	if err != nil {
		return nil, err
	}

	token, err := adapter.Refresh(ctx, session)
	if err != nil {
		slog.Info(err.Error())
		if markErr := s.accounts.SetStatus(ctx, account.ID, models.AccountStatusExpired); markErr != nil {
			slog.Info(markErr.Error())
		}
		if markErr := s.accounts.SetLastError(ctx, account.ID, err.Error()); markErr != nil {
			slog.Info(markErr.Error())
		}
		return nil, &platforms.RefreshFailedError{Platform: account.Platform, Err: err}
	}

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
		expiresAt = time.Now().AddDate(100, 0, 0)
	}

	if err := s.accounts.SetToken(ctx, account.ID, encAccess, encRefresh, expiresAt); err != nil {
		return nil, err
	}

	account.AccessToken = encAccess
	if encRefresh != "" {
		account.RefreshToken = encRefresh
	}
	account.TokenExpiresAt = expiresAt
	account.AccountStatus = models.AccountStatusActive

	return account, nil
}

// WithSession runs fn with a valid session. A 401 from the platform triggers
// one forced refresh and retry; a second 401 marks the account expired. A 429
// marks it rate limited and surfaces ErrRateLimited.
func (s *credentialService) WithSession(ctx context.Context, accountID int64, fn func(platforms.Adapter, platforms.Session) error) error {
	account, session, err := s.EnsureValid(ctx, accountID)
	if err != nil {
		return err
	}

	adapter, ok := s.registry.Adapter(account.Platform)
	if !ok {
		return fmt.Errorf("unknown platform: %s", account.Platform)
	}

	err = fn(adapter, session)
	if err == nil {
		return nil
	}

	if isStatus(err, http.StatusTooManyRequests) {
		if markErr := s.accounts.SetStatus(ctx, account.ID, models.AccountStatusRateLimited); markErr != nil {
			slog.Info(markErr.Error())
		}
		return platforms.ErrRateLimited
	}

	if !isStatus(err, http.StatusUnauthorized) {
		return err
	}

	// The stored expiry lied; refresh once and retry.
	lock := s.accountLock(account.ID)
	lock.Lock()
	account, refreshErr := s.refreshLocked(ctx, account)
	lock.Unlock()
	if refreshErr != nil {
		return refreshErr
	}

	session, err = s.Session(ctx, account)
	if err != nil {
		return err
	}

	err = fn(adapter, session)
	if err != nil && isStatus(err, http.StatusUnauthorized) {
		if markErr := s.accounts.SetStatus(ctx, account.ID, models.AccountStatusExpired); markErr != nil {
			slog.Info(markErr.Error())
		}
	}
	return err
}

func isStatus(err error, code int) bool {
	var ae *platforms.APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == code
	}
	var pe *platforms.PublishError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// RefreshExpiring renews every token expiring inside the sweep horizon.
// Failures mark the account and move on; one bad account never stalls the
// sweep.
func (s *credentialService) RefreshExpiring(ctx context.Context) error {
	accounts, err := s.accounts.ListExpiringBefore(ctx, time.Now().Add(refreshSweepHorizon))
	if err != nil {
		return err
	}

	for _, account := range accounts {
		lock := s.accountLock(account.ID)
		lock.Lock()
		_, err := s.refreshLocked(ctx, account)
		lock.Unlock()
		if err != nil {
			slog.Info(err.Error(), "account_id", account.ID, "platform", account.Platform)
		}
	}

	return nil
}

// Health derives a 0-100 score from the account's current state. Nothing is
// stored; the score changes the moment its inputs do.
func (s *credentialService) Health(account *models.PlatformAccount) int {
	score := 100

	if account.AccountStatus == models.AccountStatusExpired || time.Now().After(account.TokenExpiresAt) {
		score -= 50
	}
	if !account.LastSyncedAt.Valid || time.Since(account.LastSyncedAt.Time) > 24*time.Hour {
		score -= 10
	}
	if account.LastErrorAt.Valid && time.Since(account.LastErrorAt.Time) < 24*time.Hour {
		score -= 20
	}
	if account.AccountStatus == models.AccountStatusRateLimited {
		score -= 30
	}

	if score < 0 {
		score = 0
	}
	return score
}

// ListAccounts returns a site's connected accounts with their health scores
// filled in.
func (s *credentialService) ListAccounts(ctx context.Context, siteID int64) ([]*models.PlatformAccount, error) {
	accounts, err := s.accounts.ListBySiteID(ctx, siteID)
	if err != nil {
		return nil, err
	}

	for _, account := range accounts {
		account.Health = s.Health(account)
	}

	return accounts, nil
}

// Disconnect revokes the token best-effort and deletes the account row. A
// failed revoke call is logged and ignored; the row goes away regardless.
func (s *credentialService) Disconnect(ctx context.Context, siteID, accountID int64) error {
	owned, err := s.accounts.CheckBySiteID(ctx, accountID, siteID)
	if err != nil {
		return err
	}
	if !owned {
		return errors.New("account doesn't exist")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account != nil {
		if adapter, ok := s.registry.Adapter(account.Platform); ok {
			if session, err := s.Session(ctx, account); err == nil {
				if err := adapter.Revoke(ctx, session); err != nil {
					slog.Info(err.Error(), "account_id", accountID, "platform", account.Platform)
				}
			}
		}
	}

	return s.accounts.Remove(ctx, accountID)
}
