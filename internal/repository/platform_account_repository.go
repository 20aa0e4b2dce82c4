package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

type PlatformAccountRepository interface {
	Upsert(ctx context.Context, pa *models.PlatformAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PlatformAccount, error)
	ListBySiteID(ctx context.Context, siteID int64) ([]*models.PlatformAccount, error)
	ListActive(ctx context.Context) ([]*models.PlatformAccount, error)
	ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.PlatformAccount, error)
	CheckBySiteID(ctx context.Context, accountID, siteID int64) (bool, error)
	SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error
	SetStatus(ctx context.Context, id int64, status string) error
	SetLastError(ctx context.Context, id int64, message string) error
	SetSyncedCounts(ctx context.Context, id, followers, following, posts int64, syncedAt time.Time) error
	Remove(ctx context.Context, id int64) error
}

type platformAccountRepository struct {
	db *sql.DB
}

func NewPlatformAccountRepository(db *sql.DB) PlatformAccountRepository {
	return &platformAccountRepository{db: db}
}

const accountColumns = `id, site_id, user_id, platform, instance, account_id, account_name,
	account_username, profile_picture_url, access_token, refresh_token,
	token_expires_at, scopes, followers_count, following_count, posts_count,
	account_status, last_synced_at, last_error, last_error_at, created_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (*models.PlatformAccount, error) {
	var pa models.PlatformAccount
	err := row.Scan(&pa.ID, &pa.SiteID, &pa.UserID, &pa.Platform, &pa.Instance, &pa.AccountID,
		&pa.AccountName, &pa.AccountUsername, &pa.ProfilePicture, &pa.AccessToken,
		&pa.RefreshToken, &pa.TokenExpiresAt, &pa.Scopes, &pa.FollowersCount,
		&pa.FollowingCount, &pa.PostsCount, &pa.AccountStatus, &pa.LastSyncedAt,
		&pa.LastError, &pa.LastErrorAt, &pa.CreatedAt, &pa.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &pa, nil
}

// Upsert keys on (site_id, platform, account_id) so reconnecting the same
// external account updates the existing row instead of duplicating it.
func (r *platformAccountRepository) Upsert(ctx context.Context, pa *models.PlatformAccount) (int64, error) {
	query := `
		INSERT INTO platform_accounts (
			site_id, user_id, platform, instance, account_id, account_name,
			account_username, profile_picture_url, access_token, refresh_token,
			token_expires_at, scopes, followers_count, following_count,
			posts_count, account_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (site_id, platform, account_id) DO UPDATE SET
			account_name = EXCLUDED.account_name,
			account_username = EXCLUDED.account_username,
			profile_picture_url = EXCLUDED.profile_picture_url,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			scopes = EXCLUDED.scopes,
			followers_count = EXCLUDED.followers_count,
			following_count = EXCLUDED.following_count,
			posts_count = EXCLUDED.posts_count,
			account_status = EXCLUDED.account_status,
			last_error = NULL,
			last_error_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		pa.SiteID, pa.UserID, pa.Platform, pa.Instance, pa.AccountID, pa.AccountName,
		pa.AccountUsername, pa.ProfilePicture, pa.AccessToken, pa.RefreshToken,
		pa.TokenExpiresAt, pa.Scopes, pa.FollowersCount, pa.FollowingCount,
		pa.PostsCount, pa.AccountStatus,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *platformAccountRepository) GetByID(ctx context.Context, id int64) (*models.PlatformAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM platform_accounts WHERE id = $1`

	pa, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return pa, nil
}

func (r *platformAccountRepository) ListBySiteID(ctx context.Context, siteID int64) ([]*models.PlatformAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM platform_accounts WHERE site_id = $1 ORDER BY id`

	return r.list(ctx, query, siteID)
}

func (r *platformAccountRepository) ListActive(ctx context.Context) ([]*models.PlatformAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM platform_accounts WHERE account_status = $1 ORDER BY id`

	return r.list(ctx, query, models.AccountStatusActive)
}

// ListExpiringBefore returns accounts whose token expires before deadline,
// already-expired ones included, so the refresh sweep can renew them early.
func (r *platformAccountRepository) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.PlatformAccount, error) {
	query := `SELECT ` + accountColumns + `
		FROM platform_accounts
		WHERE token_expires_at < $1 AND account_status IN ($2, $3)
		ORDER BY token_expires_at`

	return r.list(ctx, query, deadline, models.AccountStatusActive, models.AccountStatusExpired)
}

func (r *platformAccountRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.PlatformAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.PlatformAccount
	for rows.Next() {
		pa, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, pa)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

func (r *platformAccountRepository) CheckBySiteID(ctx context.Context, accountID, siteID int64) (bool, error) {
	query := `SELECT 1 FROM platform_accounts WHERE id = $1 AND site_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, siteID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// SetToken persists a refreshed token pair. An empty refreshToken keeps the
// stored one; platforms that don't rotate never blank it out.
func (r *platformAccountRepository) SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE platform_accounts
		SET access_token = $2,
			refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
			token_expires_at = $4,
			account_status = 'active',
			last_error = NULL,
			last_error_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, accessToken, refreshToken, expiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *platformAccountRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE platform_accounts SET account_status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *platformAccountRepository) SetLastError(ctx context.Context, id int64, message string) error {
	query := `UPDATE platform_accounts SET last_error = $2, last_error_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, message)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *platformAccountRepository) SetSyncedCounts(ctx context.Context, id, followers, following, posts int64, syncedAt time.Time) error {
	query := `
		UPDATE platform_accounts
		SET followers_count = $2,
			following_count = $3,
			posts_count = $4,
			last_synced_at = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, followers, following, posts, syncedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *platformAccountRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM platform_accounts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
