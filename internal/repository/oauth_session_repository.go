package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/socialflow/internal/models"
)

type OAuthSessionRepository interface {
	Create(ctx context.Context, s *models.OAuthSession) error
	Consume(ctx context.Context, state string) (*models.OAuthSession, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type oauthSessionRepository struct {
	db *sql.DB
}

func NewOAuthSessionRepository(db *sql.DB) OAuthSessionRepository {
	return &oauthSessionRepository{db: db}
}

func (r *oauthSessionRepository) Create(ctx context.Context, s *models.OAuthSession) error {
	query := `
		INSERT INTO oauth_sessions (state, platform, site_id, user_id, code_verifier, instance, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, s.State, s.Platform, s.SiteID, s.UserID,
		s.CodeVerifier, s.Instance, s.ExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Consume deletes and returns the session in one statement, so concurrent
// callbacks carrying the same state can succeed at most once.
func (r *oauthSessionRepository) Consume(ctx context.Context, state string) (*models.OAuthSession, error) {
	query := `
		DELETE FROM oauth_sessions
		WHERE state = $1
		RETURNING state, platform, site_id, user_id, code_verifier, instance, expires_at, created_at
	`

	var s models.OAuthSession
	err := r.db.QueryRowContext(ctx, query, state).Scan(&s.State, &s.Platform,
		&s.SiteID, &s.UserID, &s.CodeVerifier, &s.Instance, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &s, nil
}

func (r *oauthSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM oauth_sessions WHERE expires_at < CURRENT_TIMESTAMP`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
