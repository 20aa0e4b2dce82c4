package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/socialflow/internal/models"
)

// MastodonAppRepository backs platforms.MastodonAppStore with postgres.
type MastodonAppRepository interface {
	Get(ctx context.Context, instance string) (*models.MastodonApp, error)
	Save(ctx context.Context, app *models.MastodonApp) error
}

type mastodonAppRepository struct {
	db *sql.DB
}

func NewMastodonAppRepository(db *sql.DB) MastodonAppRepository {
	return &mastodonAppRepository{db: db}
}

func (r *mastodonAppRepository) Get(ctx context.Context, instance string) (*models.MastodonApp, error) {
	query := `SELECT instance, client_id, client_secret, created_at FROM mastodon_apps WHERE instance = $1`

	var app models.MastodonApp
	err := r.db.QueryRowContext(ctx, query, instance).Scan(&app.Instance, &app.ClientID,
		&app.ClientSecret, &app.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &app, nil
}

func (r *mastodonAppRepository) Save(ctx context.Context, app *models.MastodonApp) error {
	query := `
		INSERT INTO mastodon_apps (instance, client_id, client_secret)
		VALUES ($1, $2, $3)
		ON CONFLICT (instance) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret
	`
	_, err := r.db.ExecContext(ctx, query, app.Instance, app.ClientID, app.ClientSecret)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
