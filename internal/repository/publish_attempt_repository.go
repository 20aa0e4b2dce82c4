package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

type PublishAttemptRepository interface {
	Create(ctx context.Context, tx *sql.Tx, a *models.PublishAttempt) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PublishAttempt, error)
	GetByPostAndAccount(ctx context.Context, postID, accountID int64) (*models.PublishAttempt, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PublishAttempt, error)
	ListPublishedSince(ctx context.Context, accountID int64, since time.Time) ([]*models.PublishAttempt, error)
	ClaimForPublishing(ctx context.Context, id int64) (bool, error)
	ResetStale(ctx context.Context, cutoff time.Time) ([]int64, error)
	MarkPublished(ctx context.Context, id int64, contentID string, publishedAt time.Time) error
	MarkRetryable(ctx context.Context, id int64, errMsg string) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

type publishAttemptRepository struct {
	db *sql.DB
}

func NewPublishAttemptRepository(db *sql.DB) PublishAttemptRepository {
	return &publishAttemptRepository{db: db}
}

const attemptColumns = `id, post_id, account_id, platform_content_id, attempt_count,
	status, last_error, published_at, created_at, updated_at`

func scanAttempt(row interface{ Scan(...interface{}) error }) (*models.PublishAttempt, error) {
	var a models.PublishAttempt
	err := row.Scan(&a.ID, &a.PostID, &a.AccountID, &a.PlatformContentID, &a.AttemptCount,
		&a.Status, &a.LastError, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *publishAttemptRepository) Create(ctx context.Context, tx *sql.Tx, a *models.PublishAttempt) (int64, error) {
	query := `
		INSERT INTO publish_attempts (post_id, account_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, account_id) DO NOTHING
		RETURNING id
	`

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, a.PostID, a.AccountID, a.Status).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, a.PostID, a.AccountID, a.Status).Scan(&id)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishAttemptRepository) GetByID(ctx context.Context, id int64) (*models.PublishAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM publish_attempts WHERE id = $1`

	a, err := scanAttempt(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return a, nil
}

func (r *publishAttemptRepository) GetByPostAndAccount(ctx context.Context, postID, accountID int64) (*models.PublishAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM publish_attempts WHERE post_id = $1 AND account_id = $2`

	a, err := scanAttempt(r.db.QueryRowContext(ctx, query, postID, accountID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return a, nil
}

func (r *publishAttemptRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM publish_attempts WHERE post_id = $1 ORDER BY id`

	return r.list(ctx, query, postID)
}

// ListPublishedSince feeds the analytics sweep: every target published on the
// account inside the window, newest last.
func (r *publishAttemptRepository) ListPublishedSince(ctx context.Context, accountID int64, since time.Time) ([]*models.PublishAttempt, error) {
	query := `SELECT ` + attemptColumns + `
		FROM publish_attempts
		WHERE account_id = $1 AND status = $2 AND published_at >= $3
		ORDER BY published_at`

	return r.list(ctx, query, accountID, models.AttemptStatusPublished, since)
}

func (r *publishAttemptRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.PublishAttempt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.PublishAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return attempts, nil
}

// ClaimForPublishing moves pending -> publishing, bumping attempt_count.
// Zero rows means another worker holds it or it already reached a terminal
// state, and the caller must skip it.
func (r *publishAttemptRepository) ClaimForPublishing(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE publish_attempts
		SET status = $2, attempt_count = attempt_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, id, models.AttemptStatusPublishing, models.AttemptStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// ResetStale returns publishing targets untouched since cutoff to pending.
// A target sits in publishing only for the duration of one adapter call;
// anything older belongs to a worker that died mid-attempt. The ids of the
// affected posts are returned so they can be re-dispatched.
func (r *publishAttemptRepository) ResetStale(ctx context.Context, cutoff time.Time) ([]int64, error) {
	query := `
		UPDATE publish_attempts
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE status = $2 AND updated_at < $3
		RETURNING post_id
	`

	rows, err := r.db.QueryContext(ctx, query, models.AttemptStatusPending, models.AttemptStatusPublishing, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var postIDs []int64
	for rows.Next() {
		var postID int64
		if err := rows.Scan(&postID); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		postIDs = append(postIDs, postID)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return postIDs, nil
}

func (r *publishAttemptRepository) MarkPublished(ctx context.Context, id int64, contentID string, publishedAt time.Time) error {
	query := `
		UPDATE publish_attempts
		SET status = $2, platform_content_id = $3, published_at = $4,
			last_error = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, models.AttemptStatusPublished, contentID, publishedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkRetryable returns the target to pending so a delayed retry can claim it
// again. attempt_count keeps the value set at claim time.
func (r *publishAttemptRepository) MarkRetryable(ctx context.Context, id int64, errMsg string) error {
	query := `
		UPDATE publish_attempts
		SET status = $2, last_error = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, models.AttemptStatusPending, errMsg)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publishAttemptRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	query := `
		UPDATE publish_attempts
		SET status = $2, last_error = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, models.AttemptStatusFailed, errMsg)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
