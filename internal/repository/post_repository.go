package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, p *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListBySiteID(ctx context.Context, siteID int64) ([]*models.Post, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	ClaimForPublishing(ctx context.Context, id int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	CheckBySiteID(ctx context.Context, postID, siteID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, site_id, user_id, post_type, caption, title, scheduled_time, status, created_at, updated_at`

func scanPost(row interface{ Scan(...interface{}) error }) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.SiteID, &p.UserID, &p.PostType, &p.Caption, &p.Title,
		&p.ScheduledTime, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, p *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (site_id, user_id, post_type, caption, title, scheduled_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, p.SiteID, p.UserID, p.PostType, p.Caption,
			p.Title, p.ScheduledTime, p.Status).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, p.SiteID, p.UserID, p.PostType, p.Caption,
			p.Title, p.ScheduledTime, p.Status).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	p, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return p, nil
}

func (r *postRepository) ListBySiteID(ctx context.Context, siteID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE site_id = $1 ORDER BY scheduled_time DESC`

	return r.list(ctx, query, siteID)
}

// ListDue returns scheduled posts whose time has arrived. The scheduler still
// has to win ClaimForPublishing before acting on any of them.
func (r *postRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE status = $1 AND scheduled_time <= $2
		ORDER BY scheduled_time`

	return r.list(ctx, query, models.PostStatusScheduled, now)
}

func (r *postRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return posts, nil
}

// ClaimForPublishing flips scheduled -> publishing and reports whether this
// caller won the claim. A post already claimed or rescheduled affects zero
// rows, so overlapping scheduler ticks never double-publish.
func (r *postRepository) ClaimForPublishing(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, id, models.PostStatusPublishing, models.PostStatusScheduled)
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

func (r *postRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE posts SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CheckBySiteID(ctx context.Context, postID, siteID int64) (bool, error) {
	query := `SELECT 1 FROM posts WHERE id = $1 AND site_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, siteID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
