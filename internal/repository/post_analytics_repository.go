package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

type PostAnalyticsRepository interface {
	Upsert(ctx context.Context, pa *models.PostAnalytics) error
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostAnalytics, error)
	ListPerformanceSince(ctx context.Context, accountID int64, since time.Time) ([]*models.PostPerformance, error)
}

type postAnalyticsRepository struct {
	db *sql.DB
}

func NewPostAnalyticsRepository(db *sql.DB) PostAnalyticsRepository {
	return &postAnalyticsRepository{db: db}
}

// Upsert keys on (post_id, account_id); each sync replaces the previous
// reading rather than appending a new one.
func (r *postAnalyticsRepository) Upsert(ctx context.Context, pa *models.PostAnalytics) error {
	query := `
		INSERT INTO post_analytics (
			post_id, account_id, impressions, reach, engagement,
			likes, comments, shares, synced_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (post_id, account_id) DO UPDATE SET
			impressions = EXCLUDED.impressions,
			reach = EXCLUDED.reach,
			engagement = EXCLUDED.engagement,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			synced_at = EXCLUDED.synced_at
	`
	_, err := r.db.ExecContext(ctx, query, pa.PostID, pa.AccountID, pa.Impressions,
		pa.Reach, pa.Engagement, pa.Likes, pa.Comments, pa.Shares, pa.SyncedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postAnalyticsRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostAnalytics, error) {
	query := `
		SELECT id, post_id, account_id, impressions, reach, engagement,
			likes, comments, shares, synced_at
		FROM post_analytics
		WHERE post_id = $1
		ORDER BY account_id
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var analytics []*models.PostAnalytics
	for rows.Next() {
		var pa models.PostAnalytics
		err := rows.Scan(&pa.ID, &pa.PostID, &pa.AccountID, &pa.Impressions, &pa.Reach,
			&pa.Engagement, &pa.Likes, &pa.Comments, &pa.Shares, &pa.SyncedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		analytics = append(analytics, &pa)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return analytics, nil
}

// ListPerformanceSince joins each synced reading with the publish time of its
// target, which is what the optimal-time scorer buckets on.
func (r *postAnalyticsRepository) ListPerformanceSince(ctx context.Context, accountID int64, since time.Time) ([]*models.PostPerformance, error) {
	query := `
		SELECT pa.post_id, att.published_at, pa.impressions, pa.reach, pa.engagement
		FROM post_analytics pa
		JOIN publish_attempts att
			ON att.post_id = pa.post_id AND att.account_id = pa.account_id
		WHERE pa.account_id = $1
			AND att.published_at IS NOT NULL
			AND att.published_at >= $2
		ORDER BY att.published_at
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, since)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var perf []*models.PostPerformance
	for rows.Next() {
		var p models.PostPerformance
		if err := rows.Scan(&p.PostID, &p.PublishedAt, &p.Impressions, &p.Reach, &p.Engagement); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		perf = append(perf, &p)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return perf, nil
}
