package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

type AnalyticsSnapshotRepository interface {
	Upsert(ctx context.Context, s *models.DailyAnalyticsSnapshot) error
	GetByAccountAndDate(ctx context.Context, accountID int64, date time.Time) (*models.DailyAnalyticsSnapshot, error)
	ListByAccountSince(ctx context.Context, accountID int64, since time.Time) ([]*models.DailyAnalyticsSnapshot, error)
}

type analyticsSnapshotRepository struct {
	db *sql.DB
}

func NewAnalyticsSnapshotRepository(db *sql.DB) AnalyticsSnapshotRepository {
	return &analyticsSnapshotRepository{db: db}
}

// Upsert keys on (account_id, snapshot_date). Re-running a day's sync
// overwrites the row, so the sweep is safe to repeat.
func (r *analyticsSnapshotRepository) Upsert(ctx context.Context, s *models.DailyAnalyticsSnapshot) error {
	query := `
		INSERT INTO daily_analytics_snapshots (
			account_id, snapshot_date, followers_count, followers_change,
			impressions, reach, engagement, likes, comments, shares, clicks
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (account_id, snapshot_date) DO UPDATE SET
			followers_count = EXCLUDED.followers_count,
			followers_change = EXCLUDED.followers_change,
			impressions = EXCLUDED.impressions,
			reach = EXCLUDED.reach,
			engagement = EXCLUDED.engagement,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			clicks = EXCLUDED.clicks
	`
	_, err := r.db.ExecContext(ctx, query, s.AccountID, s.SnapshotDate, s.FollowersCount,
		s.FollowersChange, s.Impressions, s.Reach, s.Engagement, s.Likes, s.Comments,
		s.Shares, s.Clicks)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *analyticsSnapshotRepository) GetByAccountAndDate(ctx context.Context, accountID int64, date time.Time) (*models.DailyAnalyticsSnapshot, error) {
	query := `
		SELECT id, account_id, snapshot_date, followers_count, followers_change,
			impressions, reach, engagement, likes, comments, shares, clicks, created_at
		FROM daily_analytics_snapshots
		WHERE account_id = $1 AND snapshot_date = $2
	`

	var s models.DailyAnalyticsSnapshot
	err := r.db.QueryRowContext(ctx, query, accountID, date).Scan(&s.ID, &s.AccountID,
		&s.SnapshotDate, &s.FollowersCount, &s.FollowersChange, &s.Impressions, &s.Reach,
		&s.Engagement, &s.Likes, &s.Comments, &s.Shares, &s.Clicks, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &s, nil
}

func (r *analyticsSnapshotRepository) ListByAccountSince(ctx context.Context, accountID int64, since time.Time) ([]*models.DailyAnalyticsSnapshot, error) {
	query := `
		SELECT id, account_id, snapshot_date, followers_count, followers_change,
			impressions, reach, engagement, likes, comments, shares, clicks, created_at
		FROM daily_analytics_snapshots
		WHERE account_id = $1 AND snapshot_date >= $2
		ORDER BY snapshot_date
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, since)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.DailyAnalyticsSnapshot
	for rows.Next() {
		var s models.DailyAnalyticsSnapshot
		err := rows.Scan(&s.ID, &s.AccountID, &s.SnapshotDate, &s.FollowersCount,
			&s.FollowersChange, &s.Impressions, &s.Reach, &s.Engagement, &s.Likes,
			&s.Comments, &s.Shares, &s.Clicks, &s.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		snapshots = append(snapshots, &s)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return snapshots, nil
}
