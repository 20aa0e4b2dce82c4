package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/socialflow/internal/models"
)

type OptimalTimeRepository interface {
	Upsert(ctx context.Context, slot *models.OptimalTimeSlot) error
	ListByAccount(ctx context.Context, accountID int64) ([]*models.OptimalTimeSlot, error)
	DeleteByAccount(ctx context.Context, accountID int64) error
}

type optimalTimeRepository struct {
	db *sql.DB
}

func NewOptimalTimeRepository(db *sql.DB) OptimalTimeRepository {
	return &optimalTimeRepository{db: db}
}

func (r *optimalTimeRepository) Upsert(ctx context.Context, slot *models.OptimalTimeSlot) error {
	query := `
		INSERT INTO optimal_time_slots (account_id, weekday, hour, score, confidence, sample_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, weekday, hour) DO UPDATE SET
			score = EXCLUDED.score,
			confidence = EXCLUDED.confidence,
			sample_size = EXCLUDED.sample_size,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, slot.AccountID, slot.Weekday, slot.Hour,
		slot.Score, slot.Confidence, slot.SampleSize)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *optimalTimeRepository) ListByAccount(ctx context.Context, accountID int64) ([]*models.OptimalTimeSlot, error) {
	query := `
		SELECT id, account_id, weekday, hour, score, confidence, sample_size, updated_at
		FROM optimal_time_slots
		WHERE account_id = $1
		ORDER BY score DESC, weekday, hour
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var slots []*models.OptimalTimeSlot
	for rows.Next() {
		var s models.OptimalTimeSlot
		err := rows.Scan(&s.ID, &s.AccountID, &s.Weekday, &s.Hour, &s.Score,
			&s.Confidence, &s.SampleSize, &s.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		slots = append(slots, &s)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return slots, nil
}

// DeleteByAccount clears stale slots before a full recompute writes the new
// set, so buckets that lost all samples don't linger.
func (r *optimalTimeRepository) DeleteByAccount(ctx context.Context, accountID int64) error {
	query := `DELETE FROM optimal_time_slots WHERE account_id = $1`
	_, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
