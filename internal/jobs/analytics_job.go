package job

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/socialflow/internal/service"
)

// AnalyticsJob runs the daily metrics sweep: account snapshots first, then
// per-post metrics, then the optimal-time recompute that feeds off both.
type AnalyticsJob struct {
	analytics service.AnalyticsService
}

func NewAnalyticsJob(analytics service.AnalyticsService) *AnalyticsJob {
	return &AnalyticsJob{analytics: analytics}
}

func (j *AnalyticsJob) Sync() {
	ctx := context.Background()

	if err := j.analytics.SyncAccounts(ctx); err != nil {
		slog.Info(err.Error())
	}
	if err := j.analytics.SyncPosts(ctx); err != nil {
		slog.Info(err.Error())
	}
	if err := j.analytics.ComputeAllOptimalTimes(ctx); err != nil {
		slog.Info(err.Error())
	}
}
