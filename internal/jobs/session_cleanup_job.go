package job

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/socialflow/internal/service"
)

// SessionCleanupJob sweeps authorization sessions that were started but never
// completed. Completed ones are already gone; only abandoned rows remain.
type SessionCleanupJob struct {
	oauth service.OAuthService
}

func NewSessionCleanupJob(oauth service.OAuthService) *SessionCleanupJob {
	return &SessionCleanupJob{oauth: oauth}
}

func (j *SessionCleanupJob) Cleanup() {
	n, err := j.oauth.CleanupSessions(context.Background())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if n > 0 {
		slog.Info("expired oauth sessions removed", "count", n)
	}
}
