package job

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/socialflow/internal/service"
)

// TokenRefreshJob renews tokens approaching expiry so publishes and syncs
// rarely pay the refresh cost inline.
type TokenRefreshJob struct {
	credentials service.CredentialService
}

func NewTokenRefreshJob(credentials service.CredentialService) *TokenRefreshJob {
	return &TokenRefreshJob{credentials: credentials}
}

func (j *TokenRefreshJob) RefreshTokens() {
	if err := j.credentials.RefreshExpiring(context.Background()); err != nil {
		slog.Info(err.Error())
	}
}
