package platforms

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidState is returned when a callback presents a state token with
	// no live session behind it (replay or forgery).
	ErrInvalidState = errors.New("oauth state is invalid or already used")

	// ErrExpiredState is returned when the session existed but outlived its
	// 10 minute window.
	ErrExpiredState = errors.New("oauth state has expired")

	// ErrRateLimited marks a 429 from the platform. The token is still good;
	// the caller must back off until a later tick.
	ErrRateLimited = errors.New("platform rate limit hit")
)

// ConfigurationError means the platform has no usable client credentials.
type ConfigurationError struct {
	Platform string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("platform %s is not configured", e.Platform)
}

// RefreshFailedError means the provider rejected a token refresh. The account
// is marked expired and the stale token must not be reused.
type RefreshFailedError struct {
	Platform string
	Err      error
}

func (e *RefreshFailedError) Error() string {
	return fmt.Sprintf("token refresh failed for %s: %v", e.Platform, e.Err)
}

func (e *RefreshFailedError) Unwrap() error { return e.Err }

// PublishError is a failed publish call, classified transient or permanent.
// Transient failures (network, 5xx, 429) are retried with backoff; permanent
// ones (content rejected, revoked token) terminate the target immediately.
type PublishError struct {
	Platform  string
	Code      int
	Message   string
	Transient bool
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s failed (%d): %s", e.Platform, e.Code, e.Message)
}

// SyncError wraps one account's or post's analytics fetch failure so a batch
// can log it and keep going.
type SyncError struct {
	Platform string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("analytics sync failed for %s: %v", e.Platform, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from a platform API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API returned %d: %s", e.StatusCode, e.Body)
}

// IsTransient reports whether err is worth an automatic retry. Network-level
// errors (no APIError in the chain) count as transient.
func IsTransient(err error) bool {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusTooManyRequests || ae.StatusCode >= 500
	}
	return true
}

// AsPublishError converts any adapter failure into a classified PublishError.
func AsPublishError(platform string, err error) *PublishError {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return &PublishError{
			Platform:  platform,
			Code:      ae.StatusCode,
			Message:   ae.Body,
			Transient: ae.StatusCode == http.StatusTooManyRequests || ae.StatusCode >= 500,
		}
	}
	return &PublishError{Platform: platform, Message: err.Error(), Transient: true}
}
