package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platforms"
	"github.com/maheshrc27/socialflow/internal/repository"
)

const maxPublishAttempts = 3

// retryDelays is the backoff ladder for transient target failures, indexed by
// the attempt that just failed.
var retryDelays = []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute}

// PublishQueue is the slice of the task queue the publishing services need.
type PublishQueue interface {
	EnqueuePost(ctx context.Context, postID int64, delay time.Duration) error
	EnqueueTarget(ctx context.Context, attemptID int64, delay time.Duration) error
}

type PublishService interface {
	PublishPost(ctx context.Context, postID int64) error
	PublishTarget(ctx context.Context, attemptID int64) error
}

type publishService struct {
	posts       repository.PostRepository
	attempts    repository.PublishAttemptRepository
	accounts    repository.PlatformAccountRepository
	media       repository.MediaAssetRepository
	credentials CredentialService
	registry    *platforms.Registry
	queue       PublishQueue
}

func NewPublishService(
	posts repository.PostRepository,
	attempts repository.PublishAttemptRepository,
	accounts repository.PlatformAccountRepository,
	media repository.MediaAssetRepository,
	credentials CredentialService,
	registry *platforms.Registry,
	queue PublishQueue) PublishService {
	return &publishService{
		posts:       posts,
		attempts:    attempts,
		accounts:    accounts,
		media:       media,
		credentials: credentials,
		registry:    registry,
		queue:       queue,
	}
}

// PublishPost claims a due post and fans its targets out in parallel. Losing
// the claim to a terminal post means another worker (or a rescheduling user)
// got there first, and the task is dropped without error. A post already in
// publishing is a run that died mid-flight; its remaining targets are driven
// again, which is safe because each target has its own claim.
func (s *publishService) PublishPost(ctx context.Context, postID int64) error {
	won, err := s.posts.ClaimForPublishing(ctx, postID)
	if err != nil {
		return err
	}
	if !won {
		post, err := s.posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if post == nil || post.Status != models.PostStatusPublishing {
			slog.Info("post not claimable, skipping", "post_id", postID)
			return nil
		}
		slog.Info("resuming in-flight post", "post_id", postID)
	}

	targets, err := s.attempts.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 10)

	for _, target := range targets {
		if target.Status != models.AttemptStatusPending {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(attemptID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.PublishTarget(ctx, attemptID); err != nil {
				slog.Info(err.Error(), "attempt_id", attemptID)
			}
		}(target.ID)
	}

	wg.Wait()

	return s.recomputePostStatus(ctx, postID)
}

// PublishTarget pushes one (post, account) target through a single attempt.
// Already-published and terminally-failed targets are no-ops, which makes
// redelivered tasks harmless.
func (s *publishService) PublishTarget(ctx context.Context, attemptID int64) error {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt == nil {
		slog.Info("publish attempt not found, skipping", "attempt_id", attemptID)
		return nil
	}
	if attempt.Status == models.AttemptStatusPublished {
		slog.Info("target already published", "attempt_id", attemptID,
			"platform_content_id", attempt.PlatformContentID.String)
		return nil
	}
	if attempt.Status == models.AttemptStatusFailed {
		return nil
	}

	won, err := s.attempts.ClaimForPublishing(ctx, attemptID)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	attemptNumber := attempt.AttemptCount + 1

	content, platform, err := s.buildContent(ctx, attempt)
	if err != nil {
		return s.finishFailed(ctx, attempt, err.Error())
	}

	adapter, ok := s.registry.Adapter(platform)
	if !ok {
		return s.finishFailed(ctx, attempt, fmt.Sprintf("unknown platform: %s", platform))
	}

	if err := platforms.PrepareContent(platform, adapter.Config().Constraints, content); err != nil {
		// Constraint violations can never succeed on retry.
		return s.finishFailed(ctx, attempt, err.Error())
	}

	var contentID string
	err = s.credentials.WithSession(ctx, attempt.AccountID, func(a platforms.Adapter, session platforms.Session) error {
		id, err := a.Publish(ctx, session, content)
		if err != nil {
			return err
		}
		contentID = id
		return nil
	})

	if err == nil {
		if err := s.attempts.MarkPublished(ctx, attemptID, contentID, time.Now()); err != nil {
			return err
		}
		return s.recomputePostStatus(ctx, attempt.PostID)
	}

	pubErr := platforms.AsPublishError(platform, err)
	if recErr := s.accounts.SetLastError(ctx, attempt.AccountID, pubErr.Message); recErr != nil {
		slog.Info(recErr.Error())
	}

	if !pubErr.Transient || attemptNumber >= maxPublishAttempts {
		return s.finishFailed(ctx, attempt, pubErr.Error())
	}

	// Transient and retries left: back to pending, claimed again after the
	// backoff delay.
	if err := s.attempts.MarkRetryable(ctx, attemptID, pubErr.Error()); err != nil {
		return err
	}

	delay := retryDelays[len(retryDelays)-1]
	if attemptNumber-1 < len(retryDelays) {
		delay = retryDelays[attemptNumber-1]
	}
	if err := s.queue.EnqueueTarget(ctx, attemptID, delay); err != nil {
		slog.Info(err.Error(), "attempt_id", attemptID)
		return s.finishFailed(ctx, attempt, pubErr.Error())
	}

	slog.Info("publish attempt will retry", "attempt_id", attemptID, "attempt", attemptNumber, "delay", delay.String())
	return nil
}

func (s *publishService) finishFailed(ctx context.Context, attempt *models.PublishAttempt, errMsg string) error {
	if err := s.attempts.MarkFailed(ctx, attempt.ID, errMsg); err != nil {
		return err
	}
	return s.recomputePostStatus(ctx, attempt.PostID)
}

func (s *publishService) buildContent(ctx context.Context, attempt *models.PublishAttempt) (*platforms.Content, string, error) {
	post, err := s.posts.GetByID(ctx, attempt.PostID)
	if err != nil {
		return nil, "", err
	}
	if post == nil {
		return nil, "", fmt.Errorf("post %d not found", attempt.PostID)
	}

	account, err := s.accounts.GetByID(ctx, attempt.AccountID)
	if err != nil {
		return nil, "", err
	}
	if account == nil {
		return nil, "", fmt.Errorf("account %d not found", attempt.AccountID)
	}

	assets, err := s.media.ListByPostID(ctx, attempt.PostID)
	if err != nil {
		return nil, "", err
	}

	content := &platforms.Content{
		Title: post.Title,
		Text:  post.Caption,
	}
	for _, asset := range assets {
		content.Media = append(content.Media, platforms.MediaItem{
			URL:       asset.FileURL,
			MIME:      asset.FileType,
			SizeBytes: asset.FileSize,
			Width:     asset.Width,
			Height:    asset.Height,
		})
	}

	return content, account.Platform, nil
}

// recomputePostStatus derives the aggregate post status from its targets.
// The post stays publishing while any target is in flight; once all targets
// are terminal it lands on published, failed or partially_failed.
func (s *publishService) recomputePostStatus(ctx context.Context, postID int64) error {
	targets, err := s.attempts.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	var published, failed int
	for _, t := range targets {
		switch t.Status {
		case models.AttemptStatusPublished:
			published++
		case models.AttemptStatusFailed:
			failed++
		default:
			return nil
		}
	}

	status := models.PostStatusPartiallyFailed
	switch {
	case failed == 0:
		status = models.PostStatusPublished
	case published == 0:
		status = models.PostStatusFailed
	}

	return s.posts.UpdateStatus(ctx, postID, status)
}
