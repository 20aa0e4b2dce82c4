package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platforms"
)

type publishFixture struct {
	adapter  *fakeAdapter
	posts    *fakePostRepo
	attempts *fakeAttemptRepo
	accounts *fakeAccountRepo
	media    *fakeMediaRepo
	queue    *fakeQueue
	service  PublishService
}

func newPublishFixture(t *testing.T) *publishFixture {
	t.Helper()

	adapter := newFakeAdapter(platforms.PlatformTwitter)
	posts := newFakePostRepo()
	attempts := newFakeAttemptRepo()
	accounts := newFakeAccountRepo()
	media := newFakeMediaRepo()
	queue := &fakeQueue{}

	registry := platforms.New(adapter)
	credentials := NewCredentialService(registry, accounts, testSecretKey)

	return &publishFixture{
		adapter:  adapter,
		posts:    posts,
		attempts: attempts,
		accounts: accounts,
		media:    media,
		queue:    queue,
		service:  NewPublishService(posts, attempts, accounts, media, credentials, registry, queue),
	}
}

// seedTarget creates a scheduled post, an active account and a pending
// attempt wiring them together.
func (f *publishFixture) seedTarget(t *testing.T) (*models.Post, *models.PublishAttempt) {
	t.Helper()

	post := f.posts.add(&models.Post{
		SiteID:        1,
		UserID:        1,
		PostType:      "text",
		Caption:       "hello world",
		ScheduledTime: time.Now().Add(-time.Minute),
		Status:        models.PostStatusPublishing,
	})
	account := f.accounts.add(activeAccount(t, platforms.PlatformTwitter, time.Hour))
	attempt := f.attempts.add(&models.PublishAttempt{
		PostID:    post.ID,
		AccountID: account.ID,
		Status:    models.AttemptStatusPending,
	})
	return post, attempt
}

func TestPublishTarget(t *testing.T) {
	ctx := context.Background()

	t.Run("success marks published", func(t *testing.T) {
		f := newPublishFixture(t)
		post, attempt := f.seedTarget(t)

		if err := f.service.PublishTarget(ctx, attempt.ID); err != nil {
			t.Fatalf("PublishTarget() error = %v", err)
		}

		got, _ := f.attempts.GetByID(ctx, attempt.ID)
		if got.Status != models.AttemptStatusPublished {
			t.Errorf("attempt status = %q, want published", got.Status)
		}
		if !got.PlatformContentID.Valid || got.PlatformContentID.String != "content-1" {
			t.Errorf("content id = %v, want content-1", got.PlatformContentID)
		}
		if got.AttemptCount != 1 {
			t.Errorf("attempt count = %d, want 1", got.AttemptCount)
		}

		gotPost, _ := f.posts.GetByID(ctx, post.ID)
		if gotPost.Status != models.PostStatusPublished {
			t.Errorf("post status = %q, want published", gotPost.Status)
		}
	})

	t.Run("published target is a no-op", func(t *testing.T) {
		f := newPublishFixture(t)
		_, attempt := f.seedTarget(t)
		attempt.Status = models.AttemptStatusPublished
		attempt.PlatformContentID = sql.NullString{String: "content-existing", Valid: true}

		if err := f.service.PublishTarget(ctx, attempt.ID); err != nil {
			t.Fatalf("PublishTarget() error = %v", err)
		}
		if f.adapter.publishCalls != 0 {
			t.Errorf("publish calls = %d, want 0", f.adapter.publishCalls)
		}

		got, _ := f.attempts.GetByID(ctx, attempt.ID)
		if got.PlatformContentID.String != "content-existing" {
			t.Errorf("content id = %q, want the existing one untouched", got.PlatformContentID.String)
		}
	})

	t.Run("missing attempt is a no-op", func(t *testing.T) {
		f := newPublishFixture(t)
		if err := f.service.PublishTarget(ctx, 999); err != nil {
			t.Fatalf("PublishTarget() error = %v", err)
		}
	})

	t.Run("transient failure schedules retry", func(t *testing.T) {
		f := newPublishFixture(t)
		_, attempt := f.seedTarget(t)
		f.adapter.publishFn = func(s platforms.Session, c *platforms.Content) (string, error) {
			return "", &platforms.APIError{StatusCode: http.StatusBadGateway, Body: "upstream"}
		}

		if err := f.service.PublishTarget(ctx, attempt.ID); err != nil {
			t.Fatalf("PublishTarget() error = %v", err)
		}

		got, _ := f.attempts.GetByID(ctx, attempt.ID)
		if got.Status != models.AttemptStatusPending {
			t.Errorf("attempt status = %q, want pending for retry", got.Status)
		}
		if got.AttemptCount != 1 {
			t.Errorf("attempt count = %d, want 1", got.AttemptCount)
		}
		if !got.LastError.Valid {
			t.Error("last error should be recorded")
		}

		if len(f.queue.targets) != 1 {
			t.Fatalf("enqueued targets = %d, want 1", len(f.queue.targets))
		}
		if f.queue.targets[0].delay != time.Minute {
			t.Errorf("retry delay = %v, want 1m after first failure", f.queue.targets[0].delay)
		}
	})

	t.Run("second failure backs off longer", func(t *testing.T) {
		f := newPublishFixture(t)
		_, attempt := f.seedTarget(t)
		attempt.AttemptCount = 1
		f.adapter.publishFn = func(s platforms.Session, c *platforms.Content) (string, error) {
			return "", &platforms.APIError{StatusCode: http.StatusBadGateway}
		}

		if err := f.service.PublishTarget(ctx, attempt.ID); err != nil {
			t.Fatalf("PublishTarget() error = %v", err)
		}

		if len(f.queue.targets) != 1 {
			t.Fatalf("enqueued targets = %d, want 1", len(f.queue.targets))
		}
		if f.queue.targets[0].delay != 5*time.Minute {
			t.Errorf("retry delay = %v, want 5m after second failure", f.queue.targets[0].delay)
		}
	})

	t.Run("transient failure on last attempt fails terminally", func(t *testing.T) {
		f := newPublishFixture(t)
		post, attempt := f.seedTarget(t)
		attempt.AttemptCount = maxPublishAttempts - 1
		f.adapter.publishFn = func(s platforms.Session, c *platforms.Content) (string, error) {
			return "", &platforms.APIError{StatusCode: http.StatusBadGateway}
		}

		if err := f.service.PublishTarget(ctx, attempt.ID); err != nil {
			t.Fatalf("PublishTarget() error = %v", err)
		}

		got, _ := f.attempts.GetByID(ctx, attempt.ID)
		if got.Status != models.AttemptStatusFailed {
			t.Errorf("attempt status = %q, want failed", got.Status)
		}
		if len(f.queue.targets) != 0 {
			t.Error("exhausted target should not be re-enqueued")
		}

		gotPost, _ := f.posts.GetByID(ctx, post.ID)
		if gotPost.Status != models.PostStatusFailed {
			t.Errorf("post status = %q, want failed", gotPost.Status)
		}
	})

	t.Run("permanent failure never retries", func(t *testing.T) {
		f := newPublishFixture(t)
		_, attempt := f.seedTarget(t)
		f.adapter.publishFn = func(s platforms.Session, c *platforms.Content) (string, error) {
			return "", &platforms.PublishError{Platform: platforms.PlatformTwitter, Code: 400, Message: "bad media"}
		}

		if err := f.service.PublishTarget(ctx, attempt.ID); err != nil {
			t.Fatalf("PublishTarget() error = %v", err)
		}

		got, _ := f.attempts.GetByID(ctx, attempt.ID)
		if got.Status != models.AttemptStatusFailed {
			t.Errorf("attempt status = %q, want failed", got.Status)
		}
		if len(f.queue.targets) != 0 {
			t.Error("permanent failure should not be re-enqueued")
		}
	})

	t.Run("failure records account error", func(t *testing.T) {
		f := newPublishFixture(t)
		_, attempt := f.seedTarget(t)
		f.adapter.publishFn = func(s platforms.Session, c *platforms.Content) (string, error) {
			return "", &platforms.PublishError{Platform: platforms.PlatformTwitter, Code: 403, Message: "forbidden"}
		}

		if err := f.service.PublishTarget(ctx, attempt.ID); err != nil {
			t.Fatalf("PublishTarget() error = %v", err)
		}

		account, _ := f.accounts.GetByID(ctx, attempt.AccountID)
		if !account.LastError.Valid {
			t.Error("publish failure should be recorded on the account")
		}
	})

	t.Run("enqueue failure turns retry into terminal failure", func(t *testing.T) {
		f := newPublishFixture(t)
		_, attempt := f.seedTarget(t)
		f.adapter.publishFn = func(s platforms.Session, c *platforms.Content) (string, error) {
			return "", &platforms.APIError{StatusCode: http.StatusBadGateway}
		}
		broken := &brokenQueue{}
		f.service = NewPublishService(f.posts, f.attempts, f.accounts, f.media,
			NewCredentialService(platforms.New(f.adapter), f.accounts, testSecretKey),
			platforms.New(f.adapter), broken)

		if err := f.service.PublishTarget(ctx, attempt.ID); err != nil {
			t.Fatalf("PublishTarget() error = %v", err)
		}

		got, _ := f.attempts.GetByID(ctx, attempt.ID)
		if got.Status != models.AttemptStatusFailed {
			t.Errorf("attempt status = %q, want failed when retry cannot be queued", got.Status)
		}
	})
}

type brokenQueue struct{}

func (q *brokenQueue) EnqueuePost(ctx context.Context, postID int64, delay time.Duration) error {
	return errors.New("redis down")
}

func (q *brokenQueue) EnqueueTarget(ctx context.Context, attemptID int64, delay time.Duration) error {
	return errors.New("redis down")
}

func TestPublishPost(t *testing.T) {
	ctx := context.Background()

	t.Run("claims and publishes all targets", func(t *testing.T) {
		f := newPublishFixture(t)
		post := f.posts.add(&models.Post{
			SiteID:        1,
			UserID:        1,
			Caption:       "fan out",
			ScheduledTime: time.Now().Add(-time.Minute),
			Status:        models.PostStatusScheduled,
		})
		for i := 0; i < 3; i++ {
			account := f.accounts.add(activeAccount(t, platforms.PlatformTwitter, time.Hour))
			f.attempts.add(&models.PublishAttempt{
				PostID:    post.ID,
				AccountID: account.ID,
				Status:    models.AttemptStatusPending,
			})
		}

		if err := f.service.PublishPost(ctx, post.ID); err != nil {
			t.Fatalf("PublishPost() error = %v", err)
		}
		if f.adapter.publishCalls != 3 {
			t.Errorf("publish calls = %d, want 3", f.adapter.publishCalls)
		}

		got, _ := f.posts.GetByID(ctx, post.ID)
		if got.Status != models.PostStatusPublished {
			t.Errorf("post status = %q, want published", got.Status)
		}
	})

	t.Run("terminal post is a no-op", func(t *testing.T) {
		f := newPublishFixture(t)
		post, _ := f.seedTarget(t)
		post.Status = models.PostStatusPublished

		if err := f.service.PublishPost(ctx, post.ID); err != nil {
			t.Fatalf("PublishPost() error = %v", err)
		}
		if f.adapter.publishCalls != 0 {
			t.Errorf("publish calls = %d, want 0", f.adapter.publishCalls)
		}
	})

	t.Run("resumes post stuck in publishing", func(t *testing.T) {
		f := newPublishFixture(t)
		// A worker died after winning the post claim but before touching the
		// target: the post is publishing, the target still pending.
		post, attempt := f.seedTarget(t)

		if err := f.service.PublishPost(ctx, post.ID); err != nil {
			t.Fatalf("PublishPost() error = %v", err)
		}
		if f.adapter.publishCalls != 1 {
			t.Errorf("publish calls = %d, want 1", f.adapter.publishCalls)
		}

		got, _ := f.attempts.GetByID(ctx, attempt.ID)
		if got.Status != models.AttemptStatusPublished {
			t.Errorf("attempt status = %q, want published", got.Status)
		}
		gotPost, _ := f.posts.GetByID(ctx, post.ID)
		if gotPost.Status != models.PostStatusPublished {
			t.Errorf("post status = %q, want published", gotPost.Status)
		}
	})

	t.Run("mixed outcomes land on partially failed", func(t *testing.T) {
		f := newPublishFixture(t)
		post := f.posts.add(&models.Post{
			SiteID:        1,
			UserID:        1,
			Caption:       "mixed",
			ScheduledTime: time.Now().Add(-time.Minute),
			Status:        models.PostStatusScheduled,
		})
		good := f.accounts.add(activeAccount(t, platforms.PlatformTwitter, time.Hour))
		bad := f.accounts.add(activeAccount(t, platforms.PlatformTwitter, time.Hour))
		f.attempts.add(&models.PublishAttempt{PostID: post.ID, AccountID: good.ID, Status: models.AttemptStatusPending})
		f.attempts.add(&models.PublishAttempt{PostID: post.ID, AccountID: bad.ID, Status: models.AttemptStatusPending})

		// The failed target is already terminal; only the good one publishes.
		badAttempt, _ := f.attempts.GetByPostAndAccount(ctx, post.ID, bad.ID)
		if err := f.attempts.MarkFailed(ctx, badAttempt.ID, "unsupported media"); err != nil {
			t.Fatalf("MarkFailed() error = %v", err)
		}

		if err := f.service.PublishPost(ctx, post.ID); err != nil {
			t.Fatalf("PublishPost() error = %v", err)
		}

		got, _ := f.posts.GetByID(ctx, post.ID)
		if got.Status != models.PostStatusPartiallyFailed {
			t.Errorf("post status = %q, want partially_failed", got.Status)
		}
	})
}
