package job

import (
	"context"
	"testing"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
)

// The embedded interfaces stay nil; only the overridden methods are called.
type stubPostRepo struct {
	repository.PostRepository
	due []*models.Post
}

func (r *stubPostRepo) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	return r.due, nil
}

type stubAttemptRepo struct {
	repository.PublishAttemptRepository
	stalePostIDs []int64
	gotCutoff    time.Time
}

func (r *stubAttemptRepo) ResetStale(ctx context.Context, cutoff time.Time) ([]int64, error) {
	r.gotCutoff = cutoff
	return r.stalePostIDs, nil
}

type recordingQueue struct {
	posts []int64
}

func (q *recordingQueue) EnqueuePost(ctx context.Context, postID int64, delay time.Duration) error {
	q.posts = append(q.posts, postID)
	return nil
}

func (q *recordingQueue) EnqueueTarget(ctx context.Context, attemptID int64, delay time.Duration) error {
	return nil
}

func TestTick(t *testing.T) {
	t.Run("enqueues due posts", func(t *testing.T) {
		posts := &stubPostRepo{due: []*models.Post{{ID: 1}, {ID: 2}}}
		queue := &recordingQueue{}
		j := NewSchedulerJob(posts, &stubAttemptRepo{}, queue)

		j.Tick()

		if len(queue.posts) != 2 {
			t.Fatalf("enqueued = %v, want posts 1 and 2", queue.posts)
		}
	})

	t.Run("re-dispatches posts with stale targets once each", func(t *testing.T) {
		attempts := &stubAttemptRepo{stalePostIDs: []int64{7, 7, 9}}
		queue := &recordingQueue{}
		j := NewSchedulerJob(&stubPostRepo{}, attempts, queue)

		j.Tick()

		if len(queue.posts) != 2 {
			t.Fatalf("enqueued = %v, want posts 7 and 9 once each", queue.posts)
		}
		seen := map[int64]bool{}
		for _, id := range queue.posts {
			if seen[id] {
				t.Errorf("post %d enqueued twice", id)
			}
			seen[id] = true
		}
		if !seen[7] || !seen[9] {
			t.Errorf("enqueued = %v, want posts 7 and 9", queue.posts)
		}

		if time.Since(attempts.gotCutoff) < stalePublishAge {
			t.Errorf("cutoff %v should be at least %v in the past", attempts.gotCutoff, stalePublishAge)
		}
	})
}
