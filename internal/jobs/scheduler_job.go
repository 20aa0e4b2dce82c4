package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/service"
)

// stalePublishAge is how long a target may sit in publishing before the tick
// treats its worker as dead. Normal attempts finish in seconds.
const stalePublishAge = 10 * time.Minute

// SchedulerJob is the safety net behind delayed queue tasks: every tick it
// looks for scheduled posts whose time has passed and enqueues them. Posts
// whose creation-time task was lost (or whose schedule was changed) get
// picked up here, and targets orphaned by a crashed worker are reset and
// re-dispatched. Double enqueues are harmless since the worker's claim
// update admits only one winner per target.
type SchedulerJob struct {
	posts    repository.PostRepository
	attempts repository.PublishAttemptRepository
	queue    service.PublishQueue
}

func NewSchedulerJob(posts repository.PostRepository, attempts repository.PublishAttemptRepository, queue service.PublishQueue) *SchedulerJob {
	return &SchedulerJob{posts: posts, attempts: attempts, queue: queue}
}

func (j *SchedulerJob) Tick() {
	ctx := context.Background()

	stale, err := j.attempts.ResetStale(ctx, time.Now().Add(-stalePublishAge))
	if err != nil {
		slog.Info(err.Error())
	} else {
		seen := make(map[int64]struct{}, len(stale))
		for _, postID := range stale {
			if _, ok := seen[postID]; ok {
				continue
			}
			seen[postID] = struct{}{}
			if err := j.queue.EnqueuePost(ctx, postID, 0); err != nil {
				slog.Info(err.Error(), "post_id", postID)
			}
		}
	}

	due, err := j.posts.ListDue(ctx, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, post := range due {
		if err := j.queue.EnqueuePost(ctx, post.ID, 0); err != nil {
			slog.Info(err.Error(), "post_id", post.ID)
		}
	}
}
