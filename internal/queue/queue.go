package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Client wraps the asynq client behind the enqueue operations the services
// need. Delayed delivery is how both scheduling and retry backoff happen.
type Client struct {
	asynq *asynq.Client
}

func NewClient(asynqClient *asynq.Client) *Client {
	return &Client{asynq: asynqClient}
}

func (c *Client) EnqueuePost(ctx context.Context, postID int64, delay time.Duration) error {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, payload)
	if _, err := c.asynq.EnqueueContext(ctx, task, asynq.ProcessIn(delay)); err != nil {
		return err
	}

	slog.Info("publish task enqueued", "post_id", postID, "delay", delay.String())
	return nil
}

func (c *Client) EnqueueTarget(ctx context.Context, attemptID int64, delay time.Duration) error {
	payload, err := json.Marshal(PublishTargetPayload{AttemptID: attemptID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishTarget, payload)
	if _, err := c.asynq.EnqueueContext(ctx, task, asynq.ProcessIn(delay)); err != nil {
		return err
	}

	slog.Info("target retry enqueued", "attempt_id", attemptID, "delay", delay.String())
	return nil
}
