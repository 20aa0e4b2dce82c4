package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/socialflow/internal/service"
)

// Worker dispatches queue tasks to the publish service. Publish operations
// are idempotent on redelivery, so tasks never need dedup on this side.
type Worker struct {
	publisher service.PublishService
}

func NewWorker(publisher service.PublishService) *Worker {
	return &Worker{publisher: publisher}
}

func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return w.publisher.PublishPost(ctx, payload.PostID)
}

func (w *Worker) HandlePublishTargetTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishTargetPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return w.publisher.PublishTarget(ctx, payload.AttemptID)
}
