package queue

const (
	TaskTypePublishPost   = "publish:post"
	TaskTypePublishTarget = "publish:target"
)

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

type PublishTargetPayload struct {
	AttemptID int64 `json:"attempt_id"`
}
