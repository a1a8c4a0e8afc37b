package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeResumePurge = "resume:purge-object"
)

// ResumePurgePayload 描述删除简历时未能同步清理的存储对象。
type ResumePurgePayload struct {
	ObjectKey     string `json:"object_key"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumePurgeTask 构造一个对象清理任务，最多重试 5 次。
func NewResumePurgeTask(objectKey, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumePurgePayload{
		ObjectKey:     objectKey,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumePurge, payload, asynq.MaxRetry(5)), nil
}
