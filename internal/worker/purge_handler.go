package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"careerVault/internal/tasks"
)

type objectDeleter interface {
	DeleteObject(ctx context.Context, objectKey string) error
}

// PurgeTaskHandler 消费 resume:purge-object 任务，重试删除 API 进程未能删除的简历文件。
type PurgeTaskHandler struct {
	storage objectDeleter
	logger  *slog.Logger
}

// NewPurgeTaskHandler 创建任务处理器。
func NewPurgeTaskHandler(storage objectDeleter, logger *slog.Logger) *PurgeTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PurgeTaskHandler{storage: storage, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *PurgeTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ResumePurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("object_key", payload.ObjectKey),
	)

	if strings.TrimSpace(payload.ObjectKey) == "" {
		log.Warn("empty object key, skipping task")
		return nil
	}

	if err := h.storage.DeleteObject(ctx, payload.ObjectKey); err != nil {
		if isFinalAsynqAttempt(ctx) {
			log.Error("purge object gave up, object is orphaned", slog.Any("error", err))
		} else {
			log.Warn("purge object failed, will retry", slog.Any("error", err))
		}
		return err
	}

	log.Info("orphaned resume object purged")
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return false
	}
	return retryCount >= maxRetry
}
