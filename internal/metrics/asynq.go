package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	taskResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careervault",
			Subsystem: "worker",
			Name:      "tasks_total",
			Help:      "Background tasks handled, by type and result (ok, retry, skipped).",
		},
		[]string{"task_type", "result"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "careervault",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "Time spent handling one background task.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	tasksRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "careervault",
			Subsystem: "worker",
			Name:      "tasks_running",
			Help:      "Background tasks currently being handled.",
		},
		[]string{"task_type"},
	)
)

// AsynqMetricsMiddleware 记录 worker 任务的结果、耗时与并发数。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			taskType := task.Type()
			tasksRunning.WithLabelValues(taskType).Inc()
			defer tasksRunning.WithLabelValues(taskType).Dec()

			start := time.Now()
			err := next.ProcessTask(ctx, task)
			taskDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
			taskResultsTotal.WithLabelValues(taskType, taskResult(err)).Inc()
			return err
		})
	}
}

func taskResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, asynq.SkipRetry):
		return "skipped"
	default:
		return "retry"
	}
}
