package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"careerVault/internal/llm"
)

var (
	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careervault",
			Subsystem: "extractor",
			Name:      "extractions_total",
			Help:      "Job posting extractions by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)

	modelLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "careervault",
			Subsystem: "llm",
			Name:      "generate_duration_seconds",
			Help:      "Latency of generative model calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"result"},
	)
)

// ObserveExtraction 记录一次职位解析结果。
func ObserveExtraction(strategy, outcome string) {
	extractionsTotal.WithLabelValues(strategy, outcome).Inc()
}

type instrumentedGenerator struct {
	next llm.Generator
}

// InstrumentGenerator 为模型调用增加耗时直方图。
func InstrumentGenerator(next llm.Generator) llm.Generator {
	return instrumentedGenerator{next: next}
}

func (g instrumentedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := g.next.Generate(ctx, prompt)
	result := "ok"
	if err != nil {
		result = "error"
	}
	modelLatency.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return out, err
}
