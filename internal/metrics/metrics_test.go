package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type stubGenerator struct{ err error }

func (s stubGenerator) Generate(context.Context, string) (string, error) { return "{}", s.err }

func TestInstrumentGenerator_PassesThrough(t *testing.T) {
	before := testutil.CollectAndCount(modelLatency)

	out, err := InstrumentGenerator(stubGenerator{}).Generate(context.Background(), "p")
	assert.NoError(t, err)
	assert.Equal(t, "{}", out)

	_, err = InstrumentGenerator(stubGenerator{err: errors.New("x")}).Generate(context.Background(), "p")
	assert.Error(t, err)

	assert.GreaterOrEqual(t, testutil.CollectAndCount(modelLatency), before)
}

func TestObserveExtraction(t *testing.T) {
	before := testutil.ToFloat64(extractionsTotal.WithLabelValues("generative", "too_short"))
	ObserveExtraction("generative", "too_short")
	assert.Equal(t, before+1, testutil.ToFloat64(extractionsTotal.WithLabelValues("generative", "too_short")))
}

func TestGinMiddleware_LabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/api/applications/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/applications/123", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/applications/:id", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "4xx")))
	assert.Zero(t, testutil.ToFloat64(httpInFlight))
}

func TestAsynqMetricsMiddleware_RecordsResults(t *testing.T) {
	handler := func(err error) asynq.Handler {
		return AsynqMetricsMiddleware()(asynq.HandlerFunc(func(context.Context, *asynq.Task) error { return err }))
	}
	task := asynq.NewTask("test:metrics", nil)

	okBefore := testutil.ToFloat64(taskResultsTotal.WithLabelValues("test:metrics", "ok"))
	skipBefore := testutil.ToFloat64(taskResultsTotal.WithLabelValues("test:metrics", "skipped"))
	retryBefore := testutil.ToFloat64(taskResultsTotal.WithLabelValues("test:metrics", "retry"))

	assert.NoError(t, handler(nil).ProcessTask(context.Background(), task))
	assert.Error(t, handler(fmt.Errorf("bad payload: %w", asynq.SkipRetry)).ProcessTask(context.Background(), task))
	assert.Error(t, handler(errors.New("storage down")).ProcessTask(context.Background(), task))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(taskResultsTotal.WithLabelValues("test:metrics", "ok")))
	assert.Equal(t, skipBefore+1, testutil.ToFloat64(taskResultsTotal.WithLabelValues("test:metrics", "skipped")))
	assert.Equal(t, retryBefore+1, testutil.ToFloat64(taskResultsTotal.WithLabelValues("test:metrics", "retry")))
	assert.Zero(t, testutil.ToFloat64(tasksRunning.WithLabelValues("test:metrics")))
}
