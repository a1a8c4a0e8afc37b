package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"careerVault/internal/api/middleware"
	"careerVault/internal/auth"
	"careerVault/internal/config"
	"careerVault/internal/database"
	"careerVault/internal/extract"
	"careerVault/internal/storage"
)

type fakeStorage struct {
	uploaded map[string][]byte
	deleted  []string

	failUpload bool
	failDelete bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectKey string, reader io.Reader, size int64, _ string) (*storage.UploadResult, error) {
	if s.failUpload {
		return nil, errors.New("bucket unavailable")
	}
	b, _ := io.ReadAll(reader)
	s.uploaded[objectKey] = b
	return &storage.UploadResult{Key: objectKey, Size: size}, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	if s.failDelete {
		return errors.New("bucket unavailable")
	}
	s.deleted = append(s.deleted, objectKey)
	delete(s.uploaded, objectKey)
	return nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://signed.example.invalid/" + objectKey + "?X-Amz-Expires=300", nil
}

func (s *fakeStorage) ObjectURL(objectKey string) string {
	return "https://career-vault.s3.amazonaws.com/" + objectKey
}

type fakeQueue struct {
	tasks []*asynq.Task
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type fakeVerifier struct {
	identity auth.Identity
	err      error
}

func (v fakeVerifier) Verify(context.Context, string) (auth.Identity, error) {
	return v.identity, v.err
}

type fakeExtractor struct {
	result extract.Result
	err    error
	calls  int
}

func (e *fakeExtractor) Extract(context.Context, string) (extract.Result, error) {
	e.calls++
	return e.result, e.err
}

// fakeRateCounter 在内存中模拟 INCR/EXPIRE NX。
type fakeRateCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeRateCounter() *fakeRateCounter {
	return &fakeRateCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeRateCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeRateCounter) ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if _, ok := f.expires[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.expires[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) database.User {
	t.Helper()
	user := database.User{Email: email, Name: "Test User"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func newMultipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// newTestRouter 以与生产相同的中间件链组装路由。
func newTestRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()
	return newTestRouterWithConfig(t, &config.Config{CORS: config.CORSConfig{AllowedOrigins: "http://localhost:3000"}}, deps)
}

func newTestRouterWithConfig(t *testing.T, cfg *config.Config, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := NewRouter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	RegisterRoutes(router, deps)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if email != "" {
		req.Header.Set(middleware.UserEmailHeader, email)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}
