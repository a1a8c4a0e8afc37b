package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"careerVault/internal/api/middleware"
	"careerVault/internal/database"
	"careerVault/internal/storage"
	"careerVault/internal/tasks"
)

const signedURLTTL = 300 * time.Second

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ResumeHandler 负责简历 PDF 的上传、列表、删除与预签名下载。
type ResumeHandler struct {
	db       *gorm.DB
	storage  storage.Store
	queue    taskEnqueuer
	scanner  virusScanner
	maxBytes int64
	now      func() time.Time
}

// NewResumeHandler 构造 ResumeHandler。queue 与 scanner 可为空。
func NewResumeHandler(db *gorm.DB, store storage.Store, queue taskEnqueuer, scanner virusScanner, maxBytes int64) *ResumeHandler {
	return &ResumeHandler{
		db:       db,
		storage:  store,
		queue:    queue,
		scanner:  scanner,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

type resumeItem struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	FileURL    string    `json:"file_url"`
	UploadedAt time.Time `json:"uploaded_at"`
	PageCount  int       `json:"page_count"`
}

func newResumeItem(r database.Resume) resumeItem {
	return resumeItem{
		ID:         r.ID,
		Filename:   r.Filename,
		FileURL:    r.FileURL,
		UploadedAt: r.UploadedAt,
		PageCount:  r.PageCount,
	}
}

// UploadResume 接收 multipart 字段 file，仅允许 .pdf。
func (h *ResumeHandler) UploadResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	log := middleware.LoggerFromContext(c)

	file, err := c.FormFile("file")
	if err != nil || strings.TrimSpace(file.Filename) == "" {
		BadRequest(c, "No file uploaded")
		return
	}

	filename := filepath.Base(strings.ReplaceAll(file.Filename, "\\", "/"))
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		BadRequest(c, "Only PDF files allowed")
		return
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		BadRequest(c, "File too large")
		return
	}

	if h.scanner != nil {
		reader, err := file.Open()
		if err != nil {
			Internal(c, "Failed to read upload")
			return
		}
		scanErr := h.scanner.Scan(reader)
		reader.Close()
		if errors.Is(scanErr, errMaliciousFile) {
			log.Warn("malicious upload rejected", slog.String("filename", filename))
			BadRequest(c, "Malicious file detected")
			return
		}
		if scanErr != nil {
			log.Error("scan file", slog.Any("error", scanErr))
			Internal(c, "Failed to scan file")
			return
		}
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "Failed to read upload")
		return
	}
	defer reader.Close()

	pageCount := countPDFPages(reader, file.Size)

	ctx := c.Request.Context()
	objectKey := storage.ResumeObjectKey(userID, filename, h.now())
	if _, err := h.storage.UploadFile(ctx, objectKey, reader, file.Size, "application/pdf"); err != nil {
		log.Error("upload resume", slog.String("object_key", objectKey), slog.Any("error", err))
		Internal(c, "Failed to upload to storage")
		return
	}

	resume := database.Resume{
		UserID:    userID,
		ObjectKey: objectKey,
		Filename:  filename,
		FileURL:   h.storage.ObjectURL(objectKey),
		SizeBytes: file.Size,
		PageCount: pageCount,
	}
	if err := h.db.WithContext(ctx).Create(&resume).Error; err != nil {
		log.Error("create resume row", slog.Any("error", err))
		if delErr := h.storage.DeleteObject(ctx, objectKey); delErr != nil {
			h.enqueuePurge(c, objectKey)
		}
		Internal(c, "Failed to save resume")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Resume uploaded",
		"resume":  newResumeItem(resume),
	})
}

// ListResumes 返回当前用户的简历，最新上传在前。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var resumes []database.Resume
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Find(&resumes).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list resumes", slog.Any("error", err))
		Internal(c, "Failed to list resumes")
		return
	}

	items := make([]resumeItem, 0, len(resumes))
	for _, r := range resumes {
		items = append(items, newResumeItem(r))
	}
	c.JSON(http.StatusOK, items)
}

// DeleteResume 删除简历记录；存储删除失败只记录日志并交给 worker 重试。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, ok := h.ownedResume(c, userID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c)

	if err := h.storage.DeleteObject(ctx, resume.ObjectKey); err != nil {
		log.Warn("delete resume object failed", slog.String("object_key", resume.ObjectKey), slog.Any("error", err))
		h.enqueuePurge(c, resume.ObjectKey)
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.JobApplication{}).
			Where("resume_used = ?", resume.ID).
			Update("resume_used", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&database.Resume{}, "id = ?", resume.ID).Error
	})
	if err != nil {
		log.Error("delete resume row", slog.Any("error", err))
		Internal(c, "Failed to delete resume")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Resume deleted successfully."})
}

// GetSignedURL 返回 300 秒有效的预签名下载链接。
func (h *ResumeHandler) GetSignedURL(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, ok := h.ownedResume(c, userID)
	if !ok {
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), resume.ObjectKey, signedURLTTL)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate presigned url", slog.Any("error", err))
		Internal(c, "Failed to generate signed URL")
		return
	}

	c.JSON(http.StatusOK, gin.H{"signed_url": signedURL})
}

// ownedResume 加载路径参数 id 指定的简历并校验归属，失败时已写出响应。
func (h *ResumeHandler) ownedResume(c *gin.Context, userID uuid.UUID) (*database.Resume, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "Invalid resume id")
		return nil, false
	}

	var resume database.Resume
	if err := h.db.WithContext(c.Request.Context()).First(&resume, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Resume not found")
			return nil, false
		}
		middleware.LoggerFromContext(c).Error("query resume", slog.Any("error", err))
		Internal(c, "Failed to query resume")
		return nil, false
	}

	if resume.UserID != userID {
		Forbidden(c, "Unauthorized")
		return nil, false
	}
	return &resume, true
}

func (h *ResumeHandler) enqueuePurge(c *gin.Context, objectKey string) {
	if h.queue == nil {
		return
	}
	log := middleware.LoggerFromContext(c)

	task, err := tasks.NewResumePurgeTask(objectKey, middleware.GetCorrelationID(c))
	if err != nil {
		log.Error("build purge task", slog.Any("error", err))
		return
	}
	if _, err := h.queue.EnqueueContext(c.Request.Context(), task); err != nil {
		log.Error("enqueue purge task", slog.String("object_key", objectKey), slog.Any("error", err))
	}
}
