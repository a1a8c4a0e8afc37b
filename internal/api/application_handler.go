package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"careerVault/internal/api/middleware"
	"careerVault/internal/database"
)

// ApplicationHandler 负责投递记录的增删改查与统计。
type ApplicationHandler struct {
	db *gorm.DB
}

// NewApplicationHandler 构造 ApplicationHandler。
func NewApplicationHandler(db *gorm.DB) *ApplicationHandler {
	return &ApplicationHandler{db: db}
}

// optionalString 区分"字段缺省"、"显式 null"与"字符串值"，用于 PATCH。
type optionalString struct {
	Set   bool
	Null  bool
	Value string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

func (o optionalString) trimmed() string {
	return strings.TrimSpace(o.Value)
}

type applicationRequest struct {
	Title             optionalString `json:"title"`
	Company           optionalString `json:"company"`
	CompanyName       optionalString `json:"company_name"`
	JobType           optionalString `json:"job_type"`
	Location          optionalString `json:"location"`
	ApplicationURL    optionalString `json:"application_url"`
	ApplicationMethod optionalString `json:"application_method"`
	Description       optionalString `json:"description"`
	Status            optionalString `json:"status"`
	ResumeUsed        optionalString `json:"resume_used"`
}

// company 优先取 company，其次 company_name。
func (r applicationRequest) company() string {
	if v := r.Company.trimmed(); v != "" {
		return v
	}
	return r.CompanyName.trimmed()
}

type applicationItem struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Company           string     `json:"company"`
	JobType           string     `json:"job_type"`
	Location          string     `json:"location"`
	Status            string     `json:"status"`
	AppliedAt         time.Time  `json:"applied_at"`
	ApplicationURL    string     `json:"application_url"`
	ResumeUsed        *uuid.UUID `json:"resume_used"`
	ApplicationMethod string     `json:"application_method"`
}

type applicationDetail struct {
	applicationItem
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newApplicationItem(a database.JobApplication) applicationItem {
	return applicationItem{
		ID:                a.ID,
		Title:             a.Title,
		Company:           a.CompanyName,
		JobType:           a.JobType,
		Location:          a.Location,
		Status:            a.Status,
		AppliedAt:         a.AppliedAt,
		ApplicationURL:    a.ApplicationURL,
		ResumeUsed:        a.ResumeUsed,
		ApplicationMethod: a.ApplicationMethod,
	}
}

func newApplicationDetail(a database.JobApplication) applicationDetail {
	return applicationDetail{
		applicationItem: newApplicationItem(a),
		Description:     a.Description,
		UpdatedAt:       a.UpdatedAt,
	}
}

// ListApplications 返回当前用户的投递记录，最近投递在前。
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var apps []database.JobApplication
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("applied_at DESC").
		Find(&apps).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list applications", slog.Any("error", err))
		Internal(c, "Failed to list applications")
		return
	}

	items := make([]applicationItem, 0, len(apps))
	for _, a := range apps {
		items = append(items, newApplicationItem(a))
	}
	c.JSON(http.StatusOK, items)
}

// CreateApplication 新建投递记录，title 与 company 必填。
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req applicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid JSON body")
		return
	}

	title := req.Title.trimmed()
	company := req.company()
	if title == "" || company == "" {
		BadRequest(c, "Title and company are required.")
		return
	}

	app := database.JobApplication{
		UserID:            userID,
		Title:             title,
		CompanyName:       company,
		JobType:           req.JobType.trimmed(),
		Location:          req.Location.trimmed(),
		ApplicationURL:    req.ApplicationURL.trimmed(),
		ApplicationMethod: req.ApplicationMethod.trimmed(),
		Description:       req.Description.Value,
		Status:            req.Status.trimmed(),
	}
	if app.Status == "" {
		app.Status = database.DefaultApplicationStatus
	}

	if req.ResumeUsed.trimmed() != "" {
		resumeID, ok := h.ownedResumeID(c, userID, req.ResumeUsed.trimmed())
		if !ok {
			return
		}
		app.ResumeUsed = &resumeID
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&app).Error; err != nil {
		middleware.LoggerFromContext(c).Error("create application", slog.Any("error", err))
		Internal(c, "Failed to create application")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Application added successfully.",
		"application": newApplicationDetail(app),
	})
}

// GetApplication 返回单条投递记录（含 description）。
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	app, ok := h.ownedApplication(c, userID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newApplicationDetail(*app))
}

// UpdateApplication 局部更新：缺省字段保持原值，resume_used 为 null 时解除关联。
func (h *ApplicationHandler) UpdateApplication(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	app, ok := h.ownedApplication(c, userID)
	if !ok {
		return
	}

	var req applicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid JSON body")
		return
	}

	updates := map[string]any{}
	if req.Title.Set {
		if req.Title.trimmed() == "" {
			BadRequest(c, "Title cannot be empty.")
			return
		}
		updates["title"] = req.Title.trimmed()
	}
	if company := req.company(); company != "" {
		updates["company_name"] = company
	}
	setText := func(column string, v optionalString, trim bool) {
		if !v.Set {
			return
		}
		if trim {
			updates[column] = v.trimmed()
			return
		}
		updates[column] = v.Value
	}
	setText("job_type", req.JobType, true)
	setText("location", req.Location, true)
	setText("application_url", req.ApplicationURL, true)
	setText("application_method", req.ApplicationMethod, true)
	setText("description", req.Description, false)
	if status := req.Status.trimmed(); status != "" {
		updates["status"] = status
	}
	if req.ResumeUsed.Set {
		if req.ResumeUsed.Null || req.ResumeUsed.trimmed() == "" {
			updates["resume_used"] = nil
		} else {
			resumeID, ok := h.ownedResumeID(c, userID, req.ResumeUsed.trimmed())
			if !ok {
				return
			}
			updates["resume_used"] = resumeID
		}
	}

	ctx := c.Request.Context()
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(app).Updates(updates).Error; err != nil {
			middleware.LoggerFromContext(c).Error("update application", slog.Any("error", err))
			Internal(c, "Failed to update application")
			return
		}
	}

	var fresh database.JobApplication
	if err := h.db.WithContext(ctx).First(&fresh, "id = ?", app.ID).Error; err != nil {
		middleware.LoggerFromContext(c).Error("reload application", slog.Any("error", err))
		Internal(c, "Failed to load application")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Application updated successfully.",
		"application": newApplicationDetail(fresh),
	})
}

// DeleteApplication 删除投递记录。
func (h *ApplicationHandler) DeleteApplication(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	app, ok := h.ownedApplication(c, userID)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(&database.JobApplication{}, "id = ?", app.ID).Error; err != nil {
		middleware.LoggerFromContext(c).Error("delete application", slog.Any("error", err))
		Internal(c, "Failed to delete application")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Application deleted."})
}

type groupCount struct {
	GroupKey string
	Count    int64
}

// ApplicationStats 按状态与职位类型聚合当前用户的投递数量。
func (h *ApplicationHandler) ApplicationStats(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	count := func(column string) (map[string]int64, int64, error) {
		var rows []groupCount
		err := h.db.WithContext(ctx).
			Model(&database.JobApplication{}).
			Select(column+" AS group_key, COUNT(*) AS count").
			Where("user_id = ?", userID).
			Group(column).
			Scan(&rows).Error
		if err != nil {
			return nil, 0, err
		}
		out := make(map[string]int64, len(rows))
		var total int64
		for _, r := range rows {
			key := strings.TrimSpace(r.GroupKey)
			if key == "" {
				key = "Unknown"
			}
			out[key] += r.Count
			total += r.Count
		}
		return out, total, nil
	}

	byStatus, total, err := count("status")
	if err != nil {
		middleware.LoggerFromContext(c).Error("count by status", slog.Any("error", err))
		Internal(c, "Failed to compute stats")
		return
	}
	byJobType, _, err := count("job_type")
	if err != nil {
		middleware.LoggerFromContext(c).Error("count by job type", slog.Any("error", err))
		Internal(c, "Failed to compute stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":       total,
		"by_status":   byStatus,
		"by_job_type": byJobType,
	})
}

func (h *ApplicationHandler) ownedApplication(c *gin.Context, userID uuid.UUID) (*database.JobApplication, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "Invalid application id")
		return nil, false
	}

	var app database.JobApplication
	if err := h.db.WithContext(c.Request.Context()).First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Application not found")
			return nil, false
		}
		middleware.LoggerFromContext(c).Error("query application", slog.Any("error", err))
		Internal(c, "Failed to query application")
		return nil, false
	}

	if app.UserID != userID {
		Forbidden(c, "Unauthorized access.")
		return nil, false
	}
	return &app, true
}

// ownedResumeID 校验 resume_used 指向当前用户自己的简历，失败时已写出响应。
func (h *ApplicationHandler) ownedResumeID(c *gin.Context, userID uuid.UUID, raw string) (uuid.UUID, bool) {
	resumeID, err := uuid.Parse(raw)
	if err != nil {
		BadRequest(c, "Invalid resume_used")
		return uuid.Nil, false
	}

	var resume database.Resume
	if err := h.db.WithContext(c.Request.Context()).Select("id", "user_id").First(&resume, "id = ?", resumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Resume not found")
			return uuid.Nil, false
		}
		middleware.LoggerFromContext(c).Error("query resume", slog.Any("error", err))
		Internal(c, "Failed to query resume")
		return uuid.Nil, false
	}
	if resume.UserID != userID {
		Forbidden(c, "Unauthorized")
		return uuid.Nil, false
	}
	return resumeID, true
}
