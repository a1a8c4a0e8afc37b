package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"careerVault/internal/api/middleware"
	"careerVault/internal/extract"
	"careerVault/internal/metrics"
)

const parseRateWindow = time.Hour

type postingExtractor interface {
	Extract(ctx context.Context, rawURL string) (extract.Result, error)
}

// ParseHandler 把职位页面 URL 解析为投递草稿。
type ParseHandler struct {
	extractor    postingExtractor
	strategyName string
	limiter      redisRateCounter
	limit        int
}

// NewParseHandler 构造 ParseHandler。limiter 为 nil 或 limit<=0 时不限流。
func NewParseHandler(extractor postingExtractor, strategyName string, limiter redisRateCounter, limit int) *ParseHandler {
	return &ParseHandler{
		extractor:    extractor,
		strategyName: strategyName,
		limiter:      limiter,
		limit:        limit,
	}
}

type parseURLRequest struct {
	URL string `json:"url"`
}

// ParseURL 处理 POST /api/parse-url。
func (h *ParseHandler) ParseURL(c *gin.Context) {
	var req parseURLRequest
	_ = c.ShouldBindJSON(&req)
	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		BadRequest(c, "No URL provided.")
		return
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		BadRequest(c, "URL must be an absolute http or https URL.")
		return
	}

	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	if h.limiter != nil && h.limit > 0 {
		key := "ratelimit:parse-url:" + c.ClientIP()
		count, err := hitWindow(ctx, h.limiter, key, parseRateWindow)
		if err != nil {
			log.Warn("parse rate limiter unavailable", slog.Any("error", err))
		} else if count > int64(h.limit) {
			TooManyRequests(c, "Too many parse requests, try again later.")
			return
		}
	}

	res, err := h.extractor.Extract(ctx, rawURL)
	if err != nil {
		var statusErr *extract.StatusError
		if errors.As(err, &statusErr) {
			BadRequest(c, fmt.Sprintf("Failed to fetch URL: status %d", statusErr.StatusCode))
			return
		}
		if errors.Is(err, extract.ErrBlockedAddress) {
			log.Warn("parse url blocked", slog.String("url", rawURL), slog.Any("error", err))
			BadRequest(c, "URL must point to a public host.")
			return
		}
		log.Error("parse job url", slog.String("url", rawURL), slog.Any("error", err))
		Internal(c, "Failed to parse job URL: "+err.Error())
		return
	}

	metrics.ObserveExtraction(h.strategyName, string(res.Outcome))
	c.JSON(http.StatusOK, res.Posting)
}
