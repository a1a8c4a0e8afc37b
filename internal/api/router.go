package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"careerVault/internal/api/middleware"
	"careerVault/internal/config"
	"careerVault/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎，挂载通用中间件、健康检查与指标端点。
func NewRouter(cfg *config.Config, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	// 未配置可信代理时 ClientIP 只取连接地址，避免伪造 X-Forwarded-For 绕过按 IP 限流。
	if err := router.SetTrustedProxies(cfg.API.Proxies()); err != nil {
		logger.Error("invalid trusted proxies, ignoring forwarded headers", slog.Any("error", err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
	)

	// cors.New 在没有任何允许来源时会 panic。
	if origins := cfg.CORS.Origins(); len(origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization", middleware.UserEmailHeader, middleware.CorrelationIDHeader},
			ExposeHeaders:    []string{middleware.CorrelationIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	return router
}
