package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careerVault/internal/api/middleware"
	"careerVault/internal/auth"
	"careerVault/internal/storage"
)

// Deps 汇总注册路由所需的依赖。Queue、Scanner、Sessions、RateLimiter 可为空。
type Deps struct {
	DB       *gorm.DB
	Storage  storage.Store
	Verifier auth.TokenVerifier
	Sessions *auth.SessionManager

	Extractor    postingExtractor
	StrategyName string
	RateLimiter  redisRateCounter
	ParseLimit   int

	Queue          taskEnqueuer
	Scanner        virusScanner
	MaxResumeBytes int64
}

// RegisterRoutes 在 /api 前缀下注册全部业务路由。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	authHandler := NewAuthHandler(deps.DB, deps.Verifier, deps.Sessions)
	parseHandler := NewParseHandler(deps.Extractor, deps.StrategyName, deps.RateLimiter, deps.ParseLimit)
	resumeHandler := NewResumeHandler(deps.DB, deps.Storage, deps.Queue, deps.Scanner, deps.MaxResumeBytes)
	applicationHandler := NewApplicationHandler(deps.DB)

	userMiddleware := middleware.UserMiddleware(deps.DB, deps.Sessions)

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/verify-google-token", authHandler.VerifyGoogleToken)
		apiGroup.POST("/parse-url", parseHandler.ParseURL)

		resumeGroup := apiGroup.Group("/resumes")
		resumeGroup.Use(userMiddleware)
		{
			resumeGroup.POST("", resumeHandler.UploadResume)
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.GET("/:id/signed-url", resumeHandler.GetSignedURL)
		}

		applicationGroup := apiGroup.Group("/applications")
		applicationGroup.Use(userMiddleware)
		{
			applicationGroup.GET("", applicationHandler.ListApplications)
			applicationGroup.POST("", applicationHandler.CreateApplication)
			applicationGroup.GET("/stats", applicationHandler.ApplicationStats)
			applicationGroup.GET("/:id", applicationHandler.GetApplication)
			applicationGroup.PATCH("/:id", applicationHandler.UpdateApplication)
			applicationGroup.DELETE("/:id", applicationHandler.DeleteApplication)
		}
	}
}
