package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careerVault/internal/api/middleware"
	"careerVault/internal/auth"
	"careerVault/internal/database"
)

// AuthHandler 校验 Google ID Token，首次登录时创建用户并签发会话令牌。
type AuthHandler struct {
	db       *gorm.DB
	verifier auth.TokenVerifier
	sessions *auth.SessionManager
}

// NewAuthHandler 构造 AuthHandler；sessions 为 nil 时不签发会话令牌。
func NewAuthHandler(db *gorm.DB, verifier auth.TokenVerifier, sessions *auth.SessionManager) *AuthHandler {
	return &AuthHandler{db: db, verifier: verifier, sessions: sessions}
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

// VerifyGoogleToken 处理 POST /api/verify-google-token。
func (h *AuthHandler) VerifyGoogleToken(c *gin.Context) {
	var req verifyTokenRequest
	_ = c.ShouldBindJSON(&req)
	token := strings.TrimSpace(req.Token)
	if token == "" {
		statusError(c, http.StatusBadRequest, "Missing token")
		return
	}

	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	identity, err := h.verifier.Verify(ctx, token)
	if err != nil {
		log.Warn("google token rejected", slog.Any("error", err))
		statusError(c, http.StatusUnauthorized, err.Error())
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).
		Where(database.User{Email: identity.Email}).
		Attrs(database.User{Name: identity.Name, ProfilePic: identity.Picture}).
		FirstOrCreate(&user).Error; err != nil {
		log.Error("get or create user", slog.Any("error", err))
		statusError(c, http.StatusInternalServerError, "Failed to load user")
		return
	}

	// 已有用户同步 Google 资料的最新名称与头像。
	profile := map[string]any{}
	if identity.Name != "" && identity.Name != user.Name {
		profile["name"] = identity.Name
	}
	if identity.Picture != "" && identity.Picture != user.ProfilePic {
		profile["profile_pic"] = identity.Picture
	}
	if len(profile) > 0 {
		if err := h.db.WithContext(ctx).Model(&user).Updates(profile).Error; err != nil {
			log.Warn("refresh user profile", slog.Any("error", err))
		} else {
			if v, ok := profile["name"].(string); ok {
				user.Name = v
			}
			if v, ok := profile["profile_pic"].(string); ok {
				user.ProfilePic = v
			}
		}
	}

	resp := gin.H{
		"status": "success",
		"user": gin.H{
			"email":   user.Email,
			"name":    user.Name,
			"picture": user.ProfilePic,
		},
	}

	if h.sessions != nil {
		sessionToken, err := h.sessions.Issue(user.ID, user.Email)
		if err != nil {
			log.Error("issue session token", slog.Any("error", err))
			statusError(c, http.StatusInternalServerError, "Failed to issue session")
			return
		}
		resp["session_token"] = sessionToken
		resp["expires_in"] = int(h.sessions.TTL().Seconds())
	}

	c.JSON(http.StatusOK, resp)
}
