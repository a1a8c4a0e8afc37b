package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careerVault/internal/auth"
	"careerVault/internal/database"
)

const (
	// UserIDKey 是 gin.Context 中保存当前用户 uuid.UUID 的键。
	UserIDKey = "userID"
	// UserEmailHeader 由前端在每个受保护请求上携带。
	UserEmailHeader = "X-User-Email"
)

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// UserMiddleware 根据 X-User-Email 解析当前用户并将 userID 注入上下文。
// sessions 非空时还要求 Bearer 会话令牌，且令牌中的邮箱必须与请求头一致。
func UserMiddleware(db *gorm.DB, sessions *auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.ToLower(strings.TrimSpace(c.GetHeader(UserEmailHeader)))
		if email == "" {
			abort(c, http.StatusBadRequest, "Missing X-User-Email header")
			return
		}

		var claims *auth.SessionClaims
		if sessions != nil {
			var ok bool
			claims, ok = sessionClaims(c, sessions)
			if !ok || claims.Email != email {
				abort(c, http.StatusUnauthorized, "Invalid or missing session token")
				return
			}
		}

		var user database.User
		if err := db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abort(c, http.StatusUnauthorized, "User not found")
				return
			}
			LoggerFromContext(c).Error("load user failed", slog.Any("error", err))
			abort(c, http.StatusInternalServerError, "Failed to load user")
			return
		}

		if claims != nil && claims.UserID != user.ID {
			abort(c, http.StatusUnauthorized, "Invalid or missing session token")
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Next()
	}
}

func sessionClaims(c *gin.Context, sessions *auth.SessionManager) (*auth.SessionClaims, bool) {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, false
	}
	claims, err := sessions.Validate(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}
