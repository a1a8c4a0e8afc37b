package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"careerVault/internal/api/middleware"
)

func userIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
