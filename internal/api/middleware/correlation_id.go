package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	correlationIDKey = "correlationID"

	// CorrelationIDHeader 是请求与响应中携带 Correlation ID 的头部。
	CorrelationIDHeader = "X-Correlation-ID"

	maxCorrelationIDLen = 128
)

// CorrelationIDMiddleware 沿用客户端传入的 Correlation ID，缺失或过长时重新生成。
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" || len(id) > maxCorrelationIDLen {
			id = uuid.NewString()
		}

		c.Set(correlationIDKey, id)
		c.Header(CorrelationIDHeader, id)

		c.Next()
	}
}

// GetCorrelationID 从上下文中取出 Correlation ID，purge 任务会带上它。
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(correlationIDKey)
}
