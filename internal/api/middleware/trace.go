package middleware

import (
	"Parley/internal/pkg/logger"
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxTraceIDLen 上游传入的 trace id 过长时重新生成
const maxTraceIDLen = 64

// TraceMiddleware 沿用网关传入的 X-Trace-ID 或 X-Request-ID，否则生成新的 trace id
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = c.GetHeader("X-Request-ID")
		}
		if traceID == "" || len(traceID) > maxTraceIDLen {
			traceID = uuid.NewString()
		}

		c.Set(logger.TraceIDKey, traceID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.TraceIDKey, traceID))
		c.Header("X-Trace-ID", traceID)
		c.Next()
	}
}
