package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"DividendRadar/pkg/logging"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

var defaultLogger = zerolog.Nop()

// RequestLogger 为每个请求分配 request_id，把带 request_id 的日志器放进请求上下文
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		reqLogger := logger.With().Str(requestIDKey, requestID).Logger()
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		event := reqLogger.Info()
		if status >= 500 {
			event = reqLogger.Error()
		} else if status >= 400 {
			event = reqLogger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("请求完成")
	}
}
