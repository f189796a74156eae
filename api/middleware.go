package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	requestIdHeader = "X-Request-Id"
	requestIdKey    = "requestId"
)

// RequestIdMiddleware keeps a caller supplied X-Request-Id or mints one, and
// echoes it on the response.
func RequestIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(requestIdHeader)
		if requestId == "" || len(requestId) > 128 {
			requestId = uuid.NewString()
		}
		c.Set(requestIdKey, requestId)
		c.Header(requestIdHeader, requestId)
		c.Next()
	}
}

// AccessLogMiddleware writes one structured line per request once the
// handler, including any stream, has finished.
func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= 500 {
			event = log.Error()
		} else if status >= 400 {
			event = log.Warn()
		}
		event.
			Str("requestId", c.GetString(requestIdKey)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("clientIp", c.ClientIP()).
			Msg("request")
	}
}
