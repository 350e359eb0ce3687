package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/ctxutil"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/pkg/logger"
)

// RequestLogger emits one structured access log line per request,
// attaching whatever trace/request id AttachRequestContext set.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		td := ctxutil.GetTraceData(c.Request.Context())

		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if td != nil {
			fields = append(fields, "trace_id", td.TraceID, "request_id", td.RequestID)
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
