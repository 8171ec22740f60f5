package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// GinMiddleware logs every request of the ops API. Reads are logged at
// debug level.
func GinMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		}
		// set by the request id middleware, which runs first
		if id := c.Writer.Header().Get(requestIDHeader); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		reqLogger := WithTraceContext(c.Request.Context(), logger).With(fields...)
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		done := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if route := c.FullPath(); route != "" {
			done = append(done, zap.String("route", route))
		}
		if job := c.Param("job"); job != "" {
			done = append(done, zap.String("job", job))
		}
		if len(c.Errors) > 0 {
			done = append(done, zap.Strings("errors", c.Errors.Errors()))
		}

		// manual triggers are operator actions and always logged
		switch {
		case status >= 500:
			reqLogger.Error("HTTP Request", done...)
		case status >= 400:
			reqLogger.Warn("HTTP Request", done...)
		case c.Request.Method != http.MethodGet:
			reqLogger.Info("HTTP Request", done...)
		default:
			reqLogger.Debug("HTTP Request", done...)
		}
	}
}

// Recovery returns a gin middleware that recovers from panics and logs them
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", err),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
