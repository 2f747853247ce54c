package middleware

import (
	"time"

	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GinLogger writes one access line per request through zap. 5xx responses
// log at error, 4xx at warn, the rest at info. Health checks are skipped.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if path == "/health" || path == "/metrics" {
			return
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			logger.WithRequestID(RequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			logger.WithStatus(status),
			logger.WithDuration(time.Since(start)),
			logger.WithIP(c.ClientIP()),
			zap.Int("size", c.Writer.Size()),
		}
		if userID := c.GetString(util.ContextUserIDKey); userID != "" {
			fields = append(fields, logger.WithUserID(userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		level := zapcore.InfoLevel
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		}
		if ce := logger.Log.Check(level, "HTTP request"); ce != nil {
			ce.Write(fields...)
		}
	}
}
