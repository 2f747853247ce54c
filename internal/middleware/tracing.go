package middleware

import (
	"github.com/chirpsocial/backend/internal/telemetry"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request via otelgin
func Tracing() gin.HandlerFunc {
	return otelgin.Middleware(telemetry.ServiceName)
}

// TraceUser tags the current span with the authenticated user and request
// id. It must run after the auth middleware.
func TraceUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if userID := c.GetString(util.ContextUserIDKey); userID != "" {
				span.SetAttributes(attribute.String("user.id", userID))
			}
			if requestID := RequestID(c); requestID != "" {
				span.SetAttributes(attribute.String("http.request_id", requestID))
			}
		}
		c.Next()
	}
}
