package util

import (
	"github.com/gin-gonic/gin"
)

// ContextUserIDKey is where the auth middleware stores the caller's id
const ContextUserIDKey = "user_id"

// ConnectionIDHeader lets a client tell the API which websocket connection
// made the request, so broadcasts can skip the originator.
const ConnectionIDHeader = "X-Connection-ID"

// GetUserIDFromContext extracts the user ID from the Gin context.
// If the user is not authenticated, it responds with 401 and returns false.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextUserIDKey)
	if !exists {
		RespondUnauthorized(c)
		return "", false
	}
	userIDStr, ok := userID.(string)
	if !ok || userIDStr == "" {
		RespondUnauthorized(c, "invalid user ID in context")
		return "", false
	}
	return userIDStr, true
}

// GetConnectionID returns the originating websocket connection, if any
func GetConnectionID(c *gin.Context) string {
	return c.GetHeader(ConnectionIDHeader)
}
