package util

import (
	"net/http"

	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("details", apiErr.Details),
			zap.String("path", c.FullPath()),
		)
	} else {
		logger.Log.Debug("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("field", apiErr.Field),
		)
	}

	resp := ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
	}
	// internal details stay in the log
	if apiErr.Status < http.StatusInternalServerError {
		resp.Details = apiErr.Details
	}
	c.AbortWithStatusJSON(apiErr.Status, resp)
}

// RespondError renders any error returned by a domain package
func RespondError(c *gin.Context, err error) {
	RespondWithAPIError(c, errors.As(err))
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

// RespondNotFound sends a 404 Not Found response
func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

// RespondBadRequest sends a 400 Bad Request response
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.BadRequest(message))
}

// RespondOK sends a 200 with the given body
func RespondOK(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

// RespondCreated sends a 201 with the given body
func RespondCreated(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}

// RespondMessage sends a 200 with a short human readable message
func RespondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"message": message})
}
