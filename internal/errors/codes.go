package errors

import "net/http"

// ErrorCode represents the type of error
type ErrorCode string

const (
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrForbidden        ErrorCode = "FORBIDDEN"
	ErrValidation       ErrorCode = "VALIDATION_ERROR"
	ErrBadRequest       ErrorCode = "BAD_REQUEST"
	ErrInternalError    ErrorCode = "INTERNAL_ERROR"
	ErrRateLimited      ErrorCode = "RATE_LIMITED"
	ErrAlreadyDone      ErrorCode = "ALREADY_DONE"
	ErrNotDone          ErrorCode = "NOT_DONE"
	ErrInvalidOperation ErrorCode = "INVALID_OPERATION"
)

// StatusCodeMap maps ErrorCode to HTTP status code
var StatusCodeMap = map[ErrorCode]int{
	ErrNotFound:         http.StatusNotFound,
	ErrUnauthorized:     http.StatusUnauthorized,
	ErrForbidden:        http.StatusForbidden,
	ErrValidation:       http.StatusBadRequest,
	ErrBadRequest:       http.StatusBadRequest,
	ErrInternalError:    http.StatusInternalServerError,
	ErrRateLimited:      http.StatusTooManyRequests,
	ErrAlreadyDone:      http.StatusBadRequest,
	ErrNotDone:          http.StatusBadRequest,
	ErrInvalidOperation: http.StatusBadRequest,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
