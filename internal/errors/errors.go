package errors

import (
	stderrors "errors"
	"fmt"
)

// APIError is the error type every domain package returns. Handlers render it
// as-is; any other error becomes INTERNAL_ERROR.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on code so callers can write errors.Is(err, errors.NotFound(""))
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// Unauthorized creates an UNAUTHORIZED error
func Unauthorized(message string) *APIError {
	return newError(ErrUnauthorized, message)
}

// Forbidden creates a FORBIDDEN error
func Forbidden(message string) *APIError {
	return newError(ErrForbidden, message)
}

// ValidationError creates a VALIDATION_ERROR
func ValidationError(field, message string) *APIError {
	e := newError(ErrValidation, message)
	e.Field = field
	return e
}

// BadRequest creates a BAD_REQUEST error
func BadRequest(message string) *APIError {
	return newError(ErrBadRequest, message)
}

// InternalError creates an INTERNAL_ERROR
func InternalError(message string) *APIError {
	return newError(ErrInternalError, message)
}

// RateLimited creates a RATE_LIMITED error
func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newError(ErrRateLimited, message)
}

// AlreadyDone is returned when a set-membership toggle is already in the
// requested state (liking a liked tweet, following a followed user).
func AlreadyDone(message string) *APIError {
	return newError(ErrAlreadyDone, message)
}

// NotDone is the inverse of AlreadyDone: undoing something that never happened.
func NotDone(message string) *APIError {
	return newError(ErrNotDone, message)
}

// InvalidOperation covers requests that are well-formed but not allowed,
// such as following yourself or sending an empty message.
func InvalidOperation(message string) *APIError {
	return newError(ErrInvalidOperation, message)
}

// Internal wraps an unexpected error (usually from the database)
func Internal(op string, err error) *APIError {
	return InternalError(op).WithDetails(err.Error())
}

// WithDetails adds additional details to an error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

// CodeOf returns the ErrorCode carried by err, or INTERNAL_ERROR
func CodeOf(err error) ErrorCode {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ErrInternalError
}

// As returns err as an *APIError, wrapping unknown errors as INTERNAL_ERROR
func As(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return Internal("internal error", err)
}
