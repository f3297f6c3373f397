package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is reports whether target carries the same error code, so that a copy produced by
// WithInternal or one of the New* constructors still matches the exported sentinels.
func (e *AppError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*AppError)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	// ErrForbidden is returned when an authenticated caller lacks a permission.
	// The message is deliberately generic and never names the permission.
	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Access denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrDuplicateName = &AppError{
		Code:       "DUPLICATE_NAME",
		Message:    "Name already exists",
		StatusCode: http.StatusConflict,
	}

	ErrValidation = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrPolicy = &AppError{
		Code:       "POLICY_VIOLATION",
		Message:    "Operation not permitted by policy",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps malformed payload errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return derive(ErrBadRequest, message)
}

// NewNotFound reports a missing role, permission, user or tenant.
func NewNotFound(message string) *AppError {
	return derive(ErrNotFound, message)
}

// NewDuplicateName reports a name collision, echoing the offending name.
func NewDuplicateName(name string) *AppError {
	return derive(ErrDuplicateName, fmt.Sprintf("name %q already exists", name))
}

// NewValidation reports a structural violation such as an empty required set.
func NewValidation(message string) *AppError {
	return derive(ErrValidation, message)
}

// NewPolicy reports a domain policy violation.
func NewPolicy(message string) *AppError {
	return derive(ErrPolicy, message)
}

// IsUnauthorized reports whether err denies access, either for a missing identity or a missing permission.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

func derive(base *AppError, message string) *AppError {
	if message == "" {
		message = base.Message
	}
	return &AppError{
		Code:       base.Code,
		Message:    message,
		StatusCode: base.StatusCode,
	}
}
