package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/TripAtlas/trip-atlas-backend/logger"
)

type ErrorType string

const (
	ValidationError      ErrorType = "VALIDATION_ERROR"
	NotFoundError        ErrorType = "NOT_FOUND"
	AlreadyExistsError   ErrorType = "ALREADY_EXISTS"
	VersionConflictError ErrorType = "VERSION_CONFLICT"
	DatabaseError        ErrorType = "DATABASE_ERROR"
	ServerError          ErrorType = "SERVER_ERROR"
	StorageError         ErrorType = "STORAGE_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

// New creates a new AppError
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// Helper functions for common errors
func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func AlreadyExists(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       AlreadyExistsError,
		Message:    fmt.Sprintf("%s already exists", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusConflict,
	}
}

// VersionConflict signals an optimistic-concurrency failure. The caller is
// expected to re-read the record and reapply its mutation.
func VersionConflict(tripID string, expected, actual int) *AppError {
	return &AppError{
		Type:       VersionConflictError,
		Message:    "Version conflict",
		Detail:     fmt.Sprintf("Trip %s: expected version %d, found %d", tripID, expected, actual),
		HTTPStatus: http.StatusConflict,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewDatabaseError(err error) *AppError {
	// Log original error but return sanitized message
	logger.GetLogger().Errorw("Database error", "error", err)
	return &AppError{
		Type:       DatabaseError,
		Message:    "Database operation failed",
		Detail:     "Please try again later",
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Predicate helpers so callers don't have to type-assert.

func IsNotFound(err error) bool {
	return hasType(err, NotFoundError)
}

func IsAlreadyExists(err error) bool {
	return hasType(err, AlreadyExistsError)
}

func IsVersionConflict(err error) bool {
	return hasType(err, VersionConflictError)
}

func IsValidation(err error) bool {
	return hasType(err, ValidationError)
}

func hasType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case AlreadyExistsError, VersionConflictError:
		return http.StatusConflict
	case DatabaseError, StorageError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
