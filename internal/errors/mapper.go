package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MapError maps collaborator errors (model SDKs, mail server, transcript
// provider) onto the sift error taxonomy. Errors already carrying a category
// are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if Category(err) != "Unknown" {
		return err
	}

	// Propagate context errors as-is
	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timeout: %w", ErrTransient)
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "does not exist"):
		return fmt.Errorf("resource not found: %w", ErrNotFound)

	case strings.Contains(errStr, "permission denied"), strings.Contains(errStr, "unauthorized"),
		strings.Contains(errStr, "forbidden"), strings.Contains(errStr, "authentication failed"):
		return fmt.Errorf("access denied: %w", ErrPermissionDenied)

	case strings.Contains(errStr, "rate limit"), strings.Contains(errStr, "quota"), strings.Contains(errStr, "too many requests"):
		return fmt.Errorf("rate limited: %w", ErrTransient)

	case strings.Contains(errStr, "invalid input"), strings.Contains(errStr, "invalid request"), strings.Contains(errStr, "bad request"):
		return fmt.Errorf("invalid request: %w", ErrInvalidInput)

	case strings.Contains(errStr, "malformed json"), strings.Contains(errStr, "invalid json"):
		return fmt.Errorf("invalid model output: %w", ErrInvalidModelOutput)

	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return fmt.Errorf("request timeout: %w", ErrTransient)

	case strings.Contains(errStr, "network"), strings.Contains(errStr, "connection"), strings.Contains(errStr, "unreachable"):
		return fmt.Errorf("network error: %w", ErrTransient)

	case strings.Contains(errStr, "conflict"), strings.Contains(errStr, "already exists"), strings.Contains(errStr, "locked"):
		return fmt.Errorf("conflict: %w", ErrConflict)

	default:
		return fmt.Errorf("%s: %w", err.Error(), ErrInternal)
	}
}

// Category returns the sift error category for an error
func Category(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return "ErrInvalidInput"
	case errors.Is(err, ErrNotFound):
		return "ErrNotFound"
	case errors.Is(err, ErrPermissionDenied):
		return "ErrPermissionDenied"
	case errors.Is(err, ErrConflict):
		return "ErrConflict"
	case errors.Is(err, ErrTransient):
		return "ErrTransient"
	case errors.Is(err, ErrInvalidModelOutput):
		return "ErrInvalidModelOutput"
	case errors.Is(err, ErrInternal):
		return "ErrInternal"
	default:
		return "Unknown"
	}
}

// HTTPStatus maps an error category to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusBadGateway
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", message, err)
}

// WrapWithCategory wraps an error with specific sift error category
func WrapWithCategory(err error, message string, category error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %v: %w", message, err, category)
}

// IsCategory checks if error belongs to specific category
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}

// NotFound wraps error as not found
func NotFound(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNotFound)
}

// InvalidInput wraps error as invalid input
func InvalidInput(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidInput)
}

// Transient wraps error as transient
func Transient(message string) error {
	return fmt.Errorf("%s: %w", message, ErrTransient)
}

// Internal wraps error as internal
func Internal(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInternal)
}

// InvalidModelOutput wraps error as invalid model output
func InvalidModelOutput(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidModelOutput)
}

// IsRetryable checks if an error is transient or conflict related, indicating it can be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrConflict)
}
