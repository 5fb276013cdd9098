package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrInvalidInput - malformed request or configuration (400 over HTTP)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - resource not found, e.g. a video without transcript (404 over HTTP)
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied - credentials rejected by a collaborator (mail server, model API)
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConflict - resource held by another instance
	ErrConflict = errors.New("conflict")

	// ErrTransient - transient error (retry later)
	ErrTransient = errors.New("transient error")

	// ErrInvalidModelOutput - model returned malformed structured output
	ErrInvalidModelOutput = errors.New("invalid model output")

	// ErrInternal - internal error
	ErrInternal = errors.New("internal error")
)
