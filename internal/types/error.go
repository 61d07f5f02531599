package types

import (
	"errors"
	"fmt"
)

// CustomError carries an HTTP status, message and machine-readable type
// through the Fiber error handler.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Sentinel errors of the sync taxonomy. Everything above the generic
// storage failure is detected before any mutating storage call.
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrMetaTooLarge     = errors.New("meta record exceeds size ceiling")
)

// ConflictError rejects a write whose base version does not match the stored
// version. It carries the authoritative current state so the client can
// rebase instead of blind-retrying. Current stays opaque here to keep this
// package free of a models dependency.
type ConflictError struct {
	CurrentVersion uint64
	Current        interface{}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("E_VERSION - stored version is %d, refresh and reconcile", e.CurrentVersion)
}

// ValidationError reports a structural validation failure with the path of
// the failing field.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload at %s: %s", e.Path, e.Reason)
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(path, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
