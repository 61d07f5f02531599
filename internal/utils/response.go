package utils

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// ConflictResponse sends a version conflict (409) carrying the authoritative
// stored version and project state so the client can rebase.
func ConflictResponse(c *fiber.Ctx, currentVersion uint64, current interface{}) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"status":         fiber.StatusConflict,
		"message":        "E_VERSION - Refresh and reconcile with current version and retry.",
		"ok":             false,
		"versionError":   true,
		"currentVersion": fmt.Sprintf("%d", currentVersion),
		"project":        current,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"url":            c.OriginalURL(),
		"type":           "version",
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}

// MutationSuccessResponse sends a success response for writes. The version is
// serialized as a string so millisecond stamps survive JSON number precision
// in browser clients.
func MutationSuccessResponse(c *fiber.Ctx, newVersion uint64, duplicate bool) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":    "Success",
		"ok":         true,
		"newVersion": fmt.Sprintf("%d", newVersion),
		"duplicate":  duplicate,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status       int    `json:"status"`
	Message      string `json:"message"`
	Ok           bool   `json:"ok"`
	Timestamp    string `json:"timestamp"`
	URL          string `json:"url"`
	Type         string `json:"type,omitempty"`
	VersionError bool   `json:"versionError,omitempty"`
}

// SuccessResponseStruct defines the schema for mutation success responses
type SuccessResponseStruct struct {
	Message    string `json:"message"`
	Ok         bool   `json:"ok"`
	NewVersion string `json:"newVersion"`
	Duplicate  bool   `json:"duplicate"`
	Timestamp  string `json:"timestamp"`
}
