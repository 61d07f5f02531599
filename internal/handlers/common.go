package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Thisisbailin/Script2Video-sub002/internal/services"
	"github.com/Thisisbailin/Script2Video-sub002/internal/types"
	"github.com/Thisisbailin/Script2Video-sub002/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// getUserID extracts user ID from context (set by auth middleware)
func getUserID(c *fiber.Ctx) (string, error) {
	if id, ok := c.Locals("userID").(string); ok && id != "" {
		return id, nil
	}

	user := c.Locals("user")
	if user == nil {
		return "", fmt.Errorf("user not found in context")
	}
	userMap, ok := user.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid user data format")
	}
	userID, ok := userMap["id"].(string)
	if !ok {
		return "", fmt.Errorf("user ID not found")
	}
	return userID, nil
}

// parseVersionParam parses a decimal version from a route or query value.
func parseVersionParam(value string) (uint64, error) {
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q", value)
	}
	return v, nil
}

// writeErrorResponse maps a service error from a write path to its HTTP
// shape and records the outcome. Conflicts embed the authoritative state so
// the client can rebase.
func writeErrorResponse(c *fiber.Ctx, audit *services.Auditor, userID, action string, err error) error {
	var conflict *types.ConflictError
	if errors.As(err, &conflict) {
		audit.Record(userID, action, services.AuditConflict, map[string]interface{}{
			"currentVersion": conflict.CurrentVersion,
		})
		return utils.ConflictResponse(c, conflict.CurrentVersion, conflict.Current)
	}

	var invalid *types.ValidationError
	if errors.As(err, &invalid) {
		audit.Record(userID, action, services.AuditInvalid, map[string]interface{}{
			"path":   invalid.Path,
			"reason": invalid.Reason,
		})
		return utils.ErrorResponse(c, invalid.Error(), fiber.StatusBadRequest, "project.validation")
	}

	if errors.Is(err, types.ErrMetaTooLarge) {
		audit.Record(userID, action, services.AuditInvalid, map[string]interface{}{
			"reason": "meta too large",
		})
		return utils.ErrorResponse(c, err.Error(), fiber.StatusRequestEntityTooLarge, "project.meta.size")
	}

	if errors.Is(err, types.ErrSnapshotNotFound) {
		audit.Record(userID, action, services.AuditInvalid, map[string]interface{}{
			"reason": "snapshot not found",
		})
		return utils.NotFoundResponse(c, "Snapshot not found")
	}

	audit.Record(userID, action, services.AuditError, map[string]interface{}{
		"error": err.Error(),
	})
	return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, action)
}
