package handlers

import (
	"github.com/Thisisbailin/Script2Video-sub002/internal/services"
	"github.com/Thisisbailin/Script2Video-sub002/internal/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SnapshotHandler handles snapshot listing and restore routes
type SnapshotHandler struct {
	DB    *gorm.DB
	Audit *services.Auditor
}

// ListSnapshots handles GET /api/project/snapshots
// @Summary List snapshots
// @Description List the most recent archived versions of the project, newest first
// @Tags Snapshots
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /project/snapshots [get]
func (h *SnapshotHandler) ListSnapshots(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "project.authorization.user")
	}

	snapshots, err := services.ListSnapshots(h.DB, userID)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listSnapshots")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"snapshots": snapshots,
	})
}

// RestoreSnapshot handles POST /api/project/snapshots/:version/restore
// @Summary Restore a snapshot
// @Description Replace the current document with an archived version, assigning a fresh version stamp
// @Tags Snapshots
// @Accept json
// @Produce json
// @Param version path string true "Snapshot version"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /project/snapshots/{version}/restore [post]
func (h *SnapshotHandler) RestoreSnapshot(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "project.authorization.user")
	}

	target, err := parseVersionParam(c.Params("version"))
	if err != nil {
		h.Audit.Record(userID, "project.restore", services.AuditInvalid, map[string]interface{}{"error": err.Error()})
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "project.restore")
	}

	version, err := services.RestoreSnapshot(h.DB, userID, target)
	if err != nil {
		return writeErrorResponse(c, h.Audit, userID, "project.restore", err)
	}

	h.Audit.Record(userID, "project.restore", services.AuditOK, map[string]interface{}{
		"restored": target,
		"version":  version,
	})
	return utils.MutationSuccessResponse(c, version, false)
}
