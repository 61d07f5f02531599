package handlers

import (
	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"github.com/Thisisbailin/Script2Video-sub002/internal/services"
	"github.com/Thisisbailin/Script2Video-sub002/internal/types"
	"github.com/Thisisbailin/Script2Video-sub002/internal/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ProjectHandler handles project document routes
type ProjectHandler struct {
	DB    *gorm.DB
	Audit *services.Auditor
}

// SaveProjectRequest is the body for a full document replacement.
type SaveProjectRequest struct {
	BaseVersion      *types.FlexUint64       `json:"baseVersion,omitempty"`
	IdempotencyToken string                  `json:"idempotencyToken,omitempty"`
	Project          *models.ProjectDocument `json:"project"`
}

// DeltaRequest is the body for a partial change set.
type DeltaRequest struct {
	BaseVersion      *types.FlexUint64    `json:"baseVersion,omitempty"`
	IdempotencyToken string               `json:"idempotencyToken,omitempty"`
	Delta            *models.ProjectDelta `json:"delta"`
}

// GetProject handles GET /api/project
// @Summary Get the project document
// @Description Assemble and return the caller's full project document
// @Tags Project
// @Accept json
// @Produce json
// @Success 200 {object} models.ProjectDocument
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /project [get]
func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "project.authorization.user")
	}

	doc, err := services.AssembleProject(h.DB, userID)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "getProject")
	}
	if doc == nil {
		return utils.NotFoundResponse(c, "No project found")
	}

	return c.Status(fiber.StatusOK).JSON(doc)
}

// SaveProject handles PUT /api/project
// @Summary Replace the project document
// @Description Replace the whole stored document, guarded by the base version
// @Tags Project
// @Accept json
// @Produce json
// @Param body body SaveProjectRequest true "Replacement document with base version"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 413 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /project [put]
func (h *ProjectHandler) SaveProject(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "project.authorization.user")
	}

	var req SaveProjectRequest
	if err := c.BodyParser(&req); err != nil {
		h.Audit.Record(userID, "project.save", services.AuditInvalid, map[string]interface{}{"error": err.Error()})
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "project.save")
	}
	if req.Project == nil {
		h.Audit.Record(userID, "project.save", services.AuditInvalid, map[string]interface{}{"error": "missing project"})
		return utils.ErrorResponse(c, "Request body requires a project document", fiber.StatusBadRequest, "project.save")
	}

	outcome, err := services.SaveProject(h.DB, userID, baseVersion(req.BaseVersion), req.IdempotencyToken, req.Project)
	if err != nil {
		return writeErrorResponse(c, h.Audit, userID, "project.save", err)
	}

	h.Audit.Record(userID, "project.save", services.AuditOK, map[string]interface{}{
		"version":   outcome.Version,
		"duplicate": outcome.Duplicate,
	})
	return utils.MutationSuccessResponse(c, outcome.Version, outcome.Duplicate)
}

// ApplyDelta handles POST /api/project/delta
// @Summary Apply a partial change set
// @Description Merge a partial change set into the stored document, guarded by the base version
// @Tags Project
// @Accept json
// @Produce json
// @Param body body DeltaRequest true "Partial change set with base version"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 413 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /project/delta [post]
func (h *ProjectHandler) ApplyDelta(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "project.authorization.user")
	}

	var req DeltaRequest
	if err := c.BodyParser(&req); err != nil {
		h.Audit.Record(userID, "project.delta", services.AuditInvalid, map[string]interface{}{"error": err.Error()})
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "project.delta")
	}
	if req.Delta == nil {
		h.Audit.Record(userID, "project.delta", services.AuditInvalid, map[string]interface{}{"error": "missing delta"})
		return utils.ErrorResponse(c, "Request body requires a delta", fiber.StatusBadRequest, "project.delta")
	}

	outcome, err := services.ApplyProjectDelta(h.DB, userID, baseVersion(req.BaseVersion), req.IdempotencyToken, req.Delta)
	if err != nil {
		return writeErrorResponse(c, h.Audit, userID, "project.delta", err)
	}

	h.Audit.Record(userID, "project.delta", services.AuditOK, map[string]interface{}{
		"version":   outcome.Version,
		"duplicate": outcome.Duplicate,
	})
	return utils.MutationSuccessResponse(c, outcome.Version, outcome.Duplicate)
}

// baseVersion unwraps the flexible JSON number into the plain form the
// services take.
func baseVersion(f *types.FlexUint64) *uint64 {
	if f == nil {
		return nil
	}
	v := f.Uint64()
	return &v
}
