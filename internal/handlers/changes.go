package handlers

import (
	"github.com/Thisisbailin/Script2Video-sub002/internal/services"
	"github.com/Thisisbailin/Script2Video-sub002/internal/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ChangesHandler handles the incremental change feed
type ChangesHandler struct {
	DB *gorm.DB
}

// GetChanges handles GET /api/project/changes?since=<version>
// @Summary Get changes since a version
// @Description Return the change feed entries after the given version, oldest first, one page at a time
// @Tags Changes
// @Accept json
// @Produce json
// @Param since query string false "Version to read past, 0 for everything retained"
// @Success 200 {object} services.ChangesPage
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /project/changes [get]
func (h *ChangesHandler) GetChanges(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "project.authorization.user")
	}

	since := uint64(0)
	if raw := c.Query("since", ""); raw != "" {
		since, err = parseVersionParam(raw)
		if err != nil {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "project.changes")
		}
	}

	page, err := services.ChangesSince(h.DB, userID, since)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "getChanges")
	}

	return c.Status(fiber.StatusOK).JSON(page)
}
