package middleware

import (
	"github.com/Thisisbailin/Script2Video-sub002/internal/services"
	"github.com/Thisisbailin/Script2Video-sub002/internal/types"
	"github.com/gofiber/fiber/v2"
)

// SyncGate rejects requests from users outside the sync rollout before any
// storage access happens. Must run after AuthUser.
func SyncGate(gate *services.RolloutGate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(string)
		if userID == "" {
			return &types.CustomError{
				Code:    fiber.StatusForbidden,
				Message: "User identity required",
				Type:    "project.authorization.user",
			}
		}
		if !gate.Enabled(userID) {
			return &types.CustomError{
				Code:    fiber.StatusForbidden,
				Message: "Sync is not enabled for this account",
				Type:    "sync.disabled",
			}
		}
		return c.Next()
	}
}
