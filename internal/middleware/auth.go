package middleware

import (
	"fmt"

	"github.com/Thisisbailin/Script2Video-sub002/internal/services"
	"github.com/Thisisbailin/Script2Video-sub002/internal/types"
	"github.com/authorizerdev/authorizer-go"
	"github.com/gofiber/fiber/v2"
)

// AuthUser validates that the request has user role authorization
func AuthUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{"user"}, "project.authorization.user")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, roles []string, errorType string) error {
	// Get session cookie
	session := c.Cookies("cookie_session")
	if session == "" {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: "Authorizer cookie \"cookie_session\" not found",
			Type:    errorType,
		}
	}

	// Validate session
	data, err := services.ValidateSession(session, roles)
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	// Set user data in context
	if user, ok := data["user"]; ok {
		c.Locals("user", user)
		if id := extractUserID(user); id != "" {
			c.Locals("userID", id)
		}
	}

	return c.Next()
}

// extractUserID pulls the id out of the session user payload. The SDK returns
// a typed struct but decoded JSON paths hand back a map, so accept both.
func extractUserID(user interface{}) string {
	switch u := user.(type) {
	case *authorizer.User:
		if u != nil {
			return u.ID
		}
	case map[string]interface{}:
		if id, ok := u["id"].(string); ok {
			return id
		}
	}
	return ""
}
