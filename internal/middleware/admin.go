package middleware

import (
	"strings"

	"github.com/ezfix/portal/internal/config"
	"github.com/ezfix/portal/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired admits callers whose token carries the admin role or whose
// username is listed in SANDBOX_ADMIN_USERS. It must run after
// JWTProtected.
func AdminRequired(cfg *config.Config) fiber.Handler {
	admins := cfg.SandboxAdminUsers

	return func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if user.IsAdmin() || containsFold(admins, user.Username) {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

func containsFold(list []string, val string) bool {
	if val == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(item, val) {
			return true
		}
	}
	return false
}
