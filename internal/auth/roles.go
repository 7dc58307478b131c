package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bazzarnet/support-service/internal/domain"
	apperrors "github.com/bazzarnet/support-service/pkg/util"
)

// RequireAuthenticated ensures a logged-in account of any role.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := ActorFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireCapability gates a route on the capability table rather than
// on hardcoded role comparisons.
func RequireCapability(capability domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !actor.Role.Can(capability) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
