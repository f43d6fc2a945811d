package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
	apperrors "github.com/bavindu122/PillPath-Backend-sub001/pkg/util/errorutil"
)

// RequireAuthenticated rejects requests that carry no identity.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromFiber(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromFiber(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[identity.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
