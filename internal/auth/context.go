package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
)

type identityContextKey struct{}

const identityLocalsKey = "auth_identity"

// WithIdentity attaches identity to ctx. The slot is write-once: if ctx
// already carries an identity it is returned unchanged.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	if _, ok := IdentityFromContext(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	if ctx == nil {
		return domain.Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(domain.Identity)
	return identity, ok
}

// IdentityFromFiber retrieves the identity the middleware stored for this request.
func IdentityFromFiber(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityLocalsKey).(domain.Identity)
	return identity, ok
}
