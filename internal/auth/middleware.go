package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/observability"
)

// AuthMiddleware resolves the caller's identity for every request. It never
// rejects a request; route guards decide whether anonymous access is allowed.
type AuthMiddleware struct {
	authenticator *RequestAuthenticator
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(authenticator *RequestAuthenticator, metrics *observability.Metrics, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{authenticator: authenticator, metrics: metrics, logger: logger}
}

// Handle authenticates the request and publishes the identity.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	res := m.authenticator.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	m.metrics.RecordAuthOutcome(string(res.Outcome), res.Kind.String())

	switch res.Outcome {
	case OutcomeAuthenticated:
		c.SetUserContext(WithIdentity(c.UserContext(), *res.Identity))
		if _, exists := IdentityFromFiber(c); !exists {
			c.Locals(identityLocalsKey, *res.Identity)
		}
	case OutcomeNoCredential:
	case OutcomeMalformed:
		m.logger.Warn("malformed credential",
			zap.String("kind", res.Kind.String()),
			zap.String("path", c.Path()),
			zap.Error(res.Reason))
	default:
		m.logger.Info("credential rejected",
			zap.String("outcome", string(res.Outcome)),
			zap.String("kind", res.Kind.String()),
			zap.String("path", c.Path()),
			zap.Error(res.Reason))
	}
	return c.Next()
}
