// Package ws holds websocket session identity, presence tracking and delivery.
package ws

import (
	"strconv"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
)

// Handshake parameter names. Query parameters win over headers.
const (
	RoleParam    = "role"
	UserIDParam  = "userId"
	RoleHeader   = "X-WS-Role"
	UserIDHeader = "X-WS-UserId"

	// AttributesKey is the fiber locals key holding domain.ConnectionAttributes.
	AttributesKey = "ws_attributes"

	anonymousRole = "anon"
)

// HandshakeSource exposes the parts of an upgrade request the resolver reads.
type HandshakeSource interface {
	Query(key string) string
	Header(key string) string
}

// ResolveHandshake derives connection attributes from an upgrade request. Role
// and user id are resolved independently; missing or unparsable values yield
// an anonymous principal rather than an error.
func ResolveHandshake(src HandshakeSource) domain.ConnectionAttributes {
	role := strings.ToLower(strings.TrimSpace(firstNonEmpty(src.Query(RoleParam), src.Header(RoleHeader))))
	userID := parseUserID(firstNonEmpty(src.Query(UserIDParam), src.Header(UserIDHeader)))
	return domain.ConnectionAttributes{
		Role:          role,
		UserID:        userID,
		PrincipalName: PrincipalName(role, userID),
	}
}

// PrincipalName builds "<role>:<id>", using "anon" and a random id for missing parts.
func PrincipalName(role string, userID *int64) string {
	if role == "" {
		role = anonymousRole
	}
	id := uuid.NewString()
	if userID != nil {
		id = strconv.FormatInt(*userID, 10)
	}
	return strings.ToLower(role) + ":" + id
}

// HandshakeMiddleware resolves connection attributes before the upgrade is
// accepted. Only non-upgrade requests are rejected.
func HandshakeMiddleware(logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		attrs := safeResolve(fiberHandshake{c: c}, logger)
		c.Locals(AttributesKey, attrs)
		return c.Next()
	}
}

func safeResolve(src HandshakeSource, logger *zap.Logger) (attrs domain.ConnectionAttributes) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handshake resolution panic", zap.Any("panic", r))
			attrs = domain.ConnectionAttributes{PrincipalName: PrincipalName("", nil)}
		}
	}()
	return ResolveHandshake(src)
}

// fiberHandshake copies values out of the request; fiber reuses its buffers
// once the handler returns and the attributes outlive the upgrade.
type fiberHandshake struct {
	c *fiber.Ctx
}

func (h fiberHandshake) Query(key string) string {
	return strings.Clone(h.c.Query(key))
}

func (h fiberHandshake) Header(key string) string {
	return strings.Clone(h.c.Get(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseUserID(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
