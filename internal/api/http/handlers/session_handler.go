package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/api/dto"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/auth"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/service"
	apperrors "github.com/bavindu122/PillPath-Backend-sub001/pkg/util/errorutil"
)

// SessionHandler exposes login, logout and identity endpoints.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// GoogleLogin handles POST /api/v1/auth/google.
func (h *SessionHandler) GoogleLogin(c *fiber.Ctx) error {
	var req dto.FederatedLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Provider == "" {
		req.Provider = "google"
	}

	issued, err := h.sessions.LoginWithGoogle(c.UserContext(), req.Provider, req.IDToken)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"customer": dto.CustomerResponse{
				ID:       issued.Customer.ID,
				Email:    issued.Customer.Email,
				FullName: issued.Customer.FullName,
			},
			"auth": dto.AuthResponse{Token: issued.Token, ExpiresAt: issued.ExpiresAt},
		},
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromFiber(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	token := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if err := h.sessions.Logout(c.UserContext(), token, identity); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *SessionHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c.UserContext())
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.IdentityResponse{
		SubjectID:  identity.SubjectID,
		Role:       string(identity.Role),
		PharmacyID: identity.PharmacyID,
		Scheme:     string(identity.Scheme),
	}})
}
