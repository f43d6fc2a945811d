package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/api/dto"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/auth"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/ws"
	apperrors "github.com/bavindu122/PillPath-Backend-sub001/pkg/util/errorutil"
)

// PresenceHandler exposes watcher lookups and customer message delivery.
type PresenceHandler struct {
	registry *ws.WatchRegistry
	hub      *ws.Hub
}

// NewPresenceHandler constructs handler.
func NewPresenceHandler(registry *ws.WatchRegistry, hub *ws.Hub) *PresenceHandler {
	return &PresenceHandler{registry: registry, hub: hub}
}

// Watchers handles GET /api/v1/presence/customers/:customerId/watchers.
func (h *PresenceHandler) Watchers(c *fiber.Ctx) error {
	customerID, err := customerIDParam(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.WatchersResponse{
		CustomerID: customerID,
		AdminIDs:   h.registry.GetAdmins(customerID),
	}})
}

// Deliver handles POST /api/v1/presence/customers/:customerId/messages. The
// body is forwarded unchanged to the customer and their watchers.
func (h *PresenceHandler) Deliver(c *fiber.Ctx) error {
	customerID, err := customerIDParam(c)
	if err != nil {
		return err
	}
	identity, _ := auth.IdentityFromFiber(c)
	if identity.HasRole(domain.RoleCustomer, domain.RoleUser) && identity.SubjectID != customerID {
		return apperrors.NewForbidden("customers may only message their own session")
	}

	body := c.Body()
	if len(body) == 0 || !json.Valid(body) {
		return apperrors.NewValidationError("message body must be a JSON document", nil)
	}
	payload := append([]byte(nil), body...)

	delivered := h.hub.NotifyCustomer(customerID, payload)
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.DeliveryResponse{Delivered: delivered}})
}

func customerIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("customerId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid customer id", map[string]any{"customerId": c.Params("customerId")})
	}
	return id, nil
}
