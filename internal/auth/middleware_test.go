package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/observability"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/revocation"
	apperrors "github.com/bavindu122/PillPath-Backend-sub001/pkg/util/errorutil"
)

func newGuardedApp(t *testing.T) (*fiber.App, *TokenCodec, *revocation.MemoryStore, *observability.Metrics) {
	t.Helper()
	codec, clk := newTestCodec(t, time.Hour)
	store := revocation.NewMemoryStore(clk)
	metrics := observability.NewMetrics()
	mw := NewAuthMiddleware(NewRequestAuthenticator(codec, store, true, nil), metrics, nil)

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	app.Use(mw.Handle)
	app.Get("/open", func(c *fiber.Ctx) error {
		identity, ok := IdentityFromFiber(c)
		if !ok {
			return c.SendString("anonymous")
		}
		ctxIdentity, _ := IdentityFromContext(c.UserContext())
		if ctxIdentity != identity {
			return c.SendStatus(http.StatusConflict)
		}
		return c.SendString(string(identity.Role))
	})
	app.Get("/me", RequireAuthenticated(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })
	app.Get("/admin", RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })
	return app, codec, store, metrics
}

func doRequest(t *testing.T, app *fiber.App, path, token string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body := make([]byte, 64)
	n, _ := resp.Body.Read(body)
	return resp, string(body[:n])
}

func TestMiddlewareNeverRejects(t *testing.T) {
	app, _, _, metrics := newGuardedApp(t)

	for _, token := range []string{"", "garbage", "customer-token-abc"} {
		resp, body := doRequest(t, app, "/open", token)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "anonymous", body)
	}

	snap := metrics.Snapshot()["auth_outcomes"]
	assert.Equal(t, int64(1), snap["no_credential|none"])
	assert.Equal(t, int64(1), snap["malformed|signed"])
	assert.Equal(t, int64(1), snap["malformed|legacy"])
}

func TestMiddlewarePublishesIdentity(t *testing.T) {
	app, codec, _, _ := newGuardedApp(t)
	token, _, err := codec.Issue(3, domain.RolePharmacyAdmin)
	require.NoError(t, err)

	resp, body := doRequest(t, app, "/open", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PHARMACY_ADMIN", body)

	resp, body = doRequest(t, app, "/open", "pharmacy-admin-token-3")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ADMIN", body)
}

func TestGuards(t *testing.T) {
	app, codec, store, _ := newGuardedApp(t)
	customer, exp, err := codec.Issue(55, domain.RoleCustomer)
	require.NoError(t, err)
	admin, _, err := codec.Issue(1, domain.RoleAdmin)
	require.NoError(t, err)

	resp, _ := doRequest(t, app, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doRequest(t, app, "/me", customer)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doRequest(t, app, "/admin", customer)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doRequest(t, app, "/admin", admin)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, store.Revoke(context.Background(), customer, exp))
	resp, _ = doRequest(t, app, "/me", customer)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
