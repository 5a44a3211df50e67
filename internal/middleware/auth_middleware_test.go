package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-distributor-ledger/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator map[string]*jwt.Claims

func (s stubValidator) ValidateToken(_ context.Context, token string) (*jwt.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("token is invalid")
}

func TestRequireAuthAndPrivileges(t *testing.T) {
	distributorID := uuid.New()
	employee := &jwt.Claims{
		UserID:        uuid.New(),
		Role:          "employee",
		DistributorID: &distributorID,
		Privileges:    []string{"order:create", "payment:create"},
	}
	admin := &jwt.Claims{UserID: uuid.New(), Role: "admin", Privileges: []string{"platform:view"}}
	v := stubValidator{"emp": employee, "adm": admin}

	app := fiber.New()
	api := app.Group("", RequireAuth(v))
	api.Post("/orders", RequirePrivilege("order:create"), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user":        c.Locals(LocalUserID).(uuid.UUID).String(),
			"distributor": c.Locals(LocalDistributorID).(uuid.UUID).String(),
		})
	})
	api.Post("/payments/set-debt", RequirePrivilege("debt:adjust"), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	api.Get("/admin", RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"distributor": c.Locals(LocalDistributorID).(uuid.UUID).String()})
	})

	do := func(method, path, token string) int {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, do(http.MethodPost, "/orders", ""))
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodPost, "/orders", "forged"))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/orders", "emp"))
	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, "/payments/set-debt", "emp"))
	assert.Equal(t, http.StatusForbidden, do(http.MethodGet, "/admin", "emp"))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/admin", "adm"))

	// Websocket clients pass the token as a query parameter.
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/orders?token=emp", ""))
}

func TestRequireAnyPrivilegeWithoutAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/", RequireAnyPrivilege("report:view"), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
