package handler

import (
	"go-distributor-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetDebtAging buckets the distributor's indebted shops by age of debt
// GET /api/v1/reports/debt-aging
func (h *DashboardHandler) GetDebtAging(c *fiber.Ctx) error {
	aging, err := h.service.GetDebtAging(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": aging})
}

// GetPlatformDebtAging is the admin view across every distributor
// GET /api/v1/admin/debt-aging
func (h *DashboardHandler) GetPlatformDebtAging(c *fiber.Ctx) error {
	aging, err := h.service.GetPlatformDebtAging(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": aging})
}

func (h *DashboardHandler) GetDebtSummary(c *fiber.Ctx) error {
	summary, err := h.service.GetDebtSummary(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": summary})
}
