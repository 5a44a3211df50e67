package handler

import (
	"go-distributor-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	service service.LedgerService
}

func NewPaymentHandler(s service.LedgerService) *PaymentHandler {
	return &PaymentHandler{service: s}
}

// RecordPayment
// POST /api/v1/payments
func (h *PaymentHandler) RecordPayment(c *fiber.Ctx) error {
	var req service.RecordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	res, err := h.service.RecordPayment(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Payment recorded successfully", "data": res})
}

// AddManualDebt
// POST /api/v1/payments/manual-debt
func (h *PaymentHandler) AddManualDebt(c *fiber.Ctx) error {
	var req service.DebtRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	res, err := h.service.AddManualDebt(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Debt added successfully", "data": res})
}

// SetExactDebt
// POST /api/v1/payments/set-debt
func (h *PaymentHandler) SetExactDebt(c *fiber.Ctx) error {
	var req service.DebtRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	res, err := h.service.SetExactDebt(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Debt updated successfully", "data": res})
}

// GetPayments lists ledger entries for the caller's distributor, or platform-wide for admin.
func (h *PaymentHandler) GetPayments(c *fiber.Ctx) error {
	entries, err := h.service.ListPayments(c.UserContext(), actor(c), queryLimit(c, 100))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": entries})
}

func (h *PaymentHandler) GetShopDebt(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	debt, err := h.service.GetShopDebt(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": debt})
}

func (h *PaymentHandler) GetDebtHistory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	history, err := h.service.GetDebtHistory(c.UserContext(), actor(c), id, queryLimit(c, 50))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": history})
}

func (h *PaymentHandler) GetShopPayments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	payments, err := h.service.GetPaymentHistory(c.UserContext(), actor(c), id, queryLimit(c, 50))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": payments})
}

func (h *PaymentHandler) GetPaymentStats(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.service.GetPaymentStats(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": stats})
}

func (h *PaymentHandler) GetShopsWithDebt(c *fiber.Ctx) error {
	shops, err := h.service.ListShopsWithDebt(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": shops})
}
