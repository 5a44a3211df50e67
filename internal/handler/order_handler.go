package handler

import (
	"time"

	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/repository"
	"go-distributor-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

// CreateOrder places an on-account order for a shop
// POST /api/v1/orders
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req service.PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	order, err := h.service.PlaceOrder(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order created successfully",
		"data":    order,
	})
}

// GetOrders lists orders. Query params: shop_id, status, from, to (YYYY-MM-DD), limit
func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	f := repository.OrderFilter{
		Status: model.OrderStatus(c.Query("status")),
		Limit:  queryLimit(c, 100),
	}
	if raw := c.Query("shop_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "Invalid shop_id")
		}
		f.ShopID = &id
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return badRequest(c, "Invalid from date, use YYYY-MM-DD")
		}
		f.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return badRequest(c, "Invalid to date, use YYYY-MM-DD")
		}
		end := t.AddDate(0, 0, 1)
		f.To = &end
	}

	orders, err := h.service.ListOrders(c.UserContext(), actor(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": orders})
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	order, err := h.service.GetOrder(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": order})
}

// MarkDelivered
// PATCH /api/v1/orders/:id/deliver
func (h *OrderHandler) MarkDelivered(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	order, err := h.service.MarkDelivered(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order marked as delivered", "data": order})
}

// PayOrder records a direct payment against one order's remaining amount.
// It does not change the shop's debt.
func (h *OrderHandler) PayOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.DirectPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	res, err := h.service.DirectOrderPayment(c.UserContext(), actor(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Payment recorded", "data": res})
}

func (h *OrderHandler) GetOrderPayments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	txs, err := h.service.ListOrderPayments(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": txs})
}
