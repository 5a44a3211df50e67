package handler

import (
	"go-distributor-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateEmployee
// POST /api/v1/employees
func (h *UserHandler) CreateEmployee(c *fiber.Ctx) error {
	var req service.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	user, err := h.userService.CreateEmployee(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Employee created successfully", "data": user})
}

func (h *UserHandler) GetEmployees(c *fiber.Ctx) error {
	users, err := h.userService.ListEmployees(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": users})
}

// CreateDistributor
// POST /api/v1/admin/distributors
func (h *UserHandler) CreateDistributor(c *fiber.Ctx) error {
	var req service.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	user, err := h.userService.CreateDistributor(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Distributor created successfully", "data": user})
}

func (h *UserHandler) GetDistributors(c *fiber.Ctx) error {
	users, err := h.userService.ListDistributors(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": users})
}
