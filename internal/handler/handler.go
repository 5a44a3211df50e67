package handler

import (
	"errors"
	"strconv"

	"go-distributor-ledger/internal/apperr"
	"go-distributor-ledger/internal/middleware"
	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/service"
	"go-distributor-ledger/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxListLimit = 500

// actor reads the caller set by middleware.RequireAuth.
func actor(c *fiber.Ctx) service.Actor {
	a := service.Actor{}
	if id, ok := c.Locals(middleware.LocalUserID).(uuid.UUID); ok {
		a.UserID = id
	}
	if id, ok := c.Locals(middleware.LocalDistributorID).(uuid.UUID); ok {
		a.DistributorID = id
	}
	if role, ok := c.Locals(middleware.LocalRole).(string); ok {
		a.Role = model.Role(role)
	}
	return a
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindBusinessRule:
		return fiber.StatusBadRequest
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperr.KindConflict:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// respondError writes {"error", "kind"}. Internal errors are logged and their text hidden.
func respondError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		logger.LogError(logger.Get(), "handler", c.Route().Path, c.Method(), nil, err)
		msg = "Internal server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg, "kind": kind})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "kind": apperr.KindValidation})
}

var errInvalidID = errors.New("invalid id")

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation(errInvalidID, "Invalid %s", name)
	}
	return id, nil
}

func queryLimit(c *fiber.Ctx, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
