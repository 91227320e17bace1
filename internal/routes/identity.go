package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/unitedunion/uubank/internal/identity"
)

// RegisterIdentityRoutes wires account opening.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/accounts", h.Register)
}
