package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/unitedunion/uubank/internal/cards"
)

// RegisterCardRoutes wires virtual card endpoints.
func RegisterCardRoutes(r fiber.Router, h *cards.Handler) {
	r.Post("/cards", h.Issue)
	r.Get("/cards/active", h.Active)
}
