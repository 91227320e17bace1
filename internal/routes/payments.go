package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/unitedunion/uubank/internal/payments"
)

// RegisterPaymentRoutes wires ledger endpoints. All require an authenticated session.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/deposits", h.Deposit)
	r.Post("/transfers", h.Transfer)
	r.Get("/balance", h.Balance)
	r.Get("/transactions", h.Transactions)
	r.Get("/statement", h.Statement)
	r.Get("/limits", h.Limits)
}
