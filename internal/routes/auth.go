package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/unitedunion/uubank/internal/auth"
)

// RegisterAuthRoutes wires login, OTP and logout endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler) {
	group := r.Group("/auth")
	group.Post("/login", h.Login)
	group.Post("/otp/verify", h.VerifyOTP)
	group.Post("/otp/reissue", h.ReissueOTP)
	group.Post("/logout", h.Logout)
}
