package middleware

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/unitedunion/uubank/internal/auth"
	"github.com/unitedunion/uubank/internal/storage"
)

// AccountIDKey is the fiber.Locals key holding the authenticated account id.
const AccountIDKey = "account_id"

// SessionAuth admits only requests whose bearer token names an
// AUTHENTICATED session, and exposes the bound account via AccountIDKey.
func SessionAuth(manager *auth.Manager, tokens *auth.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID, err := auth.SessionFromRequest(c, tokens)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "missing or invalid session token")
		}
		accountID, err := manager.Authenticated(c.UserContext(), sessionID)
		if err != nil {
			if errors.Is(err, storage.ErrStorageUnavailable) {
				return fiber.NewError(http.StatusServiceUnavailable, "storage unavailable")
			}
			return fiber.NewError(http.StatusUnauthorized, "session not authenticated")
		}
		c.Locals("session_id", sessionID)
		c.Locals(AccountIDKey, accountID)
		return c.Next()
	}
}
