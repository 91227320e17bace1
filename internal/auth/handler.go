package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/unitedunion/uubank/internal/identity"
	"github.com/unitedunion/uubank/internal/storage"
)

// Handler exposes the login, OTP and logout endpoints.
type Handler struct {
	manager *Manager
	tokens  *Tokens
}

func NewHandler(manager *Manager, tokens *Tokens) *Handler {
	return &Handler{manager: manager, tokens: tokens}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type challengeResponse struct {
	SessionToken string `json:"session_token"`
	ExpiresIn    int64  `json:"expires_in"`
	State        State  `json:"state"`
	OTPExpiresAt string `json:"otp_expires_at"`
}

// Login verifies credentials and starts an OTP challenge. A valid bearer
// token reuses its session; otherwise a new session is opened.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password are required")
	}

	ctx := c.UserContext()
	sessionID, err := SessionFromRequest(c, h.tokens)
	if err == nil {
		if _, err = h.manager.Session(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return httpError(err)
		}
	}
	if err != nil {
		if sessionID, err = h.manager.Open(ctx); err != nil {
			return httpError(err)
		}
	}

	challenge, err := h.manager.Login(ctx, sessionID, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		return httpError(err)
	}
	return h.respondChallenge(c, sessionID, challenge)
}

type verifyRequest struct {
	Code string `json:"code"`
}

// VerifyOTP completes login with the delivered code.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	sessionID, err := SessionFromRequest(c, h.tokens)
	if err != nil {
		return httpError(err)
	}
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, err := h.manager.VerifyOTP(c.UserContext(), sessionID, strings.TrimSpace(req.Code))
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"state": StateAuthenticated, "account_id": accountID})
}

// ReissueOTP sends a fresh code for the pending login.
func (h *Handler) ReissueOTP(c *fiber.Ctx) error {
	sessionID, err := SessionFromRequest(c, h.tokens)
	if err != nil {
		return httpError(err)
	}
	challenge, err := h.manager.ReissueOTP(c.UserContext(), sessionID)
	if err != nil {
		return httpError(err)
	}
	return h.respondChallenge(c, sessionID, challenge)
}

// Logout returns the session to ANONYMOUS.
func (h *Handler) Logout(c *fiber.Ctx) error {
	sessionID, err := SessionFromRequest(c, h.tokens)
	if err != nil {
		return httpError(err)
	}
	if err := h.manager.Logout(c.UserContext(), sessionID); err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"state": StateAnonymous})
}

func (h *Handler) respondChallenge(c *fiber.Ctx, sessionID string, challenge Challenge) error {
	token, exp, err := h.tokens.Issue(sessionID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(challengeResponse{
		SessionToken: token,
		ExpiresIn:    int64(time.Until(exp).Seconds()),
		State:        StateCredentialsVerified,
		OTPExpiresAt: challenge.ExpiresAt(h.manager.OTPTTL()).Format(time.RFC3339),
	})
}

// SessionFromRequest extracts the session id from the Authorization header.
func SessionFromRequest(c *fiber.Ctx, tokens *Tokens) (string, error) {
	authz := c.Get(fiber.HeaderAuthorization)
	if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return "", ErrInvalidToken
	}
	return tokens.Parse(strings.TrimSpace(authz[len("bearer "):]))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrOTPExpired), errors.Is(err, ErrOTPMismatch):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrUnauthenticated):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrInvalidState):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrRateLimited):
		return fiber.NewError(http.StatusTooManyRequests, err.Error())
	case errors.Is(err, storage.ErrStorageUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, "storage unavailable")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
