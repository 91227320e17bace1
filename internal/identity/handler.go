package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/unitedunion/uubank/internal/storage"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	FullName        string `json:"full_name"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Contact         string `json:"contact"`
	Email           string `json:"email"`
}

type accountResponse struct {
	AccountID     string `json:"account_id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	AccountNumber string `json:"account_number"`
	CreatedAt     string `json:"created_at"`
}

// Register handles account opening.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := h.service.Register(c.UserContext(), RegisterInput{
		FullName:        req.FullName,
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Contact:         req.Contact,
		Email:           req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrDuplicateUsername):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, storage.ErrStorageUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, "storage unavailable")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(account))
}

// Me returns the profile of the account bound to the current session.
func (h *Handler) Me(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(string)
	if accountID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	account, err := h.service.FindByID(c.UserContext(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, storage.ErrStorageUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, "storage unavailable")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(toResponse(account))
}

func toResponse(account Account) accountResponse {
	return accountResponse{
		AccountID:     account.ID,
		Username:      account.Username,
		FullName:      account.FullName,
		AccountNumber: account.AccountNumber,
		CreatedAt:     account.CreatedAt.Format(time.RFC3339),
	}
}
