package cards

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/unitedunion/uubank/internal/storage"
)

// Handler exposes card endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type cardResponse struct {
	ID        string `json:"id"`
	Number    string `json:"number"`
	Expiry    string `json:"expiry"`
	CVV       string `json:"cvv,omitempty"`
	Status    Status `json:"status"`
	CreatedAt string `json:"created_at"`
}

// Issue creates a new card. The full number and CVV are returned once.
func (h *Handler) Issue(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(string)
	if accountID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	card, err := h.service.Issue(c.UserContext(), accountID)
	if err != nil {
		if errors.Is(err, storage.ErrStorageUnavailable) {
			return fiber.NewError(http.StatusServiceUnavailable, "storage unavailable")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(cardResponse{
		ID:        card.ID,
		Number:    card.Number,
		Expiry:    card.Expiry,
		CVV:       card.CVV,
		Status:    card.Status,
		CreatedAt: card.CreatedAt.Format(time.RFC3339),
	})
}

// Active shows the masked active card.
func (h *Handler) Active(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(string)
	if accountID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	card, err := h.service.Active(c.UserContext(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoActiveCard):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, storage.ErrStorageUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, "storage unavailable")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(cardResponse{
		ID:        card.ID,
		Number:    card.Masked(),
		Expiry:    card.Expiry,
		Status:    card.Status,
		CreatedAt: card.CreatedAt.Format(time.RFC3339),
	})
}
