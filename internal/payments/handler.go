package payments

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/unitedunion/uubank/internal/ledger"
	"github.com/unitedunion/uubank/internal/money"
	"github.com/unitedunion/uubank/internal/storage"
)

const maxListLimit = 500

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type depositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Deposit credits the caller's wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	accountID, err := caller(c)
	if err != nil {
		return err
	}
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Deposit(c.UserContext(), accountID, req.Amount, strings.TrimSpace(req.Description))
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction": toRecordResponse(res.Record, accountID),
		"balance":     money.Format(res.Balance),
	})
}

type transferRequest struct {
	Recipient   string          `json:"recipient"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Transfer moves funds from the caller to another customer by username.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	accountID, err := caller(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		return fiber.NewError(http.StatusBadRequest, "recipient is required")
	}
	res, err := h.service.Transfer(c.UserContext(), accountID, recipient, req.Amount, strings.TrimSpace(req.Description))
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction": toRecordResponse(res.Record, accountID),
		"balance":     money.Format(res.SenderBalance),
	})
}

// Balance reports the caller's wallet.
func (h *Handler) Balance(c *fiber.Ctx) error {
	accountID, err := caller(c)
	if err != nil {
		return err
	}
	w, err := h.service.Balance(c.UserContext(), accountID)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id":   w.AccountID,
		"balance":      money.Format(w.Balance),
		"last_updated": w.LastUpdated.Format(time.RFC3339),
	})
}

// Transactions lists the caller's history, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	accountID, err := caller(c)
	if err != nil {
		return err
	}
	filter, err := parseFilter(c)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	out := []recordResponse{}
	for rec, err := range h.service.Transactions(c.UserContext(), accountID, filter) {
		if err != nil {
			return httpError(err)
		}
		out = append(out, toRecordResponse(rec, accountID))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": out})
}

// Statement summarizes the caller's activity over a date range.
func (h *Handler) Statement(c *fiber.Ctx) error {
	accountID, err := caller(c)
	if err != nil {
		return err
	}
	from, err := parseTime(c.Query("from"), false)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid from: "+err.Error())
	}
	to, err := parseTime(c.Query("to"), true)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid to: "+err.Error())
	}
	st, err := h.service.Statement(c.UserContext(), accountID, from, to)
	if err != nil {
		return httpError(err)
	}
	records := make([]recordResponse, 0, len(st.Records))
	for _, rec := range st.Records {
		records = append(records, toRecordResponse(rec, accountID))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"from":           formatOptional(st.From),
		"to":             formatOptional(st.To),
		"balance":        money.Format(st.Balance),
		"total_deposits": money.Format(st.Summary.Deposits),
		"total_sent":     money.Format(st.Summary.Sent),
		"total_received": money.Format(st.Summary.Received),
		"net_change":     money.Format(st.Summary.Net()),
		"count":          st.Summary.Count,
		"transactions":   records,
	})
}

// Limits advertises the deposit and transfer policy.
func (h *Handler) Limits(c *fiber.Ctx) error {
	l := h.service.Limits()
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"deposit_min":          money.Format(l.DepositMin),
		"deposit_max":          money.Format(l.DepositMax),
		"transfer_max":         money.Format(l.TransferMax),
		"daily_transfer_limit": money.Format(l.DailyTransfer),
		"daily_limit_enforced": false,
	})
}

type recordResponse struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	Direction   string `json:"direction"`
	SenderID    string `json:"sender_id,omitempty"`
	ReceiverID  string `json:"receiver_id,omitempty"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func toRecordResponse(rec ledger.Record, viewer string) recordResponse {
	direction := "credit"
	if rec.SenderID == viewer {
		direction = "debit"
	}
	return recordResponse{
		ID:          rec.ID,
		Kind:        string(rec.Kind),
		Direction:   direction,
		SenderID:    rec.SenderID,
		ReceiverID:  rec.ReceiverID,
		Amount:      money.Format(rec.Amount),
		Description: rec.Description,
		Status:      string(rec.Status),
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
	}
}

func caller(c *fiber.Ctx) (string, error) {
	accountID, _ := c.Locals("account_id").(string)
	if accountID == "" {
		return "", fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	return accountID, nil
}

func parseFilter(c *fiber.Ctx) (ledger.Filter, error) {
	var (
		filter ledger.Filter
		err    error
	)
	switch kind := strings.ToUpper(strings.TrimSpace(c.Query("kind"))); kind {
	case "":
	case string(ledger.KindDeposit), string(ledger.KindTransfer):
		filter.Kind = ledger.Kind(kind)
	default:
		return ledger.Filter{}, errors.New("kind must be DEPOSIT or TRANSFER")
	}
	if filter.From, err = parseTime(c.Query("from"), false); err != nil {
		return ledger.Filter{}, errors.New("invalid from: " + err.Error())
	}
	if filter.To, err = parseTime(c.Query("to"), true); err != nil {
		return ledger.Filter{}, errors.New("invalid to: " + err.Error())
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return ledger.Filter{}, errors.New("limit must be a positive integer")
		}
		filter.Limit = min(n, maxListLimit)
	}
	return filter, nil
}

// parseTime accepts RFC 3339 timestamps or calendar dates. A date used as an
// upper bound covers the whole day.
func parseTime(raw string, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, errors.New("expected YYYY-MM-DD or RFC 3339")
	}
	if upper {
		return day.AddDate(0, 0, 1), nil
	}
	return day, nil
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrSelfTransfer):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrRecipientNotFound), errors.Is(err, ledger.ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrStorageUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, "storage unavailable")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
