package notification

import (
	"context"
	"log/slog"
	"time"
)

const (
	// KindOTPChallenge carries a login verification code.
	KindOTPChallenge = "otp_challenge"
	// KindTransferReceived tells a recipient that funds arrived.
	KindTransferReceived = "transfer_received"
	// KindDepositCompleted confirms a deposit to the depositor.
	KindDepositCompleted = "deposit_completed"
)

// Message describes a notification payload.
type Message struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Body        string `json:"body"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger. It stands in for a
// real delivery channel during development.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// Async hands messages to the wrapped notifier on a separate goroutine so
// callers never wait on delivery. Failures are logged.
type Async struct {
	next    Notifier
	logger  *slog.Logger
	timeout time.Duration
}

// NewAsync wraps next with fire-and-forget delivery.
func NewAsync(next Notifier, logger *slog.Logger) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{next: next, logger: logger, timeout: 10 * time.Second}
}

// Send always returns nil; the outcome of delivery is only logged.
func (a *Async) Send(ctx context.Context, message Message) error {
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if err := a.next.Send(sendCtx, message); err != nil {
			a.logger.Warn("notification delivery failed",
				slog.String("kind", message.Kind),
				slog.Any("error", err),
			)
		}
	}()
	return nil
}
