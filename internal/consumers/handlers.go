package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"

	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/external"
	"luxtravel/internal/models"
	"luxtravel/internal/notify"
)

// RefundRecorder marks a cancelled booking as refunded once the gateway returned the money.
type RefundRecorder interface {
	MarkRefunded(ctx context.Context, id string) (*models.Booking, error)
}

type Handlers struct {
	notifier notify.Notifier
	gateway  external.PaymentGateway
	refunds  RefundRecorder
	timeout  time.Duration
}

func NewHandlers(notifier notify.Notifier, gateway external.PaymentGateway, refunds RefundRecorder) *Handlers {
	return &Handlers{
		notifier: notifier,
		gateway:  gateway,
		refunds:  refunds,
		timeout:  30 * time.Second,
	}
}

// errPoison marks a message that can never be processed and must not be redelivered.
var errPoison = errors.New("malformed message")

// Ack adapts a data handler to NATS Streaming. Messages are acknowledged when handled or
// malformed; anything else is left unacknowledged and redelivered after AckWait.
func (h *Handlers) Ack(subject string, handle func(ctx context.Context, data []byte) error) stan.MsgHandler {
	return func(m *stan.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		err := handle(ctx, m.Data)
		switch {
		case err == nil:
		case errors.Is(err, errPoison):
			slog.Error("Dropping malformed message", "subject", subject, "sequence", m.Sequence, "error", err)
		default:
			slog.Error("Failed to handle message, awaiting redelivery",
				"subject", subject,
				"sequence", m.Sequence,
				"redelivered", m.Redelivered,
				"error", err)
			return
		}

		if err := m.Ack(); err != nil {
			slog.Error("Failed to ack message", "subject", subject, "sequence", m.Sequence, "error", err)
		}
	}
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errPoison, err)
	}
	return nil
}

func (h *Handlers) send(ctx context.Context, n notify.Notification) error {
	n.ID = uuid.NewString()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.To == "" {
		slog.Warn("Skipping notification without recipient", "template", n.Template, "booking_id", n.BookingID)
		return nil
	}
	if err := h.notifier.Send(ctx, n); err != nil {
		return fmt.Errorf("failed to send %s notification for %s: %w", n.Template, n.BookingID, err)
	}
	return nil
}

func (h *Handlers) HandleBookingCreated(ctx context.Context, data []byte) error {
	var event models.BookingCreatedEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	slog.Info("Processing booking created event", "booking_id", event.BookingID)

	return h.send(ctx, notify.Notification{
		Template:  notify.TemplateBookingReceived,
		To:        event.ContactEmail,
		Name:      event.ContactName,
		BookingID: event.BookingID,
		Data: map[string]string{
			"catalogItemId": event.CatalogItemID,
			"totalPrice":    strconv.FormatInt(event.TotalPrice, 10),
		},
	})
}

func (h *Handlers) HandlePaymentCompleted(ctx context.Context, data []byte) error {
	var event models.PaymentCompletedEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	slog.Info("Processing payment completed event", "booking_id", event.BookingID)

	return h.send(ctx, notify.Notification{
		Template:  notify.TemplateBookingConfirmed,
		To:        event.ContactEmail,
		Name:      event.ContactName,
		BookingID: event.BookingID,
		Data: map[string]string{
			"paymentId": event.PaymentID,
			"amount":    strconv.FormatInt(event.Amount, 10),
		},
	})
}

func (h *Handlers) HandlePaymentFailed(ctx context.Context, data []byte) error {
	var event models.PaymentFailedEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	slog.Info("Processing payment failed event", "booking_id", event.BookingID, "reason", event.Reason)

	return h.send(ctx, notify.Notification{
		Template:  notify.TemplatePaymentFailed,
		To:        event.ContactEmail,
		Name:      event.ContactName,
		BookingID: event.BookingID,
		Data:      map[string]string{"reason": event.Reason},
	})
}

func (h *Handlers) HandleBookingCancelled(ctx context.Context, data []byte) error {
	var event models.BookingCancelledEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	slog.Info("Processing booking cancelled event", "booking_id", event.BookingID)

	return h.send(ctx, notify.Notification{
		Template:  notify.TemplateBookingCancelled,
		To:        event.ContactEmail,
		Name:      event.ContactName,
		BookingID: event.BookingID,
		Data: map[string]string{
			"reason":        event.Reason,
			"paymentStatus": string(event.PaymentStatus),
		},
	})
}

func (h *Handlers) HandleBookingExpired(ctx context.Context, data []byte) error {
	var event models.BookingExpiredEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	slog.Info("Processing booking expired event", "booking_id", event.BookingID)

	return h.send(ctx, notify.Notification{
		Template:  notify.TemplateBookingExpired,
		To:        event.ContactEmail,
		Name:      event.ContactName,
		BookingID: event.BookingID,
		Data:      map[string]string{"reason": event.Reason},
	})
}

func (h *Handlers) HandleBookingCompleted(ctx context.Context, data []byte) error {
	var event models.BookingCompletedEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	return h.send(ctx, notify.Notification{
		Template:  notify.TemplateTripCompleted,
		To:        event.ContactEmail,
		Name:      event.ContactName,
		BookingID: event.BookingID,
	})
}

// HandleRefundRequested refunds a cancelled paid booking at the gateway and records it.
// A gateway failure leaves the message unacknowledged so the refund is retried.
func (h *Handlers) HandleRefundRequested(ctx context.Context, data []byte) error {
	var event models.RefundRequestedEvent
	if err := decode(data, &event); err != nil {
		return err
	}
	if event.PaymentReference == "" {
		return fmt.Errorf("%w: refund for %s has no payment reference", errPoison, event.BookingID)
	}

	slog.Info("Processing refund request", "booking_id", event.BookingID, "amount", event.Amount)

	reason := event.Reason
	if reason == "" {
		reason = "booking cancelled"
	}
	if err := h.gateway.Refund(ctx, event.PaymentReference, event.Amount, reason); err != nil {
		return fmt.Errorf("refund of %s failed: %w", event.BookingID, err)
	}
	if event.Unrecorded {
		// the booking never held this charge
		return nil
	}

	if _, err := h.refunds.MarkRefunded(ctx, event.BookingID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrInvalidState) {
			slog.Error("Refund issued but booking could not be marked", "booking_id", event.BookingID, "error", err)
			return nil
		}
		return fmt.Errorf("failed to record refund for %s: %w", event.BookingID, err)
	}
	return nil
}
