package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Templates understood by the email sender.
const (
	TemplateBookingReceived  = "booking_received"
	TemplateBookingConfirmed = "booking_confirmed"
	TemplatePaymentFailed    = "payment_failed"
	TemplateBookingCancelled = "booking_cancelled"
	TemplateBookingExpired   = "booking_expired"
	TemplateTripCompleted    = "trip_completed"
)

// Notification is an email request handed to the external sender.
type Notification struct {
	ID        string            `json:"id"`
	Template  string            `json:"template"`
	To        string            `json:"to"`
	Name      string            `json:"name,omitempty"`
	BookingID string            `json:"bookingId"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type Notifier interface {
	Send(ctx context.Context, n Notification) error
	Close() error
}

type Config struct {
	Driver  string
	Brokers []string
	Topic   string
}

// New returns the notifier selected by cfg.Driver.
func New(cfg Config) (Notifier, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "log":
		return NewLogNotifier(slog.Default()), nil
	case "kafka":
		if len(cfg.Brokers) == 0 || cfg.Topic == "" {
			return nil, fmt.Errorf("kafka notifier requires brokers and topic")
		}
		return NewKafkaNotifier(cfg.Brokers, cfg.Topic), nil
	default:
		return nil, fmt.Errorf("unknown notify driver: %s", cfg.Driver)
	}
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Send(ctx context.Context, n Notification) error {
	l.log.Info("Notification",
		"template", n.Template, "to", n.To, "booking_id", n.BookingID, "data", n.Data)
	return nil
}

func (l *LogNotifier) Close() error { return nil }
