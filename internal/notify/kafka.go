package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notifications to a topic consumed by the email sender.
// Writes are synchronous so the NATS consumer only acks events that reached Kafka.
type KafkaNotifier struct {
	w messageWriter
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (k *KafkaNotifier) Send(ctx context.Context, n Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg := kafka.Message{
		// keyed by booking so one booking's emails stay ordered
		Key:   []byte(n.BookingID),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-template", Value: []byte(n.Template)},
		},
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write notification %s: %w", n.ID, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.w.Close()
}
