// Package notify fans confirmation events out to facility administrators.
// Delivery is best-effort: a failure is logged by the caller and never rolls
// back a confirmation or settlement.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Event is the structured payload delivered to each recipient channel.
type Event struct {
	Kind       string            `json:"kind"` // e.g. "booking.confirmed"
	OccurredAt string            `json:"occurred_at"`
	Targets    []string          `json:"targets"`
	Message    string            `json:"message"`
	Data       map[string]string `json:"data,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// AMQPNotifier publishes events to a topic exchange; downstream workers own
// the actual push delivery.
type AMQPNotifier struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPNotifier{conn: conn, ch: ch, exchange: exchange}, nil
}

var _ Notifier = (*AMQPNotifier)(nil)

func (n *AMQPNotifier) Notify(ctx context.Context, event Event) error {
	if event.OccurredAt == "" {
		event.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.ch.PublishWithContext(ctx, n.exchange, event.Kind, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (n *AMQPNotifier) Close() error {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

// NoopNotifier serves tests and deployments without a broker configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, event Event) error { return nil }
