// Package kafka publishes order lifecycle events for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/example/storefront-core/internal/order"
)

// Envelope wraps a lifecycle event with delivery metadata.
type Envelope struct {
	EventID     string      `json:"event_id"`
	Event       order.Event `json:"event"`
	PublishedAt time.Time   `json:"published_at"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

// PublishOrderEvent writes one event keyed by order id, so all events for an
// order land in the same partition in order.
func (p *Producer) PublishOrderEvent(ctx context.Context, event order.Event) error {
	envelope := Envelope{
		EventID:     uuid.New().String(),
		Event:       event,
		PublishedAt: time.Now(),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
