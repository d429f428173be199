package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"
)

type EnvelopeHandler func(ctx context.Context, envelope Envelope) error

// Consumer tails the order event topic. Used by the audit logger in the main
// process; external systems bring their own consumers.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

func (c *Consumer) Consume(ctx context.Context, handler EnvelopeHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[Events] Error reading message: %v", err)
				continue
			}

			var envelope Envelope
			if err := json.Unmarshal(msg.Value, &envelope); err != nil {
				log.Printf("[Events] Skipping malformed message for key %s: %v", msg.Key, err)
				continue
			}
			if err := handler(ctx, envelope); err != nil {
				log.Printf("[Events] Error handling event %s: %v", envelope.EventID, err)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
