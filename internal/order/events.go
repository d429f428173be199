package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventCreated   = "order.created"
	EventPaid      = "order.paid"
	EventCancelled = "order.cancelled"
	EventCompleted = "order.completed"
)

// Event is a lifecycle notification emitted after a successful transition.
// Publishing is best-effort; downstream consumers must tolerate gaps.
type Event struct {
	Type       string          `json:"type"`
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	Status     Status          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event Event) error
}
