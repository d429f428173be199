// Package order implements the order lifecycle: creation from a cart,
// the payment/cancel/complete state machine, and the compensations that keep
// the stock ledger and the durable store consistent without a cross-store
// transaction.
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
)

// Statuses lists every lifecycle state, used by tally readers.
var Statuses = []Status{StatusPendingPayment, StatusPaid, StatusCompleted, StatusCancelled}

// Default shipping details for the single storefront user.
const (
	DefaultUserID   = "000000000001"
	DefaultReceiver = "Default Receiver"
	DefaultPhone    = "13800138000"
	DefaultAddress  = "Room 1001, Some Tower, Chaoyang District, Beijing"
	DefaultPostcode = "100000"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrEmptyCart         = errors.New("no items to order")
	ErrMissingCartLines  = errors.New("some products are not in the cart")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPendingPayment: {StatusPaid, StatusCancelled},
	StatusPaid:           {StatusCompleted},
	StatusCompleted:      {}, // terminal state
	StatusCancelled:      {}, // terminal state
}

type Line struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type Order struct {
	OrderID        string          `json:"order_id"`
	UserID         string          `json:"user_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ActualAmount   decimal.Decimal `json:"actual_amount"`
	Status         Status          `json:"status"`
	CreateTime     time.Time       `json:"create_time"`
	PayTime        *time.Time      `json:"pay_time,omitempty"`
	CancelTime     *time.Time      `json:"cancel_time,omitempty"`
	CompleteTime   *time.Time      `json:"complete_time,omitempty"`

	Receiver string `json:"receiver"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Postcode string `json:"postcode"`

	Items []Line `json:"items"`
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

func (o *Order) transitionError(target Status) error {
	return fmt.Errorf("%w: order %s cannot go from %s to %s", ErrInvalidTransition, o.OrderID, o.Status, target)
}
