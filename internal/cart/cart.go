// Package cart holds a user's shopping cart across the cache and the durable
// store. The cache copy is the low-latency path for repeated edits; the
// durable copy survives cache eviction. Every mutation writes the cache first
// and then re-serializes the whole cart to the durable store, reverting the
// cache when the durable write fails.
package cart

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound      = errors.New("item not found in cart")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// Item is one cart line, keyed by product within a user's cart.
type Item struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
	Selected  bool      `json:"selected"`
}

// Detail is a cart line joined with its catalog data.
type Detail struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	AddedAt     time.Time       `json:"added_at"`
	Selected    bool            `json:"selected"`
}

// Summary is the full cart view: enriched lines plus totals over every line
// that still resolves in the catalog.
type Summary struct {
	UserID        string          `json:"user_id"`
	Items         []Detail        `json:"items"`
	TotalQuantity int             `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}
