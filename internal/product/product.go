// Package product defines the catalog view the ordering flow depends on.
package product

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID       string          `json:"product_id"`
	Name     string          `json:"product_name"`
	Category string          `json:"category"`
	Brand    string          `json:"brand"`
	Price    decimal.Decimal `json:"price"`
}

// Lookup resolves catalog data at order time. The ordering core never trusts
// caller-supplied prices; it re-reads them through this interface.
type Lookup interface {
	GetByID(ctx context.Context, productID string) (*Product, error)
}
