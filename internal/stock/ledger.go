package stock

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/example/storefront-core/internal/cache"
)

// Ledger keeps the per-product available-quantity counters in the cache.
// Reserve is the only operation that needs atomicity across callers; the
// cache engine's scripted check-and-decrement serializes reservations per
// product without an external lock.
type Ledger struct {
	store cache.Store
}

func NewLedger(store cache.Store) *Ledger {
	return &Ledger{store: store}
}

// Set initializes or overwrites the available quantity for a product.
func (l *Ledger) Set(ctx context.Context, productID string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("stock quantity must not be negative, got %d", quantity)
	}
	return l.store.Set(ctx, cache.StockKey(productID), strconv.Itoa(quantity), cache.StockTTL)
}

// Reserve atomically checks that at least qty units are available and
// decrements by qty. Returns false without mutating when the stock record is
// absent or insufficient; absence is "no stock", not unlimited stock.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("reserve quantity must be positive, got %d", qty)
	}
	ok, err := l.store.CheckAndDecr(ctx, cache.StockKey(productID), int64(qty))
	if err != nil {
		return false, fmt.Errorf("failed to reserve stock for product %s: %w", productID, err)
	}
	return ok, nil
}

// Restore unconditionally returns qty units to the available count. Used to
// roll back reservations and to return stock on order cancellation.
func (l *Ledger) Restore(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("restore quantity must be positive, got %d", qty)
	}
	if _, err := l.store.IncrBy(ctx, cache.StockKey(productID), int64(qty)); err != nil {
		return fmt.Errorf("failed to restore stock for product %s: %w", productID, err)
	}
	log.Printf("[Stock] Restored %d units for product %s", qty, productID)
	return nil
}

// Peek returns the current available quantity. The second return is false
// when no stock record exists for the product.
func (l *Ledger) Peek(ctx context.Context, productID string) (int, bool, error) {
	raw, ok, err := l.store.Get(ctx, cache.StockKey(productID))
	if err != nil {
		return 0, false, fmt.Errorf("failed to read stock for product %s: %w", productID, err)
	}
	if !ok {
		return 0, false, nil
	}
	qty, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt stock value %q for product %s: %w", raw, productID, err)
	}
	return qty, true, nil
}
