package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/storefront-core/internal/cache"
	"github.com/example/storefront-core/internal/product"
	"github.com/example/storefront-core/internal/saga"
)

// DurableStore is the persistent copy of a cart, implemented by the column
// store. LoadCart reports false when no durable row exists for the user.
type DurableStore interface {
	SaveCart(ctx context.Context, userID string, items map[string]Item) error
	LoadCart(ctx context.Context, userID string) (map[string]Item, bool, error)
}

// StockChecker reports available quantity. Cart edits check stock but never
// reserve it; reservation happens at order creation.
type StockChecker interface {
	Peek(ctx context.Context, productID string) (int, bool, error)
}

type Service struct {
	store    cache.Store
	durable  DurableStore
	stock    StockChecker
	products product.Lookup
	now      func() time.Time
}

func NewService(store cache.Store, durable DurableStore, stock StockChecker, products product.Lookup) *Service {
	return &Service{store: store, durable: durable, stock: stock, products: products, now: time.Now}
}

// Add puts qty units of a product into the user's cart, merging with any
// existing line. Stock is checked against the merged quantity.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, qty)
	}

	items, err := s.loadCart(ctx, userID)
	if err != nil {
		return err
	}

	next := copyItems(items)
	line, exists := next[productID]
	if !exists {
		line = Item{ProductID: productID, AddedAt: s.now(), Selected: true}
	}
	line.Quantity += qty

	if err := s.checkStock(ctx, productID, line.Quantity); err != nil {
		return err
	}
	next[productID] = line

	return s.commit(ctx, userID, items, next)
}

// GetAll returns the user's cart lines, oldest first.
func (s *Service) GetAll(ctx context.Context, userID string) ([]Item, error) {
	items, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines := make([]Item, 0, len(items))
	for _, item := range items {
		lines = append(lines, item)
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].AddedAt.Before(lines[j].AddedAt)
	})
	return lines, nil
}

// View returns the cart joined with catalog data plus totals, oldest line
// first. Lines whose product no longer resolves in the catalog are skipped
// rather than failing the whole view.
func (s *Service) View(ctx context.Context, userID string) (*Summary, error) {
	items, err := s.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		UserID:      userID,
		Items:       make([]Detail, 0, len(items)),
		TotalAmount: decimal.Zero,
	}
	for _, item := range items {
		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				log.Printf("[Cart] Product %s no longer in catalog, skipping cart line", item.ProductID)
			} else {
				log.Printf("[Cart] Failed to resolve product %s for cart view: %v", item.ProductID, err)
			}
			continue
		}

		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		summary.Items = append(summary.Items, Detail{
			ProductID:   item.ProductID,
			ProductName: p.Name,
			Category:    p.Category,
			Brand:       p.Brand,
			UnitPrice:   p.Price,
			Quantity:    item.Quantity,
			LineTotal:   lineTotal,
			AddedAt:     item.AddedAt,
			Selected:    item.Selected,
		})
		summary.TotalQuantity += item.Quantity
		summary.TotalAmount = summary.TotalAmount.Add(lineTotal)
	}
	return summary, nil
}

// UpdateQuantity sets the quantity of an existing cart line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, qty)
	}

	items, err := s.loadCart(ctx, userID)
	if err != nil {
		return err
	}

	line, exists := items[productID]
	if !exists {
		return fmt.Errorf("%w: product %s", ErrItemNotFound, productID)
	}

	if err := s.checkStock(ctx, productID, qty); err != nil {
		return err
	}

	next := copyItems(items)
	line.Quantity = qty
	next[productID] = line

	return s.commit(ctx, userID, items, next)
}

// Remove deletes the given product lines. Products not present in the cart
// are ignored. The cache copy drops just the removed hash fields instead of
// rewriting the whole cart.
func (s *Service) Remove(ctx context.Context, userID string, productIDs ...string) error {
	items, err := s.loadCart(ctx, userID)
	if err != nil {
		return err
	}

	next := copyItems(items)
	removed := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		if _, exists := next[id]; exists {
			delete(next, id)
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return nil
	}

	return saga.Execute(ctx, []saga.Step{
		{
			Name: "drop-cart-lines",
			Run: func(ctx context.Context) error {
				return s.store.HDel(ctx, cache.CartKey(userID), removed...)
			},
			Compensate: func(ctx context.Context) error {
				return s.writeCache(ctx, userID, items)
			},
		},
		{
			Name: "persist-cart",
			Run: func(ctx context.Context) error {
				return s.durable.SaveCart(ctx, userID, next)
			},
		},
	})
}

// Clear empties the cart in both stores.
func (s *Service) Clear(ctx context.Context, userID string) error {
	items, err := s.loadCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.commit(ctx, userID, items, map[string]Item{})
}

// SetSelected flips the selection flag on the given lines. Products not
// present in the cart are ignored.
func (s *Service) SetSelected(ctx context.Context, userID string, productIDs []string, selected bool) error {
	items, err := s.loadCart(ctx, userID)
	if err != nil {
		return err
	}

	next := copyItems(items)
	changed := false
	for _, id := range productIDs {
		line, exists := next[id]
		if !exists || line.Selected == selected {
			continue
		}
		line.Selected = selected
		next[id] = line
		changed = true
	}
	if !changed {
		return nil
	}

	return s.commit(ctx, userID, items, next)
}

// commit writes the post-mutation cart to the cache and then to the durable
// store. A durable failure reverts the cache to the pre-mutation snapshot so
// the two copies never diverge.
func (s *Service) commit(ctx context.Context, userID string, snapshot, next map[string]Item) error {
	return saga.Execute(ctx, []saga.Step{
		{
			Name: "write-cart-cache",
			Run: func(ctx context.Context) error {
				return s.writeCache(ctx, userID, next)
			},
			Compensate: func(ctx context.Context) error {
				return s.writeCache(ctx, userID, snapshot)
			},
		},
		{
			Name: "persist-cart",
			Run: func(ctx context.Context) error {
				return s.durable.SaveCart(ctx, userID, next)
			},
		},
	})
}

func (s *Service) checkStock(ctx context.Context, productID string, qty int) error {
	available, found, err := s.stock.Peek(ctx, productID)
	if err != nil {
		return fmt.Errorf("check stock for product %s: %w", productID, err)
	}
	if !found || available < qty {
		return fmt.Errorf("%w: product %s has %d available, want %d", ErrInsufficientStock, productID, available, qty)
	}
	return nil
}

// loadCart reads the cache copy and falls back to the durable copy on a
// miss, repopulating the cache from it.
func (s *Service) loadCart(ctx context.Context, userID string) (map[string]Item, error) {
	fields, err := s.store.HGetAll(ctx, cache.CartKey(userID))
	if err != nil {
		return nil, fmt.Errorf("read cart cache for user %s: %w", userID, err)
	}
	if len(fields) > 0 {
		return unmarshalItems(fields)
	}

	items, found, err := s.durable.LoadCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load durable cart for user %s: %w", userID, err)
	}
	if !found || len(items) == 0 {
		return map[string]Item{}, nil
	}

	if err := s.writeCache(ctx, userID, items); err != nil {
		log.Printf("[Cart] Failed to repopulate cache for user %s: %v", userID, err)
	}
	return items, nil
}

func (s *Service) writeCache(ctx context.Context, userID string, items map[string]Item) error {
	key := cache.CartKey(userID)
	if err := s.store.Del(ctx, key); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for productID, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal cart line %s: %w", productID, err)
		}
		if err := s.store.HSet(ctx, key, productID, string(raw)); err != nil {
			return err
		}
	}
	return s.store.Expire(ctx, key, cache.CartTTL)
}

func unmarshalItems(fields map[string]string) (map[string]Item, error) {
	items := make(map[string]Item, len(fields))
	for productID, raw := range fields {
		var item Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("unmarshal cart line %s: %w", productID, err)
		}
		items[productID] = item
	}
	return items, nil
}

func copyItems(items map[string]Item) map[string]Item {
	next := make(map[string]Item, len(items))
	for k, v := range items {
		next[k] = v
	}
	return next
}
