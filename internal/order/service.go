package order

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/storefront-core/internal/cart"
	"github.com/example/storefront-core/internal/product"
	"github.com/example/storefront-core/internal/saga"
)

// Repository persists Order aggregates in the column store. GetByID and
// Update return ErrNotFound (possibly wrapped) for unknown order ids.
type Repository interface {
	Save(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	List(ctx context.Context, status Status, page, size int) ([]*Order, error)
}

// StockReserver is the stock ledger surface the lifecycle needs.
type StockReserver interface {
	Reserve(ctx context.Context, productID string, qty int) (bool, error)
	Restore(ctx context.Context, productID string, qty int) error
	Peek(ctx context.Context, productID string) (int, bool, error)
}

// Cart supplies the lines an order is created from and removes them after
// checkout.
type Cart interface {
	GetAll(ctx context.Context, userID string) ([]cart.Item, error)
	Remove(ctx context.Context, userID string, productIDs ...string) error
}

// StatisticsEnqueuer hands completed orders to the aggregation pipeline.
type StatisticsEnqueuer interface {
	Enqueue(ctx context.Context, orderID string) error
}

type IDGenerator interface {
	Next(ctx context.Context) string
}

type Service struct {
	repo     Repository
	stock    StockReserver
	cart     Cart
	products product.Lookup
	ids      IDGenerator
	stats    StatisticsEnqueuer
	tally    *Tally
	events   EventPublisher
	now      func() time.Time
}

func NewService(
	repo Repository,
	stock StockReserver,
	crt Cart,
	products product.Lookup,
	ids IDGenerator,
	stats StatisticsEnqueuer,
	tally *Tally,
	events EventPublisher,
) *Service {
	return &Service{
		repo:     repo,
		stock:    stock,
		cart:     crt,
		products: products,
		ids:      ids,
		stats:    stats,
		tally:    tally,
		events:   events,
		now:      time.Now,
	}
}

// Create builds an order from the given cart lines: it reserves stock for
// every line, persists the order, and removes the ordered lines from the
// cart. A failure anywhere after reservation restores every unit reserved
// for this attempt.
func (s *Service) Create(ctx context.Context, userID string, productIDs []string) (*Order, error) {
	if len(productIDs) == 0 {
		return nil, ErrEmptyCart
	}

	selected, err := s.selectCartLines(ctx, userID, productIDs)
	if err != nil {
		return nil, err
	}

	// Best-effort early rejection; the authoritative check is the atomic
	// reservation below.
	if err := s.precheckStock(ctx, selected); err != nil {
		return nil, err
	}

	lines, total, err := s.buildLines(ctx, selected)
	if err != nil {
		return nil, err
	}

	o := &Order{
		OrderID:        s.ids.Next(ctx),
		UserID:         userID,
		TotalAmount:    total,
		DiscountAmount: decimal.Zero,
		ActualAmount:   total,
		Status:         StatusPendingPayment,
		CreateTime:     s.now(),
		Receiver:       DefaultReceiver,
		Phone:          DefaultPhone,
		Address:        DefaultAddress,
		Postcode:       DefaultPostcode,
		Items:          lines,
	}

	steps := make([]saga.Step, 0, len(lines)+2)
	for _, line := range lines {
		line := line
		steps = append(steps, saga.Step{
			Name: fmt.Sprintf("reserve-stock-%s", line.ProductID),
			Run: func(ctx context.Context) error {
				ok, err := s.stock.Reserve(ctx, line.ProductID, line.Quantity)
				if err != nil {
					return err
				}
				if !ok {
					// Raced with a concurrent reservation after the pre-check.
					return fmt.Errorf("%w: product %s", ErrInsufficientStock, line.ProductID)
				}
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.stock.Restore(ctx, line.ProductID, line.Quantity)
			},
		})
	}
	steps = append(steps,
		saga.Step{
			Name: "persist-order",
			Run: func(ctx context.Context) error {
				return s.repo.Save(ctx, o)
			},
		},
		saga.Step{
			Name: "remove-cart-lines",
			Run: func(ctx context.Context) error {
				return s.cart.Remove(ctx, userID, productIDs...)
			},
		},
	)

	if err := saga.Execute(ctx, steps); err != nil {
		log.Printf("[Order] Failed to create order %s: %v", o.OrderID, err)
		return nil, err
	}

	s.tally.RecordCreated(ctx)
	s.publish(ctx, EventCreated, o)
	log.Printf("[Order] Created order %s with %d lines, amount %s", o.OrderID, len(lines), o.ActualAmount)
	return o, nil
}

// Pay moves an order from PENDING_PAYMENT to PAID.
func (s *Service) Pay(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.CanTransitionTo(StatusPaid) {
		return nil, o.transitionError(StatusPaid)
	}

	from := o.Status
	o.Status = StatusPaid
	at := s.now()
	o.PayTime = &at

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("pay order %s: %w", orderID, err)
	}

	s.tally.RecordTransition(ctx, from, StatusPaid)
	s.publish(ctx, EventPaid, o)
	log.Printf("[Order] Paid order %s", orderID)
	return o, nil
}

// Cancel moves an order from PENDING_PAYMENT to CANCELLED, returning its
// reserved stock. Stock is restored before the status flips: if the status
// update then fails, the cancellation can be retried with stock already back.
func (s *Service) Cancel(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.CanTransitionTo(StatusCancelled) {
		return nil, o.transitionError(StatusCancelled)
	}

	for _, line := range o.Items {
		if err := s.stock.Restore(ctx, line.ProductID, line.Quantity); err != nil {
			return nil, fmt.Errorf("restore stock for product %s: %w", line.ProductID, err)
		}
	}

	from := o.Status
	o.Status = StatusCancelled
	at := s.now()
	o.CancelTime = &at

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("cancel order %s: %w", orderID, err)
	}

	s.tally.RecordTransition(ctx, from, StatusCancelled)
	s.publish(ctx, EventCancelled, o)
	log.Printf("[Order] Cancelled order %s, restored stock for %d lines", orderID, len(o.Items))
	return o, nil
}

// Complete moves an order from PAID to COMPLETED and hands it to the
// statistics pipeline. An enqueue failure is logged, not fatal; statistics
// are eventually consistent.
func (s *Service) Complete(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.CanTransitionTo(StatusCompleted) {
		return nil, o.transitionError(StatusCompleted)
	}

	from := o.Status
	o.Status = StatusCompleted
	at := s.now()
	o.CompleteTime = &at

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("complete order %s: %w", orderID, err)
	}

	if err := s.stats.Enqueue(ctx, orderID); err != nil {
		log.Printf("[Order] Failed to enqueue order %s for statistics: %v", orderID, err)
	}

	s.tally.RecordTransition(ctx, from, StatusCompleted)
	s.publish(ctx, EventCompleted, o)
	log.Printf("[Order] Completed order %s", orderID)
	return o, nil
}

// Get returns one order by its logical id.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// List returns orders newest-first, optionally filtered by status. Page is
// 1-based; non-positive paging values fall back to the first page of 10.
func (s *Service) List(ctx context.Context, status Status, page, size int) ([]*Order, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	return s.repo.List(ctx, status, page, size)
}

func (s *Service) selectCartLines(ctx context.Context, userID string, productIDs []string) ([]cart.Item, error) {
	lines, err := s.cart.GetAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read cart for user %s: %w", userID, err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	byID := make(map[string]cart.Item, len(lines))
	for _, line := range lines {
		byID[line.ProductID] = line
	}

	selected := make([]cart.Item, 0, len(productIDs))
	for _, id := range productIDs {
		line, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", ErrMissingCartLines, id)
		}
		selected = append(selected, line)
	}
	return selected, nil
}

func (s *Service) precheckStock(ctx context.Context, items []cart.Item) error {
	for _, item := range items {
		available, found, err := s.stock.Peek(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("check stock for product %s: %w", item.ProductID, err)
		}
		if !found || available < item.Quantity {
			return fmt.Errorf("%w: product %s has %d available, want %d",
				ErrInsufficientStock, item.ProductID, available, item.Quantity)
		}
	}
	return nil
}

// buildLines resolves catalog data for every cart line and totals the order.
// Prices come from the product lookup, never from the caller.
func (s *Service) buildLines(ctx context.Context, items []cart.Item) ([]Line, decimal.Decimal, error) {
	lines := make([]Line, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("look up product %s: %w", item.ProductID, err)
		}
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines = append(lines, Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Category:    p.Category,
			Brand:       p.Brand,
			UnitPrice:   p.Price,
			Quantity:    item.Quantity,
			LineTotal:   lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return lines, total, nil
}

func (s *Service) publish(ctx context.Context, eventType string, o *Order) {
	if s.events == nil {
		return
	}
	event := Event{
		Type:       eventType,
		OrderID:    o.OrderID,
		UserID:     o.UserID,
		Status:     o.Status,
		Amount:     o.ActualAmount,
		OccurredAt: s.now(),
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		log.Printf("[Order] Failed to publish %s for order %s: %v", eventType, o.OrderID, err)
	}
}
