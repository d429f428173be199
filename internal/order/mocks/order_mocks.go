// Package mocks provides in-memory collaborators for order lifecycle tests.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/storefront-core/internal/order"
)

// Repository keeps orders in memory with error and callback injection.
type Repository struct {
	mu     sync.Mutex
	orders map[string]*order.Order

	SaveErr      error
	GetErr       error
	UpdateErr    error
	ListErr      error
	SaveCalls    int
	UpdateCalls  int
	SaveCallback func(o *order.Order)
}

func NewRepository() *Repository {
	return &Repository{orders: make(map[string]*order.Order)}
}

func (r *Repository) Save(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.SaveCalls++
	if r.SaveCallback != nil {
		r.SaveCallback(o)
	}
	if r.SaveErr != nil {
		return r.SaveErr
	}
	clone := *o
	r.orders[o.OrderID] = &clone
	return nil
}

func (r *Repository) GetByID(_ context.Context, orderID string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.GetErr != nil {
		return nil, r.GetErr
	}
	o, ok := r.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", order.ErrNotFound, orderID)
	}
	clone := *o
	return &clone, nil
}

func (r *Repository) Update(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.UpdateCalls++
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	if _, ok := r.orders[o.OrderID]; !ok {
		return fmt.Errorf("%w: %s", order.ErrNotFound, o.OrderID)
	}
	clone := *o
	r.orders[o.OrderID] = &clone
	return nil
}

func (r *Repository) List(_ context.Context, status order.Status, page, size int) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ListErr != nil {
		return nil, r.ListErr
	}
	all := make([]*order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if status != "" && o.Status != status {
			continue
		}
		clone := *o
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreateTime.Equal(all[j].CreateTime) {
			return all[i].CreateTime.After(all[j].CreateTime)
		}
		return all[i].OrderID > all[j].OrderID
	})

	start := (page - 1) * size
	if start >= len(all) {
		return nil, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

// Stored returns the persisted copy for assertions.
func (r *Repository) Stored(orderID string) *order.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[orderID]
}

// Stock is a scripted order.StockReserver. FailReserveFor forces a
// reservation to report insufficient stock even when Peek said otherwise,
// reproducing the race window between the pre-check and the reservation.
type Stock struct {
	mu     sync.Mutex
	levels map[string]int

	ReserveErr     error
	RestoreErr     error
	FailReserveFor map[string]bool
	RestoreCalls   []string
}

func NewStock() *Stock {
	return &Stock{levels: make(map[string]int), FailReserveFor: make(map[string]bool)}
}

func (s *Stock) Set(productID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[productID] = qty
}

func (s *Stock) Reserve(_ context.Context, productID string, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ReserveErr != nil {
		return false, s.ReserveErr
	}
	if s.FailReserveFor[productID] {
		return false, nil
	}
	available, ok := s.levels[productID]
	if !ok || available < qty {
		return false, nil
	}
	s.levels[productID] = available - qty
	return true, nil
}

func (s *Stock) Restore(_ context.Context, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.RestoreErr != nil {
		return s.RestoreErr
	}
	s.levels[productID] += qty
	s.RestoreCalls = append(s.RestoreCalls, productID)
	return nil
}

func (s *Stock) Peek(_ context.Context, productID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	available, ok := s.levels[productID]
	return available, ok, nil
}

// Level returns the current quantity for assertions.
func (s *Stock) Level(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[productID]
}

// Enqueuer records statistics enqueues.
type Enqueuer struct {
	mu         sync.Mutex
	Queue      []string
	EnqueueErr error
}

func (e *Enqueuer) Enqueue(_ context.Context, orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.EnqueueErr != nil {
		return e.EnqueueErr
	}
	e.Queue = append(e.Queue, orderID)
	return nil
}

// Publisher records lifecycle events.
type Publisher struct {
	mu         sync.Mutex
	Events     []order.Event
	PublishErr error
}

func (p *Publisher) PublishOrderEvent(_ context.Context, event order.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PublishErr != nil {
		return p.PublishErr
	}
	p.Events = append(p.Events, event)
	return nil
}
