package mocks

import (
	"context"
	"sync"

	"github.com/example/storefront-core/internal/cart"
)

// DurableStore is an in-memory cart.DurableStore for tests.
type DurableStore struct {
	mu    sync.Mutex
	carts map[string]map[string]cart.Item

	SaveErr   error
	LoadErr   error
	SaveCalls int
	LoadCalls int
}

func NewDurableStore() *DurableStore {
	return &DurableStore{carts: make(map[string]map[string]cart.Item)}
}

func (s *DurableStore) SaveCart(_ context.Context, userID string, items map[string]cart.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SaveCalls++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	saved := make(map[string]cart.Item, len(items))
	for k, v := range items {
		saved[k] = v
	}
	s.carts[userID] = saved
	return nil
}

func (s *DurableStore) LoadCart(_ context.Context, userID string) (map[string]cart.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LoadCalls++
	if s.LoadErr != nil {
		return nil, false, s.LoadErr
	}
	items, ok := s.carts[userID]
	if !ok {
		return nil, false, nil
	}
	out := make(map[string]cart.Item, len(items))
	for k, v := range items {
		out[k] = v
	}
	return out, true, nil
}

// Items returns the durable copy for assertions.
func (s *DurableStore) Items(userID string) map[string]cart.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[userID]
}
