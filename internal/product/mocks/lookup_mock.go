package mocks

import (
	"context"
	"sync"

	"github.com/example/storefront-core/internal/product"
)

// Catalog is an in-memory product.Lookup for tests.
type Catalog struct {
	mu       sync.Mutex
	products map[string]product.Product

	GetErr   error
	GetCalls int
}

func NewCatalog() *Catalog {
	return &Catalog{products: make(map[string]product.Product)}
}

func (c *Catalog) Add(p product.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *Catalog) GetByID(_ context.Context, productID string) (*product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.GetCalls++
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	p, ok := c.products[productID]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}
