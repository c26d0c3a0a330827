// Package memory holds mutex-guarded in-process stores for single-instance
// deployments and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

// Catalog is an in-memory product catalog.
type Catalog struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
	nextID   int64
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{products: make(map[int64]domain.Product)}
}

// sorted returns products matching keep ordered by id.
func (c *Catalog) sorted(keep func(domain.Product) bool) []domain.Product {
	var out []domain.Product
	for _, p := range c.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) FindByCategory(_ context.Context, category domain.Category) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sorted(func(p domain.Product) bool { return p.Category == category }), nil
}

func (c *Catalog) FindByID(_ context.Context, id int64) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (c *Catalog) Search(_ context.Context, query string) ([]domain.Product, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sorted(func(p domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q)
	}), nil
}

// SeedIfEmpty assigns ids to products without one.
func (c *Catalog) SeedIfEmpty(_ context.Context, products []domain.Product) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.products) > 0 {
		return 0, nil
	}
	for _, p := range products {
		if p.ID == 0 {
			c.nextID++
			p.ID = c.nextID
		} else if p.ID > c.nextID {
			c.nextID = p.ID
		}
		c.products[p.ID] = p
	}
	return len(products), nil
}

func (c *Catalog) Count(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products), nil
}
