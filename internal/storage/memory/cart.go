package memory

import (
	"context"
	"sync"

	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

// Carts keeps carts in insertion order of their lines.
type Carts struct {
	mu    sync.Mutex
	carts map[int64][]domain.CartLine
}

// NewCarts returns an empty cart store.
func NewCarts() *Carts {
	return &Carts{carts: make(map[int64][]domain.CartLine)}
}

func (s *Carts) Get(_ context.Context, userID int64) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, ok := s.carts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Cart{UserID: userID, Lines: append([]domain.CartLine(nil), lines...)}, nil
}

func (s *Carts) UpsertIncrement(_ context.Context, userID, productID int64, name string, price domain.Money, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[userID]
	idx := -1
	for i, l := range lines {
		if l.ProductID == productID {
			idx = i
			break
		}
	}

	if idx < 0 {
		if delta <= 0 {
			return 0, domain.ErrNotFound
		}
		s.carts[userID] = append(lines, domain.CartLine{
			ProductID: productID,
			Name:      name,
			UnitPrice: price,
			Quantity:  delta,
		})
		return delta, nil
	}

	qty := lines[idx].Quantity + delta
	if qty > 0 {
		lines[idx].Quantity = qty
		return qty, nil
	}
	lines = append(lines[:idx], lines[idx+1:]...)
	if len(lines) == 0 {
		delete(s.carts, userID)
	} else {
		s.carts[userID] = lines
	}
	return 0, nil
}

func (s *Carts) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}

func (s *Carts) CountActive(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts), nil
}
