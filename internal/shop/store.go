package shop

import (
	"context"

	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

// CatalogStore reads product reference data.
type CatalogStore interface {
	FindByCategory(ctx context.Context, category domain.Category) ([]domain.Product, error)
	// FindByID returns domain.ErrNotFound for unknown ids.
	FindByID(ctx context.Context, id int64) (domain.Product, error)
	// Search matches names case-insensitively by substring. An empty query matches nothing.
	Search(ctx context.Context, query string) ([]domain.Product, error)
	// SeedIfEmpty inserts products only when the catalog has none and reports how many it wrote.
	SeedIfEmpty(ctx context.Context, products []domain.Product) (int, error)
	Count(ctx context.Context) (int, error)
}

// CartStore keeps one cart per user.
type CartStore interface {
	// Get returns domain.ErrNotFound when the user has no cart.
	Get(ctx context.Context, userID int64) (*domain.Cart, error)
	// UpsertIncrement atomically adds delta to a line, creating the cart and
	// line on positive deltas. A line reaching zero is removed, and a cart
	// left without lines is deleted. It returns the resulting quantity.
	UpsertIncrement(ctx context.Context, userID, productID int64, name string, price domain.Money, delta int) (int, error)
	Delete(ctx context.Context, userID int64) error
	CountActive(ctx context.Context) (int, error)
}

// UserStore persists contact and delivery details.
type UserStore interface {
	// Get returns domain.ErrNotFound for users that never shared anything.
	Get(ctx context.Context, userID int64) (domain.User, error)
	UpsertPhone(ctx context.Context, userID int64, phone string) error
	UpsertLocation(ctx context.Context, userID int64, loc domain.Location) error
	UpsertAddress(ctx context.Context, userID int64, address string) error
}

// ReceiptRenderer turns an order snapshot into a document.
type ReceiptRenderer interface {
	Render(ctx context.Context, order domain.Order) ([]byte, error)
}

// OrderPublisher announces issued receipts to downstream consumers.
type OrderPublisher interface {
	Publish(ctx context.Context, order domain.Order) error
}
