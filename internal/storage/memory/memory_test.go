package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/shop"
)

var (
	_ shop.CatalogStore = (*Catalog)(nil)
	_ shop.CartStore    = (*Carts)(nil)
	_ shop.UserStore    = (*Users)(nil)
)

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()

	n, err := c.SeedIfEmpty(ctx, []domain.Product{
		{Name: "Cola 0.5L", Price: 5000, Category: domain.CategoryDrinks},
		{Name: "Orange Juice", Price: 7000, Category: domain.CategoryDrinks},
		{Name: "Burger", Price: 25000, Category: domain.CategoryFood},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = c.SeedIfEmpty(ctx, []domain.Product{{Name: "Again", Price: 1, Category: domain.CategoryFood}})
	require.NoError(t, err)
	assert.Zero(t, n)

	drinks, err := c.FindByCategory(ctx, domain.CategoryDrinks)
	require.NoError(t, err)
	require.Len(t, drinks, 2)
	assert.Equal(t, "Cola 0.5L", drinks[0].Name)

	none, err := c.FindByCategory(ctx, domain.CategoryDesserts)
	require.NoError(t, err)
	assert.Empty(t, none)

	p, err := c.FindByID(ctx, drinks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Orange Juice", p.Name)

	_, err = c.FindByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	found, err := c.Search(ctx, "COLA")
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = c.Search(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, found)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCartsUpsertIncrement(t *testing.T) {
	ctx := context.Background()
	s := NewCarts()

	_, err := s.Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for i := 1; i <= 3; i++ {
		qty, err := s.UpsertIncrement(ctx, 1, 10, "Cola", 5000, 1)
		require.NoError(t, err)
		assert.Equal(t, i, qty)
	}
	_, err = s.UpsertIncrement(ctx, 1, 11, "Juice", 7000, 1)
	require.NoError(t, err)

	cart, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, int64(10), cart.Lines[0].ProductID)
	assert.Equal(t, domain.Money(22000), cart.Total())

	qty, err := s.UpsertIncrement(ctx, 1, 11, "", 0, -1)
	require.NoError(t, err)
	assert.Zero(t, qty)

	_, err = s.UpsertIncrement(ctx, 1, 99, "", 0, -1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.UpsertIncrement(ctx, 1, 10, "", 0, -3)
	require.NoError(t, err)
	_, err = s.Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound, "empty cart is deleted")

	active, err := s.CountActive(ctx)
	require.NoError(t, err)
	assert.Zero(t, active)
}

func TestCartsConcurrentIncrement(t *testing.T) {
	ctx := context.Background()
	s := NewCarts()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.UpsertIncrement(ctx, 1, 10, "Cola", 5000, 1)
		}()
	}
	wg.Wait()

	cart, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 50, cart.Lines[0].Quantity)
}

func TestCartsGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewCarts()
	_, err := s.UpsertIncrement(ctx, 1, 10, "Cola", 5000, 1)
	require.NoError(t, err)

	cart, err := s.Get(ctx, 1)
	require.NoError(t, err)
	cart.Lines[0].Quantity = 100

	again, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Lines[0].Quantity)

	require.NoError(t, s.Delete(ctx, 1))
	require.NoError(t, s.Delete(ctx, 1))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := NewUsers()

	_, err := s.Get(ctx, 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.UpsertPhone(ctx, 5, "998901234567"))
	require.NoError(t, s.UpsertLocation(ctx, 5, domain.Location{Latitude: 41.3, Longitude: 69.2}))
	require.NoError(t, s.UpsertAddress(ctx, 5, "Main st. 1"))

	u, err := s.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), u.ID)
	assert.Equal(t, "998901234567", u.Phone)
	require.NotNil(t, u.Location)
	assert.InDelta(t, 41.3, u.Location.Latitude, 1e-9)
	assert.Equal(t, "Main st. 1", u.Address)
}
