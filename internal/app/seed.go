package app

import (
	"context"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/bootstrap"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/shop"
)

// DefaultCatalog is the reference assortment loaded into an empty catalog.
// Prices are in minor units.
func DefaultCatalog() []domain.Product {
	return []domain.Product{
		{Name: "Coca-Cola 0.5L", Price: 5000, Category: domain.CategoryDrinks, Grade: "chilled"},
		{Name: "Orange juice 1L", Price: 7000, Category: domain.CategoryDrinks},

		{Name: "Cheeseburger", Price: 25000, Category: domain.CategoryFood},
		{Name: "Chicken lavash", Price: 28000, Category: domain.CategoryFood, Grade: "spicy"},
		{Name: "Plov portion", Price: 32000, Category: domain.CategoryFood},

		{Name: "Potato chips", Price: 9000, Category: domain.CategorySnacks},
		{Name: "Salted peanuts", Price: 6000, Category: domain.CategorySnacks},

		{Name: "Napoleon cake slice", Price: 18000, Category: domain.CategoryDesserts},
		{Name: "Vanilla ice cream", Price: 8000, Category: domain.CategoryDesserts},
	}
}

// catalogSeeder fills catalog with products unless it already holds some.
func catalogSeeder(catalog shop.CatalogStore, products []domain.Product) bootstrap.Seeder {
	return bootstrap.SeederFunc{
		Label: "catalog",
		Fn: func(ctx context.Context) (int, error) {
			return catalog.SeedIfEmpty(ctx, products)
		},
	}
}
