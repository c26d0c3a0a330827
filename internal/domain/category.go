package domain

import "strings"

// Category is the stable internal identifier of a product group. Display
// labels are derived from it and never stored.
type Category string

const (
	CategoryDrinks   Category = "drinks"
	CategoryFood     Category = "food"
	CategorySnacks   Category = "snacks"
	CategoryDesserts Category = "desserts"
)

var categoryLabels = map[Category]string{
	CategoryDrinks:   "🥤 Drinks",
	CategoryFood:     "🍔 Food",
	CategorySnacks:   "🍿 Snacks",
	CategoryDesserts: "🍰 Desserts",
}

// Categories lists the fixed set in menu order.
func Categories() []Category {
	return []Category{CategoryDrinks, CategoryFood, CategorySnacks, CategoryDesserts}
}

// Valid reports whether c belongs to the fixed set.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the menu label, or the raw id for unknown categories.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// ParseCategory resolves either an id ("drinks") or a menu label ("🥤 Drinks").
// Matching is case-insensitive and ignores surrounding space.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrUnknownCategory
	}
	for c, label := range categoryLabels {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, label) {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}
