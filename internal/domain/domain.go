package domain

import (
	"strings"
	"time"
	"unicode"
)

// Location is a shared geolocation.
type Location struct {
	Latitude  float64
	Longitude float64
}

// User is created lazily on the first contact or location share.
type User struct {
	ID       int64
	Phone    string
	Location *Location
	Address  string
}

// HasDeliveryTarget reports whether a geolocation or a typed address is on file.
func (u User) HasDeliveryTarget() bool {
	return u.Location != nil || strings.TrimSpace(u.Address) != ""
}

// Product is immutable catalog reference data.
type Product struct {
	ID       int64
	Name     string
	Price    Money
	Category Category
	ImageURL string
	Grade    string
}

// CartLine is one product and quantity inside a cart. Name and UnitPrice are
// captured when the line is first added.
type CartLine struct {
	ProductID int64
	Name      string
	UnitPrice Money
	Quantity  int
}

// Subtotal is quantity times unit price.
func (l CartLine) Subtotal() Money { return l.UnitPrice.Mul(l.Quantity) }

// Cart holds at most one set of lines per user. Lines never carry a zero quantity.
type Cart struct {
	UserID int64
	Lines  []CartLine
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return c == nil || len(c.Lines) == 0 }

// Total sums the line subtotals.
func (c *Cart) Total() Money {
	if c == nil {
		return 0
	}
	var total Money
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	return total
}

// OrderLine is one numbered receipt row.
type OrderLine struct {
	Index     int
	Name      string
	Quantity  int
	UnitPrice Money
	Subtotal  Money
}

// Order is a transient snapshot of a cart used to render a receipt.
type Order struct {
	Number    string
	UserID    int64
	Phone     string
	Location  *Location
	Address   string
	Lines     []OrderLine
	Total     Money
	CreatedAt time.Time
}

// NewOrder snapshots cart and user into an order. Line order follows the cart.
func NewOrder(number string, user User, cart *Cart, now time.Time) (Order, error) {
	if cart.Empty() {
		return Order{}, ErrEmptyCart
	}
	o := Order{
		Number:    number,
		UserID:    cart.UserID,
		Phone:     user.Phone,
		Location:  user.Location,
		Address:   user.Address,
		Lines:     make([]OrderLine, 0, len(cart.Lines)),
		CreatedAt: now,
	}
	for i, l := range cart.Lines {
		sub := l.Subtotal()
		o.Lines = append(o.Lines, OrderLine{
			Index:     i + 1,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  sub,
		})
		o.Total += sub
	}
	return o, nil
}

// NormalizePhone strips spaces, dashes, parentheses and one leading "+" and
// requires the rest to be digits.
func NormalizePhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "", ErrInvalidPhone
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return "", ErrInvalidPhone
		}
	}
	return s, nil
}
