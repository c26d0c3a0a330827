package domain

import "github.com/shopspring/decimal"

// Money is an amount in minor currency units.
type Money int64

// Mul returns m multiplied by a quantity.
func (m Money) Mul(qty int) Money { return m * Money(qty) }

// Decimal converts minor units to major units using exponent decimal places.
func (m Money) Decimal(exponent int32) decimal.Decimal {
	return decimal.New(int64(m), -exponent)
}

// Format renders m as "120.00 UZS". An empty currency omits the suffix.
func (m Money) Format(currency string, exponent int32) string {
	s := m.Decimal(exponent).StringFixed(exponent)
	if currency == "" {
		return s
	}
	return s + " " + currency
}
