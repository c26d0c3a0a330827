package domain

import "errors"

var (
	// ErrNotFound reports an absent product, cart or user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPhone rejects contact payloads that are not a digit string.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrEmptyCart is returned when an order is built from a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrUnknownCategory rejects category ids outside the fixed set.
	ErrUnknownCategory = errors.New("unknown category")
)
