// Package events announces issued receipts to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

// TypeReceiptIssued is the event type of ReceiptIssued.
const TypeReceiptIssued = "receipt.issued"

// ReceiptLine is one row of a published receipt.
type ReceiptLine struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

// ReceiptIssued is published once per rendered receipt. Amounts are in minor units.
type ReceiptIssued struct {
	Type     string        `json:"type"`
	Number   string        `json:"number"`
	UserID   int64         `json:"user_id"`
	Lines    []ReceiptLine `json:"lines"`
	Total    int64         `json:"total"`
	Currency string        `json:"currency,omitempty"`
	IssuedAt time.Time     `json:"issued_at"`
}

// NewReceiptIssued builds the event payload for order.
func NewReceiptIssued(order domain.Order, currency string) ReceiptIssued {
	ev := ReceiptIssued{
		Type:     TypeReceiptIssued,
		Number:   order.Number,
		UserID:   order.UserID,
		Lines:    make([]ReceiptLine, 0, len(order.Lines)),
		Total:    int64(order.Total),
		Currency: currency,
		IssuedAt: order.CreatedAt.UTC(),
	}
	for _, l := range order.Lines {
		ev.Lines = append(ev.Lines, ReceiptLine{
			Index:     l.Index,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: int64(l.UnitPrice),
			Subtotal:  int64(l.Subtotal),
		})
	}
	return ev
}

// Nop drops every event. It is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, domain.Order) error { return nil }

func (Nop) Close() error { return nil }
