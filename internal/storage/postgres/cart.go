package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

type cartLineRow struct {
	ProductID int64  `db:"product_id"`
	Name      string `db:"name"`
	UnitPrice int64  `db:"unit_price"`
	Quantity  int    `db:"quantity"`
}

// Carts stores one carts row per user with its lines in cart_items.
type Carts struct {
	db *sqlx.DB
}

// NewCarts returns a cart store backed by db.
func NewCarts(db *sqlx.DB) *Carts {
	return &Carts{db: db}
}

func (s *Carts) Get(ctx context.Context, userID int64) (_ *domain.Cart, err error) {
	defer func(start time.Time) { logQuery(ctx, logger.SVCCarts, "get", start, err) }(time.Now())

	var rows []cartLineRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT product_id, name, unit_price, quantity
		 FROM cart_items WHERE user_id = $1
		 ORDER BY added_at, product_id`, userID); err != nil {
		return nil, fmt.Errorf("select cart: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	cart := &domain.Cart{UserID: userID, Lines: make([]domain.CartLine, 0, len(rows))}
	for _, r := range rows {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID: r.ProductID,
			Name:      r.Name,
			UnitPrice: domain.Money(r.UnitPrice),
			Quantity:  r.Quantity,
		})
	}
	return cart, nil
}

const upsertIncrementQuery = `
WITH cart AS (
	INSERT INTO carts (user_id) VALUES ($1)
	ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
	RETURNING user_id
)
INSERT INTO cart_items (user_id, product_id, name, unit_price, quantity)
SELECT user_id, $2, $3, $4, $5 FROM cart
ON CONFLICT (user_id, product_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
RETURNING quantity`

func (s *Carts) UpsertIncrement(ctx context.Context, userID, productID int64, name string, price domain.Money, delta int) (_ int, err error) {
	defer func(start time.Time) { logQuery(ctx, logger.SVCCarts, "upsert_increment", start, err) }(time.Now())

	if delta > 0 {
		var qty int
		if err := s.db.GetContext(ctx, &qty, upsertIncrementQuery,
			userID, productID, name, int64(price), delta); err != nil {
			return 0, fmt.Errorf("increment cart line: %w", err)
		}
		return qty, nil
	}
	return s.decrement(ctx, userID, productID, delta)
}

func (s *Carts) decrement(ctx context.Context, userID, productID int64, delta int) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin decrement: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var qty int
	if err := tx.GetContext(ctx, &qty,
		`SELECT quantity FROM cart_items WHERE user_id = $1 AND product_id = $2 FOR UPDATE`,
		userID, productID); err != nil {
		return 0, notFound(err)
	}

	qty += delta
	if qty > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND product_id = $2`,
			userID, productID, qty); err != nil {
			return 0, fmt.Errorf("update cart line: %w", err)
		}
	} else {
		qty = 0
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
			userID, productID); err != nil {
			return 0, fmt.Errorf("delete cart line: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM carts WHERE user_id = $1
			 AND NOT EXISTS (SELECT 1 FROM cart_items WHERE user_id = $1)`, userID); err != nil {
			return 0, fmt.Errorf("delete empty cart: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit decrement: %w", err)
	}
	return qty, nil
}

func (s *Carts) Delete(ctx context.Context, userID int64) (err error) {
	defer func(start time.Time) { logQuery(ctx, logger.SVCCarts, "delete", start, err) }(time.Now())

	if _, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func (s *Carts) CountActive(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { logQuery(ctx, logger.SVCCarts, "count_active", start, err) }(time.Now())
	if err = s.db.GetContext(ctx, &n, `SELECT count(*) FROM carts`); err != nil {
		return 0, fmt.Errorf("count carts: %w", err)
	}
	return n, nil
}
