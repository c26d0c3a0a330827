package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

type productRow struct {
	ID       int64          `db:"id"`
	Name     string         `db:"name"`
	Price    int64          `db:"price"`
	Category string         `db:"category"`
	ImageURL sql.NullString `db:"image_url"`
	Grade    sql.NullString `db:"grade"`
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID:       r.ID,
		Name:     r.Name,
		Price:    domain.Money(r.Price),
		Category: domain.Category(r.Category),
		ImageURL: r.ImageURL.String,
		Grade:    r.Grade.String,
	}
}

func productRows(rows []productRow) []domain.Product {
	out := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const productColumns = `id, name, price, category, image_url, grade`

// Catalog reads products from the products table.
type Catalog struct {
	db *sqlx.DB
}

// NewCatalog returns a catalog backed by db.
func NewCatalog(db *sqlx.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) FindByCategory(ctx context.Context, category domain.Category) (_ []domain.Product, err error) {
	defer func(start time.Time) { logQuery(ctx, logger.SVCCatalog, "find_by_category", start, err) }(time.Now())

	var rows []productRow
	if err := c.db.SelectContext(ctx, &rows,
		`SELECT `+productColumns+` FROM products WHERE category = $1 ORDER BY id`, string(category)); err != nil {
		return nil, fmt.Errorf("select products by category: %w", err)
	}
	return productRows(rows), nil
}

func (c *Catalog) FindByID(ctx context.Context, id int64) (_ domain.Product, err error) {
	defer func(start time.Time) { logQuery(ctx, logger.SVCCatalog, "find_by_id", start, err) }(time.Now())

	var row productRow
	if err := c.db.GetContext(ctx, &row,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id); err != nil {
		return domain.Product{}, notFound(err)
	}
	return row.toDomain(), nil
}

// likeEscaper neutralises LIKE wildcards in user input.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (c *Catalog) Search(ctx context.Context, query string) (_ []domain.Product, err error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	defer func(start time.Time) { logQuery(ctx, logger.SVCCatalog, "search", start, err) }(time.Now())

	var rows []productRow
	if err := c.db.SelectContext(ctx, &rows,
		`SELECT `+productColumns+` FROM products
		 WHERE name ILIKE '%' || $1 || '%' ESCAPE '\'
		 ORDER BY id`, likeEscaper.Replace(q)); err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return productRows(rows), nil
}

// SeedIfEmpty locks the table so concurrent instances seed at most once.
func (c *Catalog) SeedIfEmpty(ctx context.Context, products []domain.Product) (_ int, err error) {
	defer func(start time.Time) { logQuery(ctx, logger.SVCCatalog, "seed_if_empty", start, err) }(time.Now())

	if len(products) == 0 {
		return 0, nil
	}
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE products IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return 0, fmt.Errorf("lock products: %w", err)
	}
	var existing int
	if err := tx.GetContext(ctx, &existing, `SELECT count(*) FROM products`); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	rows := make([]productRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, productRow{
			Name:     p.Name,
			Price:    int64(p.Price),
			Category: string(p.Category),
			ImageURL: nullString(p.ImageURL),
			Grade:    nullString(p.Grade),
		})
	}
	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO products (name, price, category, image_url, grade)
		 VALUES (:name, :price, :category, :image_url, :grade)`, rows); err != nil {
		return 0, fmt.Errorf("insert products: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return len(rows), nil
}

func (c *Catalog) Count(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { logQuery(ctx, logger.SVCCatalog, "count", start, err) }(time.Now())
	if err = c.db.GetContext(ctx, &n, `SELECT count(*) FROM products`); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}
