package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

type userRow struct {
	ID        int64           `db:"id"`
	Phone     sql.NullString  `db:"phone"`
	Latitude  sql.NullFloat64 `db:"latitude"`
	Longitude sql.NullFloat64 `db:"longitude"`
	Address   sql.NullString  `db:"address"`
}

// Users persists contact and delivery details in the users table.
type Users struct {
	db *sqlx.DB
}

// NewUsers returns a user store backed by db.
func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

func (s *Users) Get(ctx context.Context, userID int64) (_ domain.User, err error) {
	defer func(start time.Time) { logQuery(ctx, logger.SVCUsers, "get", start, err) }(time.Now())

	var row userRow
	if err := s.db.GetContext(ctx, &row,
		`SELECT id, phone, latitude, longitude, address FROM users WHERE id = $1`, userID); err != nil {
		return domain.User{}, notFound(err)
	}
	u := domain.User{ID: row.ID, Phone: row.Phone.String, Address: row.Address.String}
	if row.Latitude.Valid && row.Longitude.Valid {
		u.Location = &domain.Location{Latitude: row.Latitude.Float64, Longitude: row.Longitude.Float64}
	}
	return u, nil
}

func (s *Users) exec(ctx context.Context, op, query string, args ...any) (err error) {
	defer func(start time.Time) { logQuery(ctx, logger.SVCUsers, op, start, err) }(time.Now())

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Users) UpsertPhone(ctx context.Context, userID int64, phone string) error {
	return s.exec(ctx, "upsert_phone",
		`INSERT INTO users (id, phone) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET phone = EXCLUDED.phone, updated_at = now()`,
		userID, phone)
}

func (s *Users) UpsertLocation(ctx context.Context, userID int64, loc domain.Location) error {
	return s.exec(ctx, "upsert_location",
		`INSERT INTO users (id, latitude, longitude) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, updated_at = now()`,
		userID, loc.Latitude, loc.Longitude)
}

func (s *Users) UpsertAddress(ctx context.Context, userID int64, address string) error {
	return s.exec(ctx, "upsert_address",
		`INSERT INTO users (id, address) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET address = EXCLUDED.address, updated_at = now()`,
		userID, address)
}
