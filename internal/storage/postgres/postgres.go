// Package postgres implements the shop stores on PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

// notFound maps sql.ErrNoRows onto the domain sentinel.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// logQuery records one store call at debug level, or at warn when it failed.
// Absent rows are reported as outcome not_found, not as failures.
func logQuery(ctx context.Context, log *slog.Logger, op string, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("op", op),
		slog.Duration("duration", logger.Took(start)),
	}
	switch {
	case err == nil:
		attrs = append(attrs, slog.String("status", "ok"))
	case errors.Is(err, domain.ErrNotFound):
		attrs = append(attrs, slog.String("status", "ok"), slog.String("outcome", "not_found"))
	default:
		attrs = append(attrs,
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		logger.LogEvent(ctx, log, slog.LevelWarn, "db.query", attrs...)
		return
	}
	logger.LogEvent(ctx, log, slog.LevelDebug, "db.query", attrs...)
}
