package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
)

// Seeder loads reference data into a storage implementation.
type Seeder interface {
	Name() string
	Seed(ctx context.Context) (int, error)
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc struct {
	Label string
	Fn    func(ctx context.Context) (int, error)
}

// Name returns the seeder label used in logs.
func (f SeederFunc) Name() string { return f.Label }

// Seed executes the underlying function and returns how many records it inserted.
func (f SeederFunc) Seed(ctx context.Context) (int, error) {
	return f.Fn(ctx)
}

// RunSeeders executes seeders in order and stops on the first failure.
func RunSeeders(ctx context.Context, seeders ...Seeder) error {
	for _, s := range seeders {
		start := time.Now()
		inserted, err := s.Seed(ctx)
		if err != nil {
			logger.SEED.Error("seed failed",
				slog.String("event", "seed.run"),
				slog.String("status", "fail"),
				slog.String("op", s.Name()),
				slog.Duration("duration", logger.Took(start)),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("seed %s: %w", s.Name(), err)
		}
		outcome := "ok"
		if inserted == 0 {
			outcome = "skip"
		}
		logger.SEED.Info("seed done",
			slog.String("event", "seed.run"),
			slog.String("status", outcome),
			slog.String("op", s.Name()),
			slog.Int("count", inserted),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return nil
}
