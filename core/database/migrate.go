package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
)

// ErrDirty is returned when a previous migration failed half-way.
var ErrDirty = errors.New("database schema is dirty")

// RunMigrations waits for the database and applies pending up migrations
// from cfg.MigrationsDir.
func RunMigrations(ctx context.Context, cfg Config) error {
	cfg = cfg.WithDefaults()
	if err := WaitForPostgres(ctx, cfg.DSN(), 30*time.Second); err != nil {
		logger.MIG.Error("db not ready",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("database not ready: %w", err)
	}
	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	return ApplyMigrationsContext(ctx, dir, cfg.URL())
}

// ApplyMigrations is ApplyMigrationsContext without cancellation.
func ApplyMigrations(dir, databaseURL string) error {
	return ApplyMigrationsContext(context.Background(), dir, databaseURL)
}

// ApplyMigrationsContext applies every pending up migration in dir. A
// cancelled ctx stops after the migration in progress.
func ApplyMigrationsContext(ctx context.Context, dir, databaseURL string) error {
	files := listMigrationFiles(dir)
	logFiles(slog.LevelDebug, "migrations resolved",
		slog.String("event", "resolve"),
		slog.String("path", dir),
	)(files)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), databaseURL)
	if err != nil {
		logger.MIG.Error("init failed",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case dirty:
		logger.MIG.Error("dirty schema",
			slog.String("event", "db.migrate"),
			slog.Uint64("version", uint64(from)),
		)
		return fmt.Errorf("%w at version %d", ErrDirty, from)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	to := from
	if v, _, err := m.Version(); err == nil {
		to = v
	}
	applied := migrationFiles(files).between(uint64(from), uint64(to))
	if len(applied) > 0 {
		logFiles(slog.LevelDebug, "applied files", slog.String("event", "apply"))(applied)
	}
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return migrationFiles(files).interrupted(ctx.Err(), uint64(to))
}

// interrupted reports a cancellation that stopped the run below the latest
// version.
func (m migrationFiles) interrupted(ctxErr error, at uint64) error {
	if ctxErr == nil || at >= m.latest() {
		return nil
	}
	return fmt.Errorf("migrations interrupted at version %d: %w", at, ctxErr)
}

// logFiles logs a preview of file names with the given base attributes.
func logFiles(level slog.Level, msg string, base ...any) func([]string) {
	return func(files []string) {
		preview, truncated := logger.SummarizeStrings(files, 6)
		args := append(base, slog.Int("files_total", len(files)))
		if preview != "" {
			args = append(args, slog.String("files_preview", preview))
		}
		if truncated {
			args = append(args, slog.Bool("files_truncated", true))
		}
		logger.MIG.Log(context.Background(), level, msg, args...)
	}
}

func listMigrationFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// migrationFiles is a sorted list of "<version>_<name>.up.sql" names.
type migrationFiles []string

// between returns files with from < version <= to.
func (f migrationFiles) between(from, to uint64) []string {
	var out []string
	for _, name := range f {
		if v := parseVersion(name); v > from && v <= to {
			out = append(out, name)
		}
	}
	return out
}

func (f migrationFiles) latest() uint64 {
	if len(f) == 0 {
		return 0
	}
	return parseVersion(f[len(f)-1])
}
