package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/sdsgks2b79-svg/GG-market-sub000/core/config"
	coredatabase "github.com/sdsgks2b79-svg/GG-market-sub000/core/database"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telemetry"
)

// Options control the generic bootstrap pipeline.
// A nil Database skips connection and migrations (in-memory deployments).
type Options struct {
	Config   *coreconfig.Config
	Database *coredatabase.Config

	LoggerInit  func(*coreconfig.Config) error
	TracingInit func(ctx context.Context, cfg *coreconfig.Config) (func(context.Context) error, error)
	Connect     func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate     func(context.Context, coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
	// ShutdownTracing flushes the tracer provider; never nil.
	ShutdownTracing func(context.Context) error
}

// Close releases everything Run opened.
func (r *Result) Close(ctx context.Context) error {
	var firstErr error
	if r.DB != nil {
		firstErr = r.DB.Close()
	}
	if err := r.ShutdownTracing(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Run initializes the logger and tracing, then connects to the database and
// applies migrations when a database is configured.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	tracingInit := opts.TracingInit
	if tracingInit == nil {
		tracingInit = func(ctx context.Context, cfg *coreconfig.Config) (func(context.Context) error, error) {
			return telemetry.Init(ctx, cfg.Ops.ServiceName, cfg.Ops.OTLPEndpoint)
		}
	}
	shutdownTracing, err := tracingInit(ctx, opts.Config)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: tracing init failed: %w", err)
	}
	if shutdownTracing == nil {
		shutdownTracing = func(context.Context) error { return nil }
	}
	res := &Result{ShutdownTracing: shutdownTracing}

	if opts.Database == nil {
		return res, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, *opts.Database)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(ctx, *opts.Database); err != nil {
		_ = db.Close()
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	res.DB = db
	return res, nil
}
