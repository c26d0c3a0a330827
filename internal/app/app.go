// Package app assembles the storefront bot from configuration: stores,
// session state, receipt rendering, events and the Telegram runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/bootstrap"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/ops"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/state"
	tg "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/callbacks"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/bot"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/events"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/receipt"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/shop"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/storage/memory"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/storage/postgres"
)

type publisher interface {
	shop.OrderPublisher
	Close() error
}

// stores groups the three storage adapters of one backend.
type stores struct {
	catalog shop.CatalogStore
	carts   shop.CartStore
	users   shop.UserStore
}

// App owns every long-lived resource of the bot.
type App struct {
	cfg      *Config
	infra    *bootstrap.Result
	redis    *redis.Client
	events   publisher
	ops      *ops.Server
	handler  *bot.Handler
	registry *tg.Registry
}

// Bootstrap initializes logging, tracing and storage, seeds the catalog and
// builds the controller. Resources opened before a failure are released.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	return build(ctx, cfg, bootstrap.Options{})
}

// build runs Bootstrap with base supplying the logger and tracing hooks.
func build(ctx context.Context, cfg *Config, base bootstrap.Options) (_ *App, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	base.Config = &cfg.Config
	if cfg.Shop.StoreBackend == BackendPostgres {
		base.Database = &cfg.Database
	}
	infra, err := bootstrap.Run(ctx, base)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, infra: infra}
	defer func() {
		if err != nil {
			_ = a.close(context.WithoutCancel(ctx))
		}
	}()

	st := newStores(cfg.Shop.StoreBackend, infra)
	if cfg.Shop.SeedCatalog == nil || *cfg.Shop.SeedCatalog {
		if err := bootstrap.RunSeeders(ctx, catalogSeeder(st.catalog, DefaultCatalog())); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	sessions, err := a.sessionStore(ctx)
	if err != nil {
		return nil, err
	}

	a.events = newPublisher(cfg)
	ctl, err := shop.New(shop.Options{
		Catalog:  st.catalog,
		Carts:    st.carts,
		Users:    st.users,
		Sessions: sessions,
		Receipts: receipt.NewPDF(receipt.Options{
			Title:    cfg.Shop.ReceiptTitle,
			Currency: cfg.Shop.Currency,
			Exponent: cfg.Shop.Exponent,
		}),
		Publisher:             a.events,
		ClearCartAfterReceipt: cfg.Shop.ClearCartAfterReceipt,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a.handler = bot.NewHandler(ctl, bot.Renderer{Currency: cfg.Shop.Currency, Exponent: cfg.Shop.Exponent}, cfg.Telegram.AdminID)
	a.registry = tg.NewRegistry()
	if err := a.handler.Register(a.registry); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	if cfg.Ops.Listen != "" {
		a.ops = ops.New(cfg.Ops.Listen, a.healthChecks())
	}

	logger.Info(ctx, "app", "bootstrap",
		slog.String("status", "ok"),
		slog.String("store", cfg.Shop.StoreBackend),
		slog.String("sessions", cfg.Shop.SessionBackend),
		slog.Bool("events", len(cfg.Kafka.Brokers) > 0),
	)
	return a, nil
}

func newStores(backend string, infra *bootstrap.Result) stores {
	if backend == BackendPostgres {
		return stores{
			catalog: postgres.NewCatalog(infra.DB),
			carts:   postgres.NewCarts(infra.DB),
			users:   postgres.NewUsers(infra.DB),
		}
	}
	return stores{
		catalog: memory.NewCatalog(),
		carts:   memory.NewCarts(),
		users:   memory.NewUsers(),
	}
}

func (a *App) sessionStore(ctx context.Context) (state.Store, error) {
	if a.cfg.Shop.SessionBackend != BackendRedis {
		return state.NewMemoryStore(a.cfg.Shop.AwaitingTTL), nil
	}
	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.redis.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("app: redis ping: %w", err)
	}
	return state.NewRedisStore(a.redis, a.cfg.Redis.Prefix, a.cfg.Shop.AwaitingTTL), nil
}

func newPublisher(cfg *Config) publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.Nop{}
	}
	return events.NewKafka(events.KafkaOptions{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		Currency: cfg.Shop.Currency,
	})
}

func (a *App) healthChecks() map[string]ops.Check {
	checks := make(map[string]ops.Check)
	if a.infra.DB != nil {
		checks["db"] = a.infra.DB.PingContext
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

// TelegramRunOptions wires middlewares, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	if a.handler == nil || a.registry == nil {
		return tg.RunOptions{}, fmt.Errorf("app: not bootstrapped")
	}
	return tg.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Config, onRateLimited),
		Routes:      a.handler.Routes(a.registry),
		OnStart: func(context.Context, tg.Runtime) error {
			if a.ops == nil {
				return nil
			}
			return a.ops.Start()
		},
		OnStop: func(ctx context.Context, _ tg.Runtime) error {
			return a.close(ctx)
		},
	}, nil
}

func onRateLimited(c tele.Context) error {
	return callbacks.Answer(c, &tele.CallbackResponse{Text: "Too fast, try again in a moment"})
}

// close releases resources in reverse order of creation.
func (a *App) close(ctx context.Context) error {
	var errs []error
	if a.ops != nil {
		errs = append(errs, a.ops.Shutdown(ctx))
	}
	if a.events != nil {
		errs = append(errs, a.events.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.infra != nil {
		errs = append(errs, a.infra.Close(ctx))
	}
	return errors.Join(errs...)
}
