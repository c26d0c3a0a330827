package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/sdsgks2b79-svg/GG-market-sub000/core/config"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	tghelpers "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/helpers"
	tgsender "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/sender"
)

// Middleware wraps every handler of the bot. Name is for logs only.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds Handler to an endpoint accepted by tele.Bot.Handle, such as
// tele.OnText or "/start".
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions configures RunTelegram. Only Config is required.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// Dispatcher is built from DispatcherOptions when nil.
	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	// DisableWebhookCleanup keeps an existing webhook in longpoll mode.
	DisableWebhookCleanup bool
	// DisableHelperDispatcher keeps the dispatcher out of the helpers package.
	DisableHelperDispatcher bool

	// OnStart runs after routes are installed and before polling starts.
	// An error aborts the run.
	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is what the lifecycle hooks see of a running bot.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot from opts and serves updates until ctx is done.
// OnStop gets a fresh context bounded by stopTimeout.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.release()

	s.install()
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, s.runtime()); err != nil {
			return err
		}
	}

	runErr := s.serve(ctx)
	var stopErr error
	if opts.OnStop != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		stopErr = opts.OnStop(stopCtx, s.runtime())
		cancel()
	}
	return exitError(runErr, stopErr)
}

const stopTimeout = 10 * time.Second

// session is one bot instance and the dispatcher that sends on its behalf.
type session struct {
	opts       RunOptions
	registry   *Registry
	bot        *tele.Bot
	dispatcher *tgsender.Dispatcher
	shared     bool
}

func openSession(ctx context.Context, opts RunOptions) (*session, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("telegram: nil config provided")
	}

	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})

	started := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(),
		OnError: logUpdateError,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logMode(ctx, poller, time.Since(started))

	s := &session{
		opts:       opts,
		registry:   opts.Registry,
		bot:        bot,
		dispatcher: opts.Dispatcher,
		shared:     !opts.DisableHelperDispatcher,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.dispatcher == nil {
		s.dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if s.shared {
		tghelpers.SetDispatcher(s.dispatcher)
	}
	if !opts.DisableWebhookCleanup && strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeLongpoll) {
		s.dropWebhook(ctx)
	}
	return s, nil
}

func (s *session) runtime() Runtime {
	return Runtime{Bot: s.bot, Dispatcher: s.dispatcher, Registry: s.registry}
}

// install attaches middlewares and routes, skipping incomplete entries, then
// publishes the command menu.
func (s *session) install() {
	for _, mw := range s.opts.Middlewares {
		if mw.Use != nil {
			s.bot.Use(mw.Use)
		}
	}
	for _, route := range s.opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			s.bot.Handle(route.Endpoint, route.Handler)
		}
	}
	publishCommands(s.bot, s.registry)
}

// serve blocks until the poller exits or ctx is done.
func (s *session) serve(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.bot.Start()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.bot.Stop()
		<-done
		return ctx.Err()
	}
}

func (s *session) release() {
	s.dispatcher.Close()
	if s.shared {
		tghelpers.SetDispatcher(nil)
	}
}

// dropWebhook clears a webhook left by a previous deployment; Telegram
// refuses getUpdates while one is set.
func (s *session) dropWebhook(ctx context.Context) {
	if err := s.bot.RemoveWebhook(false); err != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "delete_webhook",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "delete_webhook", slog.String("status", "ok"))
}

func logMode(ctx context.Context, poller tele.Poller, took time.Duration) {
	attrs := []slog.Attr{slog.Duration("duration", logger.RoundMS(took))}
	switch p := poller.(type) {
	case *tele.Webhook:
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
		)
	case *tele.LongPoller:
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
		)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode", attrs...)
}

// exitError picks what RunTelegram reports. An OnStop failure wins and a
// cancelled context is a clean exit.
func exitError(runErr, stopErr error) error {
	switch {
	case stopErr != nil:
		return stopErr
	case errors.Is(runErr, context.Canceled):
		return nil
	default:
		return runErr
	}
}

// logUpdateError reports errors returned by handlers. Handlers already log a
// summary line, so this only adds the raw error for updates without one.
func logUpdateError(err error, c tele.Context) {
	if err == nil {
		return
	}
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Warn(ctx, "tg", "update.error",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}
