// Package cmd is the process entrypoint shared by bot binaries: it loads the
// configuration, bootstraps the application and runs it until a signal.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/sdsgks2b79-svg/GG-market-sub000/core/config"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	coretelegram "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram"
)

const defaultConfigEnv = "CONFIG_PATH"

// ConfigCarrier is an application config that embeds the core section.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp builds the options for the Telegram runtime.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options wire an application into Run. LoadConfig and Bootstrap are
// required; the rest have production defaults.
type Options struct {
	// ConfigEnvVar names the variable holding the config path. Defaults to CONFIG_PATH.
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	// Signals defaults to SIGINT and SIGTERM.
	Signals []os.Signal
}

func (o Options) validate() error {
	var errs []error
	if o.LoadConfig == nil {
		errs = append(errs, errors.New("cmd: LoadConfig is required"))
	}
	if o.Bootstrap == nil {
		errs = append(errs, errors.New("cmd: Bootstrap is required"))
	}
	return errors.Join(errs...)
}

func (o Options) configPath() (string, error) {
	env := o.ConfigEnvVar
	if env == "" {
		env = defaultConfigEnv
	}
	if path := os.Getenv(env); path != "" {
		return path, nil
	}
	if o.DefaultConfigPath != "" {
		return o.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: set %s or DefaultConfigPath", env)
}

// Run loads configuration, bootstraps the app and blocks in the Telegram
// runtime until a shutdown signal arrives.
func Run(opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	path, err := opts.configPath()
	if err != nil {
		return err
	}

	log.Printf("loading config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: load config: %w", err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return errors.New("cmd: config has no core section")
	}

	signals := opts.Signals
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, cancel := signal.NotifyContext(context.Background(), signals...)
	defer cancel()

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	startedAt := time.Now()
	application, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	withLifecycleLogs(&runOpts, startedAt)

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

// withLifecycleLogs logs "ready" after the app's OnStart succeeds and
// "shutdown" before its OnStop runs.
func withLifecycleLogs(opts *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := opts.OnStart, opts.OnStop

	opts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready",
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}
	opts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if onStop == nil {
			return nil
		}
		return onStop(ctx, rt)
	}
}
