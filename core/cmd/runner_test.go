package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/sdsgks2b79-svg/GG-market-sub000/core/config"
	coretelegram "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type app struct {
	opts coretelegram.RunOptions
	err  error
}

func (a app) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, a.err }

func TestRunRequiresHooks(t *testing.T) {
	assert.Error(t, Run(Options{}))
	assert.Error(t, Run(Options{LoadConfig: func(string) (ConfigCarrier, error) { return nil, nil }}))
}

func TestRunMissingConfigPath(t *testing.T) {
	t.Setenv("SHOPBOT_TEST_CONFIG", "")
	err := Run(Options{
		ConfigEnvVar: "SHOPBOT_TEST_CONFIG",
		LoadConfig:   func(string) (ConfigCarrier, error) { return carrier{}, nil },
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return app{}, nil
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHOPBOT_TEST_CONFIG")
}

func TestRunWrapsLifecycleHooks(t *testing.T) {
	t.Setenv("SHOPBOT_TEST_CONFIG", "from-env.yaml")

	var (
		loadedPath     string
		started, stopd bool
		shutdownCalled bool
	)
	err := Run(Options{
		ConfigEnvVar:      "SHOPBOT_TEST_CONFIG",
		DefaultConfigPath: "default.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedPath = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return app{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error { started = true; return nil },
				OnStop:  func(context.Context, coretelegram.Runtime) error { stopd = true; return nil },
			}}, nil
		},
		ShutdownLogger: func() error { shutdownCalled = true; return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-env.yaml", loadedPath)
	assert.True(t, started)
	assert.True(t, stopd)
	assert.True(t, shutdownCalled)
}

func TestRunPropagatesBootstrapError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(Options{
		DefaultConfigPath: "config.yaml",
		ConfigEnvVar:      "SHOPBOT_TEST_UNSET",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return nil, boom
		},
		ShutdownLogger: func() error { return nil },
	})
	assert.ErrorIs(t, err, boom)
}
