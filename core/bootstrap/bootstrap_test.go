package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/sdsgks2b79-svg/GG-market-sub000/core/config"
	coredatabase "github.com/sdsgks2b79-svg/GG-market-sub000/core/database"
)

func noTracing(context.Context, *coreconfig.Config) (func(context.Context) error, error) {
	return nil, nil
}

func TestRunWithoutDatabase(t *testing.T) {
	var loggerCalled bool
	res, err := Run(context.Background(), Options{
		Config:      &coreconfig.Config{},
		LoggerInit:  func(*coreconfig.Config) error { loggerCalled = true; return nil },
		TracingInit: noTracing,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			t.Fatal("connect must not be called without database config")
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.True(t, loggerCalled)
	assert.Nil(t, res.DB)
	assert.NoError(t, res.Close(context.Background()))
}

func TestRunRejectsNilConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestRunPropagatesConnectError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), Options{
		Config:      &coreconfig.Config{},
		Database:    &coredatabase.Config{Name: "shop"},
		LoggerInit:  func(*coreconfig.Config) error { return nil },
		TracingInit: noTracing,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return nil, boom
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRunSeeders(t *testing.T) {
	var order []string
	mk := func(name string, n int, err error) Seeder {
		return SeederFunc{Label: name, Fn: func(context.Context) (int, error) {
			order = append(order, name)
			return n, err
		}}
	}

	require.NoError(t, RunSeeders(context.Background(), mk("catalog", 8, nil), mk("extra", 0, nil)))
	assert.Equal(t, []string{"catalog", "extra"}, order)

	order = nil
	err := RunSeeders(context.Background(), mk("bad", 0, errors.New("nope")), mk("never", 1, nil))
	require.Error(t, err)
	assert.Equal(t, []string{"bad"}, order)
}
