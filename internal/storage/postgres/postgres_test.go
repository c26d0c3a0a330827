package postgres

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	coredatabase "github.com/sdsgks2b79-svg/GG-market-sub000/core/database"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/shop"
)

var (
	_ shop.CatalogStore = (*Catalog)(nil)
	_ shop.CartStore    = (*Carts)(nil)
	_ shop.UserStore    = (*Users)(nil)
)

func TestLikeEscaper(t *testing.T) {
	assert.Equal(t, `50\%`, likeEscaper.Replace("50%"))
	assert.Equal(t, `a\_b`, likeEscaper.Replace("a_b"))
	assert.Equal(t, `c\\d`, likeEscaper.Replace(`c\d`))
}

func TestNullString(t *testing.T) {
	assert.False(t, nullString("").Valid)
	assert.True(t, nullString("A").Valid)
}

// captureLogger points *target at a JSON logger writing into the returned buffer.
func captureLogger(t *testing.T, target **slog.Logger) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := *target
	*target = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() { *target = prev })
	return &buf
}

func closedDB(t *testing.T) *sqlx.DB {
	t.Helper()
	raw, err := coredatabase.Open("host=127.0.0.1 port=1 sslmode=disable")
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "postgres")
	require.NoError(t, db.Close())
	return db
}

func TestCountsAreLogged(t *testing.T) {
	ctx := context.Background()
	db := closedDB(t)

	catalogLog := captureLogger(t, &logger.SVCCatalog)
	_, err := NewCatalog(db).Count(ctx)
	require.Error(t, err)
	assert.Contains(t, catalogLog.String(), `"op":"count"`)
	assert.Contains(t, catalogLog.String(), `"status":"fail"`)

	cartLog := captureLogger(t, &logger.SVCCarts)
	_, err = NewCarts(db).CountActive(ctx)
	require.Error(t, err)
	assert.Contains(t, cartLog.String(), `"op":"count_active"`)
	assert.Contains(t, cartLog.String(), `"status":"fail"`)
}

func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "..", "migrations")
}

// setupDB starts a disposable postgres and applies the repository migrations.
func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shop"),
		tcpostgres.WithUsername("shop"),
		tcpostgres.WithPassword("shop"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dir, err := filepath.Abs(migrationsDir())
	require.NoError(t, err)
	require.NoError(t, coredatabase.ApplyMigrations(dir, connStr))

	raw, err := coredatabase.Open(connStr)
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "postgres")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresStores(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	catalog := NewCatalog(db)
	carts := NewCarts(db)
	users := NewUsers(db)

	t.Run("catalog", func(t *testing.T) {
		n, err := catalog.SeedIfEmpty(ctx, []domain.Product{
			{Name: "Milk 1L", Price: 5000, Category: domain.CategoryDrinks},
			{Name: "Orange Juice", Price: 7000, Category: domain.CategoryDrinks, Grade: "premium"},
			{Name: "100% Cocoa", Price: 9000, Category: domain.CategoryDesserts},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = catalog.SeedIfEmpty(ctx, []domain.Product{{Name: "x", Price: 1, Category: domain.CategoryFood}})
		require.NoError(t, err)
		assert.Zero(t, n)

		drinks, err := catalog.FindByCategory(ctx, domain.CategoryDrinks)
		require.NoError(t, err)
		require.Len(t, drinks, 2)
		assert.Equal(t, "premium", drinks[1].Grade)

		found, err := catalog.Search(ctx, "milk")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Milk 1L", found[0].Name)

		found, err = catalog.Search(ctx, "%")
		require.NoError(t, err)
		require.Len(t, found, 1, "wildcards are matched literally")

		_, err = catalog.FindByID(ctx, 424242)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		count, err := catalog.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("carts", func(t *testing.T) {
		_, err := carts.Get(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = carts.UpsertIncrement(ctx, 1, 10, "Milk 1L", 5000, 1)
			}()
		}
		wg.Wait()
		_, err = carts.UpsertIncrement(ctx, 1, 11, "Orange Juice", 7000, 1)
		require.NoError(t, err)

		cart, err := carts.Get(ctx, 1)
		require.NoError(t, err)
		require.Len(t, cart.Lines, 2)
		assert.Equal(t, 20, cart.Lines[0].Quantity)
		assert.Equal(t, domain.Money(20*5000+7000), cart.Total())

		qty, err := carts.UpsertIncrement(ctx, 1, 11, "", 0, -1)
		require.NoError(t, err)
		assert.Zero(t, qty)

		_, err = carts.UpsertIncrement(ctx, 1, 99, "", 0, -1)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		active, err := carts.CountActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, active)

		require.NoError(t, carts.Delete(ctx, 1))
		_, err = carts.Get(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("users", func(t *testing.T) {
		_, err := users.Get(ctx, 7)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, users.UpsertPhone(ctx, 7, "998901234567"))
		u, err := users.Get(ctx, 7)
		require.NoError(t, err)
		assert.Nil(t, u.Location)
		assert.False(t, u.HasDeliveryTarget())

		require.NoError(t, users.UpsertLocation(ctx, 7, domain.Location{Latitude: 41.31, Longitude: 69.24}))
		require.NoError(t, users.UpsertAddress(ctx, 7, "Main st. 1"))
		u, err = users.Get(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "998901234567", u.Phone)
		require.NotNil(t, u.Location)
		assert.InDelta(t, 69.24, u.Location.Longitude, 1e-9)
		assert.Equal(t, "Main st. 1", u.Address)
	})
}
