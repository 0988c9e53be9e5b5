package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"fsanano/credit-tracker/internal/model"
	"fsanano/credit-tracker/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type store interface {
	Migrate(ctx context.Context) error
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
	CreateUser(ctx context.Context, username, passwordHash string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	CreateCustomer(ctx context.Context, name, mobile string, creditBalance float64) (model.Customer, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	GetCustomerBalanceForUpdate(ctx context.Context, customerID int64) (float64, error)
	UpdateCustomerBalance(ctx context.Context, customerID int64, balance float64) error
	TotalCredit(ctx context.Context) (float64, error)
}

func newSQLiteStore(t *testing.T) store {
	t.Helper()
	s, err := repository.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newPostgresStore(t *testing.T) store {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	s := repository.NewPostgresStore(pool)
	require.NoError(t, s.Migrate(ctx))

	for _, table := range []string{"customers", "users"} {
		_, err := pool.Exec(ctx, "TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE")
		require.NoError(t, err)
	}
	return s
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, newSQLiteStore)
}

func TestPostgresStore_Integration(t *testing.T) {
	runStoreTests(t, newPostgresStore)
}

func runStoreTests(t *testing.T, open func(t *testing.T) store) {
	t.Run("users", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		created, err := s.CreateUser(ctx, "admin", "hash")
		require.NoError(t, err)
		assert.NotZero(t, created.ID)

		_, err = s.CreateUser(ctx, "admin", "other")
		assert.ErrorIs(t, err, repository.ErrAlreadyExists)

		found, err := s.GetUserByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, created, found)

		_, err = s.GetUserByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("customers keep insertion order", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		total, err := s.TotalCredit(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0.0, total)

		for _, c := range []struct {
			name    string
			balance float64
		}{{"Zed", 100}, {"Amy", 800}, {"Bob", 0}} {
			_, err := s.CreateCustomer(ctx, c.name, "123456789", c.balance)
			require.NoError(t, err)
		}

		customers, err := s.ListCustomers(ctx)
		require.NoError(t, err)
		require.Len(t, customers, 3)
		assert.Equal(t, "Zed", customers[0].Name)
		assert.Equal(t, "Amy", customers[1].Name)
		assert.Equal(t, "Bob", customers[2].Name)

		total, err = s.TotalCredit(ctx)
		require.NoError(t, err)
		assert.Equal(t, 900.0, total)
	})

	t.Run("balance update inside transaction", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		c, err := s.CreateCustomer(ctx, "John Doe", "123456789", 1000)
		require.NoError(t, err)

		err = s.RunAtomic(ctx, func(ctx context.Context) error {
			balance, err := s.GetCustomerBalanceForUpdate(ctx, c.ID)
			if err != nil {
				return err
			}
			return s.UpdateCustomerBalance(ctx, c.ID, balance-200)
		})
		require.NoError(t, err)

		total, err := s.TotalCredit(ctx)
		require.NoError(t, err)
		assert.Equal(t, 800.0, total)
	})

	t.Run("failed transaction rolls back", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		c, err := s.CreateCustomer(ctx, "John Doe", "123456789", 1000)
		require.NoError(t, err)

		boom := errors.New("boom")
		err = s.RunAtomic(ctx, func(ctx context.Context) error {
			if err := s.UpdateCustomerBalance(ctx, c.ID, 0); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		balance, err := s.GetCustomerBalanceForUpdate(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1000.0, balance)
	})

	t.Run("concurrent decrements do not lose updates", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		c, err := s.CreateCustomer(ctx, "John Doe", "123456789", 100)
		require.NoError(t, err)

		const workers = 10
		var g errgroup.Group
		for i := 0; i < workers; i++ {
			g.Go(func() error {
				return s.RunAtomic(ctx, func(ctx context.Context) error {
					balance, err := s.GetCustomerBalanceForUpdate(ctx, c.ID)
					if err != nil {
						return err
					}
					return s.UpdateCustomerBalance(ctx, c.ID, balance-10)
				})
			})
		}
		require.NoError(t, g.Wait())

		balance, err := s.GetCustomerBalanceForUpdate(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, balance)
	})

	t.Run("unknown customer", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		_, err := s.GetCustomerBalanceForUpdate(ctx, 42)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.ErrorIs(t, s.UpdateCustomerBalance(ctx, 42, 1), repository.ErrNotFound)
	})
}
