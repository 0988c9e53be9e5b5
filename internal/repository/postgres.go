package repository

import (
	"context"
	"errors"
	"fmt"

	"fsanano/credit-tracker/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps users and the customer ledger in Postgres.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the users and customers tables when they are missing.
func (r *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			mobile TEXT NOT NULL,
			credit_balance DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}
	return nil
}

// RunAtomic executes fn within a transaction. Repository calls made with the
// ctx passed to fn run inside that transaction.
func (r *PostgresStore) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// no-op once committed
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type pgTxKey struct{}

func (r *PostgresStore) getExecutor(ctx context.Context) PgxExecutor {
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.db
}

// PgxExecutor is an interface that matches both *pgxpool.Pool and pgx.Tx
type PgxExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreateUser inserts a user; a taken username yields ErrAlreadyExists.
func (r *PostgresStore) CreateUser(ctx context.Context, username, passwordHash string) (model.User, error) {
	user := model.User{Username: username, PasswordHash: passwordHash}
	err := r.getExecutor(ctx).QueryRow(ctx,
		"INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id",
		username, passwordHash,
	).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.User{}, ErrAlreadyExists
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *PostgresStore) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	var user model.User
	err := r.getExecutor(ctx).QueryRow(ctx,
		"SELECT id, username, password_hash FROM users WHERE username = $1", username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *PostgresStore) CreateCustomer(ctx context.Context, name, mobile string, creditBalance float64) (model.Customer, error) {
	c := model.Customer{Name: name, Mobile: mobile, CreditBalance: creditBalance}
	err := r.getExecutor(ctx).QueryRow(ctx,
		"INSERT INTO customers (name, mobile, credit_balance) VALUES ($1, $2, $3) RETURNING id",
		name, mobile, creditBalance,
	).Scan(&c.ID)
	if err != nil {
		return model.Customer{}, fmt.Errorf("failed to create customer: %w", err)
	}
	return c, nil
}

// ListCustomers returns every customer in insertion order.
func (r *PostgresStore) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, "SELECT id, name, mobile, credit_balance FROM customers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	customers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Customer, error) {
		var c model.Customer
		err := row.Scan(&c.ID, &c.Name, &c.Mobile, &c.CreditBalance)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan customers: %w", err)
	}
	return customers, nil
}

// GetCustomerBalanceForUpdate locks the customer row and returns its balance
func (r *PostgresStore) GetCustomerBalanceForUpdate(ctx context.Context, customerID int64) (float64, error) {
	var balance float64
	err := r.getExecutor(ctx).QueryRow(ctx,
		"SELECT credit_balance FROM customers WHERE id = $1 FOR UPDATE", customerID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get customer balance: %w", err)
	}
	return balance, nil
}

func (r *PostgresStore) UpdateCustomerBalance(ctx context.Context, customerID int64, balance float64) error {
	tag, err := r.getExecutor(ctx).Exec(ctx, "UPDATE customers SET credit_balance = $1 WHERE id = $2", balance, customerID)
	if err != nil {
		return fmt.Errorf("failed to update customer balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TotalCredit sums all balances; an empty ledger totals 0.
func (r *PostgresStore) TotalCredit(ctx context.Context) (float64, error) {
	var total float64
	err := r.getExecutor(ctx).QueryRow(ctx, "SELECT COALESCE(SUM(credit_balance), 0) FROM customers").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum credit: %w", err)
	}
	return total, nil
}
