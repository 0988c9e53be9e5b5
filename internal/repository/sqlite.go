package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fsanano/credit-tracker/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type userRow struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

type customerRow struct {
	ID            int64   `gorm:"primaryKey"`
	Name          string  `gorm:"not null"`
	Mobile        string  `gorm:"not null"`
	CreditBalance float64 `gorm:"not null"`
}

func (customerRow) TableName() string { return "customers" }

func (c customerRow) toModel() model.Customer {
	return model.Customer{ID: c.ID, Name: c.Name, Mobile: c.Mobile, CreditBalance: c.CreditBalance}
}

// SQLiteStore keeps users and the customer ledger in an embedded SQLite file.
//
// The pool is limited to a single connection, so transactions are serialized
// and a balance read inside RunAtomic cannot be overwritten by another writer
// before the transaction commits.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (and creates) the database at path. Use ":memory:" for a
// private in-memory ledger.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteStore{db: db}, nil
}

func (r *SQLiteStore) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates the users and customers tables when they are missing.
func (r *SQLiteStore) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&userRow{}, &customerRow{}); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// RunAtomic executes fn within a transaction. Repository calls made with the
// ctx passed to fn run inside that transaction.
func (r *SQLiteStore) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, gormTxKey{}, tx))
	})
}

type gormTxKey struct{}

func (r *SQLiteStore) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// CreateUser inserts a user; a taken username yields ErrAlreadyExists.
func (r *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (model.User, error) {
	row := userRow{Username: username, PasswordHash: passwordHash}
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return model.User{}, ErrAlreadyExists
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return model.User{ID: row.ID, Username: row.Username, PasswordHash: row.PasswordHash}, nil
}

func (r *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	var row userRow
	err := r.conn(ctx).Where("username = ?", username).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return model.User{ID: row.ID, Username: row.Username, PasswordHash: row.PasswordHash}, nil
}

func (r *SQLiteStore) CreateCustomer(ctx context.Context, name, mobile string, creditBalance float64) (model.Customer, error) {
	row := customerRow{Name: name, Mobile: mobile, CreditBalance: creditBalance}
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		return model.Customer{}, fmt.Errorf("failed to create customer: %w", err)
	}
	return row.toModel(), nil
}

// ListCustomers returns every customer in insertion order.
func (r *SQLiteStore) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	var rows []customerRow
	if err := r.conn(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	customers := make([]model.Customer, 0, len(rows))
	for _, row := range rows {
		customers = append(customers, row.toModel())
	}
	return customers, nil
}

// GetCustomerBalanceForUpdate returns the balance of a customer. SQLite has no
// row locks; the single-connection pool provides the exclusion instead.
func (r *SQLiteStore) GetCustomerBalanceForUpdate(ctx context.Context, customerID int64) (float64, error) {
	var row customerRow
	err := r.conn(ctx).Select("id", "credit_balance").Where("id = ?", customerID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get customer balance: %w", err)
	}
	return row.CreditBalance, nil
}

func (r *SQLiteStore) UpdateCustomerBalance(ctx context.Context, customerID int64, balance float64) error {
	res := r.conn(ctx).Model(&customerRow{}).Where("id = ?", customerID).Update("credit_balance", balance)
	if res.Error != nil {
		return fmt.Errorf("failed to update customer balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TotalCredit sums all balances; an empty ledger totals 0.
func (r *SQLiteStore) TotalCredit(ctx context.Context) (float64, error) {
	var total float64
	err := r.conn(ctx).Model(&customerRow{}).Select("COALESCE(SUM(credit_balance), 0)").Row().Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum credit: %w", err)
	}
	return total, nil
}
