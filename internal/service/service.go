package service

import (
	"context"
	"errors"
	"regexp"

	"fsanano/credit-tracker/internal/model"

	"github.com/go-playground/validator/v10"
)

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidMobile      = errors.New("invalid mobile number")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrCustomerNotFound   = errors.New("customer not found")
)

// UserRepository is the credential store.
type UserRepository interface {
	CreateUser(ctx context.Context, username, passwordHash string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
}

// LedgerRepository is the customer ledger.
type LedgerRepository interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
	CreateCustomer(ctx context.Context, name, mobile string, creditBalance float64) (model.Customer, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	GetCustomerBalanceForUpdate(ctx context.Context, customerID int64) (float64, error)
	UpdateCustomerBalance(ctx context.Context, customerID int64, balance float64) error
	TotalCredit(ctx context.Context) (float64, error)
}

var mobilePattern = regexp.MustCompile(`^[0-9]{9}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
	return v
}
