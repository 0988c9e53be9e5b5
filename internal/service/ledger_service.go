package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"fsanano/credit-tracker/internal/model"
	"fsanano/credit-tracker/internal/repository"

	"github.com/go-playground/validator/v10"
)

type newCustomer struct {
	Name   string
	Mobile string `validate:"mobile"`
}

type LedgerService struct {
	repo     LedgerRepository
	validate *validator.Validate
}

func NewLedgerService(repo LedgerRepository) *LedgerService {
	return &LedgerService{repo: repo, validate: newValidator()}
}

// ParseInitialCredit converts the optional initial credit field. Anything that
// is not a finite number counts as 0.
func ParseInitialCredit(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParseAmount accepts a JSON number or a JSON string holding a number.
func ParseAmount(raw json.RawMessage) (float64, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, ErrInvalidAmount
	}
	switch a := v.(type) {
	case float64:
		return a, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		return f, nil
	default:
		return 0, ErrInvalidAmount
	}
}

func (s *LedgerService) CreateCustomer(ctx context.Context, name, mobile string, initialCredit float64) (model.Customer, error) {
	if err := s.validate.Struct(newCustomer{Name: name, Mobile: mobile}); err != nil {
		return model.Customer{}, ErrInvalidMobile
	}
	return s.repo.CreateCustomer(ctx, name, mobile, initialCredit)
}

func (s *LedgerService) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *LedgerService) TotalCredit(ctx context.Context) (float64, error) {
	return s.repo.TotalCredit(ctx)
}

// Dashboard returns the customer list together with the total computed over
// that same list.
func (s *LedgerService) Dashboard(ctx context.Context) (model.Dashboard, error) {
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return model.Dashboard{}, err
	}
	return model.Dashboard{Customers: customers, TotalCredit: model.SumCredit(customers)}, nil
}

// ApplyPayment reduces the customer's balance by amount and reports the new
// balance and the ledger total as seen by the same transaction. The balance
// may go negative.
func (s *LedgerService) ApplyPayment(ctx context.Context, customerID int64, amount float64) (model.PaymentResult, error) {
	return s.applyPayment(ctx, customerID, func() (float64, error) { return amount, nil })
}

// ApplyRawPayment is ApplyPayment for an amount still in its JSON form. An
// unknown customer is reported before the amount is looked at; a nil raw
// amount counts as invalid.
func (s *LedgerService) ApplyRawPayment(ctx context.Context, customerID int64, raw json.RawMessage) (model.PaymentResult, error) {
	return s.applyPayment(ctx, customerID, func() (float64, error) { return ParseAmount(raw) })
}

func (s *LedgerService) applyPayment(ctx context.Context, customerID int64, amountFn func() (float64, error)) (model.PaymentResult, error) {
	var result model.PaymentResult
	err := s.repo.RunAtomic(ctx, func(ctx context.Context) error {
		// 1. Lock the customer row
		balance, err := s.repo.GetCustomerBalanceForUpdate(ctx, customerID)
		if err != nil {
			return err
		}

		// 2. Validate the amount
		amount, err := amountFn()
		if err != nil {
			return err
		}
		if !(amount > 0) || math.IsInf(amount, 1) {
			return ErrInvalidAmount
		}

		// 3. Write the decremented balance
		result.NewBalance = balance - amount
		if math.IsInf(result.NewBalance, 0) {
			return ErrInvalidAmount
		}
		if err := s.repo.UpdateCustomerBalance(ctx, customerID, result.NewBalance); err != nil {
			return err
		}

		// 4. Recompute the aggregate, including this write
		result.TotalCredit, err = s.repo.TotalCredit(ctx)
		if err != nil {
			return err
		}
		if math.IsInf(result.TotalCredit, 0) || math.IsNaN(result.TotalCredit) {
			return ErrInvalidAmount
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.PaymentResult{}, ErrCustomerNotFound
		}
		return model.PaymentResult{}, err
	}
	return result, nil
}
