package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"fsanano/credit-tracker/internal/auth"
	"fsanano/credit-tracker/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	msgCustomerAdded = "Customer added successfully!"
	msgInvalidMobile = "Invalid mobile number. It must be exactly 9 digits."
)

type LedgerHandler struct {
	svc      *service.LedgerService
	sessions *auth.Sessions
	logger   *zap.Logger
}

func NewLedgerHandler(svc *service.LedgerService, sessions *auth.Sessions, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, sessions: sessions, logger: logger}
}

func (h *LedgerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("failed to load dashboard", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	id, _ := auth.IdentityFromContext(r.Context())
	render(w, h.logger, "dashboard.html", pageData{
		Flashes:     h.sessions.Flashes(w, r),
		Username:    id.Username,
		Customers:   dash.Customers,
		TotalCredit: dash.TotalCredit,
	})
}

func (h *LedgerHandler) AddCustomer(w http.ResponseWriter, r *http.Request) {
	initialCredit := service.ParseInitialCredit(r.PostFormValue("initial_credit"))

	_, err := h.svc.CreateCustomer(r.Context(), r.PostFormValue("name"), r.PostFormValue("mobile"), initialCredit)
	switch {
	case err == nil:
		h.sessions.AddFlash(w, r, msgCustomerAdded)
	case errors.Is(err, service.ErrInvalidMobile):
		h.sessions.AddFlash(w, r, msgInvalidMobile)
	default:
		h.logger.Error("failed to add customer", zap.Error(err))
		h.sessions.AddFlash(w, r, msgSomethingFailed)
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

type PaymentRequest struct {
	Amount json.RawMessage `json:"amount"`
}

type PaymentResponse struct {
	Success     bool    `json:"success"`
	NewBalance  float64 `json:"new_balance"`
	TotalCredit float64 `json:"total_credit"`
}

func (h *LedgerHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusNotFound, service.ErrCustomerNotFound.Error())
		return
	}

	// A malformed body leaves Amount nil, which the service rejects once the
	// customer is known to exist.
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.Amount = nil
	}

	res, err := h.svc.ApplyRawPayment(r.Context(), customerID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "Invalid amount")
		case errors.Is(err, service.ErrCustomerNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		default:
			h.logger.Error("failed to apply payment", zap.Int64("customer_id", customerID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, PaymentResponse{
		Success:     true,
		NewBalance:  res.NewBalance,
		TotalCredit: res.TotalCredit,
	})
}
