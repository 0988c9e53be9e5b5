package handler

import (
	"io"
	"net/http"

	"fsanano/credit-tracker/internal/auth"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handler struct {
	router   *chi.Mux
	sessions *auth.Sessions
	auth     *AuthHandler
	ledger   *LedgerHandler
	logger   *zap.Logger
}

func NewHandler(sessions *auth.Sessions, authHandler *AuthHandler, ledgerHandler *LedgerHandler, logger *zap.Logger) *Handler {
	router := chi.NewRouter()

	compressor := middleware.NewCompressor(5, "text/html", "application/json")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(compressor.Handler)

	h := &Handler{
		router:   router,
		sessions: sessions,
		auth:     authHandler,
		ledger:   ledgerHandler,
		logger:   logger,
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	h.router.Get("/health", h.HealthCheck)
	h.router.Get("/", h.Index)

	h.router.Get("/register", h.auth.RegisterPage)
	h.router.Post("/register", h.auth.Register)
	h.router.Get("/login", h.auth.LoginPage)
	h.router.Post("/login", h.auth.Login)
	h.router.Get("/logout", h.auth.Logout)

	h.router.Group(func(r chi.Router) {
		r.Use(h.sessions.RequireLogin)
		r.Get("/dashboard", h.ledger.Dashboard)
		r.Post("/add_customer", h.ledger.AddCustomer)
		r.Post("/add_payment/{customerID}", h.ledger.AddPayment)
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Current(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}
