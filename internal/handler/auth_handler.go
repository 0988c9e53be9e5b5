package handler

import (
	"errors"
	"net/http"

	"fsanano/credit-tracker/internal/auth"
	"fsanano/credit-tracker/internal/service"

	"go.uber.org/zap"
)

const (
	msgRegistered      = "Registration successful! Please login."
	msgDuplicateUser   = "Username already exists"
	msgMissingFields   = "Username and password are required"
	msgInvalidLogin    = "Invalid username or password"
	msgSomethingFailed = "Something went wrong, please try again."
)

type AuthHandler struct {
	svc      *service.AuthService
	sessions *auth.Sessions
	logger   *zap.Logger
}

func NewAuthHandler(svc *service.AuthService, sessions *auth.Sessions, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, sessions: sessions, logger: logger}
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	render(w, h.logger, "register.html", pageData{Flashes: h.sessions.Flashes(w, r)})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	_, err := h.svc.Register(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateUsername):
			h.sessions.AddFlash(w, r, msgDuplicateUser)
		case errors.Is(err, service.ErrMissingCredentials):
			h.sessions.AddFlash(w, r, msgMissingFields)
		default:
			h.logger.Error("register failed", zap.Error(err))
			h.sessions.AddFlash(w, r, msgSomethingFailed)
		}
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	h.sessions.AddFlash(w, r, msgRegistered)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	render(w, h.logger, "login.html", pageData{Flashes: h.sessions.Flashes(w, r)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.sessions.AddFlash(w, r, msgInvalidLogin)
		} else {
			h.logger.Error("login failed", zap.Error(err))
			h.sessions.AddFlash(w, r, msgSomethingFailed)
		}
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return
	}

	if err := h.sessions.Start(w, r, auth.Identity{UserID: user.ID, Username: user.Username}); err != nil {
		h.logger.Error("failed to start session", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		h.logger.Warn("failed to destroy session", zap.Error(err))
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}
