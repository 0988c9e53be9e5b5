package auth

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	sessionName = "credit_session"

	keyUserID   = "user_id"
	keyUsername = "username"

	LoginPath = "/login"
)

// Identity is the user bound to an authenticated session.
type Identity struct {
	UserID   int64
	Username string
}

type SessionConfig struct {
	Secret string
	// MaxAge is the session lifetime in seconds.
	MaxAge int
	Secure bool
}

// Sessions binds browser clients to user identities through a signed cookie.
type Sessions struct {
	store  sessions.Store
	logger *zap.Logger
}

func NewSessions(cfg SessionConfig, logger *zap.Logger) *Sessions {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store, logger: logger}
}

// get never returns nil; a cookie that fails verification yields a fresh session.
func (s *Sessions) get(r *http.Request) *sessions.Session {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		s.logger.Debug("discarding invalid session cookie", zap.Error(err))
	}
	return sess
}

// Start records the identity in the session, replacing any previous one.
func (s *Sessions) Start(w http.ResponseWriter, r *http.Request, id Identity) error {
	sess := s.get(r)
	sess.Values[keyUserID] = id.UserID
	sess.Values[keyUsername] = id.Username
	return sess.Save(r, w)
}

// Destroy expires the session cookie. It is safe to call without a session.
func (s *Sessions) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess := s.get(r)
	sess.Values = make(map[interface{}]interface{})
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// Current returns the identity of the session attached to r, if any.
func (s *Sessions) Current(r *http.Request) (Identity, bool) {
	sess := s.get(r)
	userID, ok := sess.Values[keyUserID].(int64)
	if !ok {
		return Identity{}, false
	}
	username, _ := sess.Values[keyUsername].(string)
	return Identity{UserID: userID, Username: username}, true
}

// AddFlash queues a one-shot message for the next rendered page.
func (s *Sessions) AddFlash(w http.ResponseWriter, r *http.Request, msg string) {
	sess := s.get(r)
	sess.AddFlash(msg)
	if err := sess.Save(r, w); err != nil {
		s.logger.Error("failed to save flash", zap.Error(err))
	}
}

// Flashes drains the queued messages.
func (s *Sessions) Flashes(w http.ResponseWriter, r *http.Request) []string {
	sess := s.get(r)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		s.logger.Error("failed to save session", zap.Error(err))
	}
	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		if m, ok := f.(string); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// RequireLogin redirects requests without a valid session to the login page
// and exposes the identity of authenticated ones through the request context.
func (s *Sessions) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.Current(r)
		if !ok {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
