// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	isAuthKey  = "is_authenticated"
	adminIDKey = "admin_id"
	adminName  = "admin_name"
	adminEmail = "admin_email"
	issuedAt   = "issued_at"
)

// ErrEmptyKey is returned when no session key is configured.
var ErrEmptyKey = errors.New("session key is empty; provide 32+ random chars")

// SessionAdmin is what is cached in the cookie and injected into r.Context().
type SessionAdmin struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ctxKey string

const currentAdminKey ctxKey = "currentAdmin"

// CurrentAdmin returns the signed-in admin placed in context by LoadAdmin.
func CurrentAdmin(r *http.Request) (*SessionAdmin, bool) {
	a, ok := r.Context().Value(currentAdminKey).(*SessionAdmin)
	return a, ok
}

// ActorID is the signed-in admin's id hex, or "" when there is none.
func ActorID(r *http.Request) string {
	if a, ok := CurrentAdmin(r); ok && a != nil {
		return a.ID
	}
	return ""
}

// WithAdmin returns r carrying a. Used by LoadAdmin and by handler tests.
func WithAdmin(r *http.Request, a *SessionAdmin) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentAdminKey, a))
}

// SessionManager owns the cookie store for admin sessions.
type SessionManager struct {
	store  *sessions.CookieStore
	name   string
	maxAge time.Duration
	log    *zap.Logger
}

// NewSessionManager builds a cookie-backed session manager. In production
// (secure=true) cookies are Secure with SameSite=None so the dashboard can
// call the API cross-site over HTTPS; local http uses SameSite=Lax.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, ErrEmptyKey
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "chitfund-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, maxAge: maxAge, log: logger}, nil
}

// LoadAdmin injects the session admin into the request context when the
// cookie is valid and not older than maxAge. It never rejects a request.
func (sm *SessionManager) LoadAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			// tampered or rotated-key cookies decode as a fresh session
			var cerr securecookie.Error
			if errors.As(err, &cerr) && cerr.IsDecode() {
				sm.log.Debug("session cookie rejected", zap.Error(err))
			} else {
				sm.log.Warn("session load failed", zap.Error(err))
			}
		}
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth && !sm.expired(sess) {
			r = WithAdmin(r, &SessionAdmin{
				ID:    getString(sess, adminIDKey),
				Name:  getString(sess, adminName),
				Email: getString(sess, adminEmail),
			})
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests without a signed-in admin with a 401
// envelope.
func (sm *SessionManager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentAdmin(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		respond.Error(w, r, sm.log, apierr.Unauthorized("Please sign in to continue."))
	})
}

// SignIn stores a in a fresh session cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, a SessionAdmin) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[isAuthKey] = true
	sess.Values[adminIDKey] = a.ID
	sess.Values[adminName] = a.Name
	sess.Values[adminEmail] = a.Email
	sess.Values[issuedAt] = time.Now().Unix()
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

func (sm *SessionManager) expired(s *sessions.Session) bool {
	if sm.maxAge <= 0 {
		return false
	}
	at, ok := s.Values[issuedAt].(int64)
	if !ok {
		return true
	}
	return time.Since(time.Unix(at, 0)) > sm.maxAge
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
