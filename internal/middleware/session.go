package middleware

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultSessionCookie   = "WEBSHOP_SESSION"
	defaultSessionLifetime = 30 * 24 * time.Hour
)

type ctxKey string

const (
	ctxKeySession  ctxKey = "session"
	ctxKeyLocaleFB ctxKey = "locale_fallback"
)

// SessionData is the shopper state persisted in the signed session cookie.
type SessionData struct {
	ID         string    `json:"id"`
	CSRFToken  string    `json:"csrf,omitempty"`
	Locale     string    `json:"locale,omitempty"`
	BackendSID string    `json:"sid,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	dirty bool
}

// MarkDirty flags the session for writing before the response is committed.
func (s *SessionData) MarkDirty() {
	s.dirty = true
	s.UpdatedAt = time.Now().UTC()
}

// SessionConfig controls the session cookie.
type SessionConfig struct {
	CookieName string
	HashKey    []byte
	BlockKey   []byte
	Secure     bool
	Lifetime   time.Duration
	Now        func() time.Time
}

// SessionManager encodes session state with gorilla/securecookie.
type SessionManager struct {
	cookieName string
	codec      *securecookie.SecureCookie
	secure     bool
	lifetime   time.Duration
	now        func() time.Time
	ephemeral  bool
}

// NewSessionManager builds a manager. An empty hash key yields a process-ephemeral key, which
// only suits development: sessions do not survive a restart.
func NewSessionManager(cfg SessionConfig) (*SessionManager, error) {
	hashKey := cfg.HashKey
	ephemeral := false
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			return nil, errors.New("session: failed to generate hash key")
		}
		ephemeral = true
	}
	var blockKey []byte
	if len(cfg.BlockKey) > 0 {
		blockKey = cfg.BlockKey
	}

	if cfg.CookieName == "" {
		cfg.CookieName = defaultSessionCookie
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultSessionLifetime
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Lifetime / time.Second))

	return &SessionManager{
		cookieName: cfg.CookieName,
		codec:      codec,
		secure:     cfg.Secure,
		lifetime:   cfg.Lifetime,
		now:        cfg.Now,
		ephemeral:  ephemeral,
	}, nil
}

// Ephemeral reports whether the manager signs with a generated key.
func (m *SessionManager) Ephemeral() bool { return m.ephemeral }

// CookieName returns the session cookie name.
func (m *SessionManager) CookieName() string { return m.cookieName }

// Secure reports whether cookies carry the Secure attribute.
func (m *SessionManager) Secure() bool { return m.secure }

// Middleware loads or initializes the session and stores it in the request context. The cookie
// is written just before the first byte of the response when the session changed.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := m.read(r)
		if sd.ID == "" {
			now := m.now().UTC()
			sd = &SessionData{
				ID:        randID(),
				CSRFToken: newCSRFToken(),
				CreatedAt: now,
				UpdatedAt: now,
				dirty:     true,
			}
		}

		ctx := context.WithValue(r.Context(), ctxKeySession, sd)
		sw := &sessionWriter{ResponseWriter: w}
		sw.before = func() {
			if sd.dirty || !fromCookie {
				m.write(w, sd)
			}
		}
		next.ServeHTTP(sw, r.WithContext(ctx))
		if !sw.wrote {
			sw.before()
		}
	})
}

func (m *SessionManager) read(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := m.codec.Decode(m.cookieName, c.Value, &sd); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func (m *SessionManager) write(w http.ResponseWriter, sd *SessionData) {
	encoded, err := m.codec.Encode(m.cookieName, sd)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  m.now().Add(m.lifetime),
	})
	sd.dirty = false
}

// GetSession returns the session from the request context, or an empty one outside the
// session middleware.
func GetSession(r *http.Request) *SessionData {
	if sd, ok := r.Context().Value(ctxKeySession).(*SessionData); ok && sd != nil {
		return sd
	}
	return &SessionData{}
}

// SessionKey identifies the shopper for per-session throttling and placement deduplication.
func SessionKey(r *http.Request) string {
	if sd := GetSession(r); sd.ID != "" {
		return sd.ID
	}
	return r.RemoteAddr
}

// sessionWriter runs before once, ahead of the first header or body write.
type sessionWriter struct {
	http.ResponseWriter
	before func()
	wrote  bool
}

func (w *sessionWriter) fire() {
	if w.wrote {
		return
	}
	w.wrote = true
	if w.before != nil {
		w.before()
	}
}

func (w *sessionWriter) WriteHeader(status int) {
	w.fire()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.fire()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Flush() {
	w.fire()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *sessionWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("session: read random: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func newCSRFToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
