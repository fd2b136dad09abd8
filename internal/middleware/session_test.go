package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mgr, err := NewSessionManager(SessionConfig{
		CookieName: "test_session",
		HashKey:    []byte(strings.Repeat("h", 32)),
		BlockKey:   []byte(strings.Repeat("b", 32)),
	})
	require.NoError(t, err)
	return mgr
}

func sessionCookie(t *testing.T, res *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionIssuesCookieForNewVisitor(t *testing.T) {
	mgr := newTestManager(t)
	var seen *SessionData
	h := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSession(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, seen)
	require.NotEmpty(t, seen.ID)
	require.NotEmpty(t, seen.CSRFToken)
	c := sessionCookie(t, rec.Result(), "test_session")
	require.NotNil(t, c)
	require.True(t, c.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestSessionRoundTripsAndSkipsUnchangedWrite(t *testing.T) {
	mgr := newTestManager(t)
	var first, second string
	h := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if first == "" {
			first = GetSession(r).ID
		} else {
			second = GetSession(r).ID
		}
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	c := sessionCookie(t, rec.Result(), "test_session")
	require.NotNil(t, c)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, first, second)
	require.Nil(t, sessionCookie(t, rec.Result(), "test_session"))
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	mgr := newTestManager(t)
	var id string
	h := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = GetSession(r).ID
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "forged"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NotEmpty(t, id)
	require.NotNil(t, sessionCookie(t, rec.Result(), "test_session"))
}

func TestSessionManagerGeneratesEphemeralKey(t *testing.T) {
	mgr, err := NewSessionManager(SessionConfig{Lifetime: time.Hour})
	require.NoError(t, err)
	require.True(t, mgr.Ephemeral())
	require.Equal(t, defaultSessionCookie, mgr.CookieName())
}

func TestGetSessionOutsideMiddleware(t *testing.T) {
	sd := GetSession(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, sd)
	require.Empty(t, sd.ID)
}
