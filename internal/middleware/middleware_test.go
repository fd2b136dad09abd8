package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/webshop/internal/i18n"
	"finitefield.org/webshop/internal/rpc"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func TestCSRFRejectsMissingToken(t *testing.T) {
	mgr := newTestManager(t)
	h := mgr.Middleware(CSRF(false)(okHandler()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/coupon", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRFAcceptsHeaderAndFormToken(t *testing.T) {
	mgr := newTestManager(t)
	h := mgr.Middleware(CSRF(false)(okHandler()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	res := rec.Result()
	sess := sessionCookie(t, res, "test_session")
	token := sessionCookie(t, res, csrfCookieName)
	require.NotNil(t, sess)
	require.NotNil(t, token)

	req := httptest.NewRequest(http.MethodPost, "/cart/coupon", nil)
	req.AddCookie(sess)
	req.Header.Set(csrfHeaderName, token.Value)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	form := url.Values{csrfFormField: {token.Value}}
	req = httptest.NewRequest(http.MethodPost, "/cart/coupon", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(sess)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/cart/coupon", nil)
	req.AddCookie(sess)
	req.Header.Set(csrfHeaderName, "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLocaleResolution(t *testing.T) {
	bundle, err := i18n.Load("en", []string{"en", "ja"})
	require.NoError(t, err)
	mgr := newTestManager(t)

	var lang string
	h := mgr.Middleware(Locale(bundle)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang = Lang(r)
	})))

	cases := []struct {
		name   string
		target string
		cookie string
		accept string
		want   string
	}{
		{name: "accept language", target: "/", accept: "ja-JP,ja;q=0.9", want: "ja"},
		{name: "query wins", target: "/?hl=en", accept: "ja", want: "en"},
		{name: "cookie before header", target: "/", cookie: "ja", accept: "en", want: "ja"},
		{name: "unsupported query ignored", target: "/?hl=fr", accept: "en", want: "en"},
		{name: "fallback", target: "/", want: "en"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: localeCookieName, Value: tc.cookie})
			}
			if tc.accept != "" {
				req.Header.Set("Accept-Language", tc.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.want, lang)
			require.Equal(t, tc.want, rec.Header().Get("Content-Language"))
		})
	}
}

func TestKeyedLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewKeyedLimiter(10, 2, func() time.Time { return now })

	require.True(t, limiter.Allow("a"))
	require.True(t, limiter.Allow("a"))
	require.False(t, limiter.Allow("a"))
	require.True(t, limiter.Allow("b"))

	now = now.Add(6 * time.Second)
	require.True(t, limiter.Allow("a"))
	require.False(t, limiter.Allow("a"))
	require.Equal(t, 6, limiter.RetryAfter())

	var disabled *KeyedLimiter
	require.True(t, disabled.Allow("a"))
	require.Nil(t, NewKeyedLimiter(0, 1, nil))
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewKeyedLimiter(1, 1, func() time.Time { return now })
	h := RateLimit(limiter, func(*http.Request) string { return "shopper" })(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/coupon", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/cart/coupon", nil)
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), `"rate_limited"`)
}

func TestBackendSessionForwardsSid(t *testing.T) {
	mgr := newTestManager(t)
	var sid, sessionID string
	h := mgr.Middleware(BackendSession("sid")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid = rpc.SessionID(r.Context())
		sessionID = GetSession(r).ID
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, sessionID, sid)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "backend-123"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "backend-123", sid)

	// the remembered sid survives once the backend cookie is gone
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, rec.Result(), "test_session"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "backend-123", sid)
}

func TestVaryHTMX(t *testing.T) {
	rec := httptest.NewRecorder()
	VaryHTMX(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "HX-Request", rec.Header().Get("Vary"))
}
