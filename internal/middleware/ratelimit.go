package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"finitefield.org/webshop/internal/platform/httpx"
	"finitefield.org/webshop/internal/platform/requestctx"
)

// KeyedLimiter keeps one token bucket per key. Buckets idle for longer than the refill window
// are pruned.
type KeyedLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	clock func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewKeyedLimiter allows perMinute events per key with the given burst. Non-positive
// perMinute disables limiting and returns nil.
func NewKeyedLimiter(perMinute, burst int, clock func() time.Time) *KeyedLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	if clock == nil {
		clock = time.Now
	}
	return &KeyedLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		idle:    2 * time.Minute,
		clock:   clock,
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token from key's bucket.
func (l *KeyedLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		l.pruneIdleLocked(now)
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.limiter.AllowN(now, 1)
}

func (l *KeyedLimiter) pruneIdleLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.seen) > l.idle {
			delete(l.buckets, key)
		}
	}
}

// RetryAfter is the wait, in whole seconds, for one token to refill.
func (l *KeyedLimiter) RetryAfter() int {
	if l == nil || l.limit <= 0 {
		return 0
	}
	secs := int(time.Duration(float64(time.Second) / float64(l.limit)).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// RateLimit answers 429 once limiter rejects the key derived from the request.
func RateLimit(limiter *KeyedLimiter, key func(*http.Request) string) func(http.Handler) http.Handler {
	if key == nil {
		key = SessionKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.Allow(key(r)) {
				next.ServeHTTP(w, r)
				return
			}
			requestctx.Logger(r.Context()).Warn("rate limit exceeded", zap.String("path", r.URL.Path))
			if retry := limiter.RetryAfter(); retry > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retry))
			}
			httpx.WriteError(r.Context(), w, r, httpx.NewError("rate_limited", "too many attempts, please wait a moment", http.StatusTooManyRequests))
		})
	}
}
