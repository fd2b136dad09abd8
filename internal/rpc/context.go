package rpc

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	sessionContextKey     contextKey = "finitefield.org/webshop/internal/rpc/session"
	idempotencyContextKey contextKey = "finitefield.org/webshop/internal/rpc/idempotency"
)

// WithSessionID attaches the shopper's backend session id to outbound calls made with ctx.
func WithSessionID(ctx context.Context, sid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionContextKey, strings.TrimSpace(sid))
}

// SessionID returns the backend session id carried by ctx.
func SessionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sid, _ := ctx.Value(sessionContextKey).(string)
	return sid
}

// WithIdempotencyKey sets the Idempotency-Key header for calls made with ctx.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, idempotencyContextKey, strings.TrimSpace(key))
}

// IdempotencyKey returns the idempotency key carried by ctx.
func IdempotencyKey(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	key, _ := ctx.Value(idempotencyContextKey).(string)
	return key
}

// NewIdempotencyKey returns a fresh random key.
func NewIdempotencyKey() string {
	return uuid.NewString()
}
