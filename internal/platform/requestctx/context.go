// Package requestctx carries the per-request logger and trace identifiers through a context.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type stateKey struct{}

// state is copied on every update so values stored by outer middleware are never mutated by
// inner handlers.
type state struct {
	logger *zap.Logger
	trace  TraceInfo
}

var nop = zap.NewNop()

// TraceInfo identifies the server span of the current request.
type TraceInfo struct {
	TraceID string
	SpanID  string
	Sampled bool
}

func load(ctx context.Context) state {
	if ctx == nil {
		return state{}
	}
	s, _ := ctx.Value(stateKey{}).(state)
	return s
}

func store(ctx context.Context, s state) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, stateKey{}, s)
}

// WithLogger returns ctx carrying logger. A nil logger stores the no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	s := load(ctx)
	s.logger = logger
	if s.logger == nil {
		s.logger = nop
	}
	return store(ctx, s)
}

// Logger returns the request logger, or a no-op logger outside a request.
func Logger(ctx context.Context) *zap.Logger {
	if l := load(ctx).logger; l != nil {
		return l
	}
	return nop
}

// HasLogger reports whether a real logger was stored on ctx.
func HasLogger(ctx context.Context) bool {
	l := load(ctx).logger
	return l != nil && l != nop
}

// WithTrace returns ctx carrying the span identifiers.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	s := load(ctx)
	s.trace = info
	return store(ctx, s)
}

// Trace returns the span identifiers and whether any were stored.
func Trace(ctx context.Context) (TraceInfo, bool) {
	info := load(ctx).trace
	return info, info != (TraceInfo{})
}

// TraceID is the trace identifier, or "".
func TraceID(ctx context.Context) string {
	return load(ctx).trace.TraceID
}
