// Package observability wires structured logging and tracing into the HTTP stack.
package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the JSON logger. Field names follow the Cloud Logging structured payload so
// severity and timestamps are picked up without a parser. An unknown level logs at info.
func NewLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(strings.TrimSpace(level)); err == nil {
		lvl = parsed
	}

	enc := zap.NewProductionEncoderConfig()
	enc.MessageKey = "message"
	enc.TimeKey = "timestamp"
	enc.LevelKey = "severity"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig = enc
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	return cfg.Build()
}
