package shop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"finitefield.org/webshop/internal/cache"
	"finitefield.org/webshop/internal/platform/requestctx"
	"finitefield.org/webshop/internal/rpc"
)

// Settings reads single-doctype setting values from the backend through a shared cache.
type Settings struct {
	backend Caller
	store   cache.Store
	ttl     time.Duration
	flight  singleflight.Group
}

// NewSettings constructs a settings reader. A nil store disables caching.
func NewSettings(backend Caller, store cache.Store, ttl time.Duration) *Settings {
	return &Settings{backend: backend, store: store, ttl: ttl}
}

func settingsKey(doctype, field string) string {
	return "settings:" + doctype + ":" + field
}

// Value returns the raw JSON value of doctype.field. Absent values decode as null.
func (s *Settings) Value(ctx context.Context, doctype, field string) (json.RawMessage, error) {
	key := settingsKey(doctype, field)
	if s.store != nil {
		data, err := s.store.Get(ctx, key)
		switch {
		case err == nil:
			return json.RawMessage(data), nil
		case !errors.Is(err, cache.ErrMiss):
			requestctx.Logger(ctx).Warn("settings cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err := sharedCall(ctx, &s.flight, key, func(ctx context.Context) (any, error) {
		var raw json.RawMessage
		if err := s.backend.Call(ctx, rpc.MethodGetSingleValue, map[string]any{
			"doctype": doctype,
			"field":   field,
		}, &raw); err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			raw = json.RawMessage("null")
		}
		if s.store != nil {
			if err := s.store.Set(ctx, key, raw, s.ttl); err != nil {
				requestctx.Logger(ctx).Warn("settings cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// String returns doctype.field as text; null decodes as "".
func (s *Settings) String(ctx context.Context, doctype, field string) (string, error) {
	raw, err := s.Value(ctx, doctype, field)
	if err != nil {
		return "", err
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text), nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return "", nil
	}
	return trimmed, nil
}

// Int returns doctype.field as an integer, or fallback when it is unset, zero or not numeric.
func (s *Settings) Int(ctx context.Context, doctype, field string, fallback int) (int, error) {
	text, err := s.String(ctx, doctype, field)
	if err != nil {
		return fallback, err
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || int(f) == 0 {
		return fallback, nil
	}
	return int(f), nil
}
