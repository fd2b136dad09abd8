package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5/middleware"

	"finitefield.org/webshop/internal/platform/requestctx"
)

const (
	maxCodeLen    = 80
	maxMessageLen = 512
)

// Error is a failure answered outside a page region: JSON for htmx and API callers, plain text
// for browser navigations.
type Error struct {
	Code    string
	Message string
	Status  int
}

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// NewError builds an Error. A zero status becomes 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    clean(code, maxCodeLen),
		Message: clean(message, maxMessageLen),
		Status:  status,
	}
}

// WriteError answers r with err.
func WriteError(ctx context.Context, w http.ResponseWriter, r *http.Request, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if r != nil && !IsHTMX(r) && !strings.Contains(r.Header.Get("Accept"), "application/json") {
		http.Error(w, err.Message, status)
		return
	}

	body := errorBody{
		Error:     err.Code,
		Message:   err.Message,
		Status:    status,
		RequestID: clean(middleware.GetReqID(ctx), 80),
		TraceID:   clean(requestctx.TraceID(ctx), 64),
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// clean flattens control characters to spaces and truncates to limit bytes.
func clean(value string, limit int) string {
	value = strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
