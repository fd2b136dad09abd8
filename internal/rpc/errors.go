package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotConfigured is returned when a nil client is used.
	ErrNotConfigured = errors.New("rpc: client not configured")
	// ErrMissingMethod is returned when no method name is provided.
	ErrMissingMethod = errors.New("rpc: missing method")
	// ErrUnknownMethod is returned by the fake backend for methods it does not serve.
	ErrUnknownMethod = errors.New("rpc: unknown method")
)

// Error is a backend exception. Messages holds the user-facing server messages in order.
type Error struct {
	Method   string
	Status   int
	ExcType  string
	Messages []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "rpc: <nil>"
	}
	parts := []string{fmt.Sprintf("rpc: %s failed", e.Method)}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status %d", e.Status))
	}
	if e.ExcType != "" {
		parts = append(parts, e.ExcType)
	}
	if len(e.Messages) > 0 {
		parts = append(parts, e.Messages[0])
	}
	return strings.Join(parts, ": ")
}

// FirstMessage returns the first server message or "".
func (e *Error) FirstMessage() string {
	if e == nil {
		return ""
	}
	for _, msg := range e.Messages {
		if strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	return ""
}

// AsError unwraps err into a backend exception.
func AsError(err error) (*Error, bool) {
	var rpcErr *Error
	if errors.As(err, &rpcErr) && rpcErr != nil {
		return rpcErr, true
	}
	return nil, false
}

// UserMessage returns the first server message carried by err, or fallback when there is none.
func UserMessage(err error, fallback string) string {
	if rpcErr, ok := AsError(err); ok {
		if msg := rpcErr.FirstMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}

// IsNotFound reports whether the backend answered with a missing-record exception.
func IsNotFound(err error) bool {
	rpcErr, ok := AsError(err)
	if !ok {
		return false
	}
	return rpcErr.Status == http.StatusNotFound || rpcErr.ExcType == "DoesNotExistError"
}
