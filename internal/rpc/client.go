package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"finitefield.org/webshop/internal/platform/requestctx"
)

const (
	instrumentationName  = "finitefield.org/webshop/internal/rpc"
	defaultTimeout       = 8 * time.Second
	defaultSessionCookie = "sid"
	idempotencyHeader    = "Idempotency-Key"
	methodPathPrefix     = "/api/method/"
	maxResponseBytes     = 4 << 20
)

// Client issues named RPC calls against the ERP backend. When no base URL is configured the
// client answers from an in-memory fake backend.
type Client struct {
	baseURL       string
	http          *http.Client
	apiKey        string
	apiSecret     string
	sessionCookie string
	fake          *Fake

	tracer  trace.Tracer
	calls   metric.Int64Counter
	latency metric.Float64Histogram
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithAPIToken authenticates every call with a backend API key pair.
func WithAPIToken(key, secret string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
		c.apiSecret = strings.TrimSpace(secret)
	}
}

// WithSessionCookie sets the name of the backend session cookie forwarded from the shopper.
func WithSessionCookie(name string) Option {
	return func(c *Client) {
		if name = strings.TrimSpace(name); name != "" {
			c.sessionCookie = name
		}
	}
}

// NewClient constructs a backend client. When baseURL is empty, the client serves mock data.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:          &http.Client{Timeout: defaultTimeout},
		sessionCookie: defaultSessionCookie,
		tracer:        otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.fake = NewFake()
	}

	meter := otel.Meter(instrumentationName)
	if counter, err := meter.Int64Counter("webshop.rpc.calls",
		metric.WithDescription("Backend RPC calls by method and outcome.")); err == nil {
		c.calls = counter
	}
	if histogram, err := meter.Float64Histogram("webshop.rpc.duration",
		metric.WithDescription("Backend RPC call latency."),
		metric.WithUnit("ms")); err == nil {
		c.latency = histogram
	}
	return c
}

// Fake returns the in-memory backend used when no base URL is configured.
func (c *Client) Fake() *Fake {
	if c == nil || c.baseURL != "" {
		return nil
	}
	return c.fake
}

// Call invokes method with args and decodes the response "message" into out. out may be nil
// when the caller only needs success or failure. Backend exceptions surface as *Error.
func (c *Client) Call(ctx context.Context, method string, args any, out any) error {
	method = strings.TrimSpace(method)
	if method == "" {
		return ErrMissingMethod
	}
	if c == nil {
		return ErrNotConfigured
	}

	ctx, span := c.tracer.Start(ctx, "rpc "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "frappe"),
			attribute.String("rpc.method", method),
		),
	)
	defer span.End()

	start := time.Now()
	var (
		status int
		err    error
	)
	if c.baseURL == "" {
		status = http.StatusOK
		err = c.fake.Call(ctx, method, args, out)
	} else {
		status, err = c.post(ctx, method, args, out)
	}
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if rpcErr, ok := AsError(err); ok {
			status = rpcErr.Status
			span.SetAttributes(attribute.String("rpc.exc_type", rpcErr.ExcType))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}

	attrs := metric.WithAttributes(
		attribute.String("rpc.method", method),
		attribute.String("outcome", outcome),
	)
	if c.calls != nil {
		c.calls.Add(ctx, 1, attrs)
	}
	if c.latency != nil {
		c.latency.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	}

	requestctx.Logger(ctx).Debug("backend rpc",
		zap.String("rpc_method", method),
		zap.Int("status", status),
		zap.Duration("duration", elapsed),
		zap.String("outcome", outcome),
	)
	return err
}

func (c *Client) post(ctx context.Context, method string, args any, out any) (int, error) {
	if args == nil {
		args = map[string]any{}
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return 0, fmt.Errorf("rpc: encode %s args: %w", method, err)
	}

	endpoint := c.baseURL + methodPathPrefix + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "token "+c.apiKey+":"+c.apiSecret)
	}
	if sid := SessionID(ctx); sid != "" {
		req.AddCookie(&http.Cookie{Name: c.sessionCookie, Value: sid})
	}
	if key := IdempotencyKey(ctx); key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rpc: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("rpc: read %s response: %w", method, err)
	}
	return resp.StatusCode, decodeResponse(method, resp.StatusCode, body, out)
}

type envelope struct {
	Message        json.RawMessage `json:"message"`
	Exc            json.RawMessage `json:"exc"`
	ExcType        string          `json:"exc_type"`
	ServerMessages string          `json:"_server_messages"`
}

func decodeResponse(method string, status int, body []byte, out any) error {
	var env envelope
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			if status >= http.StatusBadRequest {
				return &Error{Method: method, Status: status}
			}
			return fmt.Errorf("rpc: decode %s response: %w", method, err)
		}
	}

	if status >= http.StatusBadRequest || present(env.Exc) || env.ExcType != "" {
		return &Error{
			Method:   method,
			Status:   status,
			ExcType:  env.ExcType,
			Messages: decodeServerMessages(env.ServerMessages),
		}
	}

	if out == nil || !present(env.Message) {
		return nil
	}
	if err := json.Unmarshal(env.Message, out); err != nil {
		return fmt.Errorf("rpc: decode %s message: %w", method, err)
	}
	return nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) && !bytes.Equal(trimmed, []byte(`""`))
}
