package observability

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"finitefield.org/webshop/internal/platform/httpx"
	"finitefield.org/webshop/internal/platform/requestctx"
)

const (
	tracerName          = "finitefield.org/webshop/internal/platform/observability"
	traceResponseHeader = "X-Trace-Id"
)

// TraceMiddleware continues an incoming W3C trace, or starts one, around each request. The span
// is renamed to the chi route pattern once routing has happened.
func TraceMiddleware() func(http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method, trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(spanAttributes(r)...))
			defer span.End()

			sc := span.SpanContext()
			info := requestctx.TraceInfo{Sampled: sc.IsSampled()}
			if sc.HasTraceID() {
				info.TraceID = sc.TraceID().String()
				w.Header().Set(traceResponseHeader, info.TraceID)
			}
			if sc.HasSpanID() {
				info.SpanID = sc.SpanID().String()
			}

			r = r.WithContext(requestctx.WithTrace(ctx, info))
			next.ServeHTTP(w, r)
			span.SetName(r.Method + " " + SanitizeRoute(routePattern(r)))
		})
	}
}

func spanAttributes(r *http.Request) []attribute.KeyValue {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.URLScheme(scheme),
		semconv.URLPath(r.URL.Path),
	}
	if r.Host != "" {
		attrs = append(attrs, semconv.ServerAddress(r.Host))
	}
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, semconv.UserAgentOriginal(ua))
	}
	if httpx.IsHTMX(r) {
		attrs = append(attrs, attribute.Bool("htmx.request", true))
	}
	return attrs
}
