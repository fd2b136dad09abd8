package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"finitefield.org/webshop/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	registrars  []RouteRegistrar
	home        string
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultTimeout    = 30 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware and the storefront routes.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{
			chimw.RequestID,
			chimw.RealIP,
			chimw.Compress(5),
			chimw.Timeout(defaultTimeout),
		},
		home: allProductsPath,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	// probes bypass the session and CSRF stack
	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Group(func(site chi.Router) {
		for _, mw := range cfg.middlewares {
			if mw != nil {
				site.Use(mw)
			}
		}

		site.NotFound(func(w http.ResponseWriter, req *http.Request) {
			httpx.WriteError(req.Context(), w, req, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
		})
		site.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
			httpx.WriteError(req.Context(), w, req, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
		})

		if cfg.home != "" {
			home := cfg.home
			site.Get("/", func(w http.ResponseWriter, req *http.Request) {
				http.Redirect(w, req, home, http.StatusFound)
			})
		}

		for _, reg := range cfg.registrars {
			if reg != nil {
				reg(site)
			}
		}
	})

	return r
}

// WithMiddlewares appends additional middleware to the storefront routes.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithRoutes registers storefront route groups.
func WithRoutes(reg ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.registrars = append(cfg.registrars, reg...)
	}
}

// WithHome sets the redirect target for "/". An empty target leaves "/" unrouted.
func WithHome(target string) Option {
	return func(cfg *routerConfig) {
		cfg.home = target
	}
}
