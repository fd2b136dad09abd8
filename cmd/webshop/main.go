package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"finitefield.org/webshop/internal/cache"
	"finitefield.org/webshop/internal/handlers"
	"finitefield.org/webshop/internal/i18n"
	"finitefield.org/webshop/internal/middleware"
	"finitefield.org/webshop/internal/platform/config"
	"finitefield.org/webshop/internal/platform/observability"
	"finitefield.org/webshop/internal/rpc"
	"finitefield.org/webshop/internal/shop"
	"finitefield.org/webshop/internal/view"
)

func main() {
	var envFile string
	flag.StringVar(&envFile, "env-file", ".env", "dotenv file with local overrides")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(ctx, config.WithEnvFile(envFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("webshop")

	bundle, err := i18n.Load(cfg.Locale.Fallback, cfg.Locale.Supported)
	if err != nil {
		logger.Fatal("failed to load locale catalogs", zap.Error(err))
	}
	renderer, err := view.New(bundle)
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}

	sessions, err := middleware.NewSessionManager(middleware.SessionConfig{
		CookieName: cfg.Session.CookieName,
		HashKey:    []byte(cfg.Session.HashKey),
		BlockKey:   []byte(cfg.Session.BlockKey),
		Secure:     cfg.Session.Secure,
	})
	if err != nil {
		logger.Fatal("failed to initialise sessions", zap.Error(err))
	}
	if sessions.Ephemeral() {
		logger.Warn("session hash key not configured; sessions will not survive a restart")
	}

	healthOpts := []handlers.HealthOption{}
	var store cache.Store = cache.NewMemory()
	var redisClient *redis.Client
	if cfg.Cache.RedisAddr != "" {
		redisClient, err = cache.Dial(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
		store = cache.NewRedis(redisClient, cache.WithLogger(logger.Named("cache")))
		healthOpts = append(healthOpts, handlers.WithReadinessCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}

	client := rpc.NewClient(cfg.Backend.BaseURL,
		rpc.WithTimeout(cfg.Backend.Timeout),
		rpc.WithAPIToken(cfg.Backend.APIKey, cfg.Backend.APISecret),
		rpc.WithSessionCookie(cfg.Backend.SessionCookie),
	)
	if client.Fake() != nil {
		logger.Warn("backend url not configured; serving the in-memory demo backend")
	}

	settings := shop.NewSettings(client, store, cfg.Cache.SettingsTTL)
	healthOpts = append(healthOpts, handlers.WithReadinessCheck("backend", func(ctx context.Context) error {
		_, err := settings.Int(ctx, shop.DocTypeWebshopSettings, shop.FieldProductsPerPage, shop.DefaultPageLength)
		return err
	}))

	cartHandlers := handlers.NewCartHandlers(
		shop.NewCartService(client),
		renderer,
		middleware.NewKeyedLimiter(cfg.RateLimits.CouponPerMinute, cfg.RateLimits.CouponBurst, nil),
	)
	orderHandlers := handlers.NewOrderHandlers(
		shop.NewLoyaltyService(client, settings, paymentEndpoint(cfg.Backend)),
		renderer,
	)
	productHandlers := handlers.NewProductHandlers(shop.NewCatalogService(client, settings), renderer, cfg.Session.Secure)
	deskHandlers := handlers.NewDeskHandlers(shop.NewDeskService(client), renderer)
	paymentHandlers := handlers.NewPaymentHandlers(shop.NewPaymentService(settings))

	httpLogger := logger.Named("http")
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(httpLogger),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(httpLogger),
		observability.RequestLoggerMiddleware(),
		sessions.Middleware,
		middleware.Locale(bundle),
		middleware.CSRF(cfg.Session.Secure),
		middleware.BackendSession(cfg.Backend.SessionCookie),
		middleware.VaryHTMX,
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithRoutes(
			cartHandlers.Routes,
			orderHandlers.Routes,
			productHandlers.Routes,
			deskHandlers.Routes,
			paymentHandlers.Routes,
		),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := httpLogger.With(zap.String("addr", server.Addr), zap.String("env", cfg.Environment))
	go func() {
		serverLogger.Info("webshop listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// paymentEndpoint is the absolute payment request URL the browser follows from the order page.
func paymentEndpoint(b config.BackendConfig) string {
	base := b.PublicURL
	if base == "" {
		base = b.BaseURL
	}
	return base + b.PaymentRequestPath
}
