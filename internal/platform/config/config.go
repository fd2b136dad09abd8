package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile            = ".env"
	defaultPort               = "8080"
	defaultEnvironment        = "local"
	defaultReadTimeout        = 15 * time.Second
	defaultWriteTimeout       = 30 * time.Second
	defaultIdleTimeout        = 120 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultBackendTimeout     = 8 * time.Second
	defaultBackendSessionName = "sid"
	defaultPaymentRequestPath = "/api/method/erpnext.accounts.doctype.payment_request.payment_request.make_payment_request"
	defaultSessionCookieName  = "WEBSHOP_SESSION"
	defaultSettingsTTL        = 5 * time.Minute
	defaultCouponPerMinute    = 10
	defaultCouponBurst        = 3
	defaultLocaleFallback     = "en"
	defaultLogLevel           = "info"
	minSessionKeyLength       = 32
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	Backend     BackendConfig
	Session     SessionConfig
	Cache       CacheConfig
	RateLimits  RateLimitConfig
	Locale      LocaleConfig
	Log         LogConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// BackendConfig points the storefront at the ERP backend serving RPC methods.
// An empty BaseURL runs the storefront against the in-memory fake backend.
type BackendConfig struct {
	BaseURL            string
	PublicURL          string
	APIKey             string
	APISecret          string
	Timeout            time.Duration
	SessionCookie      string
	PaymentRequestPath string
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	CookieName string
	HashKey    string
	BlockKey   string
	Secure     bool
}

// CacheConfig configures the shared settings cache. An empty RedisAddr keeps the cache in memory.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SettingsTTL   time.Duration
}

// RateLimitConfig throttles coupon attempts per session.
type RateLimitConfig struct {
	CouponPerMinute int
	CouponBurst     int
}

// LocaleConfig lists the UI languages.
type LocaleConfig struct {
	Fallback  string
	Supported []string
}

// LogConfig sets the logger level.
type LogConfig struct {
	Level string
}

// IsProduction reports whether the service runs with production hardening.
func (c Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration by combining defaults, .env overrides, environment variables
// and explicit maps (highest precedence last).
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	env := envSource(func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	})

	// Cloud Run injects PORT; the prefixed variable wins when both are present.
	port := env.str("PORT", defaultPort)
	port = env.str("WEBSHOP_PORT", port)

	environment := strings.ToLower(env.str("WEBSHOP_ENV", defaultEnvironment))

	cfg := Config{
		Environment: environment,
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     env.duration("WEBSHOP_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    env.duration("WEBSHOP_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     env.duration("WEBSHOP_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: env.duration("WEBSHOP_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Backend: BackendConfig{
			BaseURL:            strings.TrimRight(env.str("WEBSHOP_BACKEND_URL", ""), "/"),
			PublicURL:          strings.TrimRight(env.str("WEBSHOP_BACKEND_PUBLIC_URL", ""), "/"),
			APIKey:             env.str("WEBSHOP_BACKEND_API_KEY", ""),
			APISecret:          env.str("WEBSHOP_BACKEND_API_SECRET", ""),
			Timeout:            env.duration("WEBSHOP_BACKEND_TIMEOUT", defaultBackendTimeout),
			SessionCookie:      env.str("WEBSHOP_BACKEND_SESSION_COOKIE", defaultBackendSessionName),
			PaymentRequestPath: env.str("WEBSHOP_PAYMENT_REQUEST_PATH", defaultPaymentRequestPath),
		},
		Session: SessionConfig{
			CookieName: env.str("WEBSHOP_SESSION_COOKIE", defaultSessionCookieName),
			HashKey:    env.str("WEBSHOP_SESSION_HASH_KEY", ""),
			BlockKey:   env.str("WEBSHOP_SESSION_BLOCK_KEY", ""),
			Secure:     env.boolean("WEBSHOP_SESSION_SECURE", environment == "prod"),
		},
		Cache: CacheConfig{
			RedisAddr:     env.str("WEBSHOP_REDIS_ADDR", ""),
			RedisPassword: env.str("WEBSHOP_REDIS_PASSWORD", ""),
			RedisDB:       env.integer("WEBSHOP_REDIS_DB", 0),
			SettingsTTL:   env.duration("WEBSHOP_SETTINGS_TTL", defaultSettingsTTL),
		},
		RateLimits: RateLimitConfig{
			CouponPerMinute: env.integer("WEBSHOP_RATELIMIT_COUPON_PER_MIN", defaultCouponPerMinute),
			CouponBurst:     env.integer("WEBSHOP_RATELIMIT_COUPON_BURST", defaultCouponBurst),
		},
		Locale: LocaleConfig{
			Fallback:  strings.ToLower(env.str("WEBSHOP_LOCALE_FALLBACK", defaultLocaleFallback)),
			Supported: env.list("WEBSHOP_LOCALE_SUPPORTED"),
		},
		Log: LogConfig{
			Level: env.str("WEBSHOP_LOG_LEVEL", defaultLogLevel),
		},
	}

	if len(cfg.Locale.Supported) == 0 {
		cfg.Locale.Supported = []string{"en", "ja"}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Backend.Timeout <= 0 {
		missing = append(missing, "Backend.Timeout")
	}
	if (cfg.Backend.APIKey == "") != (cfg.Backend.APISecret == "") {
		missing = append(missing, "Backend.APIKey/APISecret")
	}
	if strings.TrimSpace(cfg.Backend.PaymentRequestPath) == "" {
		missing = append(missing, "Backend.PaymentRequestPath")
	}
	if cfg.IsProduction() {
		if cfg.Backend.BaseURL == "" {
			missing = append(missing, "Backend.BaseURL")
		}
		if len(cfg.Session.HashKey) < minSessionKeyLength {
			missing = append(missing, "Session.HashKey")
		}
	}
	if n := len(cfg.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		missing = append(missing, "Session.BlockKey")
	}
	if cfg.Cache.SettingsTTL <= 0 {
		missing = append(missing, "Cache.SettingsTTL")
	}
	if cfg.RateLimits.CouponPerMinute <= 0 || cfg.RateLimits.CouponBurst <= 0 {
		missing = append(missing, "RateLimits.Coupon")
	}
	if !slices.Contains(cfg.Locale.Supported, cfg.Locale.Fallback) {
		missing = append(missing, "Locale.Fallback")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

// loadDotEnv reads KEY=value lines from path. A missing file yields no values.
func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(filepath.Clean(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	values := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if key = strings.TrimSpace(key); !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return values, nil
}

// envSource resolves a configuration key. Blank values count as unset.
type envSource func(key string) (string, bool)

func (s envSource) raw(key string) (string, bool) {
	value, ok := s(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (s envSource) str(key, fallback string) string {
	if value, ok := s.raw(key); ok {
		return value
	}
	return fallback
}

func (s envSource) duration(key string, fallback time.Duration) time.Duration {
	value, ok := s.raw(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func (s envSource) integer(key string, fallback int) int {
	value, ok := s.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func (s envSource) boolean(key string, fallback bool) bool {
	value, _ := s.raw(key)
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

// list splits a comma separated value into lowercased, non-empty entries.
func (s envSource) list(key string) []string {
	value, ok := s.raw(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
