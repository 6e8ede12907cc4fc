// Package engine computes itemized cost estimates and cross-provider
// comparisons on top of the pricing cache.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/cloudquote/cloudquote/pkg/config"
	"github.com/cloudquote/cloudquote/pkg/pricing"
	"github.com/cloudquote/cloudquote/pkg/telemetry"
)

// Engine is the runtime core. Construct it with New; the zero value is
// not usable.
type Engine struct {
	Logger *slog.Logger
	Tracer trace.Tracer

	catalog *pricing.Catalog
	cache   *pricing.Cache
	cfg     config.Config

	now func() time.Time
}

// Option overrides a default during construction.
type Option func(*Engine)

// New initializes the engine. Without options it prices everything
// from the embedded static catalog: no adapters, no persistence.
func New(opts ...Option) (*Engine, error) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: redactSensitiveAttrs,
	})
	e := &Engine{
		Logger: slog.New(handler),
		Tracer: telemetry.Tracer(),
		cfg:    config.Defaults(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.catalog == nil {
		cat, err := pricing.LoadCatalog()
		if err != nil {
			return nil, fmt.Errorf("load pricing catalog: %w", err)
		}
		e.catalog = cat
	}
	if e.cache == nil {
		e.cache = pricing.NewCache(e.Logger, e.catalog, nil, pricing.CacheOptions{
			TTL:          e.cfg.Cache.TTL,
			StaleCeiling: e.cfg.Cache.StaleCeiling,
		})
	}
	return e, nil
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Logger = l
		}
	}
}

// WithConfig sets the runtime configuration.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithCatalog injects a catalog, mainly for tests.
func WithCatalog(c *pricing.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithCache injects a fully wired pricing cache.
func WithCache(c *pricing.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// Catalog exposes the static catalog for introspection endpoints.
func (e *Engine) Catalog() *pricing.Catalog {
	return e.catalog
}

// Cache exposes the pricing cache for warm-up and health reporting.
func (e *Engine) Cache() *pricing.Cache {
	return e.cache
}

// redactSensitiveAttrs scrubs credential-shaped keys from log output.
func redactSensitiveAttrs(groups []string, a slog.Attr) slog.Attr {
	sensitiveKeys := map[string]bool{
		"api_key": true, "token": true, "secret": true, "password": true,
		"access_key": true, "authorization": true, "credential": true,
		"signature": true, "private_key": true,
	}
	if sensitiveKeys[a.Key] {
		return slog.Attr{Key: a.Key, Value: slog.StringValue("[REDACTED]")}
	}
	return a
}
