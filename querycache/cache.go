package querycache

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/reflector"
	"github.com/goliatone/go-query-cache/tagger"
)

// Cache coordinates policy, key hashing and the store around cacheable
// operations. It is safe for concurrent use.
type Cache struct {
	cfg      Config
	store    cache.Store
	hasher   cache.Hasher
	policy   Policy
	resolver reflector.TableResolver
	logger   *slog.Logger
	metrics  *metrics
	tracer   trace.Tracer

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// Option configures a Cache.
type Option func(*Cache)

// WithHasher replaces the default xxhash hasher.
func WithHasher(h cache.Hasher) Option {
	return func(c *Cache) {
		if h != nil {
			c.hasher = h
		}
	}
}

// WithPolicy replaces the ConfigPolicy derived from Config.
func WithPolicy(p Policy) Option {
	return func(c *Cache) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithLogger sets the logger. Logging is discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMeterProvider sets the meter provider used for cache counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Cache) {
		if mp != nil {
			c.meterProvider = mp
		}
	}
}

// WithTracerProvider sets the tracer provider used for miss spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Cache) {
		if tp != nil {
			c.tracerProvider = tp
		}
	}
}

// New validates cfg and builds a Cache. A nil store selects the default tag
// store built from cfg.Store.
func New(cfg Config, store cache.Store, opts ...Option) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("querycache: invalid config: %w", err)
	}

	if store == nil {
		s, err := cache.NewStore(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("querycache: create store: %w", err)
		}
		store = s
	}

	c := &Cache{
		cfg:            cfg,
		store:          store,
		hasher:         cache.NewHasher(nil),
		policy:         NewConfigPolicy(cfg),
		resolver:       cfg.Resolver(),
		logger:         slog.New(slog.DiscardHandler),
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(c)
	}

	m, err := newMetrics(c.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("querycache: create metrics: %w", err)
	}
	c.metrics = m
	c.tracer = c.tracerProvider.Tracer(instrumentationName)

	return c, nil
}

// Config returns the configuration the cache was built with.
func (c *Cache) Config() Config { return c.cfg }

// Store returns the underlying store.
func (c *Cache) Store() cache.Store { return c.store }

// Logger returns the cache logger.
func (c *Cache) Logger() *slog.Logger { return c.logger }

// Key returns the store key for r.
func (c *Cache) Key(r reflector.Reflector) string {
	return c.cfg.Prefix + r.Database() + ":" + c.hasher.Hash(r.Identity(), r.Parameters())
}

func (c *Cache) database(name string) string {
	if name == "" {
		return c.cfg.Database
	}
	return name
}

// remember runs the lookup, fetch and store flow for one operation.
func remember[T any](ctx context.Context, c *Cache, r reflector.Reflector, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	db := r.Database()

	if !c.policy.ShouldCache(r) {
		c.metrics.lookup(ctx, db, resultBypass)
		c.logger.Debug("querycache bypass", "database", db, "identity", r.Identity())
		return fetch(ctx)
	}

	key := c.Key(r)

	var cached T
	hit, err := c.store.Get(ctx, key, &cached)
	if err != nil {
		return zero, fmt.Errorf("querycache: store get %s: %w", key, err)
	}
	if hit {
		c.metrics.lookup(ctx, db, resultHit)
		c.logger.Debug("querycache hit", "database", db, "key", key)
		return cached, nil
	}

	c.metrics.lookup(ctx, db, resultMiss)
	c.logger.Debug("querycache miss", "database", db, "key", key, "identity", r.Identity())

	result, err := traced(ctx, c, r, key, fetch)
	if err != nil {
		return zero, err
	}

	tags := tagger.Tags(r, false, c.cfg.ConsiderRows)
	tags = append(tags, cacheTagsFromContext(ctx)...)

	if err := c.store.Set(ctx, key, tags, result); err != nil {
		return zero, fmt.Errorf("querycache: store set %s: %w", key, err)
	}
	c.metrics.stored(ctx, db)
	c.logger.Debug("querycache stored", "database", db, "key", key, "tags", len(tags))

	return result, nil
}

// traced runs fetch inside a span. Only misses are traced.
func traced[T any](ctx context.Context, c *Cache, r reflector.Reflector, key string, fetch func(context.Context) (T, error)) (T, error) {
	ctx, span := c.tracer.Start(ctx, "querycache.fetch", trace.WithAttributes(
		attribute.String("querycache.database", r.Database()),
		attribute.String("querycache.identity", r.Identity()),
		attribute.String("querycache.key", key),
	))
	defer span.End()

	value, err := fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return value, err
}
