package querycache

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/goliatone/go-query-cache/querycache"

const (
	resultHit    = "hit"
	resultMiss   = "miss"
	resultBypass = "bypass"
)

type metrics struct {
	lookups       metric.Int64Counter
	stores        metric.Int64Counter
	invalidations metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	lookups, err := meter.Int64Counter(
		"querycache.lookups",
		metric.WithDescription("Cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	stores, err := meter.Int64Counter(
		"querycache.stores",
		metric.WithDescription("Values written to the store after a miss"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter(
		"querycache.invalidations",
		metric.WithDescription("Keys dropped by invalidation"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{
		lookups:       lookups,
		stores:        stores,
		invalidations: invalidations,
	}, nil
}

func (m *metrics) lookup(ctx context.Context, database, result string) {
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("database", database),
		attribute.String("result", result),
	))
}

func (m *metrics) stored(ctx context.Context, database string) {
	m.stores.Add(ctx, 1, metric.WithAttributes(attribute.String("database", database)))
}

func (m *metrics) invalidated(ctx context.Context, database string, n int) {
	if n <= 0 {
		return
	}
	m.invalidations.Add(ctx, int64(n), metric.WithAttributes(attribute.String("database", database)))
}
