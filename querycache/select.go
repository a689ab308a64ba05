package querycache

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-query-cache/query"
	"github.com/goliatone/go-query-cache/reflector"
)

// QueryReflector reflects q against the configured database.
func (c *Cache) QueryReflector(q *query.Builder) *reflector.QueryReflector {
	return reflector.NewQueryReflector(c.cfg.Database, q, c.cfg.QueryOptions())
}

// Select runs q on db through the cache and scans the rows into []T.
// Results are tagged with the tables and primary key rows the query reads.
func Select[T any](ctx context.Context, c *Cache, db bun.IDB, q *query.Builder) ([]T, error) {
	r := c.QueryReflector(q)
	return remember(ctx, c, r, func(ctx context.Context) ([]T, error) {
		var rows []T
		if err := db.NewRaw(r.Identity(), r.Parameters()...).Scan(ctx, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	})
}
