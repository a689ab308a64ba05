package querycache

import (
	"context"
	"fmt"

	"github.com/goliatone/go-query-cache/query"
	"github.com/goliatone/go-query-cache/reflector"
	"github.com/goliatone/go-query-cache/tagger"
)

// Invalidate drops every entry that depends on what r writes. Tags are
// derived with the table tag included, and tables that carry no concrete
// row ids also drop all of their row scoped entries.
func (c *Cache) Invalidate(ctx context.Context, r reflector.Reflector) (int, error) {
	db := r.Database()
	tags := tagger.Tags(r, true, c.cfg.ConsiderRows)

	dropped, err := c.store.Invalidate(ctx, tags...)
	if err != nil {
		return dropped, fmt.Errorf("querycache: store invalidate: %w", err)
	}

	rows := r.Rows()
	for _, table := range r.Tables() {
		if set, ok := rows[table]; ok && !set.Wildcard() && c.cfg.ConsiderRows {
			continue
		}
		n, err := c.store.InvalidatePrefix(ctx, tagger.RowPrefix(db, table))
		dropped += n
		if err != nil {
			return dropped, fmt.Errorf("querycache: store invalidate rows of %s: %w", table, err)
		}
	}

	c.metrics.invalidated(ctx, db, dropped)
	c.logger.Debug("querycache invalidated", "database", db, "tags", len(tags), "dropped", dropped)
	return dropped, nil
}

// InvalidateQuery invalidates what a write shaped like q affects.
func (c *Cache) InvalidateQuery(ctx context.Context, q *query.Builder) (int, error) {
	return c.Invalidate(ctx, c.QueryReflector(q))
}

// InvalidateTables drops every entry reading any of tables. Views are
// expanded to their base tables. An empty database selects the configured
// one.
func (c *Cache) InvalidateTables(ctx context.Context, database string, tables ...string) (int, error) {
	var resolved []string
	for _, table := range tables {
		resolved = append(resolved, c.resolver.Resolve(table)...)
	}

	return c.Invalidate(ctx, reflector.NewCallReflector(reflector.Call{
		Database: c.database(database),
		Owner:    "querycache",
		Method:   "InvalidateTables",
		Tables:   resolved,
	}))
}

// InvalidateDatabase drops every entry tagged for database.
func (c *Cache) InvalidateDatabase(ctx context.Context, database string) (int, error) {
	database = c.database(database)
	n, err := c.store.InvalidatePrefix(ctx, tagger.DatabaseTag(database)+":")
	if err != nil {
		return n, fmt.Errorf("querycache: store invalidate database %s: %w", database, err)
	}
	c.metrics.invalidated(ctx, database, n)
	return n, nil
}

// Flush drops every entry in the store.
func (c *Cache) Flush(ctx context.Context) error {
	if err := c.store.Flush(ctx); err != nil {
		return fmt.Errorf("querycache: store flush: %w", err)
	}
	c.logger.Debug("querycache flushed")
	return nil
}
