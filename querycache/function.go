package querycache

import (
	"context"
	"fmt"

	"github.com/goliatone/go-query-cache/reflector"
	"github.com/goliatone/go-query-cache/tagger"
)

// FunctionCache addresses cache entries of one call site directly. Each
// key passed to Has, Get or Set becomes the identity discriminator, so one
// call can hold several independent sub results.
type FunctionCache struct {
	cache    *Cache
	database string
	owner    string
	method   string
	args     []any
}

// Function captures a call site. The arguments are snapshotted when each
// entry is addressed.
func (c *Cache) Function(database, owner, method string, args ...any) *FunctionCache {
	return &FunctionCache{
		cache:    c,
		database: c.database(database),
		owner:    owner,
		method:   method,
		args:     reflector.Snapshot(args),
	}
}

func (f *FunctionCache) reflector(key string, tables []string, rows reflector.RowMap) *reflector.CallReflector {
	return reflector.NewCallReflector(reflector.Call{
		Database:      f.database,
		Owner:         f.owner,
		Method:        f.method,
		Discriminator: key,
		Args:          f.args,
		Tables:        tables,
		Rows:          rows,
	})
}

// ShouldCache reports whether the policy accepts this call site.
func (f *FunctionCache) ShouldCache() bool {
	return f.cache.policy.ShouldCache(f.reflector("", nil, nil))
}

// Has reports whether an entry exists for key.
func (f *FunctionCache) Has(ctx context.Context, key string) (bool, error) {
	r := f.reflector(key, nil, nil)
	if !f.cache.policy.ShouldCache(r) {
		return false, nil
	}
	ok, err := f.cache.store.Has(ctx, f.cache.Key(r))
	if err != nil {
		return false, fmt.Errorf("querycache: store has: %w", err)
	}
	return ok, nil
}

// Get decodes the entry for key into dest, a non-nil pointer.
func (f *FunctionCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	r := f.reflector(key, nil, nil)
	if !f.cache.policy.ShouldCache(r) {
		return false, nil
	}
	ok, err := f.cache.store.Get(ctx, f.cache.Key(r), dest)
	if err != nil {
		return false, fmt.Errorf("querycache: store get: %w", err)
	}
	return ok, nil
}

// Set stores value for key, tagged with the asserted tables and rows. It is
// a no-op when the policy rejects the tables.
func (f *FunctionCache) Set(ctx context.Context, key string, value any, tables []string, rows reflector.RowMap) error {
	r := f.reflector(key, tables, rows)
	if !f.cache.policy.ShouldCache(r) {
		return nil
	}

	tags := tagger.Tags(r, false, f.cache.cfg.ConsiderRows)
	tags = append(tags, cacheTagsFromContext(ctx)...)

	if err := f.cache.store.Set(ctx, f.cache.Key(r), tags, value); err != nil {
		return fmt.Errorf("querycache: store set: %w", err)
	}
	f.cache.metrics.stored(ctx, f.database)
	return nil
}
