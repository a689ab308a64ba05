package querycache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/pkg/testsupport"
	"github.com/goliatone/go-query-cache/reflector"
)

func newTestCache(t *testing.T, mutate func(cfg *Config), opts ...Option) *Cache {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Database = "db"
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := New(cfg, nil, opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

// counter returns a fetch function that counts its invocations.
func counter[T any](value T, err error) (func(context.Context) (T, error), *atomic.Int32) {
	calls := &atomic.Int32{}
	return func(context.Context) (T, error) {
		calls.Add(1)
		return value, err
	}, calls
}

var errStoreDown = errors.New("store down")

// failingStore fails every operation.
type failingStore struct{}

var _ cache.Store = failingStore{}

func (failingStore) Has(context.Context, string) (bool, error)             { return false, errStoreDown }
func (failingStore) Get(context.Context, string, any) (bool, error)        { return false, errStoreDown }
func (failingStore) Set(context.Context, string, []string, any) error      { return errStoreDown }
func (failingStore) Invalidate(context.Context, ...string) (int, error)    { return 0, errStoreDown }
func (failingStore) InvalidatePrefix(context.Context, string) (int, error) { return 0, errStoreDown }
func (failingStore) Flush(context.Context) error                           { return errStoreDown }

// recordingStore wraps a real store and remembers the tags of each Set.
type recordingStore struct {
	cache.Store
	tags map[string][]string
}

func newRecordingStore(t *testing.T) *recordingStore {
	t.Helper()
	s, err := cache.NewStore(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	return &recordingStore{Store: s, tags: map[string][]string{}}
}

func (r *recordingStore) Set(ctx context.Context, key string, tags []string, value any) error {
	r.tags[key] = append([]string(nil), tags...)
	return r.Store.Set(ctx, key, tags, value)
}

type widget struct {
	bun.BaseModel `bun:"table:widgets"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name"`
}

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db := testsupport.OpenSQLite(t, (*widget)(nil))

	ctx := context.Background()

	for _, name := range []string{"bolt", "nut", "gear"} {
		w := &widget{Name: name}
		if _, err := db.NewInsert().Model(w).Exec(ctx); err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
	}
	return db
}

func callReflector(tables []string) reflector.Reflector {
	return reflector.NewCallReflector(reflector.Call{Database: "db", Owner: "O", Method: "M", Tables: tables})
}
