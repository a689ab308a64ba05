package querycache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-query-cache/reflector"
	"github.com/goliatone/go-query-cache/tagger"
)

func userCall(id int64) reflector.Call {
	return reflector.Call{
		Owner:  "UserService",
		Method: "Find",
		Args:   []any{id},
		Tables: []string{"users"},
		Rows:   reflector.RowMap{"users": reflector.RowIDs(id)},
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database = ""

	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected error for empty database")
	}
}

func TestRemember_MissThenHit(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, nil)
	fetch, calls := counter("alice", nil)

	for i := 0; i < 3; i++ {
		got, err := Remember(ctx, c, userCall(5), fetch)
		if err != nil {
			t.Fatalf("Remember() failed: %v", err)
		}
		if got != "alice" {
			t.Errorf("Remember() = %q, want alice", got)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("expected one fetch, got %d", calls.Load())
	}
}

func TestRemember_DifferentArgumentsDifferentKeys(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, nil)

	a, _ := Remember(ctx, c, userCall(1), func(context.Context) (int, error) { return 1, nil })
	b, _ := Remember(ctx, c, userCall(2), func(context.Context) (int, error) { return 2, nil })

	if a != 1 || b != 2 {
		t.Errorf("expected independent entries, got %d and %d", a, b)
	}
}

func TestRemember_BypassWhenInactive(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, func(cfg *Config) { cfg.Active = false })
	fetch, calls := counter(42, nil)

	for i := 0; i < 2; i++ {
		if _, err := Remember(ctx, c, userCall(5), fetch); err != nil {
			t.Fatalf("Remember() failed: %v", err)
		}
	}

	if calls.Load() != 2 {
		t.Errorf("expected every call to run, got %d", calls.Load())
	}
	if c.Store().(interface{ Size() int }).Size() != 0 {
		t.Error("bypass must not touch the store")
	}
}

func TestRemember_BypassSkipsBrokenStore(t *testing.T) {
	cfg := DefaultConfig()
	c, err := New(cfg, failingStore{}, WithPolicy(PolicyFunc(func(reflector.Reflector) bool { return false })))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	got, err := Remember(context.Background(), c, userCall(5), func(context.Context) (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Errorf("Remember() = (%d, %v), want (7, nil)", got, err)
	}
}

func TestRemember_OperationErrorNotCached(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, nil)
	boom := errors.New("boom")
	fetch, calls := counter("", boom)

	for i := 0; i < 2; i++ {
		_, err := Remember(ctx, c, userCall(5), fetch)
		if !errors.Is(err, boom) {
			t.Fatalf("expected operation error, got %v", err)
		}
	}

	if calls.Load() != 2 {
		t.Errorf("failed results must not be cached, fetch ran %d times", calls.Load())
	}
}

func TestRemember_StoreErrorsPropagate(t *testing.T) {
	c, err := New(DefaultConfig(), failingStore{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	fetch, calls := counter(1, nil)

	_, err = Remember(context.Background(), c, userCall(5), fetch)
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("fetch must not run when the lookup fails, ran %d times", calls.Load())
	}
}

func TestRemember_ReadTags(t *testing.T) {
	tests := []struct {
		name         string
		considerRows bool
		call         reflector.Call
		extra        []string
		want         []string
	}{
		{
			name:         "row ids give row tags only",
			considerRows: true,
			call:         userCall(5),
			want:         []string{tagger.RowTag("db", "users", int64(5))},
		},
		{
			name:         "rows disabled gives table tags",
			considerRows: false,
			call:         userCall(5),
			want:         []string{tagger.TableTag("db", "users")},
		},
		{
			name:         "absent table is tagged per table",
			considerRows: true,
			call: reflector.Call{
				Owner:  "Report",
				Method: "Build",
				Tables: []string{"users", "orders"},
				Rows:   reflector.RowMap{"users": reflector.RowIDs(1)},
			},
			want: []string{tagger.RowTag("db", "users", 1), tagger.TableTag("db", "orders")},
		},
		{
			name:         "context tags are added",
			considerRows: true,
			call:         reflector.Call{Owner: "Stats", Method: "Daily", Tables: []string{"events"}},
			extra:        []string{"custom:daily"},
			want:         []string{tagger.TableTag("db", "events"), "custom:daily"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStore(t)
			cfg := DefaultConfig()
			cfg.Database = "db"
			cfg.ConsiderRows = tt.considerRows

			c, err := New(cfg, store)
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}

			ctx := WithCacheTags(context.Background(), tt.extra...)
			if _, err := Remember(ctx, c, tt.call, func(context.Context) (int, error) { return 1, nil }); err != nil {
				t.Fatalf("Remember() failed: %v", err)
			}

			if len(store.tags) != 1 {
				t.Fatalf("expected one stored entry, got %d", len(store.tags))
			}
			for _, got := range store.tags {
				if diff := cmp.Diff(tt.want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
					t.Errorf("tags mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestRemember_SnapshotIsolatesArguments(t *testing.T) {
	type filter struct {
		Status string
	}

	ctx := context.Background()
	c := newTestCache(t, nil)

	f := &filter{Status: "active"}
	call := reflector.Call{Owner: "UserService", Method: "Search", Args: []any{f}, Tables: []string{"users"}}

	_, err := Remember(ctx, c, call, func(context.Context) (string, error) {
		f.Status = "mutated by call"
		return "first", nil
	})
	if err != nil {
		t.Fatalf("Remember() failed: %v", err)
	}

	f.Status = "active"
	got, err := Remember(ctx, c, call, func(context.Context) (string, error) { return "second", nil })
	if err != nil {
		t.Fatalf("Remember() failed: %v", err)
	}
	if got != "first" {
		t.Errorf("key must reflect arguments at call time, got %q", got)
	}
}

func TestRemember_StructValuesRoundTrip(t *testing.T) {
	type user struct {
		ID    int64
		Name  string
		Roles []string
	}

	ctx := context.Background()
	c := newTestCache(t, nil)
	want := []user{{ID: 1, Name: "alice", Roles: []string{"admin"}}, {ID: 2, Name: "bob"}}

	fetch := func(context.Context) ([]user, error) { return want, nil }
	if _, err := Remember(ctx, c, userCall(1), fetch); err != nil {
		t.Fatalf("Remember() failed: %v", err)
	}

	got, err := Remember(ctx, c, userCall(1), func(context.Context) ([]user, error) {
		t.Fatal("expected a cache hit")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Remember() failed: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("cached value mismatch (-want +got):\n%s", diff)
	}
}

func TestCache_KeyIsNamespaced(t *testing.T) {
	c := newTestCache(t, func(cfg *Config) { cfg.Prefix = "app:" })
	key := c.Key(reflector.NewCallReflector(reflector.Call{Database: "db", Owner: "O", Method: "M"}))

	if !strings.HasPrefix(key, "app:db:") {
		t.Errorf("key %q should start with prefix and database", key)
	}
}

func TestCache_LogsLookups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := newTestCache(t, nil, WithLogger(logger))

	ctx := context.Background()
	fetch, _ := counter(1, nil)
	Remember(ctx, c, userCall(1), fetch)
	Remember(ctx, c, userCall(1), fetch)

	out := buf.String()
	for _, msg := range []string{"querycache miss", "querycache stored", "querycache hit"} {
		if !strings.Contains(out, msg) {
			t.Errorf("expected log output to contain %q, got:\n%s", msg, out)
		}
	}
}
