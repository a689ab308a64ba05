package repositorycache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/querycache"
)

// TestUser represents a test entity
type TestUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// mockRepository is an in-memory repository that tracks method calls
type mockRepository[T any] struct {
	mu          sync.Mutex
	calls       []string
	getResult   T
	getError    error
	byID        map[string]T
	listRecords []T
	listTotal   int
	listError   error
	countResult int
	writeResult T
	writeError  error
}

func newMockRepository[T any]() *mockRepository[T] {
	return &mockRepository[T]{byID: map[string]T{}}
}

// Helper method to record method calls
func (m *mockRepository[T]) recordCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
}

// Helper method to count recorded calls of one method
func (m *mockRepository[T]) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (m *mockRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("Get")
	return m.getResult, m.getError
}

func (m *mockRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByID")
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.byID[id]
	if !ok {
		var zero T
		return zero, errors.New("not found")
	}
	return record, nil
}

func (m *mockRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	m.recordCall("List")
	return m.listRecords, m.listTotal, m.listError
}

func (m *mockRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	m.recordCall("Count")
	return m.countResult, nil
}

func (m *mockRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIdentifier")
	return m.getResult, m.getError
}

func (m *mockRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	m.recordCall("Create")
	return m.writeResult, m.writeError
}

func (m *mockRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	m.recordCall("CreateMany")
	return records, m.writeError
}

func (m *mockRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	m.recordCall("Update")
	return record, m.writeError
}

func (m *mockRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	m.recordCall("UpdateMany")
	return records, m.writeError
}

func (m *mockRepository[T]) Delete(ctx context.Context, record T) error {
	m.recordCall("Delete")
	return m.writeError
}

func (m *mockRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	m.recordCall("DeleteMany")
	return m.writeError
}

func (m *mockRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIDTx")
	return m.byID[id], nil
}

// Other methods that panic to ensure they're not called during our tests
func (m *mockRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	panic("Raw not implemented in mock")
}
func (m *mockRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	panic("RawTx not implemented in mock")
}
func (m *mockRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	panic("GetTx not implemented in mock")
}
func (m *mockRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	panic("ListTx not implemented in mock")
}
func (m *mockRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	panic("CountTx not implemented in mock")
}
func (m *mockRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	panic("CreateTx not implemented in mock")
}
func (m *mockRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	panic("CreateManyTx not implemented in mock")
}
func (m *mockRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	panic("GetOrCreate not implemented in mock")
}
func (m *mockRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	panic("GetOrCreateTx not implemented in mock")
}
func (m *mockRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	panic("GetByIdentifierTx not implemented in mock")
}
func (m *mockRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	panic("UpdateTx not implemented in mock")
}
func (m *mockRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	panic("UpdateManyTx not implemented in mock")
}
func (m *mockRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	panic("Upsert not implemented in mock")
}
func (m *mockRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	panic("UpsertTx not implemented in mock")
}
func (m *mockRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	panic("UpsertMany not implemented in mock")
}
func (m *mockRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	panic("UpsertManyTx not implemented in mock")
}
func (m *mockRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	panic("DeleteTx not implemented in mock")
}
func (m *mockRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	panic("DeleteManyTx not implemented in mock")
}
func (m *mockRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	panic("DeleteWhere not implemented in mock")
}
func (m *mockRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	panic("DeleteWhereTx not implemented in mock")
}
func (m *mockRepository[T]) ForceDelete(ctx context.Context, record T) error {
	panic("ForceDelete not implemented in mock")
}
func (m *mockRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	panic("ForceDeleteTx not implemented in mock")
}
func (m *mockRepository[T]) Handlers() repository.ModelHandlers[T] {
	panic("Handlers not implemented in mock")
}

var errStoreDown = errors.New("store down")

// brokenStore fails every operation
type brokenStore struct{}

func (brokenStore) Has(context.Context, string) (bool, error)             { return false, errStoreDown }
func (brokenStore) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (brokenStore) Set(context.Context, string, []string, any) error      { return nil }
func (brokenStore) Invalidate(context.Context, ...string) (int, error)    { return 0, errStoreDown }
func (brokenStore) InvalidatePrefix(context.Context, string) (int, error) { return 0, errStoreDown }
func (brokenStore) Flush(context.Context) error                           { return errStoreDown }

func newQueryCache(t *testing.T, store cache.Store, opts ...querycache.Option) *querycache.Cache {
	t.Helper()
	c, err := querycache.New(querycache.DefaultConfig(), store, opts...)
	if err != nil {
		t.Fatalf("querycache.New() failed: %v", err)
	}
	return c
}

func seededRepository() *mockRepository[TestUser] {
	repo := newMockRepository[TestUser]()
	repo.byID["1"] = TestUser{ID: "1", Name: "alice"}
	repo.byID["2"] = TestUser{ID: "2", Name: "bob"}
	repo.listRecords = []TestUser{repo.byID["1"], repo.byID["2"]}
	repo.listTotal = 2
	repo.countResult = 2
	repo.getResult = repo.byID["1"]
	return repo
}

func TestNew(t *testing.T) {
	c := newQueryCache(t, nil)
	baseRepo := newMockRepository[TestUser]()

	cached := New[TestUser](baseRepo, c)
	if cached.base != baseRepo {
		t.Error("base repository not stored correctly")
	}
	if cached.Table() != "test_users" {
		t.Errorf("expected default table test_users, got %q", cached.Table())
	}
	if cached.database != "default" {
		t.Errorf("expected configured database, got %q", cached.database)
	}

	custom := New[TestUser](baseRepo, c, WithTable("accounts"), WithDatabase("main"), WithOwner("Accounts"))
	if custom.Table() != "accounts" || custom.database != "main" || custom.owner != "Accounts" {
		t.Errorf("options not applied: %+v", custom)
	}
}

// Test cache hit scenarios for read methods
func TestCachedReadMethods(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		operation func(context.Context, *CachedRepository[TestUser]) (any, error)
		want      any
	}{
		{
			name:   "Get",
			method: "Get",
			operation: func(ctx context.Context, c *CachedRepository[TestUser]) (any, error) {
				return c.Get(ctx)
			},
			want: TestUser{ID: "1", Name: "alice"},
		},
		{
			name:   "GetByID",
			method: "GetByID",
			operation: func(ctx context.Context, c *CachedRepository[TestUser]) (any, error) {
				return c.GetByID(ctx, "2")
			},
			want: TestUser{ID: "2", Name: "bob"},
		},
		{
			name:   "List",
			method: "List",
			operation: func(ctx context.Context, c *CachedRepository[TestUser]) (any, error) {
				records, total, err := c.List(ctx)
				return len(records) + total, err
			},
			want: 4,
		},
		{
			name:   "Count",
			method: "Count",
			operation: func(ctx context.Context, c *CachedRepository[TestUser]) (any, error) {
				return c.Count(ctx)
			},
			want: 2,
		},
		{
			name:   "GetByIdentifier",
			method: "GetByIdentifier",
			operation: func(ctx context.Context, c *CachedRepository[TestUser]) (any, error) {
				return c.GetByIdentifier(ctx, "alice")
			},
			want: TestUser{ID: "1", Name: "alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			baseRepo := seededRepository()
			cached := New[TestUser](baseRepo, newQueryCache(t, nil))

			for i := 0; i < 3; i++ {
				got, err := tt.operation(ctx, cached)
				if err != nil {
					t.Fatalf("call %d failed: %v", i, err)
				}
				if got != tt.want {
					t.Errorf("call %d = %v, want %v", i, got, tt.want)
				}
			}

			if n := baseRepo.callCount(tt.method); n != 1 {
				t.Errorf("expected base %s to be called once, got %d", tt.method, n)
			}
		})
	}
}

func TestCachedReadMethods_ErrorPropagation(t *testing.T) {
	ctx := context.Background()
	baseRepo := seededRepository()
	baseRepo.listError = errors.New("list failed")
	cached := New[TestUser](baseRepo, newQueryCache(t, nil))

	for i := 0; i < 2; i++ {
		if _, _, err := cached.List(ctx); err == nil || err.Error() != "list failed" {
			t.Fatalf("expected list error, got %v", err)
		}
	}
	if n := baseRepo.callCount("List"); n != 2 {
		t.Errorf("errors must not be cached, base List called %d times", n)
	}

	if _, err := cached.GetByID(ctx, "missing"); err == nil {
		t.Error("expected not found error")
	}
}

func TestWriteInvalidation(t *testing.T) {
	tests := []struct {
		name        string
		write       func(context.Context, *CachedRepository[TestUser]) error
		refetched   []string
		stillCached []string
	}{
		{
			name: "update drops the record and table reads",
			write: func(ctx context.Context, c *CachedRepository[TestUser]) error {
				_, err := c.Update(ctx, TestUser{ID: "1", Name: "alice2"})
				return err
			},
			refetched:   []string{"GetByID:1", "List", "Count"},
			stillCached: []string{"GetByID:2"},
		},
		{
			name: "delete drops the record and table reads",
			write: func(ctx context.Context, c *CachedRepository[TestUser]) error {
				return c.Delete(ctx, TestUser{ID: "2"})
			},
			refetched:   []string{"GetByID:2", "List", "Count"},
			stillCached: []string{"GetByID:1"},
		},
		{
			name: "create keeps existing records",
			write: func(ctx context.Context, c *CachedRepository[TestUser]) error {
				_, err := c.Create(ctx, TestUser{Name: "carol"})
				return err
			},
			refetched:   []string{"List", "Count"},
			stillCached: []string{"GetByID:1", "GetByID:2"},
		},
		{
			name: "bulk update drops each record",
			write: func(ctx context.Context, c *CachedRepository[TestUser]) error {
				_, err := c.UpdateMany(ctx, []TestUser{{ID: "1"}, {ID: "2"}})
				return err
			},
			refetched: []string{"GetByID:1", "GetByID:2", "List"},
		},
		{
			name: "criteria delete drops the whole table",
			write: func(ctx context.Context, c *CachedRepository[TestUser]) error {
				return c.DeleteMany(ctx)
			},
			refetched: []string{"GetByID:1", "GetByID:2", "List", "Count"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			baseRepo := seededRepository()
			baseRepo.writeResult = TestUser{ID: "3", Name: "carol"}
			cached := New[TestUser](baseRepo, newQueryCache(t, nil))

			reads := map[string]func(){
				"GetByID:1": func() { cached.GetByID(ctx, "1") },
				"GetByID:2": func() { cached.GetByID(ctx, "2") },
				"List":      func() { cached.List(ctx) },
				"Count":     func() { cached.Count(ctx) },
			}
			for _, read := range reads {
				read()
			}

			if err := tt.write(ctx, cached); err != nil {
				t.Fatalf("write failed: %v", err)
			}

			for _, name := range tt.refetched {
				method := strings.SplitN(name, ":", 2)[0]
				n := baseRepo.callCount(method)
				reads[name]()
				if baseRepo.callCount(method) != n+1 {
					t.Errorf("%s should be fetched again after the write", name)
				}
			}
			for _, name := range tt.stillCached {
				method := strings.SplitN(name, ":", 2)[0]
				n := baseRepo.callCount(method)
				reads[name]()
				if baseRepo.callCount(method) != n {
					t.Errorf("%s should still be served from cache", name)
				}
			}
		})
	}
}

func TestWriteErrors_SkipInvalidation(t *testing.T) {
	ctx := context.Background()
	baseRepo := seededRepository()
	baseRepo.writeError = errors.New("update failed")
	cached := New[TestUser](baseRepo, newQueryCache(t, nil))

	cached.List(ctx)
	if _, err := cached.Update(ctx, TestUser{ID: "1"}); err == nil || err.Error() != "update failed" {
		t.Fatalf("expected update error, got %v", err)
	}
	cached.List(ctx)

	if n := baseRepo.callCount("List"); n != 1 {
		t.Errorf("failed writes must not invalidate, List called %d times", n)
	}
}

func TestWriteInvalidation_LogsStoreFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c := newQueryCache(t, brokenStore{}, querycache.WithLogger(logger))

	baseRepo := seededRepository()
	cached := New[TestUser](baseRepo, c)

	if _, err := cached.Update(context.Background(), TestUser{ID: "1"}); err != nil {
		t.Fatalf("write must succeed when invalidation fails: %v", err)
	}
	if !strings.Contains(buf.String(), "repositorycache invalidation failed") {
		t.Errorf("expected a warning, got:\n%s", buf.String())
	}
}

func TestWriteInvalidation_UUIDSpelling(t *testing.T) {
	ctx := context.Background()
	const lower = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	upper := strings.ToUpper(lower)

	baseRepo := newMockRepository[TestUser]()
	baseRepo.byID[upper] = TestUser{ID: lower, Name: "alice"}
	cached := New[TestUser](baseRepo, newQueryCache(t, nil))

	cached.GetByID(ctx, upper)
	cached.GetByID(ctx, upper)
	if n := baseRepo.callCount("GetByID"); n != 1 {
		t.Fatalf("expected one base read before the write, got %d", n)
	}

	if _, err := cached.Update(ctx, TestUser{ID: lower, Name: "alice2"}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	cached.GetByID(ctx, upper)
	if n := baseRepo.callCount("GetByID"); n != 2 {
		t.Errorf("update by canonical id should drop the uppercase read, got %d base reads", n)
	}
}

func TestCanonicalID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"6BA7B810-9DAD-11D1-80B4-00C04FD430C8", "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"{6ba7b810-9dad-11d1-80b4-00c04fd430c8}", "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"42", "42"},
		{"user-A", "user-A"},
	}

	for _, tt := range tests {
		if got := canonicalID(tt.in); got != tt.want {
			t.Errorf("canonicalID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTransactionReadsBypassCache(t *testing.T) {
	ctx := context.Background()
	baseRepo := seededRepository()
	cached := New[TestUser](baseRepo, newQueryCache(t, nil))

	for i := 0; i < 2; i++ {
		if _, err := cached.GetByIDTx(ctx, nil, "1"); err != nil {
			t.Fatalf("GetByIDTx() failed: %v", err)
		}
	}
	if n := baseRepo.callCount("GetByIDTx"); n != 2 {
		t.Errorf("transaction reads must not be cached, got %d calls", n)
	}
}

func TestExtractID(t *testing.T) {
	type noID struct{ Name string }

	if id, err := extractID(TestUser{ID: "7"}); err != nil || id != "7" {
		t.Errorf("extractID(value) = (%q, %v)", id, err)
	}
	if id, err := extractID(&TestUser{ID: "8"}); err != nil || id != "8" {
		t.Errorf("extractID(pointer) = (%q, %v)", id, err)
	}
	if _, err := extractID(noID{}); err == nil {
		t.Error("expected error for record without ID")
	}
	if _, err := extractID((*TestUser)(nil)); err == nil {
		t.Error("expected error for nil record")
	}
	if _, err := extractID(TestUser{}); err == nil {
		t.Error("expected error for empty ID")
	}
}

// Test repository interface satisfaction
func TestRepositoryInterfaceSatisfaction(t *testing.T) {
	cached := New[TestUser](newMockRepository[TestUser](), newQueryCache(t, nil))

	var repo repository.Repository[TestUser] = cached
	if repo == nil {
		t.Error("CachedRepository does not satisfy Repository interface")
	}
}
