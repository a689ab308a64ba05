package querycache

import (
	"context"
	"regexp"
	"strings"

	"github.com/uptrace/bun"
)

var writeTableRe = regexp.MustCompile(`(?is)^\s*(?:INSERT\s+(?:OR\s+\w+\s+)?INTO|REPLACE\s+INTO|UPDATE(?:\s+OR\s+\w+)?|DELETE\s+FROM|TRUNCATE(?:\s+TABLE)?|MERGE\s+INTO)\s+([^\s(;]+)`)

// InvalidationHook is a bun.QueryHook that invalidates the written table
// after every successful write statement. Failures are logged, the write has
// already happened.
type InvalidationHook struct {
	cache    *Cache
	database string
}

var _ bun.QueryHook = (*InvalidationHook)(nil)

// NewInvalidationHook returns a hook invalidating entries of database. An
// empty database selects the configured one.
//
//	db.AddQueryHook(querycache.NewInvalidationHook(c, ""))
func NewInvalidationHook(c *Cache, database string) *InvalidationHook {
	return &InvalidationHook{cache: c, database: c.database(database)}
}

func (h *InvalidationHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *InvalidationHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil || !isWrite(operation(event)) {
		return
	}

	logger := h.cache.logger
	table := writtenTable(event)
	if table == "" {
		logger.Warn("querycache hook could not find the written table, invalidating database",
			"database", h.database, "operation", operation(event))
		if _, err := h.cache.InvalidateDatabase(ctx, h.database); err != nil {
			logger.Warn("querycache hook invalidation failed", "database", h.database, "error", err)
		}
		return
	}

	if _, err := h.cache.InvalidateTables(ctx, h.database, table); err != nil {
		logger.Warn("querycache hook invalidation failed",
			"database", h.database, "table", table, "error", err)
	}
}

// operation names the statement kind. bun reports every RawQuery as a
// SELECT, so raw statements are classified by their leading keyword.
func operation(event *bun.QueryEvent) string {
	if _, raw := event.IQuery.(*bun.RawQuery); raw {
		if fields := strings.Fields(event.Query); len(fields) > 0 {
			return strings.ToUpper(strings.TrimLeft(fields[0], "("))
		}
		return ""
	}
	return event.Operation()
}

func isWrite(operation string) bool {
	switch strings.ToUpper(operation) {
	case "INSERT", "UPDATE", "DELETE", "TRUNCATE", "MERGE", "REPLACE":
		return true
	}
	return false
}

func writtenTable(event *bun.QueryEvent) string {
	if event.IQuery != nil {
		if name := unquote(event.IQuery.GetTableName()); name != "" {
			return name
		}
	}
	if m := writeTableRe.FindStringSubmatch(event.Query); m != nil {
		return unquote(m[1])
	}
	return ""
}

// unquote strips identifier quotes and keeps the last dotted segment.
func unquote(name string) string {
	name = strings.NewReplacer(`"`, "", "`", "", "[", "", "]", "").Replace(strings.TrimSpace(name))
	if i := strings.LastIndexByte(name, '.'); i >= 0 && !strings.Contains(name, " ") {
		name = name[i+1:]
	}
	return name
}
