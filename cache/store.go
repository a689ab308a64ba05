package cache

import "context"

// Store keeps cached values together with the tags they depend on.
//
// Contract:
//   - A value must not become visible under its key before all of its tags
//     are registered, otherwise a concurrent invalidation could miss it.
//   - Invalidation is atomic for readers: a reader sees the state before or
//     after, never a partially dropped tag.
//   - Get decodes into dest, which must be a non-nil pointer. It reports
//     false on a miss.
type Store interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, tags []string, value any) error

	// Invalidate drops every key stored under any of tags and returns how
	// many keys were dropped.
	Invalidate(ctx context.Context, tags ...string) (int, error)
	// InvalidatePrefix drops every key stored under a tag starting with
	// prefix.
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
	// Flush drops everything.
	Flush(ctx context.Context) error
}
