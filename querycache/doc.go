// Package querycache caches database reads and arbitrary method calls under
// invalidation tags derived from the tables and rows they touch.
//
// # Overview
//
// A Cache combines a Policy, a cache.Hasher and a cache.Store. Every cacheable
// operation is reflected into an identity, its parameters, its tables and its
// row ids. The policy decides whether to cache it at all; if so the key is
// hashed from identity and parameters, a hit is served from the store, and a
// miss runs the operation once and stores the result under its tags.
//
// # Structured Queries
//
//	c, err := querycache.New(querycache.DefaultConfig(), nil)
//	q := query.Table("users").Where("id", "=", 5)
//	users, err := querycache.Select[User](ctx, c, db, q)
//
// The read above is tagged tags:database:default:table:users:row:5, so only
// writes to user 5, or writes to users that name no ids, drop it.
//
// # Method Calls
//
// Calls that have no statement text name their dependencies explicitly:
//
//	name, err := querycache.Execute[string](ctx, c, "", svc, "FindName",
//		[]any{int64(5)}, []string{"users"},
//		reflector.RowMap{"users": reflector.RowIDs(int64(5))})
//
// Remember does the same with a closure, and Function exposes Has, Get and
// Set for callers that manage entries by hand.
//
// # Invalidation
//
// Writes are handled by Invalidate, InvalidateQuery and InvalidateTables, or
// automatically by registering an InvalidationHook on the bun.DB. Write tags
// always include the table tag, and tables written without concrete ids drop
// all of their row scoped entries.
//
// # Consistency
//
// There is no single-flight: concurrent misses for one key both run the
// operation and the last write wins. Values are encoded on store, so only
// exported fields survive a round trip.
package querycache
