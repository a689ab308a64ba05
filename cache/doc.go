// Package cache defines the storage and key building contracts used by the
// query cache.
//
// # Overview
//
// The package exports three interfaces and their default implementations:
//
//   - Store: keeps values together with the tags they depend on
//   - Hasher: turns an operation identity and its parameters into a key
//   - ParamSerializer: renders parameters as deterministic hasher input
//
// # Basic Usage
//
//	store, err := cache.NewStore(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	key := cache.NewHasher(nil).Hash("SELECT * FROM users WHERE id = ?", []any{5})
//	err = store.Set(ctx, key, []string{"tags:database:main:table:users:row:5"}, user)
//
// # Parameter Serialization
//
// The default serializer uses reflection:
//
//   - Function pointers and channels: %p formatting, stable within a process
//   - Basic types: direct string representation
//   - Slices/arrays: recursive serialization of elements
//   - Maps: sorted key-value pairs for deterministic output
//   - Structs: exported fields with name:value pairs
//   - time.Time: RFC3339 in UTC, so equal instants hash equally
//
// Keys built from closures are only stable within one process. That is fine
// for the in-memory store but a custom ParamSerializer is needed if keys ever
// outlive the process.
//
// # Store Semantics
//
// Values are encoded when stored, so a caller mutating a value after Set does
// not change what later readers get. Invalidate and InvalidatePrefix report
// how many keys they dropped.
package cache
