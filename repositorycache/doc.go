// Package repositorycache provides cached repository decorators for go-repository-bun.
//
// # Overview
//
// CachedRepository wraps a base repository.Repository[T] and routes its read
// operations through a querycache.Cache. Every cached read is tagged with
// the repository table, and GetByID results are tagged with the row they
// return. Writes invalidate by the same tags, so a single Update drops the
// record it touched plus every list or count over the table while leaving
// other cached records alone.
//
// # Basic Usage
//
//	qc, err := querycache.New(querycache.DefaultConfig(), nil)
//	if err != nil {
//		return err
//	}
//
//	cached := repositorycache.New(base, qc, repositorycache.WithTable("users"))
//
//	user, err := cached.GetByID(ctx, "user-123")
//	users, total, err := cached.List(ctx, criteria...)
//
// # Cached vs Pass-through Operations
//
// Cached: Get, GetByID, GetByIdentifier, List and Count.
//
// Invalidating: Create, Update, Upsert, GetOrCreate, Delete, ForceDelete and
// their Many and Tx variants drop the row tags of the records they return
// and the table tag. DeleteMany and DeleteWhere cannot name their rows and
// drop the whole table.
//
// Pass-through: transaction reads (*Tx read methods), Raw and Handlers.
//
// # Errors
//
// Errors from the base repository are returned unchanged and never cached.
// A failed invalidation is logged through the cache logger and does not
// fail the write.
package repositorycache
