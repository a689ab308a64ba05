// Package reflector turns cacheable operations into data the cache can key
// and tag.
//
// A Reflector exposes the database, the canonical tables and the row
// identifiers an operation depends on, together with an identity string and
// the ordered bound parameters. Two variants exist:
//
//   - QueryReflector inspects a query.Builder: the primary table and joins
//     give the tables, primary key predicates give the rows, and the rendered
//     SQL with its bindings give identity and parameters.
//   - CallReflector wraps an arbitrary method call. Tables and rows are
//     asserted by the caller and the identity is "<owner>\<method>", with an
//     optional ":<discriminator>" suffix.
//
// Table tokens go through the TableResolver, which strips "name AS alias"
// and expands configured views to their base tables. Nothing in this package
// fails: unknown predicate shapes, unmatched aliases and unmapped tables all
// fall back to coarser, table level dependencies.
package reflector
