// Package query provides a small structured SELECT builder.
//
// The builder keeps the pieces of a statement (primary table, joins,
// predicates) as plain data instead of an opaque string, which lets the
// reflector package work out which tables and rows a read depends on:
//
//	q := query.Table("users AS u").
//		Join("posts", "posts.user_id", "=", "u.id").
//		WhereIn("u.id", 1, 2, 3)
//
//	q.ToSQL()    // SELECT * FROM users AS u INNER JOIN posts ON posts.user_id = u.id WHERE u.id IN (?, ?, ?)
//	q.Bindings() // [1 2 3]
//
// Rendered SQL uses ? placeholders, which bun expands for every dialect.
package query
