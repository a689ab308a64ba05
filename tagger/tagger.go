// Package tagger derives invalidation tags from a reflector.
//
// Tags look like
//
//	tags:database:<db>:table:<table>
//	tags:database:<db>:table:<table>:row:<id>
//
// A cached value is stored under every tag derived for it; dropping any one
// of those tags drops the value.
package tagger

import (
	"fmt"

	"github.com/goliatone/go-query-cache/reflector"
)

// Tag segment prefixes.
const (
	PrefixDatabase = "tags:database:"
	PrefixTable    = ":table:"
	PrefixRow      = ":row:"
)

// DatabaseTag returns the tag prefix shared by everything in database.
func DatabaseTag(database string) string {
	return PrefixDatabase + database
}

// TableTag returns the table level tag.
func TableTag(database, table string) string {
	return DatabaseTag(database) + PrefixTable + table
}

// RowPrefix returns the prefix shared by every row tag of table.
func RowPrefix(database, table string) string {
	return TableTag(database, table) + PrefixRow
}

// RowTag returns the tag for a single row.
func RowTag(database, table string, id any) string {
	return RowPrefix(database, table) + fmt.Sprint(id)
}

// Tags derives the tags for r.
//
// With considerRows false, or when r names no rows at all, one table tag is
// produced per table. Otherwise tables absent from the row map and wildcard
// tables get their table tag, and tables with row ids get one tag per id
// plus the table tag when considerTables is set.
//
// The result is not de-duplicated; only membership is meaningful.
func Tags(r reflector.Reflector, considerTables, considerRows bool) []string {
	database := r.Database()
	tables := r.Tables()
	rows := r.Rows()

	tags := make([]string, 0, len(tables))

	if len(rows) == 0 || !considerRows {
		for _, table := range tables {
			tags = append(tags, TableTag(database, table))
		}
		return tags
	}

	for _, table := range tables {
		tableTag := TableTag(database, table)

		set, ok := rows[table]
		if !ok || set.Wildcard() {
			tags = append(tags, tableTag)
			continue
		}

		for _, id := range set.IDs() {
			tags = append(tags, RowTag(database, table, id))
		}
		if considerTables {
			tags = append(tags, tableTag)
		}
	}

	return tags
}
