package reflector

// Reflector describes one cacheable operation: where it runs, which tables
// and rows it depends on, and what identifies it for key derivation.
//
// Implementations are built per call and never mutated afterwards, so they
// are safe to share across goroutines.
type Reflector interface {
	// Database is the logical database name used in tags and keys.
	Database() string
	// Tables lists canonical base table names without duplicates.
	Tables() []string
	// Rows maps tables to the row identifiers the operation is scoped to.
	Rows() RowMap
	// Identity is the value independent shape of the operation.
	Identity() string
	// Parameters are the bound values, in order.
	Parameters() []any
}

// RowSet holds the row identifiers of one table. A RowSet without ids is a
// wildcard: any row of the table may be involved.
type RowSet struct {
	ids []any
}

// AllRows returns the wildcard marker.
func AllRows() RowSet {
	return RowSet{}
}

// RowIDs returns a RowSet listing ids. With no ids it is a wildcard.
func RowIDs(ids ...any) RowSet {
	return RowSet{ids: append([]any(nil), ids...)}
}

// Wildcard reports whether the set does not name concrete rows.
func (s RowSet) Wildcard() bool {
	return len(s.ids) == 0
}

// IDs returns a copy of the row identifiers.
func (s RowSet) IDs() []any {
	return append([]any(nil), s.ids...)
}

// RowMap maps table names to row sets. Tables missing from the map are
// absent and are always invalidated at table level.
type RowMap map[string]RowSet

// Clone returns an independent copy.
func (m RowMap) Clone() RowMap {
	if m == nil {
		return RowMap{}
	}
	out := make(RowMap, len(m))
	for table, set := range m {
		out[table] = RowIDs(set.ids...)
	}
	return out
}

func dedupe(tables []string) []string {
	seen := make(map[string]struct{}, len(tables))
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
