package reflector

import (
	"reflect"
	"strings"

	"github.com/goliatone/go-query-cache/query"
)

// DefaultPrimaryKey is the column assumed to hold row identifiers when no
// per table override exists.
const DefaultPrimaryKey = "id"

// QueryOptions configures how a structured query is reflected.
type QueryOptions struct {
	Resolver TableResolver
	// PrimaryKey overrides DefaultPrimaryKey for every table.
	PrimaryKey string
	// PrimaryKeys overrides the primary key column per base table.
	PrimaryKeys map[string]string
}

func (o QueryOptions) primaryKey(table string) string {
	if pk, ok := o.PrimaryKeys[table]; ok && pk != "" {
		return pk
	}
	if o.PrimaryKey != "" {
		return o.PrimaryKey
	}
	return DefaultPrimaryKey
}

// QueryReflector reflects a query.Builder. All values are captured when the
// reflector is built; later changes to the builder are not observed.
type QueryReflector struct {
	database   string
	tables     []string
	rows       RowMap
	identity   string
	parameters []any
}

var _ Reflector = (*QueryReflector)(nil)

// NewQueryReflector captures q for database.
func NewQueryReflector(database string, q *query.Builder, opts QueryOptions) *QueryReflector {
	r := &QueryReflector{
		database:   database,
		identity:   q.ToSQL(),
		parameters: q.Bindings(),
	}
	r.tables = queryTables(q, opts.Resolver)
	r.rows = queryRows(q, opts)
	return r
}

func (r *QueryReflector) Database() string  { return r.database }
func (r *QueryReflector) Tables() []string  { return append([]string(nil), r.tables...) }
func (r *QueryReflector) Rows() RowMap      { return r.rows.Clone() }
func (r *QueryReflector) Identity() string  { return r.identity }
func (r *QueryReflector) Parameters() []any { return append([]any(nil), r.parameters...) }

func queryTables(q *query.Builder, resolver TableResolver) []string {
	tables := resolver.Resolve(q.From())
	for _, j := range q.Joins() {
		tables = append(tables, resolver.Resolve(j.Table)...)
	}
	return dedupe(tables)
}

// queryRows collects primary key literals that restrict the primary table.
// Predicates on other tables, on other columns, or of unknown shape are
// ignored, which leaves the table absent and forces table level tags.
func queryRows(q *query.Builder, opts QueryOptions) RowMap {
	rows := RowMap{}

	name, alias := SplitAlias(q.From())
	bases := opts.Resolver.Resolve(q.From())
	if len(bases) != 1 || bases[0] != name {
		// views fan out to several base tables; ids cannot be attributed
		return rows
	}

	wheres := q.Wheres()
	for _, w := range wheres {
		if w.Boolean == query.Or {
			return rows
		}
	}

	pk := opts.primaryKey(name)
	var ids []any
	for _, w := range wheres {
		if w.Column == "" {
			continue
		}

		table, column := splitTableAndColumn(w.Column)
		if table != "" && table != name && table != alias {
			continue
		}
		if column != pk {
			continue
		}

		switch w.Type {
		case query.WhereBasic:
			if w.Operator == "=" && isInteger(w.Value) {
				ids = append(ids, w.Value)
			}
		case query.WhereIn:
			if len(w.Values) > 0 {
				ids = append(ids, w.Values...)
			}
		}
	}

	if len(ids) > 0 {
		rows[name] = RowIDs(ids...)
	}
	return rows
}

// splitTableAndColumn splits "col", "table.col" and "db.table.col".
func splitTableAndColumn(identifier string) (table, column string) {
	if !strings.Contains(identifier, ".") {
		return "", identifier
	}

	parts := strings.Split(identifier, ".")
	if len(parts) == 3 {
		table = parts[1]
	} else {
		table = parts[0]
	}
	return table, parts[len(parts)-1]
}

func isInteger(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}
