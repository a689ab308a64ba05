package query

import (
	"strconv"
	"strings"
)

// WhereType identifies the shape of a predicate.
type WhereType int

const (
	WhereBasic WhereType = iota
	WhereIn
	WhereNotIn
	WhereNull
	WhereNotNull
	WhereRaw
)

func (t WhereType) String() string {
	switch t {
	case WhereBasic:
		return "basic"
	case WhereIn:
		return "in"
	case WhereNotIn:
		return "not_in"
	case WhereNull:
		return "null"
	case WhereNotNull:
		return "not_null"
	case WhereRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Boolean connectors used between predicates.
const (
	And = "AND"
	Or  = "OR"
)

// Where is a single predicate of a query.
type Where struct {
	Type     WhereType
	Boolean  string
	Column   string
	Operator string
	Value    any
	Values   []any
	SQL      string
}

// Join is a joined table with its ON condition.
type Join struct {
	Kind     string
	Table    string
	First    string
	Operator string
	Second   string
}

type order struct {
	column    string
	direction string
}

// Builder collects the pieces of a SELECT statement. The zero value is not
// usable; start from Table.
type Builder struct {
	from     string
	columns  []string
	distinct bool
	joins    []Join
	wheres   []Where
	orders   []order
	groups   []string
	limit    int
	offset   int
}

// Table starts a query reading from the given table token. The token may
// carry an alias, e.g. "users AS u".
func Table(from string) *Builder {
	return &Builder{from: from, limit: -1, offset: -1}
}

// Select sets the selected columns. Without it the query selects *.
func (b *Builder) Select(columns ...string) *Builder {
	b.columns = append([]string(nil), columns...)
	return b
}

// Distinct marks the query as SELECT DISTINCT.
func (b *Builder) Distinct() *Builder {
	b.distinct = true
	return b
}

// Join adds an INNER JOIN.
func (b *Builder) Join(table, first, operator, second string) *Builder {
	return b.join("INNER", table, first, operator, second)
}

// LeftJoin adds a LEFT JOIN.
func (b *Builder) LeftJoin(table, first, operator, second string) *Builder {
	return b.join("LEFT", table, first, operator, second)
}

func (b *Builder) join(kind, table, first, operator, second string) *Builder {
	b.joins = append(b.joins, Join{
		Kind:     kind,
		Table:    table,
		First:    first,
		Operator: operator,
		Second:   second,
	})
	return b
}

// Where adds an AND-joined comparison predicate.
func (b *Builder) Where(column, operator string, value any) *Builder {
	return b.addWhere(Where{Type: WhereBasic, Boolean: And, Column: column, Operator: operator, Value: value})
}

// OrWhere adds an OR-joined comparison predicate.
func (b *Builder) OrWhere(column, operator string, value any) *Builder {
	return b.addWhere(Where{Type: WhereBasic, Boolean: Or, Column: column, Operator: operator, Value: value})
}

// WhereIn adds an AND-joined set membership predicate.
func (b *Builder) WhereIn(column string, values ...any) *Builder {
	return b.addWhere(Where{Type: WhereIn, Boolean: And, Column: column, Values: append([]any(nil), values...)})
}

// OrWhereIn adds an OR-joined set membership predicate.
func (b *Builder) OrWhereIn(column string, values ...any) *Builder {
	return b.addWhere(Where{Type: WhereIn, Boolean: Or, Column: column, Values: append([]any(nil), values...)})
}

// WhereNotIn adds an AND-joined negated set membership predicate.
func (b *Builder) WhereNotIn(column string, values ...any) *Builder {
	return b.addWhere(Where{Type: WhereNotIn, Boolean: And, Column: column, Values: append([]any(nil), values...)})
}

// WhereNull adds an AND-joined IS NULL predicate.
func (b *Builder) WhereNull(column string) *Builder {
	return b.addWhere(Where{Type: WhereNull, Boolean: And, Column: column})
}

// WhereNotNull adds an AND-joined IS NOT NULL predicate.
func (b *Builder) WhereNotNull(column string) *Builder {
	return b.addWhere(Where{Type: WhereNotNull, Boolean: And, Column: column})
}

// WhereRaw adds an AND-joined raw SQL fragment. Use ? for each argument.
func (b *Builder) WhereRaw(sql string, args ...any) *Builder {
	return b.addWhere(Where{Type: WhereRaw, Boolean: And, SQL: sql, Values: append([]any(nil), args...)})
}

func (b *Builder) addWhere(w Where) *Builder {
	b.wheres = append(b.wheres, w)
	return b
}

// GroupBy adds GROUP BY columns.
func (b *Builder) GroupBy(columns ...string) *Builder {
	b.groups = append(b.groups, columns...)
	return b
}

// OrderBy adds an ORDER BY column. Direction is normalised to ASC or DESC.
func (b *Builder) OrderBy(column, direction string) *Builder {
	dir := "ASC"
	if strings.EqualFold(direction, "desc") {
		dir = "DESC"
	}
	b.orders = append(b.orders, order{column: column, direction: dir})
	return b
}

// Limit sets LIMIT. Negative values remove it.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Offset sets OFFSET. Negative values remove it.
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	return b
}

// From returns the primary source table token as given to Table.
func (b *Builder) From() string {
	return b.from
}

// Joins returns a copy of the joined tables.
func (b *Builder) Joins() []Join {
	return append([]Join(nil), b.joins...)
}

// Wheres returns a copy of the predicate list. Value slices are copied too.
func (b *Builder) Wheres() []Where {
	out := make([]Where, len(b.wheres))
	for i, w := range b.wheres {
		w.Values = append([]any(nil), w.Values...)
		out[i] = w
	}
	return out
}

// ToSQL renders the statement with ? placeholders. Bound values are
// returned separately by Bindings, so two queries that only differ in their
// literals render to the same text.
func (b *Builder) ToSQL() string {
	var sb strings.Builder

	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	if len(b.columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(b.columns, ", "))
	}

	sb.WriteString(" FROM ")
	sb.WriteString(b.from)

	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j.Kind)
		sb.WriteString(" JOIN ")
		sb.WriteString(j.Table)
		sb.WriteString(" ON ")
		sb.WriteString(j.First)
		sb.WriteString(" ")
		sb.WriteString(j.Operator)
		sb.WriteString(" ")
		sb.WriteString(j.Second)
	}

	for i, w := range b.wheres {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" ")
			sb.WriteString(w.Boolean)
			sb.WriteString(" ")
		}
		sb.WriteString(renderWhere(w))
	}

	if len(b.groups) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groups, ", "))
	}

	for i, o := range b.orders {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(o.column)
		sb.WriteString(" ")
		sb.WriteString(o.direction)
	}

	if b.limit >= 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(b.limit))
	}
	if b.offset >= 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(b.offset))
	}

	return sb.String()
}

func renderWhere(w Where) string {
	switch w.Type {
	case WhereBasic:
		return w.Column + " " + w.Operator + " ?"
	case WhereIn:
		if len(w.Values) == 0 {
			return "0 = 1"
		}
		return w.Column + " IN (" + placeholders(len(w.Values)) + ")"
	case WhereNotIn:
		if len(w.Values) == 0 {
			return "1 = 1"
		}
		return w.Column + " NOT IN (" + placeholders(len(w.Values)) + ")"
	case WhereNull:
		return w.Column + " IS NULL"
	case WhereNotNull:
		return w.Column + " IS NOT NULL"
	case WhereRaw:
		// keep an OR inside the fragment from binding looser than the AND chain
		return "(" + w.SQL + ")"
	default:
		return ""
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Bindings returns the bound values in the order their placeholders appear
// in ToSQL.
func (b *Builder) Bindings() []any {
	var out []any
	for _, w := range b.wheres {
		switch w.Type {
		case WhereBasic:
			out = append(out, w.Value)
		case WhereIn, WhereNotIn, WhereRaw:
			out = append(out, w.Values...)
		}
	}
	return out
}
