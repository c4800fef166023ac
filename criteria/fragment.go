package criteria

import (
	"maps"
	"strconv"
	"strings"
)

// OrderTerm is one rendered ORDER BY entry.
type OrderTerm struct {
	Column          string
	Ascending       bool
	CaseInsensitive bool
}

func (o OrderTerm) String() string {
	expr := o.Column
	if o.CaseInsensitive {
		expr = "LOWER(" + expr + ")"
	}
	if o.Ascending {
		return expr + " ASC"
	}
	return expr + " DESC"
}

// Fragment accumulates the pieces of one query: projected columns, source
// clauses, predicates, grouping, ordering, pagination and the parameter
// bindings. Mutators chain; QuerySQL and CountSQL render from the same
// predicate state.
type Fragment struct {
	columns    []string
	from       []string
	predicates []Predicate
	groupBy    []string
	orderBy    []OrderTerm
	limit      int
	offset     int
	hasLimit   bool
	caseFold   bool
	params     map[string]any
}

// NewFragment returns an empty fragment.
func NewFragment() *Fragment {
	return &Fragment{params: make(map[string]any)}
}

// Columns sets the projection. No columns renders "*".
func (f *Fragment) Columns(columns ...string) *Fragment {
	f.columns = append(f.columns, columns...)
	return f
}

// From appends source clauses; several sources are comma joined.
func (f *Fragment) From(sources ...string) *Fragment {
	for _, s := range sources {
		if strings.TrimSpace(s) != "" {
			f.from = append(f.from, s)
		}
	}
	return f
}

// Where appends predicates. Each bound parameter receives a name unique
// within this fragment; a clash with an earlier name gets a numeric suffix.
func (f *Fragment) Where(preds ...Predicate) *Fragment {
	if f.params == nil {
		f.params = make(map[string]any)
	}
	for _, p := range preds {
		switch p.Arity {
		case ArityNone:
			p.Param = ""
		case ArityRange:
			p.Param = f.reserve(p.Param, "_from", "_to")
			bounds, _ := p.Value.([]any)
			if len(bounds) == 2 {
				f.params[p.Param+"_from"] = bounds[0]
				f.params[p.Param+"_to"] = bounds[1]
			}
		default:
			p.Param = f.reserve(p.Param, "")
			f.params[p.Param] = p.Value
		}
		f.predicates = append(f.predicates, p)
	}
	return f
}

// GroupBy appends grouping columns.
func (f *Fragment) GroupBy(columns ...string) *Fragment {
	f.groupBy = append(f.groupBy, columns...)
	return f
}

// OrderBy appends order terms.
func (f *Fragment) OrderBy(terms ...OrderTerm) *Fragment {
	f.orderBy = append(f.orderBy, terms...)
	return f
}

// Limit sets the row limit.
func (f *Fragment) Limit(n int) *Fragment {
	f.limit = n
	f.hasLimit = true
	return f
}

// Offset sets the row offset; it only renders together with a limit.
func (f *Fragment) Offset(n int) *Fragment {
	f.offset = n
	return f
}

// Pageable applies sort and pagination: LIMIT = size, OFFSET = page * size.
// The sort replaces any order terms set earlier.
func (f *Fragment) Pageable(p Pageable) *Fragment {
	return f.PageableWithPrefix(p, "")
}

// PageableWithPrefix is Pageable with table qualified sort columns.
func (f *Fragment) PageableWithPrefix(p Pageable, tablePrefix string) *Fragment {
	f.orderBy = p.OrderTerms(tablePrefix)
	if p.IsPaged() {
		f.Limit(p.Size).Offset(p.Offset())
	}
	return f
}

// CaseFold renders ignore case LIKE predicates as
// LOWER(col) LIKE LOWER(:param).
func (f *Fragment) CaseFold(on bool) *Fragment {
	f.caseFold = on
	return f
}

// Predicates returns the accumulated predicates with their final names.
func (f *Fragment) Predicates() []Predicate {
	return append([]Predicate(nil), f.predicates...)
}

// Params returns a copy of the parameter bindings.
func (f *Fragment) Params() map[string]any {
	return maps.Clone(f.params)
}

// QuerySQL renders the row query.
func (f *Fragment) QuerySQL() (string, error) {
	if len(f.from) == 0 {
		return "", &QueryError{Op: "QuerySQL", Message: "query is null"}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if len(f.columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(f.columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(strings.Join(f.from, ", "))
	f.writeWhere(&b)
	f.writeGroupBy(&b)

	if len(f.orderBy) > 0 {
		terms := make([]string, len(f.orderBy))
		for i, o := range f.orderBy {
			terms[i] = o.String()
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}

	if f.hasLimit {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(f.limit))
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(f.offset))
	}

	return b.String(), nil
}

// CountSQL renders the count variant. Columns, order and pagination never
// appear in it.
func (f *Fragment) CountSQL() (string, error) {
	if len(f.from) == 0 {
		return "", &QueryError{Op: "CountSQL", Message: "countSql is null"}
	}

	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM (SELECT 1 FROM ")
	b.WriteString(strings.Join(f.from, ", "))
	f.writeWhere(&b)
	f.writeGroupBy(&b)
	b.WriteString(") t")
	return b.String(), nil
}

// Build validates the fragment and freezes it into a Query whose renderers
// cannot fail.
func (f *Fragment) Build() (Query, error) {
	sql, err := f.QuerySQL()
	if err != nil {
		return Query{}, err
	}
	countSQL, err := f.CountSQL()
	if err != nil {
		return Query{}, err
	}
	return Query{sql: sql, countSQL: countSQL, params: f.Params()}, nil
}

func (f *Fragment) writeWhere(b *strings.Builder) {
	if len(f.predicates) == 0 {
		return
	}
	b.WriteString(" WHERE ")
	for i, p := range f.predicates {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(f.render(p))
	}
}

func (f *Fragment) writeGroupBy(b *strings.Builder) {
	if len(f.groupBy) == 0 {
		return
	}
	b.WriteString(" GROUP BY ")
	b.WriteString(strings.Join(f.groupBy, ", "))
}

func (f *Fragment) render(p Predicate) string {
	expr := p.Expr()
	switch p.Arity {
	case ArityNone:
		return expr + " " + p.Operator
	case ArityList:
		return expr + " " + p.Operator + " (:" + p.Param + ")"
	case ArityRange:
		return expr + " " + p.Operator + " :" + p.Param + "_from AND :" + p.Param + "_to"
	}
	if f.caseFold && p.IgnoreCase {
		return "LOWER(" + expr + ") " + p.Operator + " LOWER(:" + p.Param + ")"
	}
	return expr + " " + p.Operator + " :" + p.Param
}

// reserve returns a parameter name derived from base such that base+suffix
// is free for every suffix.
func (f *Fragment) reserve(base string, suffixes ...string) string {
	if base == "" {
		base = "p"
	}
	candidate := base
	for n := 2; f.taken(candidate, suffixes); n++ {
		candidate = base + "_" + strconv.Itoa(n)
	}
	return candidate
}

func (f *Fragment) taken(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if _, ok := f.params[name+s]; ok {
			return true
		}
	}
	return false
}

// Query is a validated, rendered fragment.
type Query struct {
	sql      string
	countSQL string
	params   map[string]any
}

// SQL is the row query.
func (q Query) SQL() string { return q.sql }

// CountSQL is the count variant.
func (q Query) CountSQL() string { return q.countSQL }

// Params returns a copy of the bindings.
func (q Query) Params() map[string]any { return maps.Clone(q.params) }
