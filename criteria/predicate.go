package criteria

import (
	"fmt"
	"reflect"
	"strings"
)

// Predicate is one AND-combined filter condition. Param is empty when the
// operator binds nothing (IS NULL). For ArityRange the bound Value is a two
// element []any holding the lower and upper bound.
type Predicate struct {
	// Source is the bare table column the predicate reads, before any
	// qualification or JSON extraction.
	Source     string
	Column     string
	Operator   string
	Param      string
	Value      any
	Arity      Arity
	Cast       string
	IgnoreCase bool
}

// Expr returns the column expression including any cast.
func (p Predicate) Expr() string {
	if p.Cast != "" {
		return "CAST(" + p.Column + " AS " + p.Cast + ")"
	}
	return p.Column
}

// Synthesizer turns mapped fields into predicates.
type Synthesizer struct {
	resolver *Resolver
	mapper   *Mapper
}

// NewSynthesizer builds a Synthesizer. The mapper is consulted for tenant
// scoping properties; nil arguments fall back to the defaults.
func NewSynthesizer(resolver *Resolver, mapper *Mapper) *Synthesizer {
	if resolver == nil {
		resolver = NewDefaultResolver()
	}
	if mapper == nil {
		mapper = NewMapper()
	}
	return &Synthesizer{resolver: resolver, mapper: mapper}
}

// Predicates maps obj and synthesizes its predicates in one step.
func (s *Synthesizer) Predicates(obj any, tablePrefix string, skip ...string) []Predicate {
	return s.Synthesize(s.mapper.Map(obj, skip...), tablePrefix)
}

// Synthesize produces one predicate per entry, in entry order. Operator
// suffixes are resolved against the raw property name. A resolved entry
// routed into a JSON container compares container->>'key'; a resolved top
// level entry compares the column of its base name, so a plain column whose
// name happens to end in a keyword (checkIn, signedIn) is read as that
// operator. Boolean values are the exception: a top level bool only
// resolves against tokens that can compare it (=, <>, fixed or null
// checks), otherwise loggedIn: true stays the equality logged_in = true.
// Unresolved entries are classified by value shape: collections bind IN,
// strings bind a trailing wildcard LIKE, anything else binds equality.
// Tenant properties always bind a prefix LIKE.
func (s *Synthesizer) Synthesize(entries []Field, tablePrefix string) []Predicate {
	preds := make([]Predicate, 0, len(entries))
	for _, f := range entries {
		if p, ok := s.synthesize(f, tablePrefix); ok {
			p.Source = s.sourceColumn(f)
			preds = append(preds, p)
		}
	}
	return preds
}

func (s *Synthesizer) synthesize(f Field, tablePrefix string) (Predicate, bool) {
	param := paramName(f.Name)

	if f.Path == "" && s.mapper.IsTenantField(f.Name) {
		return Predicate{
			Column:   qualify(tablePrefix, f.Column),
			Operator: "LIKE",
			Param:    param,
			Value:    fmt.Sprint(deref(f.Value)) + "%",
		}, true
	}

	base, tok, resolved := s.resolve(f)

	if f.Path != "" {
		key := f.Path
		if resolved {
			key = strings.TrimPrefix(base, routingPrefix(f.Name))
			if !isIdentifier(key) {
				return Predicate{}, false
			}
		}
		expr := qualify(tablePrefix, f.Column) + "->>'" + key + "'"
		if resolved {
			return applyToken(expr, param, tok, f.Value, true)
		}
		return classify(expr, param, f.Value, true), true
	}

	if resolved {
		column := ToSnake(base)
		if !isIdentifier(column) {
			return Predicate{}, false
		}
		return applyToken(qualify(tablePrefix, column), param, tok, f.Value, false)
	}

	return classify(qualify(tablePrefix, f.Column), param, f.Value, false), true
}

func (s *Synthesizer) sourceColumn(f Field) string {
	if f.Path != "" || s.mapper.IsTenantField(f.Name) {
		return f.Column
	}
	if base, _, ok := s.resolve(f); ok {
		return ToSnake(base)
	}
	return f.Column
}

// resolve detects the operator suffix of f. A top level bool is not
// resolved against tokens that cannot take it.
func (s *Synthesizer) resolve(f Field) (string, Token, bool) {
	base, tok, ok := s.resolver.Resolve(f.Name)
	if !ok || f.Path != "" {
		return base, tok, ok
	}
	if _, isBool := deref(f.Value).(bool); isBool && !tok.acceptsBool() {
		return "", Token{}, false
	}
	return base, tok, ok
}

func applyToken(expr, param string, tok Token, value any, jsonPath bool) (Predicate, bool) {
	p := Predicate{Column: expr, Operator: tok.Operator, Param: param, Arity: tok.Arity}

	switch tok.Arity {
	case ArityNone:
		p.Param = ""
		return p, true

	case ArityList:
		p.Value = asCollection(value)
		return p, true

	case ArityRange:
		bounds := asCollection(value)
		if len(bounds) != 2 {
			return Predicate{}, false
		}
		p.Value = bounds
		if jsonPath {
			p.Cast = castFor(bounds[0])
		}
		return p, true
	}

	if tok.Fixed != nil {
		value = tok.Fixed
	}

	if tok.IsLike() {
		p.Value = tok.Wildcard.Apply(fmt.Sprint(deref(value)))
		p.IgnoreCase = true
		return p, true
	}

	p.Value = deref(value)
	if jsonPath {
		p.Cast = castFor(value)
	}
	return p, true
}

func classify(expr, param string, value any, jsonPath bool) Predicate {
	if isCollection(value) {
		return Predicate{Column: expr, Operator: "IN", Param: param, Value: value, Arity: ArityList}
	}

	if str, ok := deref(value).(string); ok {
		return Predicate{
			Column:     expr,
			Operator:   "LIKE",
			Param:      param,
			Value:      WildcardTrailing.Apply(str),
			IgnoreCase: true,
		}
	}

	p := Predicate{Column: expr, Operator: "=", Param: param, Value: deref(value)}
	if jsonPath {
		p.Cast = castFor(value)
	}
	return p
}

// castFor picks the SQL type a JSON text extraction is compared as.
func castFor(v any) string {
	switch reflect.ValueOf(deref(v)).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "NUMERIC"
	case reflect.Bool:
		return "BOOLEAN"
	default:
		return ""
	}
}

func routingPrefix(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i+1]
	}
	return ""
}

func qualify(prefix, column string) string {
	if prefix == "" {
		return column
	}
	return prefix + "." + column
}

func isCollection(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.Slice:
		return true
	case reflect.Array:
		// fixed byte arrays (uuid.UUID) are scalar identifiers
		return t.Elem().Kind() != reflect.Uint8
	default:
		return false
	}
}

// asCollection normalizes v to []any, wrapping scalars.
func asCollection(v any) []any {
	if !isCollection(v) {
		return []any{deref(v)}
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}
