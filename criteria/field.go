package criteria

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Field is one (name, column, value) entry produced from a request object.
// Path is set for entries routed into a JSON container column: the entry
// "attrs.color" has Column "attrs" and Path "color".
type Field struct {
	Name   string
	Column string
	Path   string
	Value  any
}

// FieldLister is implemented by request types that declare their filterable
// fields explicitly instead of relying on reflection.
type FieldLister interface {
	CriteriaFields() []Field
}

// BaselineSkip lists properties that never produce predicates: the free
// form extension blob and the audit timestamps.
func BaselineSkip() []string {
	return []string{"extend", "createdTime", "updatedTime"}
}

// TenantFields lists the security scoping properties that are matched by
// hierarchical prefix instead of equality.
func TenantFields() []string {
	return []string{"tenantCode", "securityCode"}
}

type fieldPlan struct {
	index []int
	name  string
}

// Mapper turns request objects into ordered Field lists.
type Mapper struct {
	baseline map[string]struct{}
	tenant   map[string]struct{}
	plans    *xsync.MapOf[reflect.Type, []fieldPlan]
}

// MapperOption customizes a Mapper.
type MapperOption func(*Mapper)

// WithBaselineSkip replaces the default baseline exclusions.
func WithBaselineSkip(names ...string) MapperOption {
	return func(m *Mapper) {
		m.baseline = toSet(names)
	}
}

// WithTenantFields replaces the default tenant scoping properties.
func WithTenantFields(names ...string) MapperOption {
	return func(m *Mapper) {
		m.tenant = toSet(names)
	}
}

// NewMapper creates a Mapper with the default baseline exclusions.
func NewMapper(opts ...MapperOption) *Mapper {
	m := &Mapper{
		baseline: toSet(BaselineSkip()),
		tenant:   toSet(TenantFields()),
		plans:    xsync.NewMapOf[reflect.Type, []fieldPlan](),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsTenantField reports whether name is matched by tenant prefix.
func (m *Mapper) IsTenantField(name string) bool {
	_, ok := m.tenant[name]
	return ok
}

// Map returns the non empty filterable fields of obj. Baseline fields and
// the caller supplied skip names are excluded, tenant fields come first and
// the remaining fields keep their declaration order (sorted keys for maps).
// A nil or empty obj yields no fields.
func (m *Mapper) Map(obj any, skip ...string) []Field {
	if obj == nil {
		return nil
	}

	var raw []Field
	strictZero := false

	switch v := obj.(type) {
	case FieldLister:
		raw = v.CriteriaFields()
	case map[string]any:
		raw = mapEntries(v)
	default:
		rv := reflect.ValueOf(obj)
		for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
			if rv.IsNil() {
				return nil
			}
			rv = rv.Elem()
		}
		switch rv.Kind() {
		case reflect.Struct:
			raw = m.structEntries(rv)
			strictZero = true
		case reflect.Map:
			if rv.Type().Key().Kind() != reflect.String {
				return nil
			}
			entries := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				entries[iter.Key().String()] = iter.Value().Interface()
			}
			raw = mapEntries(entries)
		default:
			return nil
		}
	}

	skipSet := toSet(skip)
	var tenants, rest []Field

	for _, f := range raw {
		if f.Name == "" || m.excluded(f.Name, skipSet) {
			continue
		}
		for _, entry := range expand(f) {
			if isAbsent(entry.Value, strictZero) || !validEntry(entry) {
				continue
			}
			if entry.Path == "" && m.IsTenantField(entry.Name) {
				tenants = append(tenants, entry)
				continue
			}
			rest = append(rest, entry)
		}
	}

	return append(tenants, rest...)
}

func (m *Mapper) excluded(name string, skip map[string]struct{}) bool {
	if _, ok := m.baseline[name]; ok {
		return true
	}
	if _, ok := skip[name]; ok {
		return true
	}
	if container, _, routed := strings.Cut(name, "."); routed {
		_, ok := skip[container]
		return ok
	}
	return false
}

func (m *Mapper) structEntries(rv reflect.Value) []Field {
	plan, _ := m.plans.LoadOrCompute(rv.Type(), func() []fieldPlan {
		return buildPlan(rv.Type(), nil)
	})

	fields := make([]Field, 0, len(plan))
	for _, p := range plan {
		fv, ok := fieldByIndex(rv, p.index)
		if !ok {
			continue
		}
		fields = append(fields, Field{Name: p.name, Value: fv.Interface()})
	}
	return fields
}

// buildPlan walks exported fields in declaration order, flattening embedded
// structs. The json tag name wins over the Go name.
func buildPlan(t reflect.Type, prefix []int) []fieldPlan {
	var plan []fieldPlan
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		if sf.Tag.Get("criteria") == "-" {
			continue
		}

		if sf.Anonymous {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				plan = append(plan, buildPlan(ft, index)...)
				continue
			}
		}

		if !sf.IsExported() {
			continue
		}

		name := lowerCamel(sf.Name)
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		if override := sf.Tag.Get("criteria"); override != "" {
			name = override
		}

		plan = append(plan, fieldPlan{index: index, name: name})
	}
	return plan
}

func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

func mapEntries(m map[string]any) []Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Name: k, Value: m[k]})
	}
	return fields
}

// expand resolves the column of an entry and flattens map valued entries
// into JSON container entries.
func expand(f Field) []Field {
	if f.Path != "" {
		if f.Column == "" {
			f.Column = ToSnake(strings.SplitN(f.Name, ".", 2)[0])
		}
		return []Field{f}
	}

	if container, path, routed := strings.Cut(f.Name, "."); routed {
		return []Field{{Name: f.Name, Column: ToSnake(container), Path: path, Value: f.Value}}
	}

	if f.Column == "" {
		f.Column = ToSnake(f.Name)
	}

	nested, ok := f.Value.(map[string]any)
	if !ok {
		return []Field{f}
	}

	out := make([]Field, 0, len(nested))
	for _, entry := range mapEntries(nested) {
		out = append(out, Field{
			Name:   f.Name + "." + entry.Name,
			Column: f.Column,
			Path:   entry.Name,
			Value:  entry.Value,
		})
	}
	return out
}

func validEntry(f Field) bool {
	if !isIdentifier(f.Column) {
		return false
	}
	return f.Path == "" || isIdentifier(f.Path)
}

// isAbsent reports whether v carries no filter value. strictZero also treats
// zero scalars as absent, which is how non pointer struct fields signal
// "not set".
func isAbsent(v any, strictZero bool) bool {
	if v == nil {
		return true
	}
	if t, ok := v.(time.Time); ok {
		return t.IsZero()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isAbsent(rv.Elem().Interface(), false)
	case reflect.String:
		return rv.Len() == 0
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Array:
		return rv.Len() == 0 || rv.IsZero()
	case reflect.Chan, reflect.Func:
		return true
	case reflect.Struct:
		return rv.IsZero()
	default:
		return strictZero && rv.IsZero()
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
