package criteria

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/uptrace/bun"
)

var baseModelType = reflect.TypeOf(bun.BaseModel{})

// Entity is the table binding of a model type, resolved once per type.
type Entity struct {
	Type    reflect.Type
	Table   string
	Columns []string
	columns map[string]struct{}
}

// HasColumn reports whether column belongs to the table.
func (e *Entity) HasColumn(column string) bool {
	_, ok := e.columns[column]
	return ok
}

// Fragment starts a fragment selecting from the entity table.
func (e *Entity) Fragment() *Fragment {
	return NewFragment().From(e.Table)
}

// Entities resolves and caches table bindings through bun's schema.
type Entities struct {
	db    *bun.DB
	bound *xsync.MapOf[reflect.Type, *Entity]
}

// NewEntities creates a binding registry over db.
func NewEntities(db *bun.DB) *Entities {
	return &Entities{
		db:    db,
		bound: xsync.NewMapOf[reflect.Type, *Entity](),
	}
}

// Bind resolves the table binding of model, a struct or pointer to struct.
// The model must embed bun.BaseModel with a `table:` tag; its absence is a
// configuration error meant to surface at startup.
func (e *Entities) Bind(model any) (*Entity, error) {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &ConfigError{Field: "Entity", Message: fmt.Sprintf("%T is not a struct model", model)}
	}

	if ent, ok := e.bound.Load(t); ok {
		return ent, nil
	}

	name, ok := declaredTable(t)
	if !ok {
		return nil, &ConfigError{
			Field:   "Entity",
			Message: t.String() + " must embed bun.BaseModel with a table tag",
			Err:     ErrMissingTable,
		}
	}

	table := e.db.Table(t)
	ent := &Entity{
		Type:    t,
		Table:   name,
		columns: make(map[string]struct{}, len(table.Fields)),
	}
	for _, f := range table.Fields {
		ent.Columns = append(ent.Columns, f.Name)
		ent.columns[f.Name] = struct{}{}
	}

	actual, _ := e.bound.LoadOrStore(t, ent)
	return actual, nil
}

// MustBind binds every model and panics on the first configuration error.
// Intended for process startup.
func (e *Entities) MustBind(models ...any) {
	for _, m := range models {
		if _, err := e.Bind(m); err != nil {
			panic(err)
		}
	}
}

// EntityOf binds the model type T.
func EntityOf[T any](e *Entities) (*Entity, error) {
	return e.Bind((*T)(nil))
}

func declaredTable(t reflect.Type) (string, bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous || sf.Type != baseModelType {
			continue
		}
		for _, part := range strings.Split(sf.Tag.Get("bun"), ",") {
			if name, ok := strings.CutPrefix(strings.TrimSpace(part), "table:"); ok && name != "" {
				return name, true
			}
		}
	}
	return "", false
}
