// Package convert holds the tagged value codecs used wherever a value has to
// cross a string boundary: canonical cache keys and typed query parameters.
package convert

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tag identifies a codec. Tags are static and registered at startup.
type Tag string

const (
	TagString   Tag = "str"
	TagInt      Tag = "int"
	TagFloat    Tag = "float"
	TagBool     Tag = "bool"
	TagTime     Tag = "time"
	TagDuration Tag = "dur"
	TagUUID     Tag = "uuid"
)

// TagSeparator splits a tagged literal "int:42" into tag and payload.
const TagSeparator = ":"

// Codec converts one Go type to and from its string form.
type Codec struct {
	Tag    Tag
	Type   reflect.Type
	Encode func(any) (string, error)
	Decode func(string) (any, error)
}

// For builds a Codec for T from typed functions.
func For[T any](tag Tag, encode func(T) string, decode func(string) (T, error)) Codec {
	return Codec{
		Tag:  tag,
		Type: reflect.TypeOf((*T)(nil)).Elem(),
		Encode: func(v any) (string, error) {
			t, ok := v.(T)
			if !ok {
				return "", fmt.Errorf("convert: %s codec cannot encode %T", tag, v)
			}
			return encode(t), nil
		},
		Decode: func(s string) (any, error) {
			return decode(s)
		},
	}
}

// Registry is an immutable set of codecs keyed by tag and by Go type.
type Registry struct {
	byTag  map[Tag]Codec
	byType map[reflect.Type]Codec
}

// NewRegistry registers codecs; duplicate tags or types are rejected.
func NewRegistry(codecs ...Codec) (*Registry, error) {
	r := &Registry{
		byTag:  make(map[Tag]Codec, len(codecs)),
		byType: make(map[reflect.Type]Codec, len(codecs)),
	}
	for _, c := range codecs {
		if c.Tag == "" || c.Type == nil || c.Encode == nil || c.Decode == nil {
			return nil, fmt.Errorf("convert: incomplete codec %q", c.Tag)
		}
		if _, dup := r.byTag[c.Tag]; dup {
			return nil, fmt.Errorf("convert: duplicate tag %q", c.Tag)
		}
		if _, dup := r.byType[c.Type]; dup {
			return nil, fmt.Errorf("convert: duplicate type %s", c.Type)
		}
		r.byTag[c.Tag] = c
		r.byType[c.Type] = c
	}
	return r, nil
}

// DefaultCodecs covers the scalar types that show up in filter values.
func DefaultCodecs() []Codec {
	return []Codec{
		For(TagString, func(s string) string { return s }, func(s string) (string, error) { return s, nil }),
		For(TagInt, func(i int64) string { return strconv.FormatInt(i, 10) }, func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		}),
		For(TagFloat, func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }, func(s string) (float64, error) {
			return strconv.ParseFloat(s, 64)
		}),
		For(TagBool, strconv.FormatBool, strconv.ParseBool),
		For(TagTime, func(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }, func(s string) (time.Time, error) {
			return time.Parse(time.RFC3339Nano, s)
		}),
		For(TagDuration, time.Duration.String, time.ParseDuration),
		For(TagUUID, uuid.UUID.String, uuid.Parse),
	}
}

// NewDefaultRegistry returns a registry over DefaultCodecs.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultCodecs()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Encode returns the tag and string form of v. Integer and float kinds of any
// width are widened first so 42, int32(42) and int64(42) encode alike.
// ok is false when no codec covers the type.
func (r *Registry) Encode(v any) (Tag, string, bool, error) {
	if v == nil {
		return "", "", false, nil
	}
	v = widen(v)
	c, found := r.byType[reflect.TypeOf(v)]
	if !found {
		return "", "", false, nil
	}
	s, err := c.Encode(v)
	if err != nil {
		return "", "", true, err
	}
	return c.Tag, s, true, nil
}

// Decode parses s with the codec registered for tag.
func (r *Registry) Decode(tag Tag, s string) (any, error) {
	c, ok := r.byTag[tag]
	if !ok {
		return nil, fmt.Errorf("convert: unknown tag %q", tag)
	}
	return c.Decode(s)
}

// ParseTagged decodes literals of the form "tag:payload" when tag is
// registered. Anything else is returned unchanged as a string.
func (r *Registry) ParseTagged(s string) (any, error) {
	tag, payload, ok := strings.Cut(s, TagSeparator)
	if !ok {
		return s, nil
	}
	if _, known := r.byTag[Tag(tag)]; !known {
		return s, nil
	}
	return r.Decode(Tag(tag), payload)
}

func widen(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Type() == reflect.TypeOf(time.Duration(0)) {
			return v
		}
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}
