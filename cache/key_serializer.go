package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/goliatone/go-criteria-cache/pkg/convert"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// defaultKeySerializer implements KeySerializer using reflection. Scalars go
// through the tagged codec registry so "5" and 5 never share a key while
// int32(5) and int64(5) do.
type defaultKeySerializer struct {
	codecs *convert.Registry
}

// NewDefaultKeySerializer creates a serializer over the default codecs.
func NewDefaultKeySerializer() KeySerializer {
	return NewKeySerializer(convert.NewDefaultRegistry())
}

// NewKeySerializer creates a serializer over codecs.
func NewKeySerializer(codecs *convert.Registry) KeySerializer {
	return &defaultKeySerializer{codecs: codecs}
}

// SerializeKey builds a cache key from method name and args. The result is
// a pure function of its inputs.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, method)
	for _, arg := range args {
		parts = append(parts, s.serializeValue(arg))
	}

	return strings.Join(parts, KeySeparator)
}

// QueryKey digests the canonical form of args into a compact key of the form
// namespace::kind::digest. Namespace and kind stay readable so entries can be
// dropped by prefix.
func QueryKey(s KeySerializer, namespace, kind string, args ...any) (key, canonical string) {
	canonical = s.SerializeKey(kind, args...)
	digest := strconv.FormatUint(xxhash.Sum64String(canonical), 16)
	return namespace + KeySeparator + kind + KeySeparator + digest, canonical
}

func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	if tag, payload, ok, err := s.codecs.Encode(v); ok && err == nil {
		return string(tag) + convert.TagSeparator + payload
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Func:
		return fmt.Sprintf("func:%p", v)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return fmt.Sprintf("slice[%d]:{%s}", rv.Len(), s.serializeElems(rv))
	case reflect.Array:
		return fmt.Sprintf("array[%d]:{%s}", rv.Len(), s.serializeElems(rv))
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return s.serializeMap(rv)
	case reflect.Struct:
		if st, ok := v.(fmt.Stringer); ok {
			return "stringer:" + st.String()
		}
		return s.serializeStruct(rv, rt)
	case reflect.Uint64, reflect.Uintptr, reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("%s:%v", rt.Kind(), v)
	}

	return s.jsonFallback(v)
}

func (s *defaultKeySerializer) serializeElems(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = s.serializeValue(rv.Index(i).Interface())
	}
	return strings.Join(parts, ",")
}

// serializeMap orders entries by their serialized key.
func (s *defaultKeySerializer) serializeMap(rv reflect.Value) string {
	type pair struct{ k, v string }

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{
			k: s.serializeValue(iter.Key().Interface()),
			v: s.serializeValue(iter.Value().Interface()),
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.k + "=" + p.v
	}
	return fmt.Sprintf("map[%d]:{%s}", len(out), strings.Join(out, ","))
}

func (s *defaultKeySerializer) serializeStruct(rv reflect.Value, rt reflect.Type) string {
	parts := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+":"+s.serializeValue(rv.Field(i).Interface()))
	}
	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}

func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "fallback:" + reflect.TypeOf(v).String()
	}
	return "json:" + string(data)
}
