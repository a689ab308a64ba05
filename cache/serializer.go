package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeySeparator delimits the identity and each parameter in serialized input.
const KeySeparator = "::"

// ParamSerializer renders an operation identity and its ordered parameters as
// deterministic text. The text is hasher input, never stored.
type ParamSerializer interface {
	Serialize(identity string, params []any) string
}

type reflectSerializer struct{}

// NewParamSerializer returns the reflection based serializer.
//
// Scalars render with their natural text, pointers and interfaces are
// followed, slices and arrays keep element order, maps are sorted by
// rendered key, UUIDs render as text and structs list exported fields.
// Functions and channels render by address, so they are only stable within
// one process.
func NewParamSerializer() ParamSerializer {
	return reflectSerializer{}
}

func (s reflectSerializer) Serialize(identity string, params []any) string {
	var b strings.Builder
	b.WriteString(identity)
	for _, p := range params {
		b.WriteString(KeySeparator)
		s.write(&b, p)
	}
	return b.String()
}

func (s reflectSerializer) render(v any) string {
	var b strings.Builder
	s.write(&b, v)
	return b.String()
}

func (s reflectSerializer) write(b *strings.Builder, v any) {
	if v == nil {
		b.WriteString("nil")
		return
	}

	switch tv := v.(type) {
	case time.Time:
		b.WriteString("time:")
		b.WriteString(tv.UTC().Format(time.RFC3339Nano))
		return
	case uuid.UUID:
		b.WriteString("uuid:")
		b.WriteString(tv.String())
		return
	case []byte:
		if tv == nil {
			b.WriteString("bytes:nil")
			return
		}
		b.WriteString("bytes:")
		b.WriteString(hex.EncodeToString(tv))
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		fmt.Fprintf(b, "func:%p", v)
	case reflect.Chan:
		fmt.Fprintf(b, "chan:%p", v)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			b.WriteString("nil")
			return
		}
		s.write(b, rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			b.WriteString("slice:nil")
			return
		}
		s.writeList(b, "slice", rv)
	case reflect.Array:
		s.writeList(b, "array", rv)
	case reflect.Map:
		if rv.IsNil() {
			b.WriteString("map:nil")
			return
		}
		s.writeMap(b, rv)
	case reflect.Struct:
		s.writeStruct(b, rv)
	case reflect.String:
		b.WriteString(rv.String())
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		fmt.Fprintf(b, "%v", v)
	default:
		s.writeJSON(b, v)
	}
}

func (s reflectSerializer) writeList(b *strings.Builder, kind string, rv reflect.Value) {
	n := rv.Len()
	fmt.Fprintf(b, "%s[%d]:{", kind, n)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		s.write(b, rv.Index(i).Interface())
	}
	b.WriteByte('}')
}

func (s reflectSerializer) writeMap(b *strings.Builder, rv reflect.Value) {
	type pair struct{ key, value string }

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{
			key:   s.render(iter.Key().Interface()),
			value: s.render(iter.Value().Interface()),
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key == pairs[j].key {
			return pairs[i].value < pairs[j].value
		}
		return pairs[i].key < pairs[j].key
	})

	fmt.Fprintf(b, "map[%d]:{", len(pairs))
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	b.WriteByte('}')
}

func (s reflectSerializer) writeStruct(b *strings.Builder, rv reflect.Value) {
	rt := rv.Type()
	b.WriteString("struct:{")
	first := true
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(field.Name)
		b.WriteByte(':')
		s.write(b, rv.Field(i).Interface())
	}
	b.WriteByte('}')
}

// writeJSON covers kinds without a dedicated rendering (unsafe pointers).
func (s reflectSerializer) writeJSON(b *strings.Builder, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(b, "fallback:%T", v)
		return
	}
	b.WriteString("json:")
	b.Write(data)
}
