package reflector

import "reflect"

// maxSnapshotDepth bounds recursion through nested containers, which can be
// self referencing when built from []any or map[string]any.
const maxSnapshotDepth = 8

// Snapshot returns a copy of args as observed now. Pointers to structs are
// replaced by pointers to shallow copies, and slices and maps get new
// backing storage with snapshotted elements. Other values are kept as is.
func Snapshot(args []any) []any {
	if args == nil {
		return nil
	}
	out := make([]any, len(args))
	for i, arg := range args {
		out[i] = snapshotValue(arg, 0)
	}
	return out
}

func snapshotValue(v any, depth int) any {
	if v == nil || depth >= maxSnapshotDepth {
		return v
	}
	copied := snapshotReflect(reflect.ValueOf(v), depth)
	if !copied.IsValid() || !copied.CanInterface() {
		return v
	}
	return copied.Interface()
}

func snapshotReflect(rv reflect.Value, depth int) reflect.Value {
	if depth >= maxSnapshotDepth {
		return rv
	}

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return rv
		}
		clone := reflect.New(rv.Elem().Type())
		clone.Elem().Set(rv.Elem())
		return clone

	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		clone := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			clone.Index(i).Set(snapshotElem(rv.Index(i), depth+1))
		}
		return clone

	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		clone := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), snapshotElem(iter.Value(), depth+1))
		}
		return clone

	default:
		return rv
	}
}

// snapshotElem snapshots a container element, unwrapping interface values
// so that []any and map[string]any elements are copied as well.
func snapshotElem(elem reflect.Value, depth int) reflect.Value {
	if elem.Kind() == reflect.Interface {
		if elem.IsNil() {
			return elem
		}
		inner := snapshotReflect(elem.Elem(), depth)
		if !inner.Type().AssignableTo(elem.Type()) {
			return elem
		}
		return inner
	}
	return snapshotReflect(elem, depth)
}
