package querycache

import (
	"context"
	"fmt"
	"reflect"

	"github.com/goliatone/go-query-cache/reflector"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Remember caches the result of fetch under the identity and tags described
// by call. An empty call.Database selects the configured database.
func Remember[T any](ctx context.Context, c *Cache, call reflector.Call, fetch func(context.Context) (T, error)) (T, error) {
	call.Database = c.database(call.Database)
	return remember(ctx, c, reflector.NewCallReflector(call), fetch)
}

// Execute calls target.method(args...) through the cache. The owner type of
// target becomes part of the identity, tables and rows are the caller's
// assertion of what the method reads.
//
// A method whose first parameter is a context.Context receives ctx ahead of
// args. The method must return T or (T, error).
func Execute[T any](ctx context.Context, c *Cache, database string, target any, method string, args []any, tables []string, rows reflector.RowMap) (T, error) {
	var zero T
	if target == nil {
		return zero, fmt.Errorf("%w: nil target", ErrInvalidTarget)
	}

	fn := reflect.ValueOf(target).MethodByName(method)
	if !fn.IsValid() {
		return zero, fmt.Errorf("%w: %T has no exported method %q", ErrInvalidTarget, target, method)
	}

	call := reflector.Call{
		Database: database,
		Owner:    ownerName(reflect.TypeOf(target)),
		Method:   method,
		Args:     args,
		Tables:   tables,
		Rows:     rows,
	}
	return Remember(ctx, c, call, func(ctx context.Context) (T, error) {
		return invoke[T](ctx, fn, args)
	})
}

// ExecuteStatic calls the function value fn through the cache under the
// identity owner\method. It follows the same calling rules as Execute.
func ExecuteStatic[T any](ctx context.Context, c *Cache, database, owner, method string, fn any, args []any, tables []string, rows reflector.RowMap) (T, error) {
	var zero T
	if fn == nil {
		return zero, fmt.Errorf("%w: nil function", ErrInvalidTarget)
	}

	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return zero, fmt.Errorf("%w: %T is not a function", ErrInvalidTarget, fn)
	}

	call := reflector.Call{
		Database: database,
		Owner:    owner,
		Method:   method,
		Args:     args,
		Tables:   tables,
		Rows:     rows,
	}
	return Remember(ctx, c, call, func(ctx context.Context) (T, error) {
		return invoke[T](ctx, fv, args)
	})
}

func invoke[T any](ctx context.Context, fn reflect.Value, args []any) (T, error) {
	var zero T
	ft := fn.Type()

	if err := checkResults[T](ft); err != nil {
		return zero, err
	}

	in, err := buildArgs(ctx, ft, args)
	if err != nil {
		return zero, err
	}

	out := fn.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return zero, out[1].Interface().(error)
	}

	var result T
	if out[0].Kind() == reflect.Interface && out[0].IsNil() {
		return result, nil
	}
	reflect.ValueOf(&result).Elem().Set(out[0])
	return result, nil
}

func checkResults[T any](ft reflect.Type) error {
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return fmt.Errorf("%w: second result of %s must be error", ErrInvalidTarget, ft)
		}
	default:
		return fmt.Errorf("%w: %s must return T or (T, error)", ErrInvalidTarget, ft)
	}

	want := reflect.TypeOf((*T)(nil)).Elem()
	if !ft.Out(0).AssignableTo(want) {
		return fmt.Errorf("%w: %s is not assignable to %s", ErrInvalidResultType, ft.Out(0), want)
	}
	return nil
}

func buildArgs(ctx context.Context, ft reflect.Type, args []any) ([]reflect.Value, error) {
	offset := 0
	in := make([]reflect.Value, 0, len(args)+1)
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		in = append(in, reflect.ValueOf(ctx))
		offset = 1
	}

	fixed := ft.NumIn() - offset
	if ft.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("%w: %s needs at least %d arguments, got %d", ErrInvalidTarget, ft, fixed, len(args))
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("%w: %s needs %d arguments, got %d", ErrInvalidTarget, ft, fixed, len(args))
	}

	for i, arg := range args {
		var pt reflect.Type
		if i < fixed {
			pt = ft.In(offset + i)
		} else {
			pt = ft.In(ft.NumIn() - 1).Elem()
		}

		if arg == nil {
			switch pt.Kind() {
			case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
				in = append(in, reflect.Zero(pt))
				continue
			}
			return nil, fmt.Errorf("%w: argument %d of %s cannot be nil", ErrInvalidTarget, i, ft)
		}

		av := reflect.ValueOf(arg)
		if !av.Type().AssignableTo(pt) {
			return nil, fmt.Errorf("%w: argument %d of %s: %s is not assignable to %s", ErrInvalidTarget, i, ft, av.Type(), pt)
		}
		in = append(in, av)
	}
	return in, nil
}

// ownerName returns the package qualified name of t, looking through
// pointers.
func ownerName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
