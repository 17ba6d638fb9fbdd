// Package sanitize reduces arbitrary Go values to the JSON-shaped subset a
// template may see. Request bodies are already JSON, so for them this is a
// normalization pass; values built in code can carry functions, channels
// and cycles, and those never make it through.
package sanitize

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Sanitize walks v and returns its sanitized form. It never fails:
//   - nil and nil pointers become Null
//   - booleans, strings and finite numbers are kept as they are
//   - slices and arrays keep their length and order
//   - mapping entries whose value cannot be represented are omitted
//   - anything else becomes Unsupported
//
// Go maps have no order, so their keys are sorted. Ordered maps keep
// insertion order. A container that contains itself is Unsupported at the
// point where the cycle closes.
func Sanitize(v any) Value {
	w := walker{active: make(map[visitKey]struct{})}
	return w.walk(v)
}

// SanitizeMapping sanitizes v and returns it only if it is a mapping.
// Anything else yields an empty mapping and false.
func SanitizeMapping(v any) (Value, bool) {
	out := Sanitize(v)
	if out.Kind() != KindMapping {
		return EmptyMapping(), false
	}
	return out, true
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type walker struct {
	active map[visitKey]struct{}
}

func (w *walker) walk(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return w.revisit(t)
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case float64:
		return number(t)
	case float32:
		return number(float64(t))
	case int:
		return Number(float64(t))
	case int8:
		return Number(float64(t))
	case int16:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case uint8:
		return Number(float64(t))
	case uint16:
		return Number(float64(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Unsupported()
		}
		return number(f)
	case *orderedmap.OrderedMap[string, any]:
		if t == nil {
			return Null()
		}
		return w.ordered(t)
	case []any:
		if t == nil {
			return Sequence()
		}
	}
	return w.reflectWalk(reflect.ValueOf(v))
}

// number keeps NaN and the infinities out; JSON has no spelling for them.
func number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Unsupported()
	}
	return Number(f)
}

// revisit re-applies the mapping rule to an already sanitized tree.
func (w *walker) revisit(v Value) Value {
	switch v.kind {
	case KindSequence:
		out := make([]Value, len(v.seq))
		for i, e := range v.seq {
			out[i] = w.revisit(e)
		}
		return Sequence(out...)
	case KindMapping:
		out := orderedmap.New[string, Value]()
		for pair := v.m.Oldest(); pair != nil; pair = pair.Next() {
			if child := w.revisit(pair.Value); child.kind != KindUnsupported {
				out.Set(pair.Key, child)
			}
		}
		return Value{kind: KindMapping, m: out}
	case KindNumber:
		return number(v.n)
	}
	return v
}

func (w *walker) ordered(m *orderedmap.OrderedMap[string, any]) Value {
	key := visitKey{ptr: reflect.ValueOf(m).Pointer(), typ: reflect.TypeOf(m)}
	if !w.enter(key) {
		return Unsupported()
	}
	defer w.leave(key)

	out := orderedmap.New[string, Value](orderedmap.WithCapacity[string, Value](m.Len()))
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if child := w.walk(pair.Value); child.kind != KindUnsupported {
			out.Set(pair.Key, child)
		}
	}
	return Value{kind: KindMapping, m: out}
}

func (w *walker) reflectWalk(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		if rv.Kind() == reflect.Pointer {
			key := visitKey{ptr: rv.Pointer(), typ: rv.Type()}
			if !w.enter(key) {
				return Unsupported()
			}
			defer w.leave(key)
		}
		return w.walk(rv.Elem().Interface())

	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.String:
		return String(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return number(rv.Float())

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Len() > 0 {
			key := visitKey{ptr: rv.Pointer(), typ: rv.Type(), len: rv.Len()}
			if !w.enter(key) {
				return Unsupported()
			}
			defer w.leave(key)
		}
		out := make([]Value, rv.Len())
		for i := range out {
			out[i] = w.walk(rv.Index(i).Interface())
		}
		return Sequence(out...)

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Unsupported()
		}
		if rv.IsNil() {
			return EmptyMapping()
		}
		key := visitKey{ptr: rv.Pointer(), typ: rv.Type()}
		if !w.enter(key) {
			return Unsupported()
		}
		defer w.leave(key)

		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)

		out := orderedmap.New[string, Value](orderedmap.WithCapacity[string, Value](len(keys)))
		for _, k := range keys {
			elem := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
			if child := w.walk(elem.Interface()); child.kind != KindUnsupported {
				out.Set(k, child)
			}
		}
		return Value{kind: KindMapping, m: out}
	}

	// funcs, channels, unsafe pointers, complex numbers, structs
	return Unsupported()
}

func (w *walker) enter(key visitKey) bool {
	if _, seen := w.active[key]; seen {
		return false
	}
	w.active[key] = struct{}{}
	return true
}

func (w *walker) leave(key visitKey) {
	delete(w.active, key)
}
