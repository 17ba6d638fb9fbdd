package velocity

import (
	"math"
	"sort"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Getter is a read-only namespace. Templates can read names from it and
// call the functions it holds, but can never assign into or replace it.
type Getter interface {
	Get(name string) (any, bool)
	Keys() []string
}

// Callable is a function reachable from a template.
type Callable interface {
	Call(args []any) (any, error)
}

// List is the mutable list type templates work with.
type List struct {
	items []any
}

// NewList creates a list holding items.
func NewList(items ...any) *List {
	return &List{items: items}
}

// Values returns the list elements. The slice is shared with the list.
func (l *List) Values() []any { return l.items }

// Len returns the number of elements.
func (l *List) Len() int { return len(l.items) }

// Append adds v to the end of the list.
func (l *List) Append(v any) { l.items = append(l.items, v) }

// Map is the insertion-ordered map type templates work with.
type Map struct {
	m *orderedmap.OrderedMap[string, any]
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{m: orderedmap.New[string, any]()}
}

// Lookup returns the value stored under key.
func (m *Map) Lookup(key string) (any, bool) { return m.m.Get(key) }

// Set stores v under key and returns the previous value.
func (m *Map) Set(key string, v any) any {
	old, _ := m.m.Set(key, v)
	return old
}

// Delete removes key and returns the value it held.
func (m *Map) Delete(key string) any {
	old, _ := m.m.Delete(key)
	return old
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.m.Len())
	for pair := m.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of entries.
func (m *Map) Len() int { return m.m.Len() }

// FromNative converts plain Go data into template values. Slices become
// lists, string-keyed maps become maps (Go maps in sorted key order) and
// integers become float64. Other values pass through unchanged.
func FromNative(v any) any {
	switch t := v.(type) {
	case []any:
		items := make([]any, len(t))
		for i, e := range t {
			items[i] = FromNative(e)
		}
		return NewList(items...)
	case *orderedmap.OrderedMap[string, any]:
		out := NewMap()
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, FromNative(pair.Value))
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := NewMap()
		for _, k := range keys {
			out.Set(k, FromNative(t[k]))
		}
		return out
	case []string:
		items := make([]any, len(t))
		for i, e := range t {
			items[i] = e
		}
		return NewList(items...)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	}
	return v
}

// truthy follows the usual dynamic-language rules: nil, false, zero, NaN
// and the empty string are false; everything else, empty containers
// included, is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	}
	return true
}

// toNumber coerces v for arithmetic. Strings must hold a complete number;
// blank strings and nil are zero.
func toNumber(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil && isPlainNumber(s) {
			return n
		}
	}
	return math.NaN()
}

func isPlainNumber(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return false
		}
	}
	return true
}

// FormatNumber prints f the way JavaScript's String(number) does:
// integers without a fraction, exponent form outside [1e-6, 1e21).
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[0]
		digits := strings.TrimLeft(exp[1:], "0")
		return mant + "e" + string(sign) + digits
	}
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// toString renders v as template output. Lists print as [a, b] and maps as
// {k=v}; nil prints as "null" inside containers.
func toString(v any) string {
	b := &limitedBuilder{}
	writeValue(b, v)
	return b.String()
}

// limitedBuilder stops accepting text once max bytes are written. A zero
// max is unbounded.
type limitedBuilder struct {
	strings.Builder
	max    int64
	over   bool
	active map[any]struct{}
}

func (b *limitedBuilder) write(s string) {
	if b.over {
		return
	}
	if b.max > 0 && int64(b.Len()+len(s)) > b.max {
		b.over = true
		return
	}
	b.WriteString(s)
}

// enter marks a container as being written and reports false when it is
// already on the stack.
func (b *limitedBuilder) enter(c any) bool {
	if b.active == nil {
		b.active = make(map[any]struct{})
	}
	if _, ok := b.active[c]; ok {
		return false
	}
	b.active[c] = struct{}{}
	return true
}

func (b *limitedBuilder) leave(c any) { delete(b.active, c) }

func writeValue(b *limitedBuilder, v any) {
	if b.over {
		return
	}
	switch t := v.(type) {
	case nil:
		b.write("null")
	case string:
		b.write(t)
	case float64:
		b.write(FormatNumber(t))
	case bool:
		b.write(strconv.FormatBool(t))
	case *List:
		if !b.enter(t) {
			b.write("(this Collection)")
			return
		}
		b.write("[")
		for i, e := range t.items {
			if i > 0 {
				b.write(", ")
			}
			writeValue(b, e)
		}
		b.write("]")
		b.leave(t)
	case *Map:
		if !b.enter(t) {
			b.write("(this Map)")
			return
		}
		b.write("{")
		first := true
		for pair := t.m.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				b.write(", ")
			}
			first = false
			b.write(pair.Key)
			b.write("=")
			writeValue(b, pair.Value)
		}
		b.write("}")
		b.leave(t)
	case Getter:
		b.write("{" + strings.Join(t.Keys(), ", ") + "}")
	case interface{ String() string }:
		b.write(t.String())
	default:
		b.write("[object]")
	}
}

// looseEqual compares like == in the template language: numbers by value,
// numeric strings against numbers, containers by identity.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case string, bool:
			return x == toNumber(y)
		}
	case string:
		switch y := b.(type) {
		case string:
			return x == y
		case float64:
			return toNumber(x) == y
		case bool:
			return toNumber(x) == toNumber(y)
		}
	case bool:
		switch y := b.(type) {
		case bool:
			return x == y
		case float64, string:
			return toNumber(x) == toNumber(y)
		}
	case *List:
		y, ok := b.(*List)
		return ok && x == y
	case *Map:
		y, ok := b.(*Map)
		return ok && x == y
	}
	return false
}

// compare orders two values. Two strings compare lexically; anything else
// numerically. ok is false when the values are unordered (NaN involved).
func compare(a, b any) (int, bool) {
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	}
	x, y := toNumber(a), toNumber(b)
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return 0, false
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

// isReadOnly reports whether v is a namespace that templates may not
// replace or modify.
func isReadOnly(v any) bool {
	switch v.(type) {
	case *List, *Map, *loopState:
		return false
	case Getter:
		return true
	}
	return false
}
