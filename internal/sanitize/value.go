package sanitize

import (
	"bytes"
	"encoding/json"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
	// KindUnsupported marks an input that could not be represented. It only
	// ever appears as a sequence element; mapping entries holding it are
	// dropped.
	KindUnsupported
)

var kindNames = map[Kind]string{
	KindNull:        "null",
	KindBool:        "bool",
	KindNumber:      "number",
	KindString:      "string",
	KindSequence:    "sequence",
	KindMapping:     "mapping",
	KindUnsupported: "unsupported",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Mapping is an insertion-ordered string-keyed map of sanitized values.
type Mapping = orderedmap.OrderedMap[string, Value]

// Value is a sanitized context node. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	seq  []Value
	m    *Mapping
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Sequence(vs ...Value) Value { return Value{kind: KindSequence, seq: vs} }
func Unsupported() Value { return Value{kind: KindUnsupported} }

// EmptyMapping returns a mapping value with no entries.
func EmptyMapping() Value {
	return Value{kind: KindMapping, m: orderedmap.New[string, Value]()}
}

// MappingOf wraps m. Unsupported entries are removed so the mapping
// invariant holds no matter how m was built.
func MappingOf(m *Mapping) Value {
	out := orderedmap.New[string, Value]()
	if m != nil {
		for pair := m.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Value.kind == KindUnsupported {
				continue
			}
			out.Set(pair.Key, pair.Value)
		}
	}
	return Value{kind: KindMapping, m: out}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) BoolValue() bool { return v.b }
func (v Value) NumberValue() float64 { return v.n }
func (v Value) StringValue() string { return v.s }

// Elems returns the elements of a sequence, or nil for any other kind.
func (v Value) Elems() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return v.seq
}

// Len returns the number of elements or entries, zero for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return v.m.Len()
	}
	return 0
}

// Keys returns mapping keys in insertion order.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, v.m.Len())
	for pair := v.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Get looks up a mapping entry.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	return v.m.Get(key)
}

// Native converts v back into plain Go values: nil, bool, float64, string,
// []any and *orderedmap.OrderedMap[string, any]. Unsupported becomes nil.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Native()
		}
		return out
	case KindMapping:
		out := orderedmap.New[string, any](orderedmap.WithCapacity[string, any](v.m.Len()))
		for pair := v.m.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, pair.Value.Native())
		}
		return out
	}
	return nil
}

// MarshalJSON encodes v with mapping keys in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		b, err := json.Marshal(v.n)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindSequence:
		buf.WriteByte('[')
		for i, e := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMapping:
		buf.WriteByte('{')
		first := true
		for pair := v.m.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			k, err := json.Marshal(pair.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := pair.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
	return nil
}
