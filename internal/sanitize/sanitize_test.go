package sanitize

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func TestSanitizeScalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind Kind
		want any
	}{
		{"nil", nil, KindNull, nil},
		{"bool", true, KindBool, true},
		{"string", "hi", KindString, "hi"},
		{"float", 1.5, KindNumber, 1.5},
		{"int", 42, KindNumber, float64(42)},
		{"uint8", uint8(7), KindNumber, float64(7)},
		{"json number", json.Number("3.25"), KindNumber, 3.25},
		{"nil pointer", (*int)(nil), KindNull, nil},
		{"NaN", math.NaN(), KindUnsupported, nil},
		{"infinity", math.Inf(1), KindUnsupported, nil},
		{"func", func() {}, KindUnsupported, nil},
		{"channel", make(chan int), KindUnsupported, nil},
		{"complex", complex(1, 2), KindUnsupported, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.in)
			assert.Equal(t, tt.kind, got.Kind())
			assert.Equal(t, tt.want, got.Native())
		})
	}
}

func TestSanitizeDropsExecutableMappingValues(t *testing.T) {
	in := orderedmap.New[string, any]()
	in.Set("z", 1)
	in.Set("fn", func() string { return "boom" })
	in.Set("a", "kept")
	in.Set("ch", make(chan struct{}))
	in.Set("n", nil)

	got := Sanitize(in)
	require.Equal(t, KindMapping, got.Kind())
	assert.Equal(t, []string{"z", "a", "n"}, got.Keys())

	n, ok := got.Get("n")
	require.True(t, ok, "null values are kept, not dropped")
	assert.True(t, n.IsNull())
}

func TestSanitizeSequenceKeepsShape(t *testing.T) {
	got := Sanitize([]any{1, func() {}, "x", nil, []any{true}})

	require.Equal(t, KindSequence, got.Kind())
	require.Equal(t, 5, got.Len())

	elems := got.Elems()
	assert.Equal(t, KindNumber, elems[0].Kind())
	assert.Equal(t, KindUnsupported, elems[1].Kind())
	assert.Equal(t, KindString, elems[2].Kind())
	assert.Equal(t, KindNull, elems[3].Kind())
	assert.Equal(t, KindSequence, elems[4].Kind())

	// the marker never reaches output
	assert.Equal(t, []any{float64(1), nil, "x", nil, []any{true}}, got.Native())
}

func TestSanitizeDeepNesting(t *testing.T) {
	var in any = map[string]any{"leaf": func() {}, "v": 1}
	for i := 0; i < 500; i++ {
		in = map[string]any{"next": []any{in}}
	}

	got := Sanitize(in)

	depth := 0
	for {
		next, ok := got.Get("next")
		if !ok {
			break
		}
		require.Equal(t, KindSequence, next.Kind())
		got = next.Elems()[0]
		depth++
	}
	assert.Equal(t, 500, depth)
	assert.Equal(t, []string{"v"}, got.Keys())
}

func TestSanitizeGoMapsAreSorted(t *testing.T) {
	got := Sanitize(map[string]any{"b": 2, "c": 3, "a": 1})
	assert.Equal(t, []string{"a", "b", "c"}, got.Keys())

	typed := Sanitize(map[string]int{"y": 1, "x": 2})
	assert.Equal(t, []string{"x", "y"}, typed.Keys())

	assert.Equal(t, KindUnsupported, Sanitize(map[int]string{1: "a"}).Kind())
}

func TestSanitizeCycles(t *testing.T) {
	m := map[string]any{"name": "loop"}
	m["self"] = m

	got := Sanitize(m)
	require.Equal(t, KindMapping, got.Kind())
	assert.Equal(t, []string{"name"}, got.Keys())

	s := make([]any, 2)
	s[0] = "x"
	s[1] = s
	seq := Sanitize(s)
	require.Equal(t, 2, seq.Len())
	assert.Equal(t, KindUnsupported, seq.Elems()[1].Kind())
}

func TestSanitizeSharedReferencesAreNotCycles(t *testing.T) {
	shared := []any{1, 2}
	got := Sanitize(map[string]any{"a": shared, "b": shared})
	assert.Equal(t, []string{"a", "b"}, got.Keys())

	b, _ := got.Get("b")
	assert.Equal(t, 2, b.Len())
}

func TestSanitizeRevisitsValues(t *testing.T) {
	m := orderedmap.New[string, Value]()
	m.Set("ok", String("x"))
	m.Set("bad", Unsupported())
	raw := Value{kind: KindMapping, m: m}

	got := Sanitize(Sequence(raw, Unsupported()))
	require.Equal(t, 2, got.Len())
	assert.Equal(t, []string{"ok"}, got.Elems()[0].Keys())
	assert.Equal(t, KindUnsupported, got.Elems()[1].Kind())
}

func TestSanitizeMapping(t *testing.T) {
	got, ok := SanitizeMapping(map[string]any{"a": 1})
	assert.True(t, ok)
	assert.Equal(t, 1, got.Len())

	got, ok = SanitizeMapping([]any{1, 2})
	assert.False(t, ok)
	assert.Equal(t, KindMapping, got.Kind())
	assert.Equal(t, 0, got.Len())
}

func TestMarshalJSONKeepsOrder(t *testing.T) {
	in := orderedmap.New[string, any]()
	in.Set("zeta", []any{1, "two", nil, func() {}})
	in.Set("alpha", map[string]any{"ok": true})

	b, err := json.Marshal(Sanitize(in))
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":[1,"two",null,null],"alpha":{"ok":true}}`, string(b))
}

func TestMappingOfDropsUnsupported(t *testing.T) {
	m := orderedmap.New[string, Value]()
	m.Set("a", Number(1))
	m.Set("b", Unsupported())

	assert.Equal(t, []string{"a"}, MappingOf(m).Keys())
	assert.Equal(t, 0, MappingOf(nil).Len())
}
