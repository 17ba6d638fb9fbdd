package velocity

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// method is a builtin callable on a template value. Mutating methods
// (add, put, set) return the empty string so a bare call prints nothing.
type method[T any] struct {
	min, max int
	fn       func(e *executor, recv T, args []any) (any, error)
}

var (
	stringMethods map[string]method[string]
	listMethods   map[string]method[*List]
	mapMethods    map[string]method[*Map]
	numberMethods map[string]method[float64]
)

func init() {
	stringMethods = map[string]method[string]{
		"length":           {0, 0, strLength},
		"size":             {0, 0, strLength},
		"isEmpty":          {0, 0, func(_ *executor, s string, _ []any) (any, error) { return s == "", nil }},
		"toUpperCase":      {0, 0, func(e *executor, s string, _ []any) (any, error) { return e.newString(strings.ToUpper(s)) }},
		"toLowerCase":      {0, 0, func(e *executor, s string, _ []any) (any, error) { return e.newString(strings.ToLower(s)) }},
		"trim":             {0, 0, func(_ *executor, s string, _ []any) (any, error) { return strings.TrimSpace(s), nil }},
		"toString":         {0, 0, func(_ *executor, s string, _ []any) (any, error) { return s, nil }},
		"substring":        {1, 2, strSubstring},
		"indexOf":          {1, 2, strIndexOf},
		"lastIndexOf":      {1, 1, strLastIndexOf},
		"contains":         {1, 1, strPredicate(strings.Contains)},
		"startsWith":       {1, 1, strPredicate(strings.HasPrefix)},
		"endsWith":         {1, 1, strPredicate(strings.HasSuffix)},
		"equals":           {1, 1, strEquals},
		"equalsIgnoreCase": {1, 1, strPredicate(strings.EqualFold)},
		"replace":          {2, 2, strReplace},
		"split":            {1, 1, strSplit},
		"charAt":           {1, 1, strCharAt},
		"concat":           {1, 1, strConcat},
	}

	listMethods = map[string]method[*List]{
		"size":     {0, 0, func(_ *executor, l *List, _ []any) (any, error) { return float64(l.Len()), nil }},
		"isEmpty":  {0, 0, func(_ *executor, l *List, _ []any) (any, error) { return l.Len() == 0, nil }},
		"get":      {1, 1, listGet},
		"contains": {1, 1, func(_ *executor, l *List, args []any) (any, error) { return listFind(l, args[0]) >= 0, nil }},
		"indexOf":  {1, 1, func(_ *executor, l *List, args []any) (any, error) { return float64(listFind(l, args[0])), nil }},
		"add":      {1, 1, listAdd},
		"addAll":   {1, 1, listAddAll},
		"set":      {2, 2, listSet},
		"remove":   {1, 1, listRemove},
		"join":     {0, 1, listJoin},
		"toString": {0, 0, func(e *executor, l *List, _ []any) (any, error) { return e.stringify(l) }},
	}

	mapMethods = map[string]method[*Map]{
		"size":    {0, 0, func(_ *executor, m *Map, _ []any) (any, error) { return float64(m.Len()), nil }},
		"isEmpty": {0, 0, func(_ *executor, m *Map, _ []any) (any, error) { return m.Len() == 0, nil }},
		"get": {1, 1, func(e *executor, m *Map, args []any) (any, error) {
			key, err := e.stringify(args[0])
			if err != nil {
				return nil, err
			}
			v, _ := m.Lookup(key)
			return v, nil
		}},
		"containsKey": {1, 1, func(e *executor, m *Map, args []any) (any, error) {
			key, err := e.stringify(args[0])
			if err != nil {
				return nil, err
			}
			_, ok := m.Lookup(key)
			return ok, nil
		}},
		"keySet":   {0, 0, mapKeySet},
		"values":   {0, 0, mapValues},
		"entrySet": {0, 0, mapEntrySet},
		"put":      {2, 2, mapPut},
		"remove":   {1, 1, mapRemove},
		"toString": {0, 0, func(e *executor, m *Map, _ []any) (any, error) { return e.stringify(m) }},
	}

	numberMethods = map[string]method[float64]{
		"intValue": {0, 0, func(_ *executor, f float64, _ []any) (any, error) { return math.Trunc(f), nil }},
		"toString": {0, 0, func(_ *executor, f float64, _ []any) (any, error) { return FormatNumber(f), nil }},
	}
}

func lookupMethod[T any](table map[string]method[T], e *executor, recv T, name string, args []any) (any, bool, error) {
	m, ok := table[name]
	if !ok {
		return nil, false, nil
	}
	if len(args) < m.min || len(args) > m.max {
		if m.min == m.max {
			return nil, true, fmt.Errorf("expects %d argument(s), got %d", m.min, len(args))
		}
		return nil, true, fmt.Errorf("expects %d to %d arguments, got %d", m.min, m.max, len(args))
	}
	v, err := m.fn(e, recv, args)
	return v, true, err
}

// builtin calls the named method on recv. found is false when recv has no
// such method.
func (e *executor) builtin(recv any, name string, args []any) (v any, found bool, err error) {
	switch r := recv.(type) {
	case string:
		return lookupMethod(stringMethods, e, r, name, args)
	case *List:
		return lookupMethod(listMethods, e, r, name, args)
	case *Map:
		return lookupMethod(mapMethods, e, r, name, args)
	case float64:
		return lookupMethod(numberMethods, e, r, name, args)
	}
	return nil, false, nil
}

// isPropertyMethod reports whether name is a zero argument builtin of recv,
// usable in property form ($list.size, $map.empty).
func isPropertyMethod(recv any, name string) bool {
	var minArgs int
	var ok bool
	switch recv.(type) {
	case string:
		m, found := stringMethods[name]
		minArgs, ok = m.min, found
	case *List:
		m, found := listMethods[name]
		minArgs, ok = m.min, found
	case *Map:
		m, found := mapMethods[name]
		minArgs, ok = m.min, found
	}
	return ok && minArgs == 0
}

var errNotInteger = errors.New("argument must be an integer")

func intArg(v any) (int, error) {
	f := toNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errNotInteger
	}
	return int(f), nil
}

func clamp(i, lo, hi int) int {
	return max(lo, min(i, hi))
}

func strLength(_ *executor, s string, _ []any) (any, error) {
	return float64(utf8.RuneCountInString(s)), nil
}

func strSubstring(e *executor, s string, args []any) (any, error) {
	runes := []rune(s)
	begin, err := intArg(args[0])
	if err != nil {
		return nil, err
	}
	end := len(runes)
	if len(args) > 1 {
		if end, err = intArg(args[1]); err != nil {
			return nil, err
		}
	}
	begin, end = clamp(begin, 0, len(runes)), clamp(end, 0, len(runes))
	if begin > end {
		begin, end = end, begin
	}
	return e.newString(string(runes[begin:end]))
}

// runeIndex converts a byte offset in s into a rune offset.
func runeIndex(s string, byteOff int) int {
	if byteOff < 0 {
		return -1
	}
	return utf8.RuneCountInString(s[:byteOff])
}

func strIndexOf(e *executor, s string, args []any) (any, error) {
	needle, err := e.stringify(args[0])
	if err != nil {
		return nil, err
	}
	from := 0
	if len(args) > 1 {
		if from, err = intArg(args[1]); err != nil {
			return nil, err
		}
	}
	runes := []rune(s)
	from = clamp(from, 0, len(runes))
	prefix := len(string(runes[:from]))
	i := strings.Index(s[prefix:], needle)
	if i < 0 {
		return float64(-1), nil
	}
	return float64(from + runeIndex(s[prefix:], i)), nil
}

func strLastIndexOf(e *executor, s string, args []any) (any, error) {
	needle, err := e.stringify(args[0])
	if err != nil {
		return nil, err
	}
	return float64(runeIndex(s, strings.LastIndex(s, needle))), nil
}

func strPredicate(fn func(s, arg string) bool) func(*executor, string, []any) (any, error) {
	return func(e *executor, s string, args []any) (any, error) {
		arg, err := e.stringify(args[0])
		if err != nil {
			return nil, err
		}
		return fn(s, arg), nil
	}
}

func strEquals(_ *executor, s string, args []any) (any, error) {
	other, ok := args[0].(string)
	return ok && other == s, nil
}

func strReplace(e *executor, s string, args []any) (any, error) {
	target, err := e.stringify(args[0])
	if err != nil {
		return nil, err
	}
	repl, err := e.stringify(args[1])
	if err != nil {
		return nil, err
	}
	n := strings.Count(s, target)
	if target == "" {
		n = utf8.RuneCountInString(s) + 1
	}
	if err := e.checkSize(len(s) + n*(len(repl)-len(target))); err != nil {
		return nil, err
	}
	return e.newString(strings.ReplaceAll(s, target, repl))
}

func strSplit(e *executor, s string, args []any) (any, error) {
	sep, err := e.stringify(args[0])
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	if err := e.chargeSlots(len(parts)); err != nil {
		return nil, err
	}
	items := make([]any, len(parts))
	for i, p := range parts {
		items[i] = p
	}
	return NewList(items...), nil
}

func strCharAt(_ *executor, s string, args []any) (any, error) {
	i, err := intArg(args[0])
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	if i < 0 || i >= len(runes) {
		return nil, fmt.Errorf("index %d out of range", i)
	}
	return string(runes[i]), nil
}

func strConcat(e *executor, s string, args []any) (any, error) {
	other, err := e.stringify(args[0])
	if err != nil {
		return nil, err
	}
	if err := e.checkSize(len(s) + len(other)); err != nil {
		return nil, err
	}
	return e.newString(s + other)
}

func listGet(_ *executor, l *List, args []any) (any, error) {
	i, ok := listIndex(args[0], l.Len())
	if !ok {
		return nil, nil
	}
	return l.items[i], nil
}

func listFind(l *List, v any) int {
	for i, item := range l.items {
		if looseEqual(item, v) {
			return i
		}
	}
	return -1
}

func listAdd(e *executor, l *List, args []any) (any, error) {
	if err := e.chargeSlots(1); err != nil {
		return nil, err
	}
	l.Append(args[0])
	return "", nil
}

func listAddAll(e *executor, l *List, args []any) (any, error) {
	other, ok := args[0].(*List)
	if !ok {
		return nil, errors.New("argument must be a list")
	}
	if err := e.chargeSlots(other.Len()); err != nil {
		return nil, err
	}
	l.items = append(l.items, other.items...)
	return "", nil
}

func listSet(_ *executor, l *List, args []any) (any, error) {
	i, ok := listIndex(args[0], l.Len())
	if !ok {
		return nil, fmt.Errorf("index %s out of range", toString(args[0]))
	}
	l.items[i] = args[1]
	return "", nil
}

// listRemove removes by position when given a number, otherwise by value.
func listRemove(_ *executor, l *List, args []any) (any, error) {
	i := -1
	if _, isNum := args[0].(float64); isNum {
		if idx, ok := listIndex(args[0], l.Len()); ok {
			i = idx
		}
	} else {
		i = listFind(l, args[0])
	}
	if i < 0 {
		return nil, nil
	}
	removed := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	return removed, nil
}

func listJoin(e *executor, l *List, args []any) (any, error) {
	sep := ","
	if len(args) > 0 {
		var err error
		if sep, err = e.stringify(args[0]); err != nil {
			return nil, err
		}
	}
	b := &limitedBuilder{max: e.opts.MaxOutput}
	for i, item := range l.items {
		if i > 0 {
			b.write(sep)
		}
		if item != nil {
			writeValue(b, item)
		}
		if b.over {
			return nil, ErrOutputLimit
		}
	}
	return e.newString(b.String())
}

func mapKeySet(e *executor, m *Map, _ []any) (any, error) {
	if err := e.chargeSlots(m.Len()); err != nil {
		return nil, err
	}
	keys := m.Keys()
	items := make([]any, len(keys))
	for i, k := range keys {
		items[i] = k
	}
	return NewList(items...), nil
}

func mapValues(e *executor, m *Map, _ []any) (any, error) {
	if err := e.chargeSlots(m.Len()); err != nil {
		return nil, err
	}
	items := make([]any, 0, m.Len())
	for pair := m.m.Oldest(); pair != nil; pair = pair.Next() {
		items = append(items, pair.Value)
	}
	return NewList(items...), nil
}

// mapEntrySet returns one {key, value} map per entry.
func mapEntrySet(e *executor, m *Map, _ []any) (any, error) {
	// one list slot plus a two entry map per pair
	if err := e.chargeSlots(5 * m.Len()); err != nil {
		return nil, err
	}
	items := make([]any, 0, m.Len())
	for pair := m.m.Oldest(); pair != nil; pair = pair.Next() {
		entry := NewMap()
		entry.Set("key", pair.Key)
		entry.Set("value", pair.Value)
		items = append(items, entry)
	}
	return NewList(items...), nil
}

func mapPut(e *executor, m *Map, args []any) (any, error) {
	key, err := e.stringify(args[0])
	if err != nil {
		return nil, err
	}
	if err := e.charge(int64(len(key)) + 2*slotBytes); err != nil {
		return nil, err
	}
	m.Set(key, args[1])
	return "", nil
}

func mapRemove(e *executor, m *Map, args []any) (any, error) {
	key, err := e.stringify(args[0])
	if err != nil {
		return nil, err
	}
	return m.Delete(key), nil
}
