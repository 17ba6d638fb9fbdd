package velocity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// ctxCheckInterval is how many steps pass between context checks.
	ctxCheckInterval = 1024
	// maxRange bounds a single [a..b] literal.
	maxRange = 10_000_000
	// slotBytes is what one list element or map value costs against the
	// memory budget.
	slotBytes = 16
)

type executor struct {
	ctx      context.Context
	tmpl     *Template
	opts     Options
	out      *output
	steps    int
	alloc    int64
	depth    int
	inString int
	scopes   []map[string]any
	loops    []*loopState
}

// loopState backs $foreach inside a loop body.
type loopState struct {
	index  int
	size   int
	parent *loopState
}

var loopKeys = []string{"index", "count", "hasNext", "first", "last", "parent"}

func (l *loopState) Get(name string) (any, bool) {
	switch name {
	case "index":
		return float64(l.index), true
	case "count":
		return float64(l.index + 1), true
	case "hasNext":
		return l.index < l.size-1, true
	case "first":
		return l.index == 0, true
	case "last":
		return l.index == l.size-1, true
	case "parent":
		if l.parent == nil {
			return nil, false
		}
		return l.parent, true
	}
	return nil, false
}

func (l *loopState) Keys() []string { return append([]string(nil), loopKeys...) }

func (e *executor) tick() error {
	e.steps++
	if e.opts.MaxSteps > 0 && e.steps > e.opts.MaxSteps {
		return ErrStepLimit
	}
	if e.steps%ctxCheckInterval == 0 {
		if err := e.ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// charge counts n freshly allocated bytes against the memory budget.
func (e *executor) charge(n int64) error {
	e.alloc += n
	if e.opts.MaxMemory > 0 && e.alloc > e.opts.MaxMemory {
		return ErrMemoryLimit
	}
	return nil
}

// chargeSlots charges n list or map slots.
func (e *executor) chargeSlots(n int) error {
	return e.charge(int64(n) * slotBytes)
}

// newString charges s and returns it as a template value.
func (e *executor) newString(s string) (any, error) {
	if err := e.charge(int64(len(s))); err != nil {
		return nil, err
	}
	return s, nil
}

func (e *executor) runtimeErr(pos int, cause error, format string, args ...any) error {
	line, col := position(e.tmpl.src, pos)
	return &RuntimeError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// isSignal reports errors that pass through unchanged instead of being
// wrapped in a RuntimeError.
func isSignal(err error) bool {
	var rt *RuntimeError
	return err == errStop || err == errBreak ||
		errors.Is(err, ErrStepLimit) || errors.Is(err, ErrOutputLimit) ||
		errors.Is(err, ErrMemoryLimit) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &rt)
}

func (e *executor) execNodes(nodes []node) error {
	for _, n := range nodes {
		if err := e.tick(); err != nil {
			return err
		}
		if err := e.exec(n); err != nil {
			return err
		}
	}
	return nil
}

func (e *executor) exec(n node) error {
	switch n := n.(type) {
	case *textNode:
		return e.out.write(n.text)
	case *referenceNode:
		return e.writeReference(n)
	case *setNode:
		return e.execSet(n)
	case *ifNode:
		for _, br := range n.branches {
			cond, err := e.eval(br.cond)
			if err != nil {
				return err
			}
			if truthy(cond) {
				return e.execNodes(br.body)
			}
		}
		return e.execNodes(n.elseBody)
	case *foreachNode:
		return e.execForeach(n)
	case *breakNode:
		return errBreak
	case *stopNode:
		return errStop
	case *macroCallNode:
		return e.execMacro(n)
	}
	return fmt.Errorf("velocity: unknown node %T", n)
}

func (e *executor) writeReference(n *referenceNode) error {
	v, err := e.evalRef(n.ref)
	if err != nil {
		return err
	}
	if _, fn := v.(Callable); v == nil || fn {
		if n.quiet {
			return nil
		}
		return e.out.write(n.raw)
	}
	s, err := e.stringify(v)
	if err != nil {
		return err
	}
	if e.opts.Escape && e.inString == 0 {
		s = escapeHTML(s)
	}
	return e.out.write(s)
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }

func (e *executor) lookup(name string) any {
	if len(e.loops) > 0 {
		top := e.loops[len(e.loops)-1]
		switch name {
		case "foreach":
			return top
		case "velocityCount":
			return float64(top.index + 1)
		}
	}
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v, ok := e.scopes[i][name]; ok {
			return v
		}
	}
	return nil
}

// scopeFor returns the scope an assignment to name writes into: the
// innermost macro frame that has it, otherwise the globals.
func (e *executor) scopeFor(name string) map[string]any {
	for i := len(e.scopes) - 1; i >= 1; i-- {
		if _, ok := e.scopes[i][name]; ok {
			return e.scopes[i]
		}
	}
	return e.scopes[0]
}

func (e *executor) assignVar(pos int, name string, v any) error {
	scope := e.scopeFor(name)
	if isReadOnly(scope[name]) {
		return e.runtimeErr(pos, nil, "$%s is read-only", name)
	}
	scope[name] = v
	return nil
}

func (e *executor) execSet(n *setNode) error {
	v, err := e.eval(n.value)
	if err != nil {
		return err
	}
	ref := n.target
	if len(ref.chain) == 0 {
		return e.assignVar(ref.pos, ref.name, v)
	}

	last := ref.chain[len(ref.chain)-1]
	container, err := e.evalRef(&reference{pos: ref.pos, name: ref.name, chain: ref.chain[:len(ref.chain)-1]})
	if err != nil {
		return err
	}

	switch c := container.(type) {
	case *Map:
		key := last.name
		if last.isElem {
			idx, err := e.eval(last.index)
			if err != nil {
				return err
			}
			if key, err = e.stringify(idx); err != nil {
				return err
			}
		}
		c.Set(key, v)
		return nil
	case *List:
		if !last.isElem {
			return e.runtimeErr(last.pos, nil, "cannot set property %q on a list", last.name)
		}
		idx, err := e.eval(last.index)
		if err != nil {
			return err
		}
		i, ok := listIndex(idx, c.Len())
		if !ok {
			return e.runtimeErr(last.pos, nil, "list index %s out of range", toString(idx))
		}
		c.items[i] = v
		return nil
	case nil:
		return e.runtimeErr(last.pos, nil, "cannot assign into an undefined value")
	}
	if isReadOnly(container) {
		return e.runtimeErr(last.pos, nil, "cannot assign into a read-only namespace")
	}
	return e.runtimeErr(last.pos, nil, "cannot assign into a %s", typeName(container))
}

func (e *executor) execForeach(n *foreachNode) error {
	iter, err := e.eval(n.iterable)
	if err != nil {
		return err
	}

	var items []any
	switch it := iter.(type) {
	case *List:
		items = append(items, it.items...)
	case *Map:
		for pair := it.m.Oldest(); pair != nil; pair = pair.Next() {
			items = append(items, pair.Value)
		}
	}
	if len(items) == 0 {
		return e.execNodes(n.elseBody)
	}
	if err := e.chargeSlots(len(items)); err != nil {
		return err
	}

	scope := e.scopeFor(n.varName)
	prev, had := scope[n.varName]

	state := &loopState{size: len(items)}
	if len(e.loops) > 0 {
		state.parent = e.loops[len(e.loops)-1]
	}
	e.loops = append(e.loops, state)
	defer func() {
		e.loops = e.loops[:len(e.loops)-1]
		if had {
			scope[n.varName] = prev
		} else {
			delete(scope, n.varName)
		}
	}()

	for i, item := range items {
		state.index = i
		if err := e.tick(); err != nil {
			return err
		}
		if err := e.assignVar(n.pos, n.varName, item); err != nil {
			return err
		}
		if err := e.execNodes(n.body); err != nil {
			if err == errBreak {
				return nil
			}
			return err
		}
	}
	return nil
}

func (e *executor) execMacro(n *macroCallNode) error {
	m, ok := e.tmpl.macros[n.name]
	if !ok {
		return e.out.write(n.raw)
	}
	if e.depth >= e.opts.MaxDepth {
		return e.runtimeErr(n.pos, nil, "macro #%s nested deeper than %d levels", n.name, e.opts.MaxDepth)
	}

	frame := make(map[string]any, len(m.params))
	for i, param := range m.params {
		var v any
		if i < len(n.args) {
			arg, err := e.eval(n.args[i])
			if err != nil {
				return err
			}
			v = arg
		}
		frame[param] = v
	}

	e.scopes = append(e.scopes, frame)
	e.depth++
	err := e.execNodes(m.body)
	e.depth--
	e.scopes = e.scopes[:len(e.scopes)-1]

	if err == errBreak {
		return nil
	}
	return err
}

func (e *executor) evalRef(ref *reference) (any, error) {
	v := e.lookup(ref.name)
	for i := range ref.chain {
		if v == nil {
			return nil, nil
		}
		if err := e.tick(); err != nil {
			return nil, err
		}

		acc := &ref.chain[i]
		var err error
		switch {
		case acc.isElem:
			var idx any
			if idx, err = e.eval(acc.index); err == nil {
				v = index(v, idx)
			}
		case acc.call:
			var args []any
			if args, err = e.evalArgs(acc.args); err == nil {
				v, err = e.call(acc, v, args)
			}
		default:
			v, err = e.property(acc, v)
		}
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (e *executor) evalArgs(exprs []expr) ([]any, error) {
	args := make([]any, len(exprs))
	for i, x := range exprs {
		v, err := e.eval(x)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (e *executor) call(acc *accessor, recv any, args []any) (any, error) {
	if g, ok := recv.(Getter); ok {
		member, ok := g.Get(acc.name)
		if !ok {
			return nil, nil
		}
		fn, ok := member.(Callable)
		if !ok {
			if len(args) == 0 {
				return member, nil
			}
			return nil, nil
		}
		result, err := fn.Call(args)
		if err != nil {
			if isSignal(err) {
				return nil, err
			}
			return nil, e.runtimeErr(acc.pos, err, "%s", err.Error())
		}
		result = FromNative(result)
		if s, ok := result.(string); ok {
			if err := e.checkSize(len(s)); err != nil {
				return nil, err
			}
			return e.newString(s)
		}
		return result, nil
	}

	result, found, err := e.builtin(recv, acc.name, args)
	if err != nil {
		if isSignal(err) {
			return nil, err
		}
		return nil, e.runtimeErr(acc.pos, err, "%s: %s", acc.name, err.Error())
	}
	if !found {
		return nil, nil
	}
	return result, nil
}

// property resolves .name: map keys first, then a zero argument method
// called name, getName or isName.
func (e *executor) property(acc *accessor, recv any) (any, error) {
	switch r := recv.(type) {
	case *Map:
		if v, ok := r.Lookup(acc.name); ok {
			return v, nil
		}
	case Getter:
		v, _ := r.Get(acc.name)
		return v, nil
	case *List, string:
	default:
		return nil, nil
	}

	capitalized := strings.ToUpper(acc.name[:1]) + acc.name[1:]
	for _, name := range []string{acc.name, "get" + capitalized, "is" + capitalized} {
		if !isPropertyMethod(recv, name) {
			continue
		}
		result, _, err := e.builtin(recv, name, nil)
		if err != nil {
			return nil, e.runtimeErr(acc.pos, err, "%s: %s", acc.name, err.Error())
		}
		return result, nil
	}
	return nil, nil
}

func index(v, idx any) any {
	switch r := v.(type) {
	case *List:
		if i, ok := listIndex(idx, r.Len()); ok {
			return r.items[i]
		}
	case *Map:
		if x, ok := r.Lookup(toString(idx)); ok {
			return x
		}
	case Getter:
		if name, ok := idx.(string); ok {
			x, _ := r.Get(name)
			return x
		}
	case string:
		runes := []rune(r)
		if i, ok := listIndex(idx, len(runes)); ok {
			return string(runes[i])
		}
	}
	return nil
}

// listIndex converts idx into a position in a sequence of length n.
// Negative indexes count from the end.
func listIndex(idx any, n int) (int, bool) {
	f, ok := idx.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	i := int(f)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

func (e *executor) eval(x expr) (any, error) {
	if err := e.tick(); err != nil {
		return nil, err
	}

	switch n := x.(type) {
	case *literalExpr:
		return n.value, nil

	case *interpolatedExpr:
		return e.interpolate(n.body)

	case *referenceExpr:
		return e.evalRef(n.ref)

	case *listExpr:
		items, err := e.evalArgs(n.items)
		if err != nil {
			return nil, err
		}
		if err := e.chargeSlots(len(items)); err != nil {
			return nil, err
		}
		return NewList(items...), nil

	case *rangeExpr:
		return e.evalRange(n)

	case *mapExpr:
		m := NewMap()
		for i := range n.keys {
			k, err := e.eval(n.keys[i])
			if err != nil {
				return nil, err
			}
			key, err := e.stringify(k)
			if err != nil {
				return nil, err
			}
			v, err := e.eval(n.values[i])
			if err != nil {
				return nil, err
			}
			if err := e.charge(int64(len(key)) + 2*slotBytes); err != nil {
				return nil, err
			}
			m.Set(key, v)
		}
		return m, nil

	case *unaryExpr:
		v, err := e.eval(n.x)
		if err != nil {
			return nil, err
		}
		if n.op == "-" {
			return -toNumber(v), nil
		}
		return !truthy(v), nil

	case *binaryExpr:
		return e.evalBinary(n)
	}
	return nil, fmt.Errorf("velocity: unknown expression %T", x)
}

func (e *executor) interpolate(body []node) (any, error) {
	saved := e.out
	var b strings.Builder
	e.out = &output{w: &b, max: e.opts.MaxOutput}
	e.inString++

	err := e.execNodes(body)

	e.inString--
	e.out = saved
	if err != nil {
		return nil, err
	}
	return e.newString(b.String())
}

func (e *executor) evalRange(n *rangeExpr) (any, error) {
	from, err := e.eval(n.from)
	if err != nil {
		return nil, err
	}
	to, err := e.eval(n.to)
	if err != nil {
		return nil, err
	}
	lo, hi := toNumber(from), toNumber(to)
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, e.runtimeErr(n.pos, nil, "range bounds must be numbers")
	}

	start, end := int64(math.Trunc(lo)), int64(math.Trunc(hi))
	size := end - start
	step := int64(1)
	if size < 0 {
		size, step = -size, -1
	}
	size++
	if size > maxRange {
		return nil, e.runtimeErr(n.pos, nil, "range of %d elements exceeds the limit of %d", size, maxRange)
	}
	if e.opts.MaxSteps > 0 && int64(e.steps)+size > int64(e.opts.MaxSteps) {
		return nil, ErrStepLimit
	}
	if err := e.charge(size * slotBytes); err != nil {
		return nil, err
	}

	items := make([]any, 0, size)
	for i := start; ; i += step {
		if err := e.tick(); err != nil {
			return nil, err
		}
		items = append(items, float64(i))
		if i == end {
			break
		}
	}
	return NewList(items...), nil
}

func (e *executor) evalBinary(n *binaryExpr) (any, error) {
	l, err := e.eval(n.l)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "&&":
		if !truthy(l) {
			return false, nil
		}
		r, err := e.eval(n.r)
		return truthy(r), err
	case "||":
		if truthy(l) {
			return true, nil
		}
		r, err := e.eval(n.r)
		return truthy(r), err
	}

	r, err := e.eval(n.r)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return looseEqual(l, r), nil
	case "!=":
		return !looseEqual(l, r), nil
	case "<", "<=", ">", ">=":
		c, ok := compare(l, r)
		if !ok {
			return false, nil
		}
		switch n.op {
		case "<":
			return c < 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return c > 0, nil
		}
		return c >= 0, nil
	case "+":
		_, ls := l.(string)
		_, rs := r.(string)
		if ls || rs {
			a, err := e.stringify(l)
			if err != nil {
				return nil, err
			}
			b, err := e.stringify(r)
			if err != nil {
				return nil, err
			}
			if err := e.checkSize(len(a) + len(b)); err != nil {
				return nil, err
			}
			return e.newString(a + b)
		}
		return toNumber(l) + toNumber(r), nil
	case "-":
		return toNumber(l) - toNumber(r), nil
	case "*":
		return toNumber(l) * toNumber(r), nil
	case "/":
		return toNumber(l) / toNumber(r), nil
	case "%":
		return math.Mod(toNumber(l), toNumber(r)), nil
	}
	return nil, e.runtimeErr(n.pos, nil, "unknown operator %s", n.op)
}

// stringify renders v within the output cap.
func (e *executor) stringify(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b := &limitedBuilder{max: e.opts.MaxOutput}
	writeValue(b, v)
	if b.over {
		return "", ErrOutputLimit
	}
	out := b.String()
	if err := e.charge(int64(len(out))); err != nil {
		return "", err
	}
	return out, nil
}

func (e *executor) checkSize(n int) error {
	if e.opts.MaxOutput > 0 && int64(n) > e.opts.MaxOutput {
		return ErrOutputLimit
	}
	return nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case *List:
		return "list"
	case *Map:
		return "map"
	}
	return fmt.Sprintf("%T", v)
}
