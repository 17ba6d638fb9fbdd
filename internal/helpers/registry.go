// Package helpers holds the functions templates can reach through the
// reserved helpers variable. The registry is built once at startup and is
// read-only afterwards, so a single instance is shared by every render.
package helpers

import (
	"sort"
	"time"
)

// Func is a helper function. Arguments arrive as template values: nil,
// bool, float64, string, or container values from the engine.
type Func func(args ...any) (any, error)

// Call invokes f with args.
func (f Func) Call(args []any) (any, error) {
	return f(args...)
}

// Namespace is a named group of helpers such as date or math.
type Namespace struct {
	name  string
	order []string
	funcs map[string]Func
}

func newNamespace(name string) *Namespace {
	return &Namespace{name: name, funcs: make(map[string]Func)}
}

func (n *Namespace) add(name string, fn Func) *Namespace {
	n.order = append(n.order, name)
	n.funcs[name] = fn
	return n
}

// Name returns the namespace name.
func (n *Namespace) Name() string { return n.name }

// Get returns the helper called name.
func (n *Namespace) Get(name string) (any, bool) {
	fn, ok := n.funcs[name]
	if !ok {
		return nil, false
	}
	return fn, true
}

// Func returns the helper called name with its concrete type.
func (n *Namespace) Func(name string) (Func, bool) {
	fn, ok := n.funcs[name]
	return fn, ok
}

// Keys returns helper names in registration order.
func (n *Namespace) Keys() []string {
	return append([]string(nil), n.order...)
}

// Registry is the full helper tree.
type Registry struct {
	clock      func() time.Time
	order      []string
	namespaces map[string]*Namespace
}

// New builds the registry using the wall clock.
func New() *Registry {
	return NewWithClock(time.Now)
}

// NewWithClock builds the registry with a custom time source for date.now
// and the date helpers' defaults.
func NewWithClock(clock func() time.Time) *Registry {
	r := &Registry{clock: clock, namespaces: make(map[string]*Namespace)}

	r.register(newNamespace("date").
		add("now", r.now).
		add("format", r.format).
		add("addDays", r.addDays))

	r.register(newNamespace("math").
		add("sum", sum).
		add("average", average).
		add("max", maxOf))

	r.register(newNamespace("strings").
		add("escapeHtml", escapeHTML).
		add("unescapeHtml", unescapeHTML))

	return r
}

func (r *Registry) register(ns *Namespace) {
	r.order = append(r.order, ns.name)
	r.namespaces[ns.name] = ns
}

// Get returns the namespace called name.
func (r *Registry) Get(name string) (any, bool) {
	ns, ok := r.namespaces[name]
	if !ok {
		return nil, false
	}
	return ns, true
}

// Namespace returns the namespace called name with its concrete type.
func (r *Registry) Namespace(name string) (*Namespace, bool) {
	ns, ok := r.namespaces[name]
	return ns, ok
}

// Keys returns namespace names in registration order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

// Listing maps each namespace to its helper names, as served by the
// helpers endpoint.
func (r *Registry) Listing() map[string][]string {
	out := make(map[string][]string, len(r.namespaces))
	for name, ns := range r.namespaces {
		out[name] = ns.Keys()
	}
	return out
}

// Now returns the current time the same way date.now does.
func (r *Registry) Now() string {
	return formatISO(r.clock())
}

// Describe returns the fully qualified helper paths, sorted.
func (r *Registry) Describe() []string {
	var paths []string
	for _, ns := range r.namespaces {
		for _, fn := range ns.order {
			paths = append(paths, ns.name+"."+fn)
		}
	}
	sort.Strings(paths)
	return paths
}
