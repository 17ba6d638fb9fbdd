// Package velocity implements the subset of the Velocity Template Language
// the playground renders: references with property, index and method
// chains, #set, #if/#elseif/#else, #foreach, #break, #stop, #macro,
// comments, raw blocks and escapes.
//
// A parsed Template is immutable and safe for concurrent use. Every
// Execute call gets its own variable scope; the step budget, output cap,
// memory budget, macro depth limit and context cancellation bound the work
// a single call can do.
package velocity

import (
	"context"
	"io"
	"strings"
)

// DefaultMaxDepth is the macro nesting limit used when Options leaves it
// unset.
const DefaultMaxDepth = 64

// Options control a single execution.
type Options struct {
	// Escape HTML-escapes the output of references.
	Escape bool
	// MaxSteps bounds evaluation steps; zero means unbounded.
	MaxSteps int
	// MaxOutput bounds the rendered output and any string built during
	// execution, in bytes; zero means unbounded.
	MaxOutput int64
	// MaxMemory bounds the bytes one execution may allocate for strings
	// and list or map slots, summed over the whole run; zero means
	// unbounded. Memory released along the way is not given back.
	MaxMemory int64
	// MaxDepth bounds macro nesting; zero means DefaultMaxDepth.
	MaxDepth int
}

// Template is a parsed template.
type Template struct {
	src    string
	nodes  []node
	macros map[string]*macroNode
}

// Parse parses src. Errors are *ParseError.
func Parse(src string) (*Template, error) {
	p := newParser(src)
	nodes, _, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return &Template{src: src, nodes: nodes, macros: p.macros}, nil
}

// Macros returns the names of the macros the template defines.
func (t *Template) Macros() []string {
	names := make([]string, 0, len(t.macros))
	for name := range t.macros {
		names = append(names, name)
	}
	return names
}

// Execute renders the template into w with vars as the global scope. Values
// pass through FromNative. vars itself is not modified; list and map values
// in it may be, by #set and methods such as add and put.
//
// Errors are *RuntimeError, ErrStepLimit, ErrOutputLimit, ErrMemoryLimit,
// the context's
// error, or a write error from w.
func (t *Template) Execute(ctx context.Context, w io.Writer, vars map[string]any, opts Options) error {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	globals := make(map[string]any, len(vars))
	for k, v := range vars {
		globals[k] = FromNative(v)
	}

	e := &executor{
		ctx:    ctx,
		tmpl:   t,
		opts:   opts,
		out:    &output{w: w, max: opts.MaxOutput},
		scopes: []map[string]any{globals},
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := e.execNodes(t.nodes)
	if err == errStop || err == errBreak {
		return nil
	}
	return err
}

// Render is Execute into a string.
func (t *Template) Render(ctx context.Context, vars map[string]any, opts Options) (string, error) {
	var b strings.Builder
	if err := t.Execute(ctx, &b, vars, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}

// output enforces the output cap on the destination writer.
type output struct {
	w   io.Writer
	n   int64
	max int64
}

func (o *output) write(s string) error {
	if o.max > 0 && o.n+int64(len(s)) > o.max {
		return ErrOutputLimit
	}
	o.n += int64(len(s))
	_, err := io.WriteString(o.w, s)
	return err
}
