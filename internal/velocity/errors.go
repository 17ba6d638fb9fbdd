package velocity

import (
	"errors"
	"fmt"
)

var (
	// ErrStepLimit is returned when a render exhausts its step budget.
	ErrStepLimit = errors.New("velocity: step limit exceeded")
	// ErrOutputLimit is returned when rendered output or a built string
	// grows past the configured cap.
	ErrOutputLimit = errors.New("velocity: output limit exceeded")
	// ErrMemoryLimit is returned when the strings and container slots a
	// render allocates add up past the configured budget.
	ErrMemoryLimit = errors.New("velocity: memory budget exceeded")
)

// ParseError describes malformed template source.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Parse error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// RuntimeError describes a failure while executing a parsed template.
type RuntimeError struct {
	Line   int
	Column int
	Msg    string
	Cause  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("Runtime error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

// control flow signals, never returned from Execute
var (
	errStop  = errors.New("stop")
	errBreak = errors.New("break")
)
