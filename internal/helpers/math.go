package helpers

import (
	"math"
	"strconv"
	"strings"
)

// sequence is implemented by the engine's list type.
type sequence interface {
	Values() []any
}

// finiteNumbers coerces every argument to a number and keeps the finite
// ones. Sequence arguments are flattened so $numbers and 1, 2, 3 behave
// alike.
func finiteNumbers(args []any) []float64 {
	out := make([]float64, 0, len(args))
	var visit func(v any)
	visit = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, e := range t {
				visit(e)
			}
			return
		case sequence:
			for _, e := range t.Values() {
				visit(e)
			}
			return
		}
		if n, ok := toNumber(v); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
			out = append(out, n)
		}
	}
	for _, a := range args {
		visit(a)
	}
	return out
}

// toNumber converts a scalar the way a numeric cast in a browser would:
// booleans are 0 or 1, blank strings are 0, other strings must be a
// complete numeric literal. Missing values and containers are not numbers.
func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		return parseNumber(t)
	}
	return 0, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if strings.ContainsRune(s, '_') {
		return 0, false
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return 0, false
			}
			return float64(n), true
		}
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	// reject Go-only spellings such as "inf", "nan" and hex floats
	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return 0, false
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func sum(args ...any) (any, error) {
	total := 0.0
	for _, n := range finiteNumbers(args) {
		total += n
	}
	return total, nil
}

func average(args ...any) (any, error) {
	nums := finiteNumbers(args)
	if len(nums) == 0 {
		return 0.0, nil
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return total / float64(len(nums)), nil
}

func maxOf(args ...any) (any, error) {
	nums := finiteNumbers(args)
	if len(nums) == 0 {
		return nil, nil
	}
	best := nums[0]
	for _, n := range nums[1:] {
		if n > best {
			best = n
		}
	}
	return best, nil
}
