package payload

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MaxNesting is the deepest array or object nesting Decode accepts.
const MaxNesting = 10_000

// ErrNestingTooDeep is returned by Decode for documents nested deeper than
// MaxNesting.
var ErrNestingTooDeep = errors.New("JSON nested too deeply")

// Object is a decoded JSON object with its key order intact.
type Object = orderedmap.OrderedMap[string, any]

// Decode parses a JSON document into nil, bool, float64, string, []any and
// *Object values. Objects keep their key order; a repeated key keeps its
// first position and its last value.
func Decode(data []byte) (any, error) {
	if nesting(data) > MaxNesting {
		return nil, ErrNestingTooDeep
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("malformed JSON")
	}
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, err
	}
	return decodeValue(value, dataType)
}

func decodeValue(data []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.Null:
		return nil, nil
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(data)
	case jsonparser.Number:
		return jsonparser.ParseFloat(data)
	case jsonparser.String:
		return jsonparser.ParseString(data)
	case jsonparser.Array:
		return decodeArray(data)
	case jsonparser.Object:
		return decodeObject(data)
	}
	return nil, fmt.Errorf("unexpected JSON value type %s", dataType)
}

func decodeArray(data []byte) ([]any, error) {
	out := make([]any, 0)
	var decodeErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if decodeErr != nil {
			return
		}
		if err != nil {
			decodeErr = err
			return
		}
		v, err := decodeValue(value, dataType)
		if err != nil {
			decodeErr = err
			return
		}
		out = append(out, v)
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeObject(data []byte) (*Object, error) {
	out := orderedmap.New[string, any]()
	err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		// keys arrive unescaped
		k := string(key)
		v, err := decodeValue(value, dataType)
		if err != nil {
			return err
		}
		out.Set(k, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// nesting returns the deepest bracket nesting in data, ignoring brackets
// inside strings.
func nesting(data []byte) int {
	depth, deepest := 0, 0
	inString, escaped := false, false
	for _, c := range data {
		switch {
		case escaped:
			escaped = false
		case inString:
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == '[' || c == '{':
			depth++
			if depth > deepest {
				deepest = depth
			}
		case c == ']' || c == '}':
			depth--
		}
	}
	return deepest
}
