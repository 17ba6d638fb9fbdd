package helpers

import (
	"strconv"
	"strings"

	"velocity-playground/internal/velocity"
)

// Escaping is a single pass. Unescaping handles &amp; last so decoded
// ampersands never start a new entity.
var (
	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)
	htmlUnescapes = [][2]string{
		{"&lt;", "<"},
		{"&gt;", ">"},
		{"&quot;", `"`},
		{"&#039;", "'"},
		{"&amp;", "&"},
	}
)

// EscapeHTML replaces & < > " ' with their entities.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// UnescapeHTML reverses EscapeHTML. Each entity is replaced in its own pass
// so "&amp;lt;" becomes "&lt;", not "<".
func UnescapeHTML(s string) string {
	for _, pair := range htmlUnescapes {
		s = strings.ReplaceAll(s, pair[0], pair[1])
	}
	return s
}

func escapeHTML(args ...any) (any, error) {
	return EscapeHTML(stringArg(args, 0)), nil
}

func unescapeHTML(args ...any) (any, error) {
	return UnescapeHTML(stringArg(args, 0)), nil
}

// stringArg renders argument i as text. Missing arguments read as
// "undefined", which is what the string cast of an absent value yields in
// the browser.
func stringArg(args []any, i int) string {
	if i >= len(args) {
		return "undefined"
	}
	switch t := args[i].(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return velocity.FormatNumber(t)
	case interface{ String() string }:
		return t.String()
	}
	return "[object Object]"
}
