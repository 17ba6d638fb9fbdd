package helpers

import (
	"math"
	"strings"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/de_DE"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/en_GB"
	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/es_ES"
	"github.com/go-playground/locales/fr"
	"github.com/go-playground/locales/fr_FR"
	"github.com/go-playground/locales/it"
	"github.com/go-playground/locales/it_IT"
	"github.com/go-playground/locales/ja"
	"github.com/go-playground/locales/ja_JP"
	"github.com/go-playground/locales/nl"
	"github.com/go-playground/locales/nl_NL"
	"github.com/go-playground/locales/pt"
	"github.com/go-playground/locales/pt_BR"
	"github.com/go-playground/locales/sv"
	"github.com/go-playground/locales/sv_SE"

	"velocity-playground/internal/common/errors"
)

const (
	isoLayout     = "2006-01-02T15:04:05.000Z"
	msPerDay      = 86_400_000
	maxEpochMilli = 8.64e15
	defaultLocale = "en_us"
	invalidDate   = "Invalid Date"
)

// Accepted input forms, tried in order. Inputs without a zone are UTC.
var inputLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// translators are keyed by lower case CLDR tag ("en_us"); a bare language
// matches any region.
var translators = func() map[string]locales.Translator {
	m := make(map[string]locales.Translator)
	for _, tr := range []locales.Translator{
		en.New(), en_US.New(), en_GB.New(),
		de.New(), de_DE.New(),
		fr.New(), fr_FR.New(),
		es.New(), es_ES.New(),
		it.New(), it_IT.New(),
		nl.New(), nl_NL.New(),
		ja.New(), ja_JP.New(),
		sv.New(), sv_SE.New(),
		pt.New(), pt_BR.New(),
	} {
		m[strings.ToLower(tr.Locale())] = tr
	}
	return m
}()

func formatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func (r *Registry) now(_ ...any) (any, error) {
	return formatISO(r.clock()), nil
}

// format renders a timestamp (default now) for a locale (default en-US).
// Times are shown in UTC. Unknown locales fall back to the default.
func (r *Registry) format(args ...any) (any, error) {
	t, ok := r.instant(args, 0)
	if !ok {
		return invalidDate, nil
	}

	locale := defaultLocale
	if len(args) > 1 && truthy(args[1]) {
		locale = stringArg(args, 1)
	}
	t = t.UTC()
	tr := translatorFor(locale)
	return tr.FmtDateShort(t) + ", " + tr.FmtTimeMedium(t), nil
}

// addDays shifts a timestamp (default now) by a number of days, measured
// as exact 24 hour spans.
func (r *Registry) addDays(args ...any) (any, error) {
	base, ok := r.instant(args, 0)
	if !ok {
		return nil, errors.ValidationError("Invalid date input for addDays")
	}

	days := 0.0
	if len(args) > 1 && truthy(args[1]) {
		n, ok := toNumber(args[1])
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, errors.ValidationError("Invalid days input for addDays")
		}
		days = n
	}

	ms := math.Trunc(float64(base.UnixMilli()) + days*msPerDay)
	if math.Abs(ms) > maxEpochMilli {
		return nil, errors.ValidationError("Invalid days input for addDays")
	}
	return formatISO(time.UnixMilli(int64(ms))), nil
}

// instant reads argument i as a point in time. Absent or falsy arguments
// mean now; numbers are epoch milliseconds.
func (r *Registry) instant(args []any, i int) (time.Time, bool) {
	if i >= len(args) || !truthy(args[i]) {
		return r.clock(), true
	}
	switch t := args[i].(type) {
	case string:
		return parseInstant(t)
	case float64, bool:
		n, _ := toNumber(t)
		if math.IsNaN(n) || math.Abs(n) > maxEpochMilli {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(n)), true
	}
	return time.Time{}, false
}

func parseInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func translatorFor(locale string) locales.Translator {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "-", "_"))
	if tr, ok := translators[key]; ok {
		return tr
	}
	if lang, _, found := strings.Cut(key, "_"); found {
		if tr, ok := translators[lang]; ok {
			return tr
		}
	}
	return translators[defaultLocale]
}

// truthy mirrors the falsy set of a dynamic language: nil, false, 0, NaN
// and the empty string.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	}
	return true
}
