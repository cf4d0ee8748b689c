package resolve

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnresolvedDuration indicates a duration expression was present but could
// not be parsed. Callers fall back to the estimation policy.
var ErrUnresolvedDuration = errors.New("unresolved duration expression")

// DurationHistory summarises prior entries for the matched category, used to
// estimate a missing duration.
type DurationHistory struct {
	AverageMinutes float64
	Entries        int
}

var sixty = decimal.NewFromInt(60)

// durationPattern matches "<number> <unit>", e.g. "30 minutes", "1.5 hours",
// "45 mins", "2h".
var durationPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|minutes?|mins?|m)$`)

// wordDurations covers the common spelled-out forms with no leading number.
var wordDurations = map[string]int{
	"an hour":                   60,
	"one hour":                  60,
	"a hour":                    60,
	"an hour and a half":        90,
	"one and a half hours":      90,
	"hour and a half":           90,
	"half an hour":              30,
	"half hour":                 30,
	"a half hour":               30,
	"quarter of an hour":        15,
	"a quarter of an hour":      15,
	"quarter hour":              15,
	"three quarters of an hour": 45,
	"a minute":                  1,
	"a couple of hours":         120,
	"a couple hours":            120,
	"a few minutes":             5,
}

// ResolveDuration turns a duration expression into a whole minute count.
// An empty expression triggers the estimation policy: the rounded category
// average when history exists, otherwise fallbackMinutes; either way the
// returned estimated flag is set. A non-empty expression that does not parse
// fails with ErrUnresolvedDuration.
func ResolveDuration(expr string, history DurationHistory, fallbackMinutes int) (minutes int, estimated bool, err error) {
	normalized := normalizeDurationExpr(expr)
	if normalized == "" {
		return estimateDuration(history, fallbackMinutes), true, nil
	}

	if m, ok := wordDurations[normalized]; ok {
		return m, false, nil
	}

	groups := durationPattern.FindStringSubmatch(normalized)
	if groups == nil {
		return 0, false, fmt.Errorf("%w: %q", ErrUnresolvedDuration, expr)
	}

	value, decErr := decimal.NewFromString(groups[1])
	if decErr != nil {
		return 0, false, fmt.Errorf("%w: %q", ErrUnresolvedDuration, expr)
	}

	switch unit := groups[2]; unit[0] {
	case 'h':
		value = value.Mul(sixty)
	case 'm':
		// already minutes
	}

	return int(value.Round(0).IntPart()), false, nil
}

// estimateDuration applies the documented default policy for absent durations.
func estimateDuration(history DurationHistory, fallbackMinutes int) int {
	if history.Entries > 0 && history.AverageMinutes > 0 {
		return int(math.Round(history.AverageMinutes))
	}
	return fallbackMinutes
}

func normalizeDurationExpr(expr string) string {
	s := strings.ToLower(strings.TrimSpace(expr))
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimPrefix(s, "for ")
	s = strings.TrimPrefix(s, "about ")
	s = strings.TrimPrefix(s, "around ")
	s = strings.TrimPrefix(s, "roughly ")
	return strings.TrimSpace(s)
}
