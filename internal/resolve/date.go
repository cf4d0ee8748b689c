// Package resolve converts the ambiguous sub-expressions produced by the
// extractor (date and duration phrases) into canonical values.
package resolve

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrAmbiguousDate indicates the date expression could not be parsed. Callers
// are expected to fall back to the reference date and tell the user.
var ErrAmbiguousDate = errors.New("ambiguous date expression")

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// ResolveDate turns a date expression plus a reference "now" into a UTC
// calendar date. An empty expression resolves to the reference date. Literal
// today/yesterday and weekday names are offsets from the reference; a weekday
// name means the most recent such weekday on or before the reference date.
// Explicit "Month Day[, Year]" expressions parse to an absolute date; when the
// year is omitted the reference year is assumed, and a result that would land
// in the future relative to the reference rolls back one year. Anything else
// fails with ErrAmbiguousDate.
func ResolveDate(expr string, ref time.Time) (time.Time, error) {
	refDate := truncateToDate(ref)

	normalized := normalizeDateExpr(expr)
	if normalized == "" {
		return refDate, nil
	}

	switch normalized {
	case "today", "tonight", "this morning", "this afternoon", "this evening", "earlier today":
		return refDate, nil
	case "yesterday", "last night", "yesterday morning", "yesterday evening":
		return refDate.AddDate(0, 0, -1), nil
	}

	if wd, ok := weekdays[trimDatePrefixes(normalized)]; ok {
		offset := int(refDate.Weekday()-wd+7) % 7
		return refDate.AddDate(0, 0, -offset), nil
	}

	if date, err := parseMonthDay(trimDatePrefixes(normalized), refDate); err == nil {
		return date, nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrAmbiguousDate, expr)
}

// parseMonthDay handles "Month Day", "Month Day, Year" and abbreviated forms.
func parseMonthDay(expr string, refDate time.Time) (time.Time, error) {
	fields := strings.Fields(strings.ReplaceAll(expr, ",", " "))
	if len(fields) < 2 || len(fields) > 3 {
		return time.Time{}, ErrAmbiguousDate
	}

	month, ok := months[fields[0]]
	if !ok {
		return time.Time{}, ErrAmbiguousDate
	}

	day, err := strconv.Atoi(stripOrdinal(fields[1]))
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, ErrAmbiguousDate
	}

	year := refDate.Year()
	explicitYear := false
	if len(fields) == 3 {
		year, err = strconv.Atoi(fields[2])
		if err != nil || year < 1000 {
			return time.Time{}, ErrAmbiguousDate
		}
		explicitYear = true
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Month() != month || date.Day() != day {
		// time.Date normalized an impossible day (e.g. February 30).
		return time.Time{}, ErrAmbiguousDate
	}

	// Bare "Month Day" that lands in the future refers to last year's date.
	if !explicitYear && date.After(refDate) {
		date = date.AddDate(-1, 0, 0)
	}
	return date, nil
}

func normalizeDateExpr(expr string) string {
	s := strings.ToLower(strings.TrimSpace(expr))
	return strings.TrimSuffix(s, ".")
}

func trimDatePrefixes(s string) string {
	for _, prefix := range []string{"on ", "last ", "this past "} {
		s = strings.TrimPrefix(s, prefix)
	}
	return strings.TrimSpace(s)
}

func stripOrdinal(day string) string {
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if trimmed, ok := strings.CutSuffix(day, suffix); ok {
			return trimmed
		}
	}
	return day
}

func truncateToDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
