package resolve

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveDate(t *testing.T) {
	tests := []struct {
		name string
		expr string
		ref  time.Time
		want time.Time
	}{
		{"absent defaults to reference", "", date(2024, time.January, 10), date(2024, time.January, 10)},
		{"today", "today", date(2024, time.January, 10), date(2024, time.January, 10)},
		{"yesterday", "yesterday", date(2024, time.January, 10), date(2024, time.January, 9)},
		{"last night", "last night", date(2024, time.January, 10), date(2024, time.January, 9)},
		{"this morning", "this morning", date(2024, time.January, 10), date(2024, time.January, 10)},
		// 2024-01-10 is a Wednesday.
		{"same weekday resolves to reference", "wednesday", date(2024, time.January, 10), date(2024, time.January, 10)},
		{"earlier weekday this week", "Monday", date(2024, time.January, 10), date(2024, time.January, 8)},
		{"later weekday wraps to previous week", "friday", date(2024, time.January, 10), date(2024, time.January, 5)},
		{"abbreviated weekday", "tue", date(2024, time.January, 10), date(2024, time.January, 9)},
		{"last weekday", "last saturday", date(2024, time.January, 10), date(2024, time.January, 6)},
		{"month day same year", "January 9th", date(2024, time.March, 5), date(2024, time.January, 9)},
		{"month day rolls back when future", "December 25", date(2024, time.March, 5), date(2023, time.December, 25)},
		{"month day on reference date", "March 5", date(2024, time.March, 5), date(2024, time.March, 5)},
		{"explicit year kept even if future", "March 7, 2024", date(2024, time.March, 5), date(2024, time.March, 7)},
		{"abbreviated month", "Jan 9", date(2024, time.March, 5), date(2024, time.January, 9)},
		{"on prefix", "on January 2nd", date(2024, time.March, 5), date(2024, time.January, 2)},
		{"reference with time of day truncated", "today", time.Date(2024, time.January, 10, 23, 15, 0, 0, time.UTC), date(2024, time.January, 10)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveDate(tc.expr, tc.ref)
			if err != nil {
				t.Fatalf("ResolveDate(%q) returned error: %v", tc.expr, err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("ResolveDate(%q) = %s, want %s", tc.expr, got.Format(time.DateOnly), tc.want.Format(time.DateOnly))
			}
		})
	}
}

func TestResolveDateAmbiguous(t *testing.T) {
	ref := date(2024, time.January, 10)
	for _, expr := range []string{
		"sometime last month",
		"the other day",
		"February 30",
		"13 o'clock",
		"Januember 9",
	} {
		if _, err := ResolveDate(expr, ref); !errors.Is(err, ErrAmbiguousDate) {
			t.Fatalf("ResolveDate(%q) error = %v, want ErrAmbiguousDate", expr, err)
		}
	}
}
