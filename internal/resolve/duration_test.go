package resolve

import (
	"errors"
	"testing"
)

func TestResolveDurationGrammar(t *testing.T) {
	tests := []struct {
		expr string
		want int
	}{
		{"30 minutes", 30},
		{"an hour", 60},
		{"45 mins", 45},
		{"1.5 hours", 90},
		{"half an hour", 30},
		{"20 min", 20},
		{"2 hours", 120},
		{"1 hr", 60},
		{"90m", 90},
		{"2h", 120},
		{"0.25 hours", 15},
		{"for 30 minutes", 30},
		{"about an hour", 60},
		{"An Hour", 60},
		{"quarter of an hour", 15},
		{"0 minutes", 0},
	}

	for _, tc := range tests {
		minutes, estimated, err := ResolveDuration(tc.expr, DurationHistory{}, 30)
		if err != nil {
			t.Fatalf("ResolveDuration(%q) returned error: %v", tc.expr, err)
		}
		if estimated {
			t.Fatalf("ResolveDuration(%q) unexpectedly estimated", tc.expr)
		}
		if minutes != tc.want {
			t.Fatalf("ResolveDuration(%q) = %d, want %d", tc.expr, minutes, tc.want)
		}
	}
}

func TestResolveDurationAbsentUsesCategoryAverage(t *testing.T) {
	minutes, estimated, err := ResolveDuration("", DurationHistory{AverageMinutes: 42.4, Entries: 7}, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !estimated {
		t.Fatal("expected estimated flag")
	}
	if minutes != 42 {
		t.Fatalf("expected rounded average 42, got %d", minutes)
	}
}

func TestResolveDurationAbsentUsesDefault(t *testing.T) {
	minutes, estimated, err := ResolveDuration("", DurationHistory{}, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !estimated {
		t.Fatal("expected estimated flag")
	}
	if minutes != 30 {
		t.Fatalf("expected default 30, got %d", minutes)
	}
}

func TestResolveDurationUnparseable(t *testing.T) {
	for _, expr := range []string{"a while", "30 parsecs", "plenty", "minutes 30"} {
		if _, _, err := ResolveDuration(expr, DurationHistory{}, 30); !errors.Is(err, ErrUnresolvedDuration) {
			t.Fatalf("ResolveDuration(%q) error = %v, want ErrUnresolvedDuration", expr, err)
		}
	}
}

func TestResolveDurationNeverNegative(t *testing.T) {
	minutes, _, err := ResolveDuration("0.004 hours", DurationHistory{}, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minutes < 0 {
		t.Fatalf("negative duration %d", minutes)
	}
}
