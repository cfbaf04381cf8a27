package broadcast

import (
	"errors"
	"testing"
	"time"
)

func TestResolveActiveEmpty(t *testing.T) {
	_, err := ResolveActive(nil, 1200)
	if !errors.Is(err, ErrNoActiveBroadcast) {
		t.Fatalf("ResolveActive(nil) error = %v, want ErrNoActiveBroadcast", err)
	}
}

func TestResolveActiveSingle(t *testing.T) {
	only := Segment{ID: "only", Start: 1500}
	for _, now := range []Clock{0, 15, 559, 600, 1200, 1500, 2359} {
		got, err := ResolveActive([]Segment{only}, now)
		if err != nil {
			t.Fatalf("now=%d: unexpected error %v", now, err)
		}
		if got != only {
			t.Errorf("now=%d: got %+v, want %+v", now, got, only)
		}
	}
}

func TestResolveActive(t *testing.T) {
	// Deliberately unordered.
	segments := []Segment{
		{ID: "night", Start: 2430},
		{ID: "morning", Start: 800},
		{ID: "afternoon", Start: 1400},
	}
	tests := []struct {
		name string
		now  Clock
		want string
	}{
		{"mid morning", 1200, "morning"},
		{"exactly at morning start", 800, "morning"},
		{"before first start", 700, "morning"},
		{"exactly at afternoon start", 1400, "afternoon"},
		{"late evening", 2300, "afternoon"},
		{"after midnight before night start", 15, "afternoon"},
		{"exactly at night start", 30, "night"},
		{"after night start", 45, "night"},
		{"just before day start", 559, "night"},
		{"day start is not wrapped", 600, "morning"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveActive(segments, tt.now)
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if got.ID != tt.want {
				t.Errorf("ResolveActive(now=%d) = %q, want %q", tt.now, got.ID, tt.want)
			}
		})
	}
}

func TestResolveActiveDoesNotMutateInput(t *testing.T) {
	segments := []Segment{{ID: "b", Start: 1400}, {ID: "a", Start: 800}}
	if _, err := ResolveActive(segments, 900); err != nil {
		t.Fatal(err)
	}
	if segments[0].ID != "b" || segments[1].ID != "a" {
		t.Errorf("input reordered: %+v", segments)
	}
}

func TestResolveActiveTieBreak(t *testing.T) {
	segments := []Segment{
		{ID: "first", Start: 900},
		{ID: "second", Start: 900},
		{ID: "later", Start: 1500},
	}
	for i := 0; i < 50; i++ {
		// The last of several simultaneous starts wins: the scan only stops at a
		// boundary that is still in the future.
		got, err := ResolveActive(segments, 1000)
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != "second" {
			t.Fatalf("run %d: got %q, want second", i, got.ID)
		}
	}

	tail := []Segment{{ID: "x", Start: 2000}, {ID: "y", Start: 2000}}
	for i := 0; i < 50; i++ {
		got, _ := ResolveActive(tail, 2100)
		if got.ID != "y" {
			t.Fatalf("run %d: got %q, want y", i, got.ID)
		}
	}
}

func TestClockOf(t *testing.T) {
	tests := []struct {
		h, m int
		want Clock
	}{
		{0, 15, 15},
		{5, 59, 559},
		{12, 0, 1200},
		{23, 59, 2359},
	}
	for _, tt := range tests {
		ts := time.Date(2024, time.March, 5, tt.h, tt.m, 42, 0, time.UTC)
		if got := ClockOf(ts); got != tt.want {
			t.Errorf("ClockOf(%02d:%02d) = %d, want %d", tt.h, tt.m, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want Clock }{
		{0, 2400},
		{15, 2415},
		{559, 2959},
		{600, 600},
		{2359, 2359},
		{2430, 2430},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
