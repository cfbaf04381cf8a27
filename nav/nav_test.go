package nav

import (
	"errors"
	"testing"
	"time"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{
			name:  "day no filters",
			state: State{Date: Date{2024, time.February, 29}, Period: Day},
			want:  "2024-02-29|D|",
		},
		{
			name:  "week all filters",
			state: State{Date: Date{2025, time.January, 6}, Period: Week, Filters: Filters{Public: true, Committees: true, Meetings: true}},
			want:  "2025-01-06|W|CMP",
		},
		{
			name:  "canonical order regardless of field order",
			state: State{Date: Date{2023, time.October, 1}, Period: Day, Filters: Filters{Public: true, Committees: true}},
			want:  "2023-10-01|D|CP",
		},
		{
			name:  "meetings only",
			state: State{Date: Date{2023, time.October, 1}, Period: Week, Filters: Filters{Meetings: true}},
			want:  "2023-10-01|W|M",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.state); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	dates := []Date{
		{2024, time.February, 29},
		{2024, time.December, 31},
		{1, time.January, 1},
		{9999, time.December, 31},
		{2000, time.March, 1},
	}
	for _, d := range dates {
		for _, p := range []Period{Day, Week} {
			for mask := 0; mask < 8; mask++ {
				s := State{
					Date:   d,
					Period: p,
					Filters: Filters{
						Public:     mask&1 != 0,
						Committees: mask&2 != 0,
						Meetings:   mask&4 != 0,
					},
				}
				token := Encode(s)
				got, err := Decode(token)
				if err != nil {
					t.Fatalf("Decode(%q) error = %v", token, err)
				}
				if got != s {
					t.Fatalf("Decode(Encode(%+v)) = %+v", s, got)
				}
			}
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	tokens := []string{
		"not-a-token",
		"2024-13-40|X|",
		"2024-02-30|D|",
		"2024-02-29|X|",
		"2024-02-29|D",
		"2024-02-29|D||",
		"29/02/2024|D|",
		"2024-2-9|D|",
		"",
		"|D|",
	}
	for _, tok := range tokens {
		t.Run(tok, func(t *testing.T) {
			_, err := Decode(tok)
			if !errors.Is(err, ErrMalformedToken) {
				t.Errorf("Decode(%q) error = %v, want ErrMalformedToken", tok, err)
			}
		})
	}
}

func TestDecodeIgnoresUnknownFlags(t *testing.T) {
	got, err := Decode("2024-05-14|W|PZxC9")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := State{Date: Date{2024, time.May, 14}, Period: Week, Filters: Filters{Public: true, Committees: true}}
	if got != want {
		t.Errorf("Decode() = %+v, want %+v", got, want)
	}
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name string
		from Date
		p    Period
		dir  Direction
		want Date
	}{
		{"day forward leap", Date{2024, time.February, 28}, Day, Next, Date{2024, time.February, 29}},
		{"day forward from leap", Date{2024, time.February, 29}, Day, Next, Date{2024, time.March, 1}},
		{"day forward year end", Date{2024, time.December, 31}, Day, Next, Date{2025, time.January, 1}},
		{"day back year start", Date{2025, time.January, 1}, Day, Previous, Date{2024, time.December, 31}},
		{"week forward month end", Date{2023, time.January, 28}, Week, Next, Date{2023, time.February, 4}},
		{"week back across leap day", Date{2024, time.March, 3}, Week, Previous, Date{2024, time.February, 25}},
		{"week forward year end", Date{2024, time.December, 29}, Week, Next, Date{2025, time.January, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Filters{Public: true, Meetings: true}
			got := Advance(State{Date: tt.from, Period: tt.p, Filters: f}, tt.dir)
			if got.Date != tt.want {
				t.Errorf("Advance() date = %v, want %v", got.Date, tt.want)
			}
			if got.Period != tt.p || got.Filters != f {
				t.Errorf("Advance() changed period or filters: %+v", got)
			}
		})
	}
}

func TestAdvanceSymmetry(t *testing.T) {
	start := Date{2023, time.December, 20}
	for i := 0; i < 500; i++ {
		d := start.AddDays(i)
		for _, p := range []Period{Day, Week} {
			s := State{Date: d, Period: p, Filters: Filters{Committees: true}}
			if got := Advance(Advance(s, Next), Previous); got != s {
				t.Fatalf("Advance(Advance(%v, Next), Previous) = %v", s, got)
			}
			if got := Advance(Advance(s, Previous), Next); got != s {
				t.Fatalf("Advance(Advance(%v, Previous), Next) = %v", s, got)
			}
		}
	}
}

func TestParsePeriod(t *testing.T) {
	if p, ok := ParsePeriod("week"); !ok || p != Week {
		t.Errorf("ParsePeriod(week) = %v, %v", p, ok)
	}
	if p, ok := ParsePeriod("Day"); !ok || p != Day {
		t.Errorf("ParsePeriod(Day) = %v, %v", p, ok)
	}
	if _, ok := ParsePeriod("month"); ok {
		t.Errorf("ParsePeriod(month) ok = true")
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 23:30 UTC on Dec 31 is already Jan 1 in Paris.
	ts := time.Date(2024, time.December, 31, 23, 30, 0, 0, time.UTC)
	if got := DateOf(ts.In(paris)); got != (Date{2025, time.January, 1}) {
		t.Errorf("DateOf() = %v", got)
	}
	if got := DateOf(ts); got != (Date{2024, time.December, 31}) {
		t.Errorf("DateOf(UTC) = %v", got)
	}
}
