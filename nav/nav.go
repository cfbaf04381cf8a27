// Package nav encodes agenda navigation state into compact tokens that travel inside
// UI element identifiers, so a later click can be answered without any server-side session.
//
// Token layout: YYYY-MM-DD|<period>|<flags>
//
//	period: D (day) or W (week)
//	flags:  zero or more of C (committees), M (meetings), P (public), in that order,
//	        each present only when the filter is enabled.
package nav

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedToken is returned by Decode when a token cannot be parsed back into a State.
var ErrMalformedToken = errors.New("malformed navigation token")

const (
	separator  = "|"
	dateLayout = "2006-01-02"
	fieldCount = 3
)

// Period is the paging granularity of an agenda view.
type Period int

const (
	Day Period = iota
	Week
)

// Code returns the single letter used for p inside a token.
func (p Period) Code() string {
	if p == Week {
		return "W"
	}
	return "D"
}

func (p Period) String() string {
	if p == Week {
		return "week"
	}
	return "day"
}

// ParsePeriod maps a subcommand name ("day", "week") to a Period.
func ParsePeriod(s string) (Period, bool) {
	switch strings.ToLower(s) {
	case "day":
		return Day, true
	case "week":
		return Week, true
	}
	return Day, false
}

func periodFromCode(code string) (Period, error) {
	switch code {
	case "D":
		return Day, nil
	case "W":
		return Week, nil
	}
	return Day, fmt.Errorf("%w: unknown period %q", ErrMalformedToken, code)
}

// days is the number of calendar days one step of p covers.
func (p Period) days() int {
	if p == Week {
		return 7
	}
	return 1
}

// Filters selects which kinds of agenda entries a view includes.
type Filters struct {
	Public     bool
	Committees bool
	Meetings   bool
}

// flag letters in canonical order
const (
	flagCommittees = 'C'
	flagMeetings   = 'M'
	flagPublic     = 'P'
)

func (f Filters) encode() string {
	var b strings.Builder
	if f.Committees {
		b.WriteByte(flagCommittees)
	}
	if f.Meetings {
		b.WriteByte(flagMeetings)
	}
	if f.Public {
		b.WriteByte(flagPublic)
	}
	return b.String()
}

// decodeFilters never fails; letters it does not know are skipped.
func decodeFilters(s string) Filters {
	return Filters{
		Committees: strings.IndexByte(s, flagCommittees) >= 0,
		Meetings:   strings.IndexByte(s, flagMeetings) >= 0,
		Public:     strings.IndexByte(s, flagPublic) >= 0,
	}
}

// Direction is the paging direction of Advance.
type Direction int

const (
	Previous Direction = iota
	Next
)

// State is everything needed to redraw an agenda view.
type State struct {
	Date    Date
	Period  Period
	Filters Filters
}

// Encode serializes s into a token. Dates outside years 1..9999 do not survive Decode.
func Encode(s State) string {
	return s.Date.String() + separator + s.Period.Code() + separator + s.Filters.encode()
}

// Decode parses a token produced by Encode.
func Decode(token string) (State, error) {
	fields := strings.Split(token, separator)
	if len(fields) != fieldCount {
		return State{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedToken, fieldCount, len(fields))
	}
	d, err := ParseDate(fields[0])
	if err != nil {
		return State{}, err
	}
	p, err := periodFromCode(fields[1])
	if err != nil {
		return State{}, err
	}
	return State{Date: d, Period: p, Filters: decodeFilters(fields[2])}, nil
}

// Advance moves the reference date one period in the given direction.
func Advance(s State, dir Direction) State {
	n := s.Period.days()
	if dir == Previous {
		n = -n
	}
	s.Date = s.Date.AddDays(n)
	return s
}

// Date is a calendar day with no time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: bad date %q", ErrMalformedToken, s)
	}
	return DateOf(t), nil
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	// UTC has no DST gaps, so date normalization is exact.
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// Weekday reports the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

// Format renders d using a time layout, e.g. "02/01/2006".
func (d Date) Format(layout string) string {
	return d.In(time.UTC).Format(layout)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
