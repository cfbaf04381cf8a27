// Package broadcast picks the segment of a broadcast day that is currently on air.
//
// Segment start times use the hour*100+minute convention of the upstream programme data,
// where hours past 23 belong to the same broadcast day (00:30 the morning after is 2430).
package broadcast

import (
	"errors"
	"sort"
	"time"
)

// ErrNoActiveBroadcast is returned by ResolveActive when there is nothing to choose from.
var ErrNoActiveBroadcast = errors.New("no active broadcast")

// DayStart is the clock value before which a wall-clock time belongs to the previous
// broadcast day.
const DayStart Clock = 600

// Clock is a time of day encoded as hour*100+minute.
type Clock int

// ClockOf returns the clock value of t in t's location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*100 + t.Minute())
}

// Normalize moves early-morning times into the after-midnight range of the previous
// broadcast day.
func Normalize(c Clock) Clock {
	if c < DayStart {
		return c + 2400
	}
	return c
}

// Segment is one scheduled slot of a broadcast day.
type Segment struct {
	ID    string
	Start Clock
}

// ResolveActive returns the segment airing at now. A segment covers [Start, next Start);
// once the last segment has started it stays active. A lone segment is always active.
func ResolveActive(segments []Segment, now Clock) (Segment, error) {
	switch len(segments) {
	case 0:
		return Segment{}, ErrNoActiveBroadcast
	case 1:
		return segments[0], nil
	}

	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	now = Normalize(now)
	for i := 0; i < len(sorted)-1; i++ {
		if now < sorted[i+1].Start {
			return sorted[i], nil
		}
	}
	return sorted[len(sorted)-1], nil
}
