// Package timecode provides the time primitives for the timeline engine.
//
// A TimePoint is an integer count of microseconds on the timeline. It is
// monotonic and carries no wall-clock meaning. A TimeRange is a half-open
// interval [Start, End) over TimePoints. Both are immutable value types;
// every operation returns a new value.
package timecode

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimePoint is a position on the timeline in microseconds.
type TimePoint int64

// Unit is the smallest representable duration: one microsecond.
const Unit TimePoint = 1

// PerSecond is the number of TimePoint units in one second.
const PerSecond TimePoint = 1_000_000

// FromSeconds converts a floating-point second count to a TimePoint.
func FromSeconds(s float64) TimePoint {
	return TimePoint(s * float64(PerSecond))
}

// FromDuration converts a time.Duration to a TimePoint.
func FromDuration(d time.Duration) TimePoint {
	return TimePoint(d / time.Microsecond)
}

// Seconds returns the point as floating-point seconds.
func (t TimePoint) Seconds() float64 {
	return float64(t) / float64(PerSecond)
}

// Duration returns the point as a time.Duration from timeline zero.
func (t TimePoint) Duration() time.Duration {
	return time.Duration(t) * time.Microsecond
}

// Clamp returns t limited to the range [lo, hi].
func (t TimePoint) Clamp(lo, hi TimePoint) TimePoint {
	if t < lo {
		return lo
	}
	if t > hi {
		return hi
	}
	return t
}

// Before returns true if t is before other.
func (t TimePoint) Before(other TimePoint) bool {
	return t < other
}

// After returns true if t is after other.
func (t TimePoint) After(other TimePoint) bool {
	return t > other
}

// String formats the point as seconds with microsecond precision,
// trailing zeros trimmed.
func (t TimePoint) String() string {
	s := strconv.FormatFloat(t.Seconds(), 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s + "s"
}

// Parse reads a TimePoint from a string. Accepted forms:
//
//	"90"        seconds
//	"90.25"     fractional seconds
//	"1m30s"     Go duration syntax
//	"1:30"      minutes:seconds
//	"1:02:30.5" hours:minutes:seconds
func Parse(s string) (TimePoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse timecode: empty string")
	}

	if strings.Contains(s, ":") {
		return parseClock(s)
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FromSeconds(f), nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return FromDuration(d), nil
	}

	return 0, fmt.Errorf("parse timecode %q: unrecognized format", s)
}

// parseClock parses "mm:ss" or "hh:mm:ss" with optional fractional seconds.
func parseClock(s string) (TimePoint, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("parse timecode %q: expected mm:ss or hh:mm:ss", s)
	}

	total := 0.0
	for _, part := range parts {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("parse timecode %q: bad component %q", s, part)
		}
		total = total*60 + f
	}
	return FromSeconds(total), nil
}

// TimeRange is a half-open interval [Start, End) on the timeline.
// A range with Start == End has zero duration and contains nothing.
type TimeRange struct {
	Start TimePoint
	End   TimePoint
}

// NewRange creates a range, swapping the endpoints if given out of order.
func NewRange(start, end TimePoint) TimeRange {
	if end < start {
		start, end = end, start
	}
	return TimeRange{Start: start, End: end}
}

// RangeAt creates a range starting at start with the given duration.
func RangeAt(start, duration TimePoint) TimeRange {
	if duration < 0 {
		duration = 0
	}
	return TimeRange{Start: start, End: start + duration}
}

// Duration returns End - Start.
func (r TimeRange) Duration() TimePoint {
	return r.End - r.Start
}

// IsEmpty returns true if the range has zero duration.
func (r TimeRange) IsEmpty() bool {
	return r.Start == r.End
}

// Contains returns true if t lies inside [Start, End).
// An empty range contains nothing.
func (r TimeRange) Contains(t TimePoint) bool {
	return t >= r.Start && t < r.End
}

// ContainsRange returns true if other lies entirely within r.
func (r TimeRange) ContainsRange(other TimeRange) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// Overlaps returns true if the two ranges share any instant.
// Touching endpoints do not overlap (the interval is half-open).
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// Intersect returns the overlapping portion of the two ranges.
// If they do not overlap the result is empty.
func (r TimeRange) Intersect(other TimeRange) TimeRange {
	start := r.Start
	if other.Start > start {
		start = other.Start
	}
	end := r.End
	if other.End < end {
		end = other.End
	}
	if end < start {
		return TimeRange{Start: start, End: start}
	}
	return TimeRange{Start: start, End: end}
}

// Union returns the smallest range covering both ranges,
// including any gap between them.
func (r TimeRange) Union(other TimeRange) TimeRange {
	start := r.Start
	if other.Start < start {
		start = other.Start
	}
	end := r.End
	if other.End > end {
		end = other.End
	}
	return TimeRange{Start: start, End: end}
}

// Shift returns the range moved by delta.
func (r TimeRange) Shift(delta TimePoint) TimeRange {
	return TimeRange{Start: r.Start + delta, End: r.End + delta}
}

// Clamp returns the range limited to lie within bounds.
func (r TimeRange) Clamp(bounds TimeRange) TimeRange {
	return r.Intersect(bounds)
}

// String returns "[start, end)" with both points formatted as seconds.
func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}
