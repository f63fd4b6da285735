package date

import (
	"fmt"
	"time"
)

// Interval is a half-open time window [From, To).
//
// A zero From means since the beginning of time, a zero To means without
// upper bound. The zero Interval covers all times.
type Interval struct{ From, To time.Time }

// All returns the interval covering all times.
func All() Interval { return Interval{} }

// Since returns the interval starting at t without upper bound.
func Since(t time.Time) Interval { return Interval{From: t} }

// NewRange returns the interval covering the whole period containing day d,
// in location loc.
func NewRange(d Date, p Period, loc *time.Location) Interval {
	start := d.StartOf(p).In(loc)
	return Interval{From: start, To: p.AddTo(start, 1)}
}

// Contains reports whether t is in the interval.
func (r Interval) Contains(t time.Time) bool {
	return (r.From.IsZero() || !t.Before(r.From)) && (r.To.IsZero() || t.Before(r.To))
}

// IsBounded reports whether the interval has an upper bound.
func (r Interval) IsBounded() bool { return !r.To.IsZero() }

func (r Interval) String() string {
	from, to := "-inf", "+inf"
	if !r.From.IsZero() {
		from = r.From.Format(time.RFC3339)
	}
	if !r.To.IsZero() {
		to = r.To.Format(time.RFC3339)
	}
	return fmt.Sprintf("[%s, %s)", from, to)
}
