// Package recurrence evaluates periodic schedules: every N days, weeks, months
// or years, optionally on given weekdays, until a date or for a number of
// occurrences.
//
// Rules are stored as RFC 5545 RRULE text, see Parse and Recurrence.String.
package recurrence

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/etnz/bookkeeping/date"
)

// End is the end condition of a Recurrence. The zero End never ends.
type End struct {
	until time.Time
	count int
}

// NoEnd returns the condition of a recurrence that never ends.
func NoEnd() End { return End{} }

// Until returns the condition of a recurrence ending at t, inclusive.
func Until(t time.Time) End { return End{until: t} }

// Count returns the condition of a recurrence ending after n occurrences.
func Count(n int) End { return End{count: n} }

// Until returns the end date, if the recurrence ends by date.
func (e End) Until() (time.Time, bool) { return e.until, !e.until.IsZero() }

// Count returns the number of occurrences, if the recurrence ends by count.
func (e End) Count() (int, bool) { return e.count, e.count > 0 }

// IsNever reports whether the recurrence never ends.
func (e End) IsNever() bool { return e.until.IsZero() && e.count <= 0 }

// Recurrence is a periodic schedule. It is a value: evaluation never changes it.
type Recurrence struct {
	Period     date.Period
	Multiplier int            // repeat every Multiplier periods, at least 1
	ByDays     []time.Weekday // weekly recurrences only, empty means the weekday of Start
	Start      time.Time
	End        End
}

// New returns a recurrence every multiplier periods from start, without end.
func New(period date.Period, multiplier int, start time.Time) Recurrence {
	return Recurrence{Period: period, Multiplier: max(multiplier, 1), Start: start}
}

// Validate checks that r can be evaluated.
func (r Recurrence) Validate() error {
	if r.Multiplier < 1 {
		return fmt.Errorf("recurrence multiplier must be positive, got %d", r.Multiplier)
	}
	if len(r.ByDays) > 0 && r.Period != date.Weekly {
		return fmt.Errorf("weekdays are only supported by weekly recurrences, got %s", r.Period)
	}
	if r.End.count < 0 {
		return fmt.Errorf("recurrence count must be positive, got %d", r.End.count)
	}
	return nil
}

func (r Recurrence) step() int { return max(r.Multiplier, 1) }

// offsets returns the weekdays of r as days after Monday, sorted.
func (r Recurrence) offsets() []int {
	var offsets []int
	for _, wd := range r.ByDays {
		o := (int(wd) + 6) % 7
		if !slices.Contains(offsets, o) {
			offsets = append(offsets, o)
		}
	}
	slices.Sort(offsets)
	return offsets
}

// all returns every occurrence of r with its index, ignoring the end
// condition, starting with the first occurrence at or after t.
func (r Recurrence) all(t time.Time) iter.Seq2[int, time.Time] {
	if offsets := r.offsets(); len(offsets) > 0 {
		return r.byDays(offsets, t)
	}
	return func(yield func(int, time.Time) bool) {
		n := r.estimate(t)
		// the estimate may overshoot by one period on clamped months.
		for n > 0 && !r.Occurrence(n-1).Before(t) {
			n--
		}
		for ; ; n++ {
			o := r.Occurrence(n)
			if o.Before(t) {
				continue
			}
			if !yield(n, o) {
				return
			}
		}
	}
}

// estimate returns an index whose occurrence is close to, and not after, t.
func (r Recurrence) estimate(t time.Time) int {
	if !t.After(r.Start) {
		return 0
	}
	var periods int
	switch r.Period {
	case date.Daily:
		periods = int(t.Sub(r.Start) / (24 * time.Hour))
	case date.Weekly:
		periods = int(t.Sub(r.Start) / (7 * 24 * time.Hour))
	case date.Monthly, date.Yearly:
		ty, tm, _ := t.Date()
		sy, sm, _ := r.Start.Date()
		periods = (ty-sy)*12 + int(tm) - int(sm)
		if r.Period == date.Yearly {
			periods /= 12
		}
	}
	return max(periods/r.step()-1, 0)
}

// byDays enumerates weekly occurrences on the given days after Monday.
// Weeks start on Monday, the first week is the one containing Start.
func (r Recurrence) byDays(offsets []int, t time.Time) iter.Seq2[int, time.Time] {
	return func(yield func(int, time.Time) bool) {
		monday := r.Start.AddDate(0, 0, -((int(r.Start.Weekday()) + 6) % 7))
		n := 0
		for week := 0; ; week += r.step() {
			base := monday.AddDate(0, 0, 7*week)
			for _, o := range offsets {
				occ := base.AddDate(0, 0, o)
				if occ.Before(r.Start) {
					continue
				}
				if !occ.Before(t) && !yield(n, occ) {
					return
				}
				n++
			}
		}
	}
}

// Occurrence returns the n-th occurrence of r, counting from 0, ignoring the
// end condition. Month and year steps are computed from Start and clamp to the
// end of shorter months: monthly from January 31st gives February 28th, then
// March 31st.
func (r Recurrence) Occurrence(n int) time.Time {
	if offsets := r.offsets(); len(offsets) > 0 {
		for i, t := range r.byDays(offsets, r.Start) {
			if i == n {
				return t
			}
		}
	}
	return r.Period.AddTo(r.Start, n*r.step())
}

// ends reports whether the n-th occurrence at t is past the end condition.
func (r Recurrence) ends(n int, t time.Time) bool {
	if c, ok := r.End.Count(); ok && n >= c {
		return true
	}
	if u, ok := r.End.Until(); ok && t.After(u) {
		return true
	}
	return false
}

// Occurrences returns all the occurrences of r. The sequence is infinite for
// recurrences without end.
func (r Recurrence) Occurrences() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for n, t := range r.all(r.Start) {
			if r.ends(n, t) || !yield(t) {
				return
			}
		}
	}
}

// Between returns the occurrences of r in [from, to], both bounds included.
func (r Recurrence) Between(from, to time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for n, t := range r.all(from) {
			if t.After(to) || r.ends(n, t) || !yield(t) {
				return
			}
		}
	}
}

// NextOnOrAfter returns the earliest occurrence at or after t, if any.
func (r Recurrence) NextOnOrAfter(t time.Time) (time.Time, bool) {
	for n, o := range r.all(t) {
		if r.ends(n, o) {
			return time.Time{}, false
		}
		return o, true
	}
	return time.Time{}, false
}

// EndTime returns the last instant of r: the last occurrence of a count
// rule, or the until date. Recurrences without end return false.
func (r Recurrence) EndTime() (time.Time, bool) {
	if c, ok := r.End.Count(); ok {
		return r.Occurrence(c - 1), true
	}
	return r.End.Until()
}

// Advance returns t moved by one step of the recurrence.
func (r Recurrence) Advance(t time.Time) time.Time { return r.Period.AddTo(t, r.step()) }

// Describe returns a human readable description of r:
// "Every 2 weeks on Mon, Wed until 2025-06-01".
func (r Recurrence) Describe() string {
	var b strings.Builder
	if r.step() == 1 {
		fmt.Fprintf(&b, "Every %s", r.Period.Name())
	} else {
		fmt.Fprintf(&b, "Every %d %ss", r.step(), r.Period.Name())
	}
	if offsets := r.offsets(); len(offsets) > 0 {
		names := make([]string, len(offsets))
		for i, o := range offsets {
			names[i] = time.Weekday((o + 1) % 7).String()[:3]
		}
		fmt.Fprintf(&b, " on %s", strings.Join(names, ", "))
	}
	if u, ok := r.End.Until(); ok {
		fmt.Fprintf(&b, " until %s", date.Of(u))
	}
	if c, ok := r.End.Count(); ok {
		if c == 1 {
			b.WriteString(", once")
		} else {
			fmt.Fprintf(&b, ", %d times", c)
		}
	}
	return b.String()
}
