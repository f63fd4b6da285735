package date

import (
	"fmt"
	"strings"
	"time"
)

// Period is a calendar unit: a day, a week, a month or a year.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Yearly
)

var periodNames = [...]struct{ adverb, noun string }{
	Daily:   {"daily", "day"},
	Weekly:  {"weekly", "week"},
	Monthly: {"monthly", "month"},
	Yearly:  {"yearly", "year"},
}

func (p Period) valid() bool { return p >= Daily && p <= Yearly }

func (p Period) String() string {
	if !p.valid() {
		return fmt.Sprintf("Period(%d)", int(p))
	}
	return periodNames[p].adverb
}

// Name is the noun for one period, "day" for Daily.
func (p Period) Name() string {
	if !p.valid() {
		return "period"
	}
	return periodNames[p].noun
}

// ParsePeriod accepts both forms, "monthly" or "month", in any case.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, n := range periodNames {
		if s == n.adverb || s == n.noun {
			return Period(p), nil
		}
	}
	return Daily, fmt.Errorf("unknown period %q, expected day, week, month or year", s)
}

// AddTo moves t by n periods and keeps its wall clock.
//
// Monthly and yearly steps stay on the same day of the month, or on the last
// day when the target month is shorter: January 31 plus one month is the last
// day of February.
func (p Period) AddTo(t time.Time, n int) time.Time {
	switch p {
	case Daily:
		return t.AddDate(0, 0, n)
	case Weekly:
		return t.AddDate(0, 0, 7*n)
	case Monthly, Yearly:
		months := n
		if p == Yearly {
			months *= 12
		}
		y, m, d := t.Date()
		target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
		d = min(d, DaysIn(target.Year(), target.Month()))
		hh, mm, ss := t.Clock()
		return time.Date(target.Year(), target.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
	}
	panic(fmt.Sprintf("date: invalid period %d", int(p)))
}

// DaysIn returns the number of days of month in year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
