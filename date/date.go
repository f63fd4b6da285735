// Package date provides calendar days, periods and time intervals used to
// schedule actions and select transactions.
package date

import (
	"encoding/json"
	"fmt"
	"time"
)

// Layout is the ISO-8601 layout dates are written in.
const Layout = "2006-01-02"

// lenient also accepts single digit months and days.
const lenient = "2006-1-2"

// epoch is the Unix time of 0001-01-01, the zero Date.
var epoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()

const secondsPerDay = 24 * 60 * 60

// Date is a calendar day with no time zone attached. It is comparable and its
// zero value is January 1, year 1.
type Date struct {
	n int64 // days since the zero date
}

// New returns the day for year, month and day, normalized like time.Date does
// (October 32 is November 1).
func New(year int, month time.Month, day int) Date {
	return Of(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Of returns the calendar day of t in t's own location.
func Of(t time.Time) Date {
	y, m, d := t.Date()
	u := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	return Date{n: (u - epoch) / secondsPerDay}
}

// Today returns the current day in the local time zone.
func Today() Date { return Of(time.Now()) }

func (d Date) utc() time.Time { return time.Unix(epoch+d.n*secondsPerDay, 0).UTC() }

// In returns midnight at the start of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	y, m, dd := d.utc().Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, loc)
}

func (d Date) Year() int { return d.utc().Year() }
func (d Date) Month() time.Month { return d.utc().Month() }
func (d Date) Day() int { return d.utc().Day() }
func (d Date) Weekday() time.Weekday { return d.utc().Weekday() }
func (d Date) IsZero() bool { return d.n == 0 }
func (d Date) Before(x Date) bool { return d.n < x.n }
func (d Date) After(x Date) bool { return d.n > x.n }
func (d Date) Add(days int) Date { return Date{n: d.n + int64(days)} }
func (d Date) Sub(x Date) int { return int(d.n - x.n) }
func (d Date) String() string { return d.utc().Format(Layout) }

// Compare returns -1, 0 or +1 as d is before, equal to or after x.
func (d Date) Compare(x Date) int {
	switch {
	case d.n < x.n:
		return -1
	case d.n > x.n:
		return 1
	}
	return 0
}

// StartOf returns the first day of the period containing d. Weeks start on
// Monday.
func (d Date) StartOf(p Period) Date {
	t := d.utc()
	switch p {
	case Weekly:
		return d.Add(-((int(t.Weekday()) + 6) % 7))
	case Monthly:
		return New(t.Year(), t.Month(), 1)
	case Yearly:
		return New(t.Year(), time.January, 1)
	}
	return d
}

// Parse reads a day like "2025-07-01" or "2025-7-1".
func Parse(s string) (Date, error) {
	t, err := time.Parse(lenient, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return Of(t), nil
}

// MustParse is like Parse but panics on error. For tests and constants.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
