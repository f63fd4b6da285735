package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/date"
)

const (
	untilFormat     = "20060102T150405Z"
	untilDateFormat = "20060102"
)

var freqs = map[string]date.Period{
	"DAILY":   date.Daily,
	"WEEKLY":  date.Weekly,
	"MONTHLY": date.Monthly,
	"YEARLY":  date.Yearly,
}

var weekdays = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// String formats r as an RFC 5545 RRULE, without DTSTART:
// "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE;COUNT=10".
func (r Recurrence) String() string {
	parts := []string{"FREQ=" + strings.ToUpper(r.Period.String())}
	if r.step() != 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.step()))
	}
	if offsets := r.offsets(); len(offsets) > 0 {
		days := make([]string, len(offsets))
		for i, o := range offsets {
			days[i] = strings.ToUpper(time.Weekday((o + 1) % 7).String()[:2])
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if u, ok := r.End.Until(); ok {
		parts = append(parts, "UNTIL="+u.UTC().Format(untilFormat))
	}
	if c, ok := r.End.Count(); ok {
		parts = append(parts, "COUNT="+strconv.Itoa(c))
	}
	return strings.Join(parts, ";")
}

// Parse parses an RFC 5545 RRULE. The "RRULE:" prefix is optional.
//
// Supported parts are FREQ (DAILY, WEEKLY, MONTHLY or YEARLY), INTERVAL,
// BYDAY (weekly only), UNTIL and COUNT. The start of the recurrence is not
// part of the rule and must be set by the caller.
func Parse(rrule string) (Recurrence, error) {
	text := strings.TrimSpace(rrule)
	text = strings.TrimPrefix(strings.TrimPrefix(text, "RRULE:"), "rrule:")
	fail := func(format string, args ...any) (Recurrence, error) {
		return Recurrence{}, &bookkeeping.ParseError{Input: rrule, Reason: fmt.Sprintf(format, args...)}
	}
	if text == "" {
		return fail("empty rule")
	}

	r := Recurrence{Multiplier: 1}
	seen := make(map[string]bool)
	for _, part := range strings.Split(text, ";") {
		key, value, ok := strings.Cut(part, "=")
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.ToUpper(strings.TrimSpace(value))
		if !ok || value == "" {
			return fail("malformed part %q", part)
		}
		if seen[key] {
			return fail("duplicate %s", key)
		}
		seen[key] = true

		switch key {
		case "FREQ":
			p, ok := freqs[value]
			if !ok {
				return fail("unsupported frequency %q", value)
			}
			r.Period = p
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fail("invalid interval %q", value)
			}
			r.Multiplier = n
		case "BYDAY":
			for _, d := range strings.Split(value, ",") {
				wd, ok := weekdays[d]
				if !ok {
					return fail("invalid weekday %q", d)
				}
				r.ByDays = append(r.ByDays, wd)
			}
		case "UNTIL":
			u, err := time.Parse(untilFormat, value)
			if err != nil {
				if u, err = time.Parse(untilDateFormat, value); err != nil {
					return fail("invalid until %q", value)
				}
			}
			r.End = Until(u)
		case "COUNT":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fail("invalid count %q", value)
			}
			r.End = Count(n)
		default:
			return fail("unsupported part %s", key)
		}
	}
	if !seen["FREQ"] {
		return fail("FREQ is required")
	}
	if seen["UNTIL"] && seen["COUNT"] {
		return fail("UNTIL and COUNT are exclusive")
	}
	if len(r.ByDays) > 0 && r.Period != date.Weekly {
		return fail("BYDAY requires FREQ=WEEKLY")
	}
	return r, nil
}

// MustParse is like Parse but panics on error.
func MustParse(rrule string) Recurrence {
	r, err := Parse(rrule)
	if err != nil {
		panic(err.Error())
	}
	return r
}

// WithStart returns a copy of r starting at start.
func (r Recurrence) WithStart(start time.Time) Recurrence {
	r.Start = start
	return r
}
