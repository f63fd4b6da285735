package date

import (
	"strings"
	"testing"
	"time"
)

func TestPeriod_AddTo(t *testing.T) {
	at := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 9, 30, 0, 0, time.UTC) }
	testCases := []struct {
		name string
		p    Period
		in   time.Time
		n    int
		want time.Time
	}{
		{"one day", Daily, at(2025, time.December, 31), 1, at(2026, time.January, 1)},
		{"two weeks", Weekly, at(2025, time.September, 8), 2, at(2025, time.September, 22)},
		{"month end clamps", Monthly, at(2025, time.January, 31), 1, at(2025, time.February, 28)},
		{"month end clamps in leap year", Monthly, at(2024, time.January, 31), 1, at(2024, time.February, 29)},
		{"three months from the 31st", Monthly, at(2025, time.January, 31), 3, at(2025, time.April, 30)},
		{"backward", Monthly, at(2025, time.March, 31), -1, at(2025, time.February, 28)},
		{"leap day yearly", Yearly, at(2024, time.February, 29), 1, at(2025, time.February, 28)},
		{"four years from leap day", Yearly, at(2024, time.February, 29), 4, at(2028, time.February, 29)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.AddTo(tc.in, tc.n); !got.Equal(tc.want) {
				t.Errorf("%v.AddTo(%v, %d) = %v, want %v", tc.p, tc.in, tc.n, got, tc.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	for _, p := range []Period{Daily, Weekly, Monthly, Yearly} {
		for _, in := range []string{p.String(), p.Name(), strings.ToUpper(p.Name()), " " + p.String()} {
			got, err := ParsePeriod(in)
			if err != nil || got != p {
				t.Errorf("ParsePeriod(%q) = %v, %v, want %v", in, got, err, p)
			}
		}
	}
	if _, err := ParsePeriod("fortnight"); err == nil {
		t.Error("ParsePeriod(fortnight): want error")
	}
	if got := Period(9).String(); got != "Period(9)" {
		t.Errorf("String() of an invalid period = %q", got)
	}
}

func TestInterval_Contains(t *testing.T) {
	from := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	r := Interval{From: from, To: to}

	if !r.Contains(from) {
		t.Error("Contains(From) = false, want true")
	}
	if r.Contains(to) {
		t.Error("Contains(To) = true, want false")
	}
	if !All().Contains(time.Time{}) || !All().Contains(to.AddDate(100, 0, 0)) {
		t.Error("All() must contain every instant")
	}
	if Since(to).Contains(from) {
		t.Error("Since(to).Contains(from) = true, want false")
	}
}

func TestNewRange(t *testing.T) {
	r := NewRange(New(2024, time.February, 15), Monthly, time.UTC)
	want := Interval{
		From: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	if !r.From.Equal(want.From) || !r.To.Equal(want.To) {
		t.Errorf("NewRange() = %v, want %v", r, want)
	}
}
