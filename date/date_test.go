package date

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name string
		got  Date
		want string
	}{
		{"plain", New(2025, time.July, 31), "2025-07-31"},
		{"day overflow", New(2025, time.October, 32), "2025-11-01"},
		{"leap day", New(2024, time.February, 29), "2024-02-29"},
		{"no leap day", New(2025, time.February, 29), "2025-03-01"},
		{"before epoch of unix", New(1960, time.January, 1), "1960-01-01"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.got.String(); got != tc.want {
				t.Errorf("New() = %s, want %s", got, tc.want)
			}
		})
	}
	if !(Date{}).IsZero() || New(1, time.January, 1) != (Date{}) {
		t.Error("zero Date must be 0001-01-01")
	}
}

func TestArithmetic(t *testing.T) {
	d := New(2024, time.December, 31)
	if got := d.Add(1); got != New(2025, time.January, 1) {
		t.Errorf("Add(1) = %v", got)
	}
	if got := New(2025, time.March, 1).Sub(New(2025, time.February, 1)); got != 28 {
		t.Errorf("Sub() = %d, want 28", got)
	}
	if d.Compare(d.Add(1)) != -1 || d.Add(1).Compare(d) != 1 || d.Compare(d) != 0 {
		t.Error("Compare() is inconsistent")
	}
	if d.Year() != 2024 || d.Month() != time.December || d.Day() != 31 || d.Weekday() != time.Tuesday {
		t.Errorf("fields of %v are wrong", d)
	}
}

func TestJSON(t *testing.T) {
	var d Date
	if err := d.UnmarshalJSON([]byte(`"2025-7-4"`)); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}
	got, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(got) != `"2025-07-04"` {
		t.Errorf("MarshalJSON() = %s", got)
	}
}

func TestOf(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// 2025-03-01 01:00 in UTC+10 is still the 28th of February in UTC.
	ts := time.Date(2025, time.March, 1, 1, 0, 0, 0, loc)
	if got, want := Of(ts), New(2025, time.March, 1); got != want {
		t.Errorf("Of(%v) = %v, want %v", ts, got, want)
	}
	if got, want := Of(ts.UTC()), New(2025, time.February, 28); got != want {
		t.Errorf("Of(%v) = %v, want %v", ts.UTC(), got, want)
	}
}

func TestStartOf(t *testing.T) {
	testCases := []struct {
		name string
		in   Date
		p    Period
		want Date
	}{
		{"day", New(2025, time.September, 10), Daily, New(2025, time.September, 10)},
		{"a Wednesday", New(2025, time.September, 10), Weekly, New(2025, time.September, 8)},
		{"a Sunday", New(2025, time.September, 14), Weekly, New(2025, time.September, 8)},
		{"a Monday", New(2025, time.September, 8), Weekly, New(2025, time.September, 8)},
		{"month", New(2024, time.February, 15), Monthly, New(2024, time.February, 1)},
		{"year", New(2024, time.February, 15), Yearly, New(2024, time.January, 1)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.StartOf(tc.p); got != tc.want {
				t.Errorf("StartOf(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	d, err := Parse("2025-7-1")
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if want := New(2025, time.July, 1); d != want {
		t.Errorf("Parse() = %v, want %v", d, want)
	}
	if _, err := Parse("2025/07/01"); err == nil {
		t.Error("Parse(2025/07/01) expected an error")
	}
}
