package renderer

import (
	"io"
	"strings"
	"time"

	"github.com/etnz/bookkeeping"
)

// optional writes the section produced by write to w, unless write reports
// it has nothing to show.
func optional(w io.Writer, write func(io.Writer) bool) {
	var section strings.Builder
	if write(&section) {
		io.WriteString(w, section.String())
	}
}

func amount(m bookkeeping.Money) string {
	if m.IsZero() {
		return ""
	}
	return m.Formatted()
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// short truncates identifiers to 8 characters.
func short(uid string) string { return uid[:min(8, len(uid))] }
