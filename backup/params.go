package backup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/bookkeeping"
)

// FormatJSONL is the only export format: one JSON record per line.
const FormatJSONL = "jsonl"

// ExportParams tells what a backup exports and where. They are stored as the
// tag of a backup action.
type ExportParams struct {
	Format      string    // defaults to FormatJSONL
	Target      string    // directory, defaults to the backuper's
	Since       time.Time // lower bound of the exported transactions, zero for the last run
	ExportAll   bool      // export exported transactions again
	DeleteAfter bool      // delete the transactions once exported
}

// String formats p as "format=jsonl;target=/dir;since=<RFC3339>;all=true;delete=true".
// Default values are omitted.
func (p ExportParams) String() string {
	var parts []string
	if p.Format != "" {
		parts = append(parts, "format="+p.Format)
	}
	if p.Target != "" {
		parts = append(parts, "target="+p.Target)
	}
	if !p.Since.IsZero() {
		parts = append(parts, "since="+p.Since.Format(time.RFC3339))
	}
	if p.ExportAll {
		parts = append(parts, "all=true")
	}
	if p.DeleteAfter {
		parts = append(parts, "delete=true")
	}
	return strings.Join(parts, ";")
}

// ParseExportParams parses the String format. The empty string is the
// default parameters.
func ParseExportParams(s string) (ExportParams, error) {
	p := ExportParams{Format: FormatJSONL}
	for part := range strings.SplitSeq(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return p, &bookkeeping.ParseError{Input: s, Reason: fmt.Sprintf("%q is not a key=value pair", part)}
		}
		var err error
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "format":
			p.Format = strings.ToLower(value)
			if p.Format != FormatJSONL {
				err = fmt.Errorf("unsupported format %q", value)
			}
		case "target":
			p.Target = value
		case "since":
			p.Since, err = time.Parse(time.RFC3339, value)
		case "all":
			p.ExportAll, err = strconv.ParseBool(value)
		case "delete":
			p.DeleteAfter, err = strconv.ParseBool(value)
		default:
			err = fmt.Errorf("unknown parameter %q", key)
		}
		if err != nil {
			return p, &bookkeeping.ParseError{Input: s, Reason: err.Error()}
		}
	}
	return p, nil
}
