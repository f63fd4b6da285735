package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/date"
	"github.com/etnz/bookkeeping/recurrence"
)

// parseDuration parses a Go duration, or a number of days like "2d".
func parseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid duration %q: must be positive", s)
	}
	return d, nil
}

// parseDay parses a date, "" is def and "today" is today.
func parseDay(s string, def date.Date) (date.Date, error) {
	switch s {
	case "":
		return def, nil
	case "today":
		return date.Today(), nil
	}
	return date.Parse(s)
}

// parseInterval returns the interval covering the days from and to included,
// in local time. Empty bounds are open.
func parseInterval(from, to string) (date.Interval, error) {
	var r date.Interval
	if from != "" {
		d, err := parseDay(from, date.Date{})
		if err != nil {
			return r, err
		}
		r.From = d.In(time.Local)
	}
	if to != "" {
		d, err := parseDay(to, date.Date{})
		if err != nil {
			return r, err
		}
		r.To = d.Add(1).In(time.Local)
	}
	if r.IsBounded() && !r.From.IsZero() && !r.From.Before(r.To) {
		return r, fmt.Errorf("empty interval from %s to %s", from, to)
	}
	return r, nil
}

// parseRule returns the recurrence starting at start, given either as an
// RRULE or as a period name repeated every n periods.
func parseRule(rule, every string, n int, start time.Time) (recurrence.Recurrence, error) {
	var r recurrence.Recurrence
	if rule != "" {
		parsed, err := recurrence.Parse(rule)
		if err != nil {
			return r, err
		}
		r = parsed.WithStart(start)
	} else {
		p, err := date.ParsePeriod(every)
		if err != nil {
			return r, err
		}
		r = recurrence.New(p, n, start)
	}
	return r, r.Validate()
}

// accountLister is the part of a book used to resolve account names.
type accountLister interface {
	Accounts(ctx context.Context) ([]bookkeeping.Account, error)
}

// findAccount returns the account identified by name: its ID, a prefix of
// its ID, its full name or its name when unique. Names are case insensitive.
func findAccount(ctx context.Context, book accountLister, name string) (bookkeeping.Account, error) {
	accounts, err := book.Accounts(ctx)
	if err != nil {
		return bookkeeping.Account{}, err
	}
	var byName, byPrefix []bookkeeping.Account
	for _, a := range accounts {
		switch {
		case a.UID == name, strings.EqualFold(a.FullName, name):
			return a, nil
		case strings.EqualFold(a.Name, name):
			byName = append(byName, a)
		case len(name) >= 4 && strings.HasPrefix(a.UID, name):
			byPrefix = append(byPrefix, a)
		}
	}
	for _, found := range [][]bookkeeping.Account{byName, byPrefix} {
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			return bookkeeping.Account{}, fmt.Errorf("account %q is ambiguous, use its full name or ID", name)
		}
	}
	return bookkeeping.Account{}, fmt.Errorf("account %q: %w", name, bookkeeping.ErrNotFound)
}

// fullName returns the full name of a child named name of parent.
func fullName(parent bookkeeping.Account, name string) string {
	if parent.Type == bookkeeping.Root || parent.FullName == "" {
		return name
	}
	return parent.FullName + ":" + name
}
