// Package schedule defines scheduled actions, recurring transactions and
// backups, and the processor that executes them when they are due.
package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/recurrence"
)

// ActionType is what a scheduled action does when it fires.
type ActionType string

const (
	// TransactionAction replays a template transaction, once per occurrence.
	TransactionAction ActionType = "TRANSACTION"
	// BackupAction exports the book, at most once per run.
	BackupAction ActionType = "BACKUP"
)

// ParseActionType parses an ActionType, case insensitive.
func ParseActionType(s string) (ActionType, error) {
	switch t := ActionType(strings.ToUpper(s)); t {
	case TransactionAction, BackupAction:
		return t, nil
	}
	return "", fmt.Errorf("unknown action type %q", s)
}

// SkipReason tells why an action does not fire.
type SkipReason string

const (
	NotStarted SkipReason = "not_started"
	Disabled   SkipReason = "disabled"
	Exhausted  SkipReason = "exhausted"
	NotDue     SkipReason = "not_due"
	Ended      SkipReason = "ended"
)

// ScheduledAction pairs a recurrence with a template transaction or a backup
// directive.
//
// LastRun and ExecutionCount are the only state the processor changes.
type ScheduledAction struct {
	UID       string
	Type      ActionType
	ActionUID string // template transaction of a TransactionAction
	Tag       string // export parameters of a BackupAction
	Enabled   bool

	Start   time.Time
	End     time.Time // zero when the action has no end date
	LastRun time.Time // zero when the action never ran

	ExecutionCount             int
	TotalPlannedExecutionCount int // 0 is unbounded

	Recurrence recurrence.Recurrence

	AdvanceCreateDays int
	AdvanceNotifyDays int
	AutoCreate        bool
	AutoNotify        bool

	TemplateAccountUID string
	Created            time.Time
}

// NewTransactionAction returns an enabled action replaying template on rule,
// from the start of rule.
func NewTransactionAction(template *bookkeeping.Transaction, rule recurrence.Recurrence) ScheduledAction {
	return ScheduledAction{
		UID:        bookkeeping.NewUID(),
		Type:       TransactionAction,
		ActionUID:  template.UID,
		Enabled:    true,
		Start:      rule.Start,
		Recurrence: rule,
		AutoCreate: true,
		Created:    time.Now(),
	}
}

// NewBackupAction returns an enabled backup action with the given export parameters.
func NewBackupAction(tag string, rule recurrence.Recurrence) ScheduledAction {
	return ScheduledAction{
		UID:        bookkeeping.NewUID(),
		Type:       BackupAction,
		Tag:        tag,
		Enabled:    true,
		Start:      rule.Start,
		Recurrence: rule,
		AutoCreate: true,
		Created:    time.Now(),
	}
}

// rule returns the recurrence of a, starting at a.Start.
func (a ScheduledAction) rule() recurrence.Recurrence { return a.Recurrence.WithStart(a.Start) }

// PlannedCount returns the maximum number of executions, 0 for unbounded.
// It is the smallest of the planned count and the count of the rule.
func (a ScheduledAction) PlannedCount() int {
	planned := a.TotalPlannedExecutionCount
	if c, ok := a.Recurrence.End.Count(); ok && (planned <= 0 || c < planned) {
		planned = c
	}
	return max(planned, 0)
}

// EndTime returns the earliest of the end date and the until date of the rule.
func (a ScheduledAction) EndTime() (time.Time, bool) {
	end, ok := a.End, !a.End.IsZero()
	if u, has := a.Recurrence.End.Until(); has && (!ok || u.Before(end)) {
		end, ok = u, true
	}
	return end, ok
}

// SkipReason returns why a must not fire at now, or "".
func (a ScheduledAction) SkipReason(now time.Time) SkipReason {
	switch {
	case a.Start.After(now):
		return NotStarted
	case !a.Enabled:
		return Disabled
	case a.PlannedCount() > 0 && a.ExecutionCount >= a.PlannedCount():
		return Exhausted
	}
	return ""
}

// NextCountBased returns the occurrence following count executions.
func (a ScheduledAction) NextCountBased(count int) time.Time { return a.rule().Occurrence(count) }

// NextTimeBased returns when a is next due: its start if it never ran, one
// recurrence step after the last run otherwise.
func (a ScheduledAction) NextTimeBased() time.Time {
	if a.LastRun.IsZero() {
		return a.Start
	}
	return a.rule().Advance(a.LastRun)
}

// Describe returns a human readable schedule of a.
func (a ScheduledAction) Describe() string {
	s := a.rule().Describe()
	if a.TotalPlannedExecutionCount > 0 {
		s += fmt.Sprintf(" (%d/%d)", a.ExecutionCount, a.TotalPlannedExecutionCount)
	}
	return s
}

// actionJSON is the JSON shape of a ScheduledAction.
type actionJSON struct {
	UID                        string    `json:"uid"`
	Type                       string    `json:"type"`
	ActionUID                  string    `json:"action,omitempty"`
	Tag                        string    `json:"tag,omitempty"`
	Enabled                    bool      `json:"enabled"`
	Recurrence                 string    `json:"rrule"`
	Start                      time.Time `json:"start"`
	End                        time.Time `json:"end,omitzero"`
	LastRun                    time.Time `json:"lastRun,omitzero"`
	ExecutionCount             int       `json:"executionCount,omitempty"`
	TotalPlannedExecutionCount int       `json:"plannedCount,omitempty"`
	AdvanceCreateDays          int       `json:"advanceCreateDays,omitempty"`
	AdvanceNotifyDays          int       `json:"advanceNotifyDays,omitempty"`
	AutoCreate                 bool      `json:"autoCreate,omitempty"`
	AutoNotify                 bool      `json:"autoNotify,omitempty"`
	TemplateAccountUID         string    `json:"templateAccount,omitempty"`
	Created                    time.Time `json:"created,omitzero"`
}

func (a ScheduledAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionJSON{
		UID:                        a.UID,
		Type:                       string(a.Type),
		ActionUID:                  a.ActionUID,
		Tag:                        a.Tag,
		Enabled:                    a.Enabled,
		Recurrence:                 a.Recurrence.String(),
		Start:                      a.Start,
		End:                        a.End,
		LastRun:                    a.LastRun,
		ExecutionCount:             a.ExecutionCount,
		TotalPlannedExecutionCount: a.TotalPlannedExecutionCount,
		AdvanceCreateDays:          a.AdvanceCreateDays,
		AdvanceNotifyDays:          a.AdvanceNotifyDays,
		AutoCreate:                 a.AutoCreate,
		AutoNotify:                 a.AutoNotify,
		TemplateAccountUID:         a.TemplateAccountUID,
		Created:                    a.Created,
	})
}

func (a *ScheduledAction) UnmarshalJSON(data []byte) error {
	var temp actionJSON
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	typ, err := ParseActionType(temp.Type)
	if err != nil {
		return err
	}
	rule, err := recurrence.Parse(temp.Recurrence)
	if err != nil {
		return err
	}
	*a = ScheduledAction{
		UID:                        temp.UID,
		Type:                       typ,
		ActionUID:                  temp.ActionUID,
		Tag:                        temp.Tag,
		Enabled:                    temp.Enabled,
		Start:                      temp.Start,
		End:                        temp.End,
		LastRun:                    temp.LastRun,
		ExecutionCount:             temp.ExecutionCount,
		TotalPlannedExecutionCount: temp.TotalPlannedExecutionCount,
		Recurrence:                 rule.WithStart(temp.Start),
		AdvanceCreateDays:          temp.AdvanceCreateDays,
		AdvanceNotifyDays:          temp.AdvanceNotifyDays,
		AutoCreate:                 temp.AutoCreate,
		AutoNotify:                 temp.AutoNotify,
		TemplateAccountUID:         temp.TemplateAccountUID,
		Created:                    temp.Created,
	}
	return nil
}
