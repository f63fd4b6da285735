package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/recurrence"
	"github.com/etnz/bookkeeping/schedule"
	"github.com/etnz/bookkeeping/store"
)

const actionColumns = `uid, type, action_uid, tag, enabled, start_time, end_time, last_run,
	execution_count, total_planned_execution_count, recurrence, period_start,
	advance_create_days, advance_notify_days, auto_create, auto_notify, template_account_uid, created, tz`

func scanAction(row interface{ Scan(...any) error }) (schedule.ScheduledAction, error) {
	var (
		a                                         schedule.ScheduledAction
		typ, rule, tz                             string
		start, end, lastRun, periodStart, created sql.NullString
	)
	err := row.Scan(&a.UID, &typ, &a.ActionUID, &a.Tag, &a.Enabled, &start, &end, &lastRun,
		&a.ExecutionCount, &a.TotalPlannedExecutionCount, &rule, &periodStart,
		&a.AdvanceCreateDays, &a.AdvanceNotifyDays, &a.AutoCreate, &a.AutoNotify, &a.TemplateAccountUID, &created, &tz)
	if err != nil {
		return a, err
	}
	if a.Type, err = schedule.ParseActionType(typ); err != nil {
		return a, err
	}
	if a.Recurrence, err = recurrence.Parse(rule); err != nil {
		return a, fmt.Errorf("scheduled action %s: %w", a.UID, err)
	}
	loc, err := location(tz)
	if err != nil {
		return a, fmt.Errorf("scheduled action %s: %w", a.UID, err)
	}
	times := []struct {
		dst *time.Time
		src sql.NullString
	}{
		{&a.Start, start},
		{&a.End, end},
		{&a.LastRun, lastRun},
		{&a.Recurrence.Start, periodStart},
		{&a.Created, created},
	}
	for _, f := range times {
		if *f.dst, err = parseTime(f.src, loc); err != nil {
			return a, fmt.Errorf("scheduled action %s: %w", a.UID, err)
		}
	}
	return a, nil
}

func (s *Store) ScheduledAction(ctx context.Context, uid string) (schedule.ScheduledAction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM scheduled_actions WHERE uid = ?`, uid)
	a, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return a, notFound("scheduled action", uid)
	}
	return a, err
}

func (s *Store) scheduledActions(ctx context.Context, where string) ([]schedule.ScheduledAction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+actionColumns+` FROM scheduled_actions `+where+` ORDER BY created, uid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []schedule.ScheduledAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ScheduledActions(ctx context.Context) ([]schedule.ScheduledAction, error) {
	return s.scheduledActions(ctx, "")
}

func (s *Store) EnabledScheduledActions(ctx context.Context) ([]schedule.ScheduledAction, error) {
	return s.scheduledActions(ctx, `WHERE enabled = 1`)
}

func (s *Store) AddScheduledAction(ctx context.Context, a schedule.ScheduledAction) error {
	if a.UID == "" {
		return errors.New("scheduled action has no identifier")
	}
	if err := a.Recurrence.Validate(); err != nil {
		return err
	}
	if a.Type == schedule.TransactionAction {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE uid = ?`, a.ActionUID).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("template %s: %w", a.ActionUID, bookkeeping.ErrMissingReference)
		}
	}
	periodStart := a.Recurrence.Start
	if periodStart.IsZero() {
		periodStart = a.Start
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO scheduled_actions(`+actionColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UID, string(a.Type), a.ActionUID, a.Tag, a.Enabled, formatTime(a.Start), nullTime(a.End), nullTime(a.LastRun),
		a.ExecutionCount, a.TotalPlannedExecutionCount, a.Recurrence.String(), formatTime(periodStart),
		a.AdvanceCreateDays, a.AdvanceNotifyDays, a.AutoCreate, a.AutoNotify, a.TemplateAccountUID, nullTime(a.Created), zoneName(a.Start))
	if err != nil {
		return fmt.Errorf("failed to add scheduled action %s: %w", a.UID, err)
	}
	return nil
}

// UpdateScheduledAction checks fields against the stored action then writes
// only the named columns.
func (s *Store) UpdateScheduledAction(ctx context.Context, uid string, fields store.Fields) error {
	a, err := s.ScheduledAction(ctx, uid)
	if err != nil {
		return err
	}
	if err := fields.Apply(&a); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	names := slices.Sorted(maps.Keys(fields))
	sets := make([]string, len(names))
	args := make([]any, 0, len(names)+1)
	for i, name := range names {
		sets[i] = name + " = ?"
		args = append(args, column(a, name))
	}
	args = append(args, uid)
	_, err = s.db.ExecContext(ctx, `UPDATE scheduled_actions SET `+strings.Join(sets, ", ")+` WHERE uid = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update scheduled action %s: %w", uid, err)
	}
	return nil
}

// column returns the stored value of the mutable column name of a.
func column(a schedule.ScheduledAction, name string) any {
	switch name {
	case store.FieldEnabled:
		return a.Enabled
	case store.FieldLastRun:
		return nullTime(a.LastRun)
	case store.FieldExecutionCount:
		return a.ExecutionCount
	case store.FieldPlannedCount:
		return a.TotalPlannedExecutionCount
	case store.FieldEnd:
		return nullTime(a.End)
	case store.FieldTag:
		return a.Tag
	case store.FieldAdvanceCreateDays:
		return a.AdvanceCreateDays
	case store.FieldAdvanceNotifyDays:
		return a.AdvanceNotifyDays
	case store.FieldAutoCreate:
		return a.AutoCreate
	case store.FieldAutoNotify:
		return a.AutoNotify
	}
	panic("unknown scheduled action column " + name)
}

func (s *Store) DeleteScheduledAction(ctx context.Context, uid string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_actions WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete scheduled action %s: %w", uid, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("scheduled action", uid)
	}
	return nil
}

func (s *Store) RecordExecution(ctx context.Context, action schedule.ScheduledAction, txs []*bookkeeping.Transaction) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.insertTransactions(ctx, tx, txs); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE scheduled_actions SET last_run = ?, execution_count = ? WHERE uid = ?`,
			nullTime(action.LastRun), action.ExecutionCount, action.UID)
		if err != nil {
			return fmt.Errorf("failed to record execution of %s: %w", action.UID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("scheduled action", action.UID)
		}
		return nil
	})
}
