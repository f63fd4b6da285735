// Package store defines the storage of a book. The memory and sqlite
// subpackages implement it.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/date"
	"github.com/etnz/bookkeeping/schedule"
)

// Store is the storage of one book.
//
// Identifiers are chosen by the caller. Reads return copies: changing them
// does not change the store. Lookups of unknown identifiers return an error
// matching bookkeeping.ErrNotFound, writes referencing unknown accounts or
// templates one matching bookkeeping.ErrMissingReference.
type Store interface {
	AddCommodity(ctx context.Context, c bookkeeping.Commodity) error
	Commodity(ctx context.Context, code string) (bookkeeping.Commodity, error)

	Account(ctx context.Context, uid string) (bookkeeping.Account, error)
	Accounts(ctx context.Context) ([]bookkeeping.Account, error)
	ChildAccounts(ctx context.Context, uid string) ([]bookkeeping.Account, error)
	AddAccount(ctx context.Context, a bookkeeping.Account) error

	Transaction(ctx context.Context, uid string) (*bookkeeping.Transaction, error)
	// AddTransactions adds all of txs or none.
	AddTransactions(ctx context.Context, txs ...*bookkeeping.Transaction) error
	DeleteTransaction(ctx context.Context, uid string) error
	// TransactionsCount counts the non template transactions.
	TransactionsCount(ctx context.Context) (int, error)
	// TransactionsSince returns the non template transactions occurring at or
	// after t, in chronological order.
	TransactionsSince(ctx context.Context, t time.Time, includeExported bool) ([]*bookkeeping.Transaction, error)
	// Templates returns the template transactions.
	Templates(ctx context.Context) ([]*bookkeeping.Transaction, error)
	MarkExported(ctx context.Context, uids ...string) error
	AccountSplits(ctx context.Context, uid string, interval date.Interval) ([]*bookkeeping.Split, error)

	ScheduledAction(ctx context.Context, uid string) (schedule.ScheduledAction, error)
	ScheduledActions(ctx context.Context) ([]schedule.ScheduledAction, error)
	EnabledScheduledActions(ctx context.Context) ([]schedule.ScheduledAction, error)
	AddScheduledAction(ctx context.Context, a schedule.ScheduledAction) error
	UpdateScheduledAction(ctx context.Context, uid string, fields Fields) error
	DeleteScheduledAction(ctx context.Context, uid string) error
	RecordExecution(ctx context.Context, action schedule.ScheduledAction, txs []*bookkeeping.Transaction) error

	AddPrice(ctx context.Context, p bookkeeping.Price) error
	Price(ctx context.Context, from, to string) (bookkeeping.Price, bool, error)

	Close() error
}

// Mutable columns of a scheduled action.
const (
	FieldEnabled           = "enabled"
	FieldLastRun           = "last_run"
	FieldExecutionCount    = "execution_count"
	FieldPlannedCount      = "total_planned_execution_count"
	FieldEnd               = "end_time"
	FieldTag               = "tag"
	FieldAdvanceCreateDays = "advance_create_days"
	FieldAdvanceNotifyDays = "advance_notify_days"
	FieldAutoCreate        = "auto_create"
	FieldAutoNotify        = "auto_notify"
)

// Fields are the new values of some columns of a scheduled action.
type Fields map[string]any

// Apply sets the fields on a. Unknown names and values of the wrong type
// are errors.
func (f Fields) Apply(a *schedule.ScheduledAction) error {
	for name, value := range f {
		var ok bool
		switch name {
		case FieldEnabled:
			a.Enabled, ok = value.(bool)
		case FieldLastRun:
			a.LastRun, ok = value.(time.Time)
		case FieldExecutionCount:
			a.ExecutionCount, ok = value.(int)
		case FieldPlannedCount:
			a.TotalPlannedExecutionCount, ok = value.(int)
		case FieldEnd:
			a.End, ok = value.(time.Time)
		case FieldTag:
			a.Tag, ok = value.(string)
		case FieldAdvanceCreateDays:
			a.AdvanceCreateDays, ok = value.(int)
		case FieldAdvanceNotifyDays:
			a.AdvanceNotifyDays, ok = value.(int)
		case FieldAutoCreate:
			a.AutoCreate, ok = value.(bool)
		case FieldAutoNotify:
			a.AutoNotify, ok = value.(bool)
		default:
			return fmt.Errorf("field %q cannot be updated", name)
		}
		if !ok {
			return fmt.Errorf("field %q: invalid value %v (%T)", name, value, value)
		}
	}
	return nil
}

// ValidateTransaction checks tx and that all its split accounts exist.
func ValidateTransaction(tx *bookkeeping.Transaction, accountExists func(uid string) bool) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("transaction %s: %w", tx.UID, err)
	}
	for _, s := range tx.Splits() {
		if !accountExists(s.AccountUID) {
			return fmt.Errorf("transaction %s: account %s: %w", tx.UID, s.AccountUID, bookkeeping.ErrMissingReference)
		}
	}
	return nil
}
