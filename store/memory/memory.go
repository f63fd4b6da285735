// Package memory is a store.Store kept in memory, for tests and previews.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/date"
	"github.com/etnz/bookkeeping/schedule"
	"github.com/etnz/bookkeeping/store"
)

// Store is a concurrency safe in-memory store.Store. Its zero value is not
// usable, use New.
type Store struct {
	mu           sync.RWMutex
	commodities  map[string]bookkeeping.Commodity
	accounts     map[string]bookkeeping.Account
	transactions map[string]*bookkeeping.Transaction
	actions      map[string]schedule.ScheduledAction
	prices       bookkeeping.PriceTable
	closed       bool
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		commodities:  make(map[string]bookkeeping.Commodity),
		accounts:     make(map[string]bookkeeping.Account),
		transactions: make(map[string]*bookkeeping.Transaction),
		actions:      make(map[string]schedule.ScheduledAction),
	}
}

func notFound(kind, uid string) error {
	return fmt.Errorf("%s %s: %w", kind, uid, bookkeeping.ErrNotFound)
}

func (s *Store) AddCommodity(ctx context.Context, c bookkeeping.Commodity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commodities[c.Code()] = c
	return nil
}

func (s *Store) Commodity(ctx context.Context, code string) (bookkeeping.Commodity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.commodities[code]; ok {
		return c, nil
	}
	return bookkeeping.Commodity{}, notFound("commodity", code)
}

func (s *Store) Account(ctx context.Context, uid string) (bookkeeping.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[uid]; ok {
		return a, nil
	}
	return bookkeeping.Account{}, notFound("account", uid)
}

func byFullName(a, b bookkeeping.Account) int {
	return cmp.Or(strings.Compare(a.FullName, b.FullName), strings.Compare(a.UID, b.UID))
}

func (s *Store) Accounts(ctx context.Context) ([]bookkeeping.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.SortedFunc(maps.Values(s.accounts), byFullName), nil
}

func (s *Store) ChildAccounts(ctx context.Context, uid string) ([]bookkeeping.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var children []bookkeeping.Account
	for _, a := range s.accounts {
		if a.ParentUID == uid {
			children = append(children, a)
		}
	}
	slices.SortFunc(children, byFullName)
	return children, nil
}

func (s *Store) AddAccount(ctx context.Context, a bookkeeping.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.UID == "" {
		return fmt.Errorf("account %q has no identifier", a.Name)
	}
	if _, ok := s.accounts[a.ParentUID]; a.ParentUID != "" && !ok {
		return fmt.Errorf("parent of account %s: %w", a.Name, bookkeeping.ErrMissingReference)
	}
	s.accounts[a.UID] = a
	return nil
}

func (s *Store) Transaction(ctx context.Context, uid string) (*bookkeeping.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tx, ok := s.transactions[uid]; ok {
		return tx.Clone(false), nil
	}
	return nil, notFound("transaction", uid)
}

// addTransactions checks all of txs then adds them. s.mu must be held.
func (s *Store) addTransactions(txs []*bookkeeping.Transaction) error {
	exists := func(uid string) bool { _, ok := s.accounts[uid]; return ok }
	seen := make(map[string]bool)
	for _, tx := range txs {
		if err := store.ValidateTransaction(tx, exists); err != nil {
			return err
		}
		if _, dup := s.transactions[tx.UID]; dup || seen[tx.UID] {
			return fmt.Errorf("transaction %s already exists", tx.UID)
		}
		seen[tx.UID] = true
	}
	for _, tx := range txs {
		s.transactions[tx.UID] = tx.Clone(false)
	}
	return nil
}

func (s *Store) AddTransactions(ctx context.Context, txs ...*bookkeeping.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTransactions(txs)
}

func (s *Store) DeleteTransaction(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[uid]; !ok {
		return notFound("transaction", uid)
	}
	delete(s.transactions, uid)
	return nil
}

func (s *Store) TransactionsCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, tx := range s.transactions {
		if !tx.Template {
			n++
		}
	}
	return n, nil
}

// chronological orders transactions by time then identifier.
func chronological(a, b *bookkeeping.Transaction) int {
	return cmp.Or(a.Time.Compare(b.Time), strings.Compare(a.UID, b.UID))
}

func (s *Store) TransactionsSince(ctx context.Context, t time.Time, includeExported bool) ([]*bookkeeping.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var txs []*bookkeeping.Transaction
	for _, tx := range s.transactions {
		if tx.Template || tx.Time.Before(t) || (tx.Exported && !includeExported) {
			continue
		}
		txs = append(txs, tx.Clone(false))
	}
	slices.SortFunc(txs, chronological)
	return txs, nil
}

func (s *Store) Templates(ctx context.Context) ([]*bookkeeping.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var txs []*bookkeeping.Transaction
	for _, tx := range s.transactions {
		if tx.Template {
			txs = append(txs, tx.Clone(false))
		}
	}
	slices.SortFunc(txs, chronological)
	return txs, nil
}

func (s *Store) MarkExported(ctx context.Context, uids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range uids {
		if _, ok := s.transactions[uid]; !ok {
			return notFound("transaction", uid)
		}
	}
	for _, uid := range uids {
		s.transactions[uid].Exported = true
	}
	return nil
}

func (s *Store) AccountSplits(ctx context.Context, uid string, interval date.Interval) ([]*bookkeeping.Split, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.accounts[uid]; !ok {
		return nil, notFound("account", uid)
	}
	var txs []*bookkeeping.Transaction
	for _, tx := range s.transactions {
		if !tx.Template && interval.Contains(tx.Time) {
			txs = append(txs, tx)
		}
	}
	slices.SortFunc(txs, chronological)
	var splits []*bookkeeping.Split
	for _, tx := range txs {
		for _, sp := range tx.Clone(false).Splits() {
			if sp.AccountUID == uid {
				splits = append(splits, sp)
			}
		}
	}
	return splits, nil
}

// copyAction returns a copy of a that shares no memory with it.
func copyAction(a schedule.ScheduledAction) schedule.ScheduledAction {
	a.Recurrence.ByDays = slices.Clone(a.Recurrence.ByDays)
	return a
}

func byCreation(a, b schedule.ScheduledAction) int {
	return cmp.Or(a.Created.Compare(b.Created), strings.Compare(a.UID, b.UID))
}

func (s *Store) ScheduledAction(ctx context.Context, uid string) (schedule.ScheduledAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.actions[uid]; ok {
		return copyAction(a), nil
	}
	return schedule.ScheduledAction{}, notFound("scheduled action", uid)
}

func (s *Store) scheduledActions(keep func(schedule.ScheduledAction) bool) []schedule.ScheduledAction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var actions []schedule.ScheduledAction
	for _, a := range s.actions {
		if keep(a) {
			actions = append(actions, copyAction(a))
		}
	}
	slices.SortFunc(actions, byCreation)
	return actions
}

func (s *Store) ScheduledActions(ctx context.Context) ([]schedule.ScheduledAction, error) {
	return s.scheduledActions(func(schedule.ScheduledAction) bool { return true }), nil
}

func (s *Store) EnabledScheduledActions(ctx context.Context) ([]schedule.ScheduledAction, error) {
	return s.scheduledActions(func(a schedule.ScheduledAction) bool { return a.Enabled }), nil
}

func (s *Store) AddScheduledAction(ctx context.Context, a schedule.ScheduledAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.UID == "" {
		return fmt.Errorf("scheduled action has no identifier")
	}
	if a.Type == schedule.TransactionAction {
		if _, ok := s.transactions[a.ActionUID]; !ok {
			return fmt.Errorf("template %s: %w", a.ActionUID, bookkeeping.ErrMissingReference)
		}
	}
	s.actions[a.UID] = copyAction(a)
	return nil
}

func (s *Store) UpdateScheduledAction(ctx context.Context, uid string, fields store.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[uid]
	if !ok {
		return notFound("scheduled action", uid)
	}
	if err := fields.Apply(&a); err != nil {
		return err
	}
	s.actions[uid] = a
	return nil
}

func (s *Store) DeleteScheduledAction(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actions[uid]; !ok {
		return notFound("scheduled action", uid)
	}
	delete(s.actions, uid)
	return nil
}

func (s *Store) RecordExecution(ctx context.Context, action schedule.ScheduledAction, txs []*bookkeeping.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.actions[action.UID]
	if !ok {
		return notFound("scheduled action", action.UID)
	}
	if err := s.addTransactions(txs); err != nil {
		return err
	}
	stored.LastRun = action.LastRun
	stored.ExecutionCount = action.ExecutionCount
	s.actions[action.UID] = stored
	return nil
}

func (s *Store) AddPrice(ctx context.Context, p bookkeeping.Price) error {
	s.prices.Add(p)
	return nil
}

func (s *Store) Price(ctx context.Context, from, to string) (bookkeeping.Price, bool, error) {
	return s.prices.Price(ctx, from, to)
}

// Close marks the store closed. Its content is kept.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
