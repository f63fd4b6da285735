package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/internal/logger"
	"github.com/etnz/bookkeeping/registry"
	"github.com/rs/zerolog"
)

// Store is the part of a book storage the processor uses.
type Store interface {
	EnabledScheduledActions(ctx context.Context) ([]ScheduledAction, error)
	Transaction(ctx context.Context, uid string) (*bookkeeping.Transaction, error)
	// RecordExecution persists txs and the LastRun and ExecutionCount of
	// action in a single transaction.
	RecordExecution(ctx context.Context, action ScheduledAction, txs []*bookkeeping.Transaction) error
}

// BookStore is a Store the processor opened and must close.
type BookStore interface {
	Store
	Close() error
}

// BookLister lists the books to process.
type BookLister interface {
	Books() ([]registry.Book, error)
}

// Backuper exports a book. It returns false when there was nothing to back up.
type Backuper interface {
	BackupBook(ctx context.Context, bookUID, tag string, lastRun time.Time) (bool, error)
}

// Report sums up one processor run.
type Report struct {
	Books   int // books processed
	Created int // transactions created
	Backups int // successful backups
	Skipped int // actions not due
	Failed  int // actions that failed
	Errors  error
}

func (r *Report) add(o Report) {
	r.Books += o.Books
	r.Created += o.Created
	r.Backups += o.Backups
	r.Skipped += o.Skipped
	r.Failed += o.Failed
	r.Errors = errors.Join(r.Errors, o.Errors)
}

func (r Report) String() string {
	return fmt.Sprintf("%d book(s): %d transaction(s) created, %d backup(s), %d skipped, %d failed",
		r.Books, r.Created, r.Backups, r.Skipped, r.Failed)
}

// Processor executes the scheduled actions that are due, in every book.
//
// Actions are processed one at a time, in the order the store returns them.
// A failing action is logged and reported, the others are still processed.
type Processor struct {
	Books  BookLister
	Open   func(ctx context.Context, book registry.Book) (BookStore, error)
	Backup Backuper         // optional, backup actions fail without it
	Now    func() time.Time // defaults to time.Now

	mu     sync.Mutex
	active *openBook // handle of the active book, kept between runs
}

type openBook struct {
	uid   string
	store BookStore
}

func (p *Processor) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Run processes every book once. The handles of the books are closed after
// processing, except the active book's one which is kept for the next run.
func (p *Processor) Run(ctx context.Context) (Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	log := logger.FromContext(ctx)

	books, err := p.Books.Books()
	if err != nil {
		return Report{}, fmt.Errorf("failed to list books: %w", err)
	}
	var report Report
	for _, book := range books {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		store, err := p.open(ctx, book)
		if err != nil {
			log.Error().Err(err).Str("book", book.UID).Msg("cannot open book")
			report.add(Report{Failed: 1, Errors: err})
			continue
		}
		report.add(p.ProcessBook(ctx, book.UID, store))
		p.release(book, store, log)
	}
	return report, nil
}

// open returns the kept handle of book, or opens it.
func (p *Processor) open(ctx context.Context, book registry.Book) (BookStore, error) {
	if p.active != nil && p.active.uid == book.UID {
		return p.active.store, nil
	}
	store, err := p.Open(ctx, book)
	if err != nil {
		return nil, fmt.Errorf("book %s: %w", book.UID, err)
	}
	return store, nil
}

// release keeps the store of the active book and closes the others.
func (p *Processor) release(book registry.Book, store BookStore, log zerolog.Logger) {
	if book.Active {
		if p.active != nil && p.active.store != store {
			if err := p.active.store.Close(); err != nil {
				log.Warn().Err(err).Str("book", p.active.uid).Msg("cannot close book")
			}
		}
		p.active = &openBook{uid: book.UID, store: store}
		return
	}
	if p.active != nil && p.active.store == store {
		// the book is no longer the active one.
		p.active = nil
	}
	if err := store.Close(); err != nil {
		log.Warn().Err(err).Str("book", book.UID).Msg("cannot close book")
	}
}

// Close releases the handle kept on the active book.
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return nil
	}
	err := p.active.store.Close()
	p.active = nil
	return err
}

// Every runs p now and then at every interval until ctx is done.
func (p *Processor) Every(ctx context.Context, interval time.Duration) error {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		report, err := p.Run(ctx)
		if err != nil {
			log.Error().Err(err).Msg("scheduled actions run failed")
		} else {
			log.Info().Stringer("report", report).Msg("scheduled actions processed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessBook executes the due actions of one book.
func (p *Processor) ProcessBook(ctx context.Context, bookUID string, store Store) Report {
	log := logger.WithFields(logger.FromContext(ctx), map[string]any{"book": bookUID})
	report := Report{Books: 1}

	actions, err := store.EnabledScheduledActions(ctx)
	if err != nil {
		err = fmt.Errorf("book %s: %w", bookUID, err)
		log.Error().Err(err).Msg("cannot list scheduled actions")
		report.Failed++
		report.Errors = err
		return report
	}
	now := p.now()
	for _, action := range actions {
		alog := log.With().Str("action_uid", action.UID).Str("action_type", string(action.Type)).Logger()
		if reason := action.SkipReason(now); reason != "" {
			alog.Debug().Str("reason", string(reason)).Msg("skipped")
			report.Skipped++
			continue
		}

		var err error
		switch action.Type {
		case TransactionAction:
			var created int
			created, err = p.executeTransactions(ctx, store, action, now)
			report.Created += created
			if err == nil && created > 0 {
				alog.Info().Int("created", created).Msg("transactions created")
			}
		case BackupAction:
			var reason SkipReason
			var done bool
			reason, done, err = p.executeBackup(ctx, bookUID, store, action, now)
			switch {
			case reason != "":
				alog.Debug().Str("reason", string(reason)).Msg("skipped")
				report.Skipped++
			case done:
				alog.Info().Msg("book backed up")
				report.Backups++
			case err == nil:
				alog.Debug().Msg("nothing to back up")
			}
		default:
			err = fmt.Errorf("unknown action type %q", action.Type)
		}
		if err != nil {
			err = fmt.Errorf("action %s (%s): %w", action.UID, action.Describe(), err)
			alog.Error().Err(err).Msg("scheduled action failed")
			report.Failed++
			report.Errors = errors.Join(report.Errors, err)
		}
	}
	return report
}

// executeTransactions creates one transaction for every occurrence not yet
// executed, up to the horizon and the planned count, and records them with
// the new counters at once. Nothing is written when no occurrence is due.
func (p *Processor) executeTransactions(ctx context.Context, store Store, action ScheduledAction, now time.Time) (int, error) {
	template, err := store.Transaction(ctx, action.ActionUID)
	if err != nil {
		return 0, fmt.Errorf("template %s: %w", action.ActionUID, err)
	}

	horizon := now.AddDate(0, 0, action.AdvanceCreateDays)
	if end, ok := action.EndTime(); ok && end.Before(horizon) {
		horizon = end
	}
	planned := action.PlannedCount()

	var txs []*bookkeeping.Transaction
	count := action.ExecutionCount
	for planned == 0 || count < planned {
		at := action.NextCountBased(count)
		if at.After(horizon) {
			break
		}
		tx := template.Clone(true)
		tx.Time = at
		tx.ScheduledActionUID = action.UID
		txs = append(txs, tx)
		count++
	}
	if len(txs) == 0 {
		return 0, nil
	}

	action.ExecutionCount = count
	action.LastRun = now
	if err := store.RecordExecution(ctx, action, txs); err != nil {
		return 0, err
	}
	return len(txs), nil
}

// executeBackup backs up the book at most once, when the action is due.
// The action advances only when the backup reports it exported something.
func (p *Processor) executeBackup(ctx context.Context, bookUID string, store Store, action ScheduledAction, now time.Time) (SkipReason, bool, error) {
	if end, ok := action.EndTime(); ok && end.Before(now) {
		return Ended, false, nil
	}
	if action.NextTimeBased().After(now) {
		return NotDue, false, nil
	}
	if p.Backup == nil {
		return "", false, errors.New("no backup configured")
	}
	done, err := p.Backup.BackupBook(ctx, bookUID, action.Tag, action.LastRun)
	if err != nil || !done {
		return "", false, err
	}
	action.ExecutionCount++
	action.LastRun = now
	if err := store.RecordExecution(ctx, action, nil); err != nil {
		return "", false, err
	}
	return "", true, nil
}
