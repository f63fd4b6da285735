// Package backup exports books to JSONL files and restores them.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/schedule"
	"github.com/etnz/bookkeeping/store"
)

// KindScheduledAction is the record kind of scheduled actions in a backup.
const KindScheduledAction = "scheduledAction"

// Source is the part of a book a backup reads.
type Source interface {
	Accounts(ctx context.Context) ([]bookkeeping.Account, error)
	TransactionsSince(ctx context.Context, t time.Time, includeExported bool) ([]*bookkeeping.Transaction, error)
	Templates(ctx context.Context) ([]*bookkeeping.Transaction, error)
	ScheduledActions(ctx context.Context) ([]schedule.ScheduledAction, error)
	MarkExported(ctx context.Context, uids ...string) error
	DeleteTransaction(ctx context.Context, uid string) error
	Close() error
}

// FileBackup writes a book snapshot per backup in a directory.
type FileBackup struct {
	Dir  string
	Open func(ctx context.Context, bookUID string) (Source, error)
	Now  func() time.Time // defaults to time.Now
}

var _ schedule.Backuper = (*FileBackup)(nil)

// BackupBook exports the transactions of the book not exported yet, whatever
// their time, so that back dated entries are not missed. With all=true it
// exports every transaction occurring since the last run instead. A since
// time in the export parameters tag restricts both. It returns false,
// writing nothing, when there is no transaction to export.
func (b *FileBackup) BackupBook(ctx context.Context, bookUID, tag string, lastRun time.Time) (bool, error) {
	params, err := ParseExportParams(tag)
	if err != nil {
		return false, err
	}
	var since time.Time
	switch {
	case !params.Since.IsZero():
		since = params.Since
	case params.ExportAll:
		since = lastRun
	}
	src, err := b.Open(ctx, bookUID)
	if err != nil {
		return false, fmt.Errorf("failed to open book %s: %w", bookUID, err)
	}
	defer src.Close()

	txs, err := src.TransactionsSince(ctx, since, params.ExportAll)
	if err != nil {
		return false, err
	}
	if len(txs) == 0 {
		return false, nil
	}
	snapshot, err := snapshotOf(ctx, src, txs)
	if err != nil {
		return false, err
	}

	dir := b.Dir
	if params.Target != "" {
		dir = params.Target
	}
	path := filepath.Join(dir, FileName(bookUID, b.now()))
	if err := writeFile(path, snapshot); err != nil {
		return false, err
	}

	uids := make([]string, len(txs))
	for i, tx := range txs {
		uids[i] = tx.UID
	}
	if err := src.MarkExported(ctx, uids...); err != nil {
		return true, fmt.Errorf("backup %s written but transactions not marked: %w", path, err)
	}
	if params.DeleteAfter {
		for _, uid := range uids {
			if err := src.DeleteTransaction(ctx, uid); err != nil {
				return true, fmt.Errorf("backup %s written but transaction %s not deleted: %w", path, uid, err)
			}
		}
	}
	return true, nil
}

func (b *FileBackup) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

// FileName returns the name of the backup of a book taken at t.
func FileName(bookUID string, t time.Time) string {
	return fmt.Sprintf("%s_%s.jsonl", bookUID, t.UTC().Format("20060102T150405"))
}

// snapshotOf gathers txs with what is needed to restore them: the accounts,
// their non currency commodities, the templates and the scheduled actions.
func snapshotOf(ctx context.Context, src Source, txs []*bookkeeping.Transaction) (bookkeeping.Snapshot, error) {
	var s bookkeeping.Snapshot
	accounts, err := src.Accounts(ctx)
	if err != nil {
		return s, err
	}
	seen := make(map[string]bool)
	for _, a := range accounts {
		if c := a.Commodity; !c.IsCurrency() && !seen[c.Code()] {
			seen[c.Code()] = true
			s.Commodities = append(s.Commodities, c)
		}
	}
	s.Accounts = accounts

	templates, err := src.Templates(ctx)
	if err != nil {
		return s, err
	}
	s.Transactions = append(templates, txs...)

	actions, err := src.ScheduledActions(ctx)
	if err != nil {
		return s, err
	}
	for _, a := range actions {
		var buf bytes.Buffer
		if err := bookkeeping.EncodeRecord(&buf, KindScheduledAction, a); err != nil {
			return s, err
		}
		s.Records = append(s.Records, bookkeeping.Record{Kind: KindScheduledAction, Data: bytes.TrimSpace(buf.Bytes())})
	}
	return s, nil
}

func writeFile(path string, s bookkeeping.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create backup directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create backup %q: %w", path, err)
	}
	if err := bookkeeping.EncodeBook(f, s); err != nil {
		f.Close()
		return fmt.Errorf("could not write backup %q: %w", path, err)
	}
	return f.Close()
}

// Restore reads a backup from r into st. Accounts are added parents first.
func Restore(ctx context.Context, r io.Reader, st store.Store) error {
	s, err := bookkeeping.DecodeBook(r)
	if err != nil {
		return err
	}
	for _, c := range s.Commodities {
		if err := st.AddCommodity(ctx, c); err != nil {
			return err
		}
	}
	if err := addAccounts(ctx, st, s.Accounts); err != nil {
		return err
	}
	if err := st.AddTransactions(ctx, s.Transactions...); err != nil {
		return err
	}
	for _, p := range s.Prices {
		if err := st.AddPrice(ctx, p); err != nil {
			return err
		}
	}
	for _, rec := range s.Records {
		if rec.Kind != KindScheduledAction {
			continue
		}
		var a schedule.ScheduledAction
		if err := json.Unmarshal(rec.Data, &a); err != nil {
			return fmt.Errorf("invalid scheduled action: %w", err)
		}
		if err := st.AddScheduledAction(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// addAccounts adds accounts once their parent exists.
func addAccounts(ctx context.Context, st store.Store, accounts []bookkeeping.Account) error {
	added := make(map[string]bool)
	for len(accounts) > 0 {
		var pending []bookkeeping.Account
		for _, a := range accounts {
			if a.ParentUID != "" && !added[a.ParentUID] {
				pending = append(pending, a)
				continue
			}
			if err := st.AddAccount(ctx, a); err != nil {
				return err
			}
			added[a.UID] = true
		}
		if len(pending) == len(accounts) {
			return fmt.Errorf("parent of account %s: %w", pending[0].Name, bookkeeping.ErrMissingReference)
		}
		accounts = pending
	}
	return nil
}
