package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/date"
	"github.com/etnz/bookkeeping/recurrence"
	"github.com/etnz/bookkeeping/schedule"
	"github.com/etnz/bookkeeping/store/memory"
)

var (
	usd  = bookkeeping.MustCommodityOf("USD")
	jan1 = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
)

func TestExportParams(t *testing.T) {
	testCases := []struct {
		in      string
		want    ExportParams
		wantErr bool
	}{
		{in: "", want: ExportParams{Format: FormatJSONL}},
		{in: "format=jsonl;target=/var/backups;all=true", want: ExportParams{Format: FormatJSONL, Target: "/var/backups", ExportAll: true}},
		{in: "since=2024-01-01T00:00:00Z; delete=true", want: ExportParams{Format: FormatJSONL, Since: jan1, DeleteAfter: true}},
		{in: "format=qif", wantErr: true},
		{in: "all=maybe", wantErr: true},
		{in: "target", wantErr: true},
		{in: "color=blue", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseExportParams(tc.in)
			if tc.wantErr {
				if !errors.Is(err, bookkeeping.ErrParse) {
					t.Errorf("ParseExportParams(%q) error = %v, want a parse error", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseExportParams(%q) unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseExportParams(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
			again, err := ParseExportParams(got.String())
			if err != nil || again != got {
				t.Errorf("ParseExportParams(%q) = %+v, %v, want %+v", got.String(), again, err, got)
			}
		})
	}
}

// rentBook returns a book with a template, a scheduled action and two payments.
func rentBook(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	checking := bookkeeping.NewAccount("Checking", bookkeeping.Bank, usd, "")
	rent := bookkeeping.NewAccount("Rent", bookkeeping.Expense, usd, "")
	home := bookkeeping.NewAccount("Home", bookkeeping.Expense, usd, rent.UID)
	home.FullName = "Rent:Home"
	for _, a := range []bookkeeping.Account{checking, rent, home} {
		if err := s.AddAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	pay := func(at time.Time) *bookkeeping.Transaction {
		tx := bookkeeping.NewTransaction("rent")
		tx.Time = at
		credit := bookkeeping.NewSplit(bookkeeping.M("1000", usd), checking.UID)
		credit.Type = bookkeeping.Credit
		tx.AddSplit(bookkeeping.NewSplit(bookkeeping.M("1000", usd), home.UID), credit)
		return tx
	}
	template := pay(jan1)
	template.Template = true
	if err := s.AddTransactions(ctx, template, pay(jan1), pay(jan1.AddDate(0, 1, 0))); err != nil {
		t.Fatal(err)
	}
	if err := s.AddScheduledAction(ctx, schedule.NewTransactionAction(template, recurrence.New(date.Monthly, 1, jan1))); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFileBackup_BackupBook(t *testing.T) {
	ctx := context.Background()
	book := rentBook(t)
	dir := t.TempDir()
	now := jan1.AddDate(0, 2, 0)
	b := &FileBackup{
		Dir:  dir,
		Open: func(ctx context.Context, uid string) (Source, error) { return book, nil },
		Now:  func() time.Time { return now },
	}

	done, err := b.BackupBook(ctx, "home", "", time.Time{})
	if err != nil || !done {
		t.Fatalf("BackupBook() = %v, %v, want a backup", done, err)
	}
	path := filepath.Join(dir, "home_20240301T000000.jsonl")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}
	if txs, _ := book.TransactionsSince(ctx, time.Time{}, false); len(txs) != 0 {
		t.Errorf("%d transactions not marked exported", len(txs))
	}

	// nothing new since.
	now = now.Add(time.Hour)
	if done, err := b.BackupBook(ctx, "home", "", time.Time{}); err != nil || done {
		t.Errorf("second BackupBook() = %v, %v, want nothing to back up", done, err)
	}
	// unless everything is exported again.
	if done, err := b.BackupBook(ctx, "home", "all=true", time.Time{}); err != nil || !done {
		t.Errorf("BackupBook(all) = %v, %v, want a backup", done, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("%d backup files, want 2", len(entries))
	}
}

func TestFileBackup_BackDated(t *testing.T) {
	ctx := context.Background()
	book := rentBook(t)
	b := &FileBackup{
		Dir:  t.TempDir(),
		Open: func(ctx context.Context, uid string) (Source, error) { return book, nil },
		Now:  func() time.Time { return jan1.AddDate(0, 3, 0) },
	}
	if done, err := b.BackupBook(ctx, "home", "", time.Time{}); err != nil || !done {
		t.Fatalf("BackupBook() = %v, %v, want a backup", done, err)
	}

	// entered after the last run but dated before it.
	templates, _ := book.Templates(ctx)
	late := templates[0].Clone(true)
	late.Time = jan1.AddDate(0, 2, 0)
	if err := book.AddTransactions(ctx, late); err != nil {
		t.Fatal(err)
	}
	lastRun := jan1.AddDate(0, 3, 0)
	if done, err := b.BackupBook(ctx, "home", "", lastRun); err != nil || !done {
		t.Fatalf("BackupBook() = %v, %v, want the back dated transaction backed up", done, err)
	}
	if txs, _ := book.TransactionsSince(ctx, time.Time{}, false); len(txs) != 0 {
		t.Errorf("%d transactions not exported, want none", len(txs))
	}
	// all=true only goes back to the last run.
	if done, err := b.BackupBook(ctx, "home", "all=true", lastRun); err != nil || done {
		t.Errorf("BackupBook(all) = %v, %v, want nothing since the last run", done, err)
	}
}

func TestFileBackup_Restore(t *testing.T) {
	ctx := context.Background()
	book := rentBook(t)
	dir := t.TempDir()
	b := &FileBackup{
		Dir:  dir,
		Open: func(ctx context.Context, uid string) (Source, error) { return book, nil },
		Now:  func() time.Time { return jan1 },
	}
	if done, err := b.BackupBook(ctx, "home", "target="+filepath.Join(dir, "sub"), time.Time{}); err != nil || !done {
		t.Fatalf("BackupBook() = %v, %v", done, err)
	}

	f, err := os.Open(filepath.Join(dir, "sub", FileName("home", jan1)))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	restored := memory.New()
	if err := Restore(ctx, f, restored); err != nil {
		t.Fatalf("Restore() unexpected error: %v", err)
	}

	accounts, _ := restored.Accounts(ctx)
	if len(accounts) != 3 {
		t.Errorf("restored %d accounts, want 3", len(accounts))
	}
	if n, _ := restored.TransactionsCount(ctx); n != 2 {
		t.Errorf("restored %d transactions, want 2", n)
	}
	if templates, _ := restored.Templates(ctx); len(templates) != 1 {
		t.Errorf("restored %d templates, want 1", len(templates))
	}
	actions, _ := restored.ScheduledActions(ctx)
	if len(actions) != 1 || actions[0].Recurrence.String() != "FREQ=MONTHLY" {
		t.Errorf("restored actions = %v, want the monthly rent", actions)
	}
}

func TestFileBackup_DeleteAfter(t *testing.T) {
	ctx := context.Background()
	book := rentBook(t)
	b := &FileBackup{
		Dir:  t.TempDir(),
		Open: func(ctx context.Context, uid string) (Source, error) { return book, nil },
	}
	since := jan1.AddDate(0, 0, 15)
	if done, err := b.BackupBook(ctx, "home", "since=2024-01-16T00:00:00Z;delete=true", time.Time{}); err != nil || !done {
		t.Fatalf("BackupBook() = %v, %v", done, err)
	}
	if n, _ := book.TransactionsCount(ctx); n != 1 {
		t.Errorf("%d transactions left, want the one before %v", n, since)
	}
}

func TestFileBackup_OpenFailure(t *testing.T) {
	b := &FileBackup{
		Dir:  t.TempDir(),
		Open: func(ctx context.Context, uid string) (Source, error) { return nil, bookkeeping.ErrNotFound },
	}
	if _, err := b.BackupBook(context.Background(), "lost", "", time.Time{}); !errors.Is(err, bookkeeping.ErrNotFound) {
		t.Errorf("BackupBook() error = %v, want ErrNotFound", err)
	}
}
