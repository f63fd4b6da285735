package schedule_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/date"
	"github.com/etnz/bookkeeping/recurrence"
	"github.com/etnz/bookkeeping/registry"
	"github.com/etnz/bookkeeping/schedule"
	"github.com/etnz/bookkeeping/store/memory"
)

var (
	usd = bookkeeping.MustCommodityOf("USD")
	day = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
)

// rentBook returns a store with a monthly rent template.
func rentBook(t *testing.T) (*memory.Store, *bookkeeping.Transaction) {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	checking := bookkeeping.NewAccount("Checking", bookkeeping.Bank, usd, "")
	rent := bookkeeping.NewAccount("Rent", bookkeeping.Expense, usd, "")
	for _, a := range []bookkeeping.Account{checking, rent} {
		if err := s.AddAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	template := bookkeeping.NewTransaction("rent")
	template.Template = true
	template.Commodity = usd
	credit := bookkeeping.NewSplit(bookkeeping.M("1000", usd), checking.UID)
	credit.Type = bookkeeping.Credit
	template.AddSplit(bookkeeping.NewSplit(bookkeeping.M("1000", usd), rent.UID), credit)
	if err := s.AddTransactions(ctx, template); err != nil {
		t.Fatal(err)
	}
	return s, template
}

func addAction(t *testing.T, s *memory.Store, a schedule.ScheduledAction) {
	t.Helper()
	if err := s.AddScheduledAction(context.Background(), a); err != nil {
		t.Fatalf("AddScheduledAction() unexpected error: %v", err)
	}
}

// at returns a clock stopped at t.
func at(t time.Time) func() time.Time { return func() time.Time { return t } }

// fakeBackup counts the backups and answers with done and err.
type fakeBackup struct {
	calls int
	tags  []string
	since []time.Time
	done  bool
	err   error
}

func (b *fakeBackup) BackupBook(ctx context.Context, bookUID, tag string, since time.Time) (bool, error) {
	b.calls++
	b.tags = append(b.tags, tag)
	b.since = append(b.since, since)
	return b.done, b.err
}

func TestProcessBook_PlannedCount(t *testing.T) {
	ctx := context.Background()
	s, template := rentBook(t)
	action := schedule.NewTransactionAction(template, recurrence.New(date.Monthly, 1, day))
	action.TotalPlannedExecutionCount = 3
	addAction(t, s, action)

	p := &schedule.Processor{Now: at(day.AddDate(0, 4, 0))}
	report := p.ProcessBook(ctx, "book", s)
	if report.Errors != nil {
		t.Fatalf("ProcessBook() unexpected errors: %v", report.Errors)
	}
	if report.Created != 3 {
		t.Errorf("ProcessBook() created %d transactions, want 3", report.Created)
	}
	got, _ := s.ScheduledAction(ctx, action.UID)
	if got.ExecutionCount != 3 {
		t.Errorf("ExecutionCount = %d, want 3", got.ExecutionCount)
	}

	txs, _ := s.TransactionsSince(ctx, time.Time{}, true)
	want := []time.Time{day, day.AddDate(0, 1, 0), day.AddDate(0, 2, 0)}
	if len(txs) != len(want) {
		t.Fatalf("got %d transactions, want %d", len(txs), len(want))
	}
	for i, tx := range txs {
		if !tx.Time.Equal(want[i]) {
			t.Errorf("transaction #%d at %v, want %v", i, tx.Time, want[i])
		}
		if tx.Template || tx.ScheduledActionUID != action.UID || tx.UID == template.UID {
			t.Errorf("transaction #%d = %+v, want a fresh instance of the template", i, tx)
		}
	}

	// later runs find the action exhausted.
	p.Now = at(day.AddDate(1, 0, 0))
	report = p.ProcessBook(ctx, "book", s)
	if report.Created != 0 || report.Skipped != 1 {
		t.Errorf("second ProcessBook() = %v, want nothing created and one skip", report)
	}
	if n, _ := s.TransactionsCount(ctx); n != 3 {
		t.Errorf("TransactionsCount() = %d, want 3", n)
	}
}

func TestProcessBook_IrregularRuns(t *testing.T) {
	ctx := context.Background()
	s, template := rentBook(t)
	action := schedule.NewTransactionAction(template, recurrence.New(date.Monthly, 1, day))
	action.TotalPlannedExecutionCount = 5
	addAction(t, s, action)

	p := &schedule.Processor{}
	total := 0
	for _, run := range []struct {
		now  time.Time
		want int
	}{
		{day.Add(-time.Hour), 0},
		{day, 1}, // exactly on the first occurrence
		{day.AddDate(0, 0, 10), 0},
		{day.AddDate(0, 1, 0), 1},
		{day.AddDate(0, 1, 0).Add(time.Second), 0},
		{day.AddDate(0, 2, 20), 1},
		{day.AddDate(0, 3, 0).Add(-time.Nanosecond), 0},
		{day.AddDate(1, 0, 0), 2},
		{day.AddDate(2, 0, 0), 0},
	} {
		p.Now = at(run.now)
		report := p.ProcessBook(ctx, "book", s)
		if report.Errors != nil {
			t.Fatalf("ProcessBook() at %v unexpected errors: %v", run.now, report.Errors)
		}
		if report.Created != run.want {
			t.Errorf("ProcessBook() at %v created %d, want %d", run.now, report.Created, run.want)
		}
		total += report.Created
	}
	if total != 5 {
		t.Errorf("created %d transactions in total, want 5", total)
	}

	txs, _ := s.TransactionsSince(ctx, time.Time{}, true)
	if len(txs) != 5 {
		t.Fatalf("got %d transactions, want 5", len(txs))
	}
	for i, tx := range txs {
		if want := day.AddDate(0, i, 0); !tx.Time.Equal(want) {
			t.Errorf("transaction #%d at %v, want %v", i, tx.Time, want)
		}
		if i > 0 && !tx.Time.After(txs[i-1].Time) {
			t.Errorf("transaction #%d at %v, not after %v", i, tx.Time, txs[i-1].Time)
		}
	}
}

func TestProcessBook_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, template := rentBook(t)
	action := schedule.NewTransactionAction(template, recurrence.New(date.Weekly, 1, day))
	addAction(t, s, action)

	now := day.AddDate(0, 0, 20)
	p := &schedule.Processor{Now: at(now)}
	if r := p.ProcessBook(ctx, "book", s); r.Created != 3 {
		t.Fatalf("first ProcessBook() created %d, want 3", r.Created)
	}
	stored, _ := s.ScheduledAction(ctx, action.UID)
	if r := p.ProcessBook(ctx, "book", s); r.Created != 0 || r.Errors != nil {
		t.Errorf("second ProcessBook() = %v, %v, want nothing created", r, r.Errors)
	}
	again, _ := s.ScheduledAction(ctx, action.UID)
	if !again.LastRun.Equal(stored.LastRun) || again.ExecutionCount != stored.ExecutionCount {
		t.Errorf("no-op run changed the action: %v/%d, want %v/%d", again.LastRun, again.ExecutionCount, stored.LastRun, stored.ExecutionCount)
	}
}

func TestProcessBook_Horizon(t *testing.T) {
	testCases := []struct {
		name    string
		setup   func(a *schedule.ScheduledAction)
		now     time.Time
		created int
	}{
		{"due only", func(a *schedule.ScheduledAction) {}, day.AddDate(0, 0, 10), 2},
		{"created in advance", func(a *schedule.ScheduledAction) { a.AdvanceCreateDays = 7 }, day.AddDate(0, 0, 10), 3},
		{"end date", func(a *schedule.ScheduledAction) { a.End = day.AddDate(0, 0, 8) }, day.AddDate(0, 0, 30), 2},
		{"until", func(a *schedule.ScheduledAction) { a.Recurrence.End = recurrence.Until(day.AddDate(0, 0, 14)) }, day.AddDate(0, 0, 30), 3},
		{"rule count", func(a *schedule.ScheduledAction) { a.Recurrence.End = recurrence.Count(2) }, day.AddDate(0, 0, 30), 2},
		{"not started", func(a *schedule.ScheduledAction) { a.Start = day.AddDate(0, 1, 0) }, day, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s, template := rentBook(t)
			action := schedule.NewTransactionAction(template, recurrence.New(date.Weekly, 1, day))
			tc.setup(&action)
			addAction(t, s, action)

			p := &schedule.Processor{Now: at(tc.now)}
			report := p.ProcessBook(ctx, "book", s)
			if report.Errors != nil {
				t.Fatalf("ProcessBook() unexpected errors: %v", report.Errors)
			}
			if report.Created != tc.created {
				t.Errorf("ProcessBook() created %d, want %d", report.Created, tc.created)
			}
		})
	}
}

func TestProcessBook_PartialFailure(t *testing.T) {
	ctx := context.Background()
	s, template := rentBook(t)
	other := template.Clone(true)
	other.Template = true
	if err := s.AddTransactions(ctx, other); err != nil {
		t.Fatal(err)
	}
	broken := schedule.NewTransactionAction(template, recurrence.New(date.Monthly, 1, day))
	broken.Created = day
	addAction(t, s, broken)
	working := schedule.NewTransactionAction(other, recurrence.New(date.Monthly, 1, day))
	working.Created = day.Add(time.Second)
	addAction(t, s, working)
	// the template of the first action disappears.
	if err := s.DeleteTransaction(ctx, template.UID); err != nil {
		t.Fatal(err)
	}

	p := &schedule.Processor{Now: at(day.AddDate(0, 1, 0))}
	report := p.ProcessBook(ctx, "book", s)
	if report.Failed != 1 || !errors.Is(report.Errors, bookkeeping.ErrNotFound) {
		t.Errorf("ProcessBook() = %v, %v, want one failure on a missing template", report, report.Errors)
	}
	if report.Created != 2 {
		t.Errorf("ProcessBook() created %d, want 2 from the working action", report.Created)
	}
	got, _ := s.ScheduledAction(ctx, broken.UID)
	if got.ExecutionCount != 0 {
		t.Errorf("failed action ExecutionCount = %d, want 0", got.ExecutionCount)
	}
}

func TestProcessBook_Backup(t *testing.T) {
	ctx := context.Background()
	s, _ := rentBook(t)
	action := schedule.NewBackupAction("format=jsonl", recurrence.New(date.Daily, 1, day))
	addAction(t, s, action)

	backup := &fakeBackup{done: true}
	now := day.Add(time.Hour)
	p := &schedule.Processor{Backup: backup, Now: at(now)}
	if r := p.ProcessBook(ctx, "book", s); r.Backups != 1 || r.Errors != nil {
		t.Fatalf("first ProcessBook() = %v, %v, want one backup", r, r.Errors)
	}
	p.Now = at(now.Add(30 * time.Second))
	if r := p.ProcessBook(ctx, "book", s); r.Backups != 0 || r.Skipped != 1 {
		t.Errorf("second ProcessBook() = %v, want the backup not due", r)
	}
	if backup.calls != 1 {
		t.Errorf("BackupBook called %d times, want 1", backup.calls)
	}
	if backup.tags[0] != "format=jsonl" || !backup.since[0].IsZero() {
		t.Errorf("BackupBook(%q, %v), want the action tag since ever", backup.tags[0], backup.since[0])
	}

	p.Now = at(now.AddDate(0, 0, 1))
	if r := p.ProcessBook(ctx, "book", s); r.Backups != 1 {
		t.Errorf("next day ProcessBook() = %v, want one backup", r)
	}
	if !backup.since[1].Equal(now) {
		t.Errorf("BackupBook since = %v, want the last run %v", backup.since[1], now)
	}
}

func TestProcessBook_BackupNotAdvanced(t *testing.T) {
	testCases := []struct {
		name   string
		backup *fakeBackup
		failed int
	}{
		{"nothing to back up", &fakeBackup{}, 0},
		{"failure", &fakeBackup{err: errors.New("disk full")}, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s, _ := rentBook(t)
			action := schedule.NewBackupAction("", recurrence.New(date.Daily, 1, day))
			addAction(t, s, action)

			p := &schedule.Processor{Backup: tc.backup, Now: at(day.Add(time.Hour))}
			report := p.ProcessBook(ctx, "book", s)
			if report.Failed != tc.failed || report.Backups != 0 {
				t.Errorf("ProcessBook() = %v, want %d failure and no backup", report, tc.failed)
			}
			got, _ := s.ScheduledAction(ctx, action.UID)
			if !got.LastRun.IsZero() || got.ExecutionCount != 0 {
				t.Errorf("action advanced to %v/%d, want unchanged", got.LastRun, got.ExecutionCount)
			}
			// it is retried on the next run.
			p.ProcessBook(ctx, "book", s)
			if tc.backup.calls != 2 {
				t.Errorf("BackupBook called %d times, want 2", tc.backup.calls)
			}
		})
	}
}

func TestProcessBook_BackupEnded(t *testing.T) {
	ctx := context.Background()
	s, _ := rentBook(t)
	action := schedule.NewBackupAction("", recurrence.New(date.Daily, 1, day))
	action.End = day.AddDate(0, 0, 2)
	addAction(t, s, action)

	backup := &fakeBackup{done: true}
	p := &schedule.Processor{Backup: backup, Now: at(day.AddDate(0, 0, 3))}
	if r := p.ProcessBook(ctx, "book", s); r.Skipped != 1 || backup.calls != 0 {
		t.Errorf("ProcessBook() = %v with %d backups, want a skip", r, backup.calls)
	}
}

type lister []registry.Book

func (l lister) Books() ([]registry.Book, error) { return l, nil }

func TestProcessor_Run(t *testing.T) {
	ctx := context.Background()
	stores := make(map[string]*memory.Store)
	var books lister
	for _, uid := range []string{"home", "work"} {
		s, template := rentBook(t)
		addAction(t, s, schedule.NewTransactionAction(template, recurrence.New(date.Monthly, 1, day)))
		stores[uid] = s
		books = append(books, registry.Book{UID: uid, DisplayName: uid, Active: uid == "home"})
	}
	books = append(books, registry.Book{UID: "lost", DisplayName: "lost"})

	opened := 0
	p := &schedule.Processor{
		Books: books,
		Open: func(ctx context.Context, book registry.Book) (schedule.BookStore, error) {
			opened++
			s, ok := stores[book.UID]
			if !ok {
				return nil, errors.New("no such file")
			}
			return s, nil
		},
		Now: at(day.AddDate(0, 1, 0)),
	}
	report, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if report.Books != 2 || report.Created != 4 || report.Failed != 1 {
		t.Errorf("Run() = %v, want 2 books, 4 transactions and 1 failure", report)
	}
	if !strings.Contains(report.Errors.Error(), "lost") {
		t.Errorf("Run() errors = %v, want the lost book", report.Errors)
	}
	if stores["home"].Closed() || !stores["work"].Closed() {
		t.Errorf("closed home=%v work=%v, want only the inactive book closed", stores["home"].Closed(), stores["work"].Closed())
	}

	// the active book handle is reused.
	if _, err := p.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if opened != 5 {
		t.Errorf("Open called %d times, want 5", opened)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !stores["home"].Closed() {
		t.Error("Close() did not close the active book")
	}
}
