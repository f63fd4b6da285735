package cmd

import (
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/date"
	"github.com/etnz/bookkeeping/internal/config"
	"github.com/etnz/bookkeeping/registry"
	"github.com/etnz/bookkeeping/store/sqlite"
	"github.com/google/subcommands"
)

// sandbox points the configuration and the data to a temporary directory.
func sandbox(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("BK_CONFIG", filepath.Join(dir, "config.toml"))
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

// bk executes the command line args.
func bk(t *testing.T, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet("bk", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "bk")
	Register(commander)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return commander.Execute(context.Background())
}

// mustBk executes args and fails the test unless they succeed.
func mustBk(t *testing.T, args ...string) {
	t.Helper()
	if status := bk(t, args...); status != subcommands.ExitSuccess {
		t.Fatalf("bk %v = %v, want success", args, status)
	}
}

// book opens the book named name.
func book(t *testing.T, cfg config.Config, name string) *sqlite.Store {
	t.Helper()
	reg, err := registry.Open(cfg.Registry.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()
	b, err := findBook(reg, name)
	if err != nil {
		t.Fatal(err)
	}
	st, err := sqlite.Open(context.Background(), b.Path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestScheduledRent(t *testing.T) {
	ctx := context.Background()
	cfg := sandbox(t)

	mustBk(t, "books", "add", "-name", "Home")
	mustBk(t, "accounts", "add", "-name", "Checking", "-type", "bank")
	mustBk(t, "accounts", "add", "-name", "Housing", "-type", "expense", "-placeholder")
	mustBk(t, "accounts", "add", "-name", "Rent", "-type", "expense", "-parent", "Housing")
	mustBk(t, "tx", "add", "-from", "Checking", "-to", "Housing:Rent", "-amount", "1,000", "-desc", "rent", "-template")
	mustBk(t, "schedule", "add", "-template", "rent", "-every", "month", "-start", "2024-01-01", "-count", "3")
	mustBk(t, "run")
	mustBk(t, "run")

	st := book(t, cfg, "Home")
	if n, err := st.TransactionsCount(ctx); err != nil || n != 3 {
		t.Fatalf("TransactionsCount() = %d, %v, want 3 rents", n, err)
	}
	rent, err := findAccount(ctx, st, "Housing:Rent")
	if err != nil {
		t.Fatal(err)
	}
	balance, err := bookkeeping.Balancer{Book: st}.Balance(ctx, rent.UID, date.Interval{})
	if err != nil {
		t.Fatal(err)
	}
	if balance.String() != "3000.00" {
		t.Errorf("rent balance = %s, want 3000.00", balance)
	}

	mustBk(t, "schedule", "list")
	mustBk(t, "balance", "-r")
	mustBk(t, "tx", "list", "-from", "2024-02-01")
	mustBk(t, "books", "list")
}

func TestBackupAndImport(t *testing.T) {
	ctx := context.Background()
	cfg := sandbox(t)

	mustBk(t, "books", "add", "-name", "Home", "-commodity", "EUR")
	mustBk(t, "accounts", "add", "-name", "Wallet", "-type", "cash")
	mustBk(t, "accounts", "add", "-name", "Food", "-type", "expense")
	mustBk(t, "tx", "add", "-from", "Wallet", "-to", "Food", "-amount", "12.5", "-d", "2024-03-01", "-desc", "market")
	if status := bk(t, "backup", "-tag", "format=xml"); status == subcommands.ExitSuccess {
		t.Error("bk backup with an unsupported format succeeded")
	}
	mustBk(t, "backup")

	files, err := filepath.Glob(filepath.Join(cfg.Backup.Dir, "*.jsonl"))
	if err != nil || len(files) != 1 {
		t.Fatalf("backups = %v, %v, want one file", files, err)
	}
	mustBk(t, "books", "import", "-name", "Copy", files[0])
	if status := bk(t, "books", "import", "-name", "Copy", files[0]); status == subcommands.ExitSuccess {
		t.Error("importing a book under an existing name succeeded")
	}

	st := book(t, cfg, "Copy")
	txs, err := st.TransactionsSince(ctx, date.All().From, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].Description != "market" || txs[0].Commodity.Code() != "EUR" {
		t.Fatalf("imported transactions = %v, want the market expense in EUR", txs)
	}
	if root, err := rootAccount(ctx, st); err != nil || root == "" {
		t.Errorf("rootAccount() = %q, %v, want the imported root", root, err)
	}
}

func TestUsageErrors(t *testing.T) {
	sandbox(t)
	testCases := [][]string{
		{"books", "add"},
		{"accounts", "add", "-name", "Root", "-type", "root"},
		{"tx", "list", "-head", "1", "-tail", "1"},
		{"schedule", "add", "-every", "month"},
		{"price", "EUR", "USD"},
	}
	for _, args := range testCases {
		if status := bk(t, args...); status != subcommands.ExitUsageError {
			t.Errorf("bk %v = %v, want a usage error", args, status)
		}
	}
	if status := bk(t, "accounts", "list"); status != subcommands.ExitFailure {
		t.Errorf("bk accounts list without book = %v, want a failure", status)
	}
}

func TestCompletion(t *testing.T) {
	commander := subcommands.NewCommander(flag.NewFlagSet("bk", flag.ContinueOnError), "bk")
	Register(commander)
	completion := Completion()
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		if _, ok := completion.Sub[c.Name()]; !ok {
			t.Errorf("command %q has no completion", c.Name())
		}
	})
}

func TestTransfer(t *testing.T) {
	usd := bookkeeping.MustCommodityOf("USD")
	eur := bookkeeping.MustCommodityOf("EUR")
	value := bookkeeping.M("110", usd)
	tx, err := transfer("trip", "cash", value, bookkeeping.M("100", eur), "checking", "wallet")
	if err != nil {
		t.Fatalf("transfer() unexpected error: %v", err)
	}
	splits := tx.Splits()
	if len(splits) != 2 {
		t.Fatalf("transfer() has %d splits, want 2", len(splits))
	}
	debit, credit := splits[0], splits[1]
	if !debit.IsPairOf(credit) || !tx.IsBalanced() {
		t.Errorf("transfer() legs %+v and %+v are not a balanced pair", debit, credit)
	}
	if debit.AccountUID != "wallet" || debit.Type != bookkeeping.Debit || debit.Quantity().Commodity().Code() != "EUR" || debit.Quantity().String() != "100.00" {
		t.Errorf("debit = %v %v %v on %s, want 100.00 EUR on wallet", debit.Type, debit.Quantity(), debit.Quantity().Commodity(), debit.AccountUID)
	}
	if credit.AccountUID != "checking" || credit.Type != bookkeeping.Credit || !credit.Quantity().Equal(value) || credit.Memo != "cash" {
		t.Errorf("credit = %v %v %q on %s, want 110.00 USD on checking", credit.Type, credit.Quantity(), credit.Memo, credit.AccountUID)
	}
}
