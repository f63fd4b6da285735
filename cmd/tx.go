package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/date"
	"github.com/etnz/bookkeeping/renderer"
	"github.com/google/subcommands"
)

// txCmd is a container for transaction subcommands
type txCmd struct{}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "add and list transactions" }
func (*txCmd) Usage() string {
	return `tx <subcommand> [args]

Commands:
  add  - Record a transfer between two accounts.
  list - List the transactions of the book.
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {}
func (c *txCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	commander := subcommands.NewCommander(f, "tx")
	commander.Register(&txAddCmd{}, "")
	commander.Register(&txListCmd{}, "")
	return commander.Execute(ctx, args...)
}

// --- Add Command ---

type txAddCmd struct {
	date        string
	from        string
	to          string
	amount      string
	quantity    string
	description string
	note        string
	memo        string
	template    bool
}

func (*txAddCmd) Name() string     { return "add" }
func (*txAddCmd) Synopsis() string { return "record a transfer between two accounts" }
func (*txAddCmd) Usage() string {
	return `bk tx add -from <account> -to <account> -amount <amount> [-d <date>] [-desc <text>] [-q <quantity>] [-m <memo>] [-template]

  Records a transaction moving amount, in the commodity of the from account,
  to the to account. When the to account holds another commodity, the
  quantity it receives is given by -q or converted with the latest price.

  With -template, the transaction is a template for scheduled actions: it
  does not count in balances.
`
}

func (c *txAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD). Defaults to now.")
	f.StringVar(&c.from, "from", "", "Account credited, by name or ID.")
	f.StringVar(&c.to, "to", "", "Account debited, by name or ID.")
	f.StringVar(&c.amount, "amount", "", "Amount transferred, e.g. 1,200.50.")
	f.StringVar(&c.quantity, "q", "", "Quantity received by the to account, in its commodity.")
	f.StringVar(&c.description, "desc", "", "Description of the transaction.")
	f.StringVar(&c.note, "note", "", "Note attached to the transaction.")
	f.StringVar(&c.memo, "m", "", "Memo of the splits.")
	f.BoolVar(&c.template, "template", false, "Record a template for scheduled actions.")
}

func (c *txAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" || c.to == "" || c.amount == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	var when time.Time
	if c.date != "" {
		day, err := parseDay(c.date, date.Today())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
		when = day.In(time.Local)
	}

	ctx, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	st, _, err := openBook(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	from, err := findAccount(ctx, st, c.from)
	if err != nil {
		return fail(err)
	}
	to, err := findAccount(ctx, st, c.to)
	if err != nil {
		return fail(err)
	}
	value, err := bookkeeping.ParseMoney(c.amount, from.Commodity)
	if err != nil {
		return fail(err)
	}
	if !value.IsPositive() {
		fmt.Fprintln(os.Stderr, "Error: the amount must be positive.")
		return subcommands.ExitUsageError
	}

	quantity := value
	if to.Commodity.Code() != from.Commodity.Code() {
		if quantity, err = c.received(ctx, st, value, to.Commodity); err != nil {
			return fail(err)
		}
	}

	tx, err := transfer(c.description, c.memo, value, quantity, from.UID, to.UID)
	if err != nil {
		return fail(err)
	}
	if !when.IsZero() {
		tx.Time = when
	}
	tx.Note = c.note
	tx.Template = c.template
	if err := st.AddTransactions(ctx, tx); err != nil {
		return fail(err)
	}
	fmt.Printf("Recorded %s from %s to %s (%s)\n", value.Formatted(), from.FullName, to.FullName, tx.UID)
	return subcommands.ExitSuccess
}

// received returns the quantity bought with value in commodity c.
func (c *txAddCmd) received(ctx context.Context, prices bookkeeping.PriceLookup, value bookkeeping.Money, target bookkeeping.Commodity) (bookkeeping.Money, error) {
	if c.quantity != "" {
		return bookkeeping.ParseMoney(c.quantity, target)
	}
	p, ok, err := prices.Price(ctx, value.Commodity().Code(), target.Code())
	if err != nil {
		return bookkeeping.Money{}, err
	}
	if !ok {
		return bookkeeping.Money{}, fmt.Errorf("no price from %s to %s, set the quantity with -q or add a price", value.Commodity(), target)
	}
	return bookkeeping.Exchange(value, p, target)
}

// transfer returns a transaction moving value from one account to another,
// which receives quantity. The source account holds the commodity of value.
func transfer(description, memo string, value, quantity bookkeeping.Money, fromUID, toUID string) (*bookkeeping.Transaction, error) {
	tx := bookkeeping.NewTransaction(description)
	tx.Commodity = value.Commodity()
	debit := bookkeeping.NewSplit(value, toUID)
	debit.Memo = memo
	credit, err := debit.CreatePair(fromUID, value.Commodity())
	if err != nil {
		return nil, err
	}
	debit.SetQuantity(quantity)
	tx.AddSplit(debit, credit)
	return tx, nil
}

// --- List Command ---

type txListCmd struct {
	from      string
	to        string
	account   string
	head      int
	tail      int
	templates bool
}

func (*txListCmd) Name() string     { return "list" }
func (*txListCmd) Synopsis() string { return "list the transactions of the book" }
func (*txListCmd) Usage() string {
	return `bk tx list [-from <date>] [-to <date>] [-account <account>] [-head <n>] [-tail <n>] [-templates]

  Lists transactions in chronological order, with options for filtering and
  limiting the output. Imbalanced transactions are reported at the end.
`
}

func (c *txListCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First day of the listing.")
	f.StringVar(&c.to, "to", "", "Last day of the listing.")
	f.StringVar(&c.account, "account", "", "Only list transactions involving this account.")
	f.IntVar(&c.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&c.tail, "tail", 0, "Show only the last N transactions.")
	f.BoolVar(&c.templates, "templates", false, "List the template transactions instead.")
}

func (c *txListCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.head > 0 && c.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
		return subcommands.ExitUsageError
	}
	interval, err := parseInterval(c.from, c.to)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	ctx, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	st, book, err := openBook(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	accounts, err := st.Accounts(ctx)
	if err != nil {
		return fail(err)
	}
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.UID] = a.FullName
	}

	title := "Transactions of " + book.DisplayName
	var txs []*bookkeeping.Transaction
	if c.templates {
		title = "Templates of " + book.DisplayName
		txs, err = st.Templates(ctx)
	} else {
		txs, err = st.TransactionsSince(ctx, interval.From, true)
	}
	if err != nil {
		return fail(err)
	}

	var only string
	if c.account != "" {
		a, err := findAccount(ctx, st, c.account)
		if err != nil {
			return fail(err)
		}
		only = a.UID
	}
	txs = slices.DeleteFunc(txs, func(tx *bookkeeping.Transaction) bool {
		if !c.templates && !interval.Contains(tx.Time) {
			return true
		}
		return only != "" && !slices.ContainsFunc(tx.Splits(), func(s *bookkeeping.Split) bool { return s.AccountUID == only })
	})

	if c.head > 0 && len(txs) > c.head {
		txs = txs[:c.head]
	}
	if c.tail > 0 && len(txs) > c.tail {
		txs = txs[len(txs)-c.tail:]
	}

	view := renderer.NewTransactionView(title, txs, func(uid string) string { return names[uid] })
	printMarkdown(renderer.Transactions(view, txs))
	return subcommands.ExitSuccess
}
