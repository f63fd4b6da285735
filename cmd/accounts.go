package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/renderer"
	"github.com/google/subcommands"
)

// accountsCmd is a container for account subcommands
type accountsCmd struct{}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "manage the chart of accounts" }
func (*accountsCmd) Usage() string {
	return `accounts <subcommand> [args]

Commands:
  list - List the accounts of the book.
  add  - Add an account.
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {}
func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	commander := subcommands.NewCommander(f, "accounts")
	commander.Register(&accountsListCmd{}, "")
	commander.Register(&accountsAddCmd{}, "")
	return commander.Execute(ctx, args...)
}

type accountsListCmd struct {
	all bool
}

func (*accountsListCmd) Name() string     { return "list" }
func (*accountsListCmd) Synopsis() string { return "list the accounts of the book" }
func (*accountsListCmd) Usage() string {
	return `bk accounts list [-a]

  Lists the chart of accounts as a tree.
`
}

func (c *accountsListCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "a", false, "Include hidden accounts.")
}

func (c *accountsListCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	st, _, err := openBook(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	accounts, err := st.Accounts(ctx)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Accounts(accounts, c.all))
	return subcommands.ExitSuccess
}

type accountsAddCmd struct {
	name        string
	typ         string
	parent      string
	commodity   string
	description string
	placeholder bool
	hidden      bool
}

func (*accountsAddCmd) Name() string     { return "add" }
func (*accountsAddCmd) Synopsis() string { return "add an account" }
func (*accountsAddCmd) Usage() string {
	return `bk accounts add -name <name> -type <type> [-parent <account>] [-commodity <code>] [-desc <text>] [-placeholder] [-hidden]

  Adds an account under parent, the root account by default. The account
  commodity defaults to its parent's.

  Types: CASH, BANK, CREDIT, ASSET, LIABILITY, INCOME, EXPENSE, PAYABLE,
  RECEIVABLE, EQUITY, CURRENCY, STOCK, MUTUAL, TRADING.
`
}

func (c *accountsAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Name of the account.")
	f.StringVar(&c.typ, "type", "", "Type of the account.")
	f.StringVar(&c.parent, "parent", "", "Parent account, by name or ID. Defaults to the root account.")
	f.StringVar(&c.commodity, "commodity", "", "Commodity of the account. Defaults to the parent's.")
	f.StringVar(&c.description, "desc", "", "Description of the account.")
	f.BoolVar(&c.placeholder, "placeholder", false, "The account only groups other accounts.")
	f.BoolVar(&c.hidden, "hidden", false, "Hide the account from listings.")
}

func (c *accountsAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" || c.typ == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	typ, err := bookkeeping.ParseAccountType(c.typ)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if typ == bookkeeping.Root {
		fmt.Fprintln(os.Stderr, "Error: a book has a single root account.")
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

	var parent bookkeeping.Account
	if c.parent != "" {
		parent, err = findAccount(ctx, st, c.parent)
	} else if book.RootAccountUID != "" {
		parent, err = st.Account(ctx, book.RootAccountUID)
	}
	if err != nil {
		return fail(err)
	}

	commodity := parent.Commodity
	if c.commodity != "" {
		if commodity, err = st.Commodity(ctx, c.commodity); err != nil {
			if commodity, err = bookkeeping.CommodityOf(c.commodity); err != nil {
				return fail(err)
			}
		}
	}
	if commodity.IsZero() {
		commodity = bookkeeping.DefaultCommodity()
	}

	account := bookkeeping.NewAccount(c.name, typ, commodity, parent.UID)
	account.FullName = fullName(parent, c.name)
	account.Description = c.description
	account.Placeholder = c.placeholder
	account.Hidden = c.hidden
	if err := st.AddAccount(ctx, account); err != nil {
		return fail(err)
	}
	fmt.Printf("Added account %s (%s)\n", account.FullName, account.UID)
	return subcommands.ExitSuccess
}
