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

type balanceCmd struct {
	recursive bool
	from      string
	to        string
	html      bool
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "display the balance of an account" }
func (*balanceCmd) Usage() string {
	return `bk balance [-r] [-from <date>] [-to <date>] [-html] [<account>]

  Displays the balance of an account, the root account by default. With -r,
  the balance includes the descendant accounts, converted with the latest
  prices, and each descendant is listed. Accounts without a price are
  excluded and reported.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.recursive, "r", false, "Include the descendant accounts.")
	f.StringVar(&c.from, "from", "", "First day of the period.")
	f.StringVar(&c.to, "to", "", "Last day of the period.")
	f.BoolVar(&c.html, "html", false, "Print the report as HTML.")
}

func (c *balanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		f.Usage()
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

	uid := book.RootAccountUID
	if f.NArg() == 1 {
		account, err := findAccount(ctx, st, f.Arg(0))
		if err != nil {
			return fail(err)
		}
		uid = account.UID
	}
	if uid == "" {
		return fail(fmt.Errorf("book %q has no root account, name the account", book.DisplayName))
	}

	balancer := bookkeeping.Balancer{Book: st, Prices: st}
	view, err := renderer.NewBalanceView(ctx, balancer, uid, interval, c.recursive, cfg.Convention())
	if err != nil {
		return fail(err)
	}
	md := renderer.Balances(view)
	if !c.html {
		printMarkdown(md)
		return subcommands.ExitSuccess
	}
	html, err := renderer.HTML(md)
	if err != nil {
		return fail(err)
	}
	fmt.Print(html)
	return subcommands.ExitSuccess
}
