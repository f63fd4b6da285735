package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/date"
	"github.com/google/subcommands"
)

type priceCmd struct {
	date   string
	source string
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "record the price of a commodity in another" }
func (*priceCmd) Usage() string {
	return `bk price [-d <date>] [-source <text>] <from> <to> <value>

  Records the value of one unit of from expressed in to, e.g.
  'bk price EUR USD 1.08'. Prices convert foreign accounts in balances and
  transfers between commodities.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Day of the price (YYYY-MM-DD). Defaults to today.")
	f.StringVar(&c.source, "source", "user", "Origin of the price.")
}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	day, err := parseDay(c.date, date.Today())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	value, err := bookkeeping.ParseAmount(f.Arg(2))
	if err != nil {
		return fail(err)
	}
	if !value.IsPositive() {
		fmt.Fprintln(os.Stderr, "Error: the price must be positive.")
		return subcommands.ExitUsageError
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

	p := bookkeeping.Price{
		UID:    bookkeeping.NewUID(),
		From:   strings.ToUpper(f.Arg(0)),
		To:     strings.ToUpper(f.Arg(1)),
		Day:    day,
		Value:  value,
		Source: c.source,
	}
	if err := st.AddPrice(ctx, p); err != nil {
		return fail(err)
	}
	fmt.Printf("1 %s = %s %s on %s\n", p.From, p.Value, p.To, p.Day)
	return subcommands.ExitSuccess
}
