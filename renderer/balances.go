package renderer

import (
	"context"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/date"
)

// BalanceView is an account tree with the balance of each account.
type BalanceView struct {
	Title    string
	Period   string // empty for all time
	Rows     []BalanceRow
	Excluded []string // accounts without a price to the reporting commodity
}

// BalanceRow is one account of a BalanceView.
type BalanceRow struct {
	UID     string
	Name    string
	Type    bookkeeping.AccountType
	Depth   int
	Balance string
	Raw     bookkeeping.Money // on the normal side of the account
}

// NewBalanceView computes the balance of account uid and, when recursive,
// of each of its descendants including their own descendants. Balances are
// shown under convention.
func NewBalanceView(ctx context.Context, b bookkeeping.Balancer, uid string, interval date.Interval, recursive bool, convention bookkeeping.DisplayConvention) (*BalanceView, error) {
	root, err := b.Book.Account(ctx, uid)
	if err != nil {
		return nil, err
	}
	v := &BalanceView{Title: "Balance of " + root.Name}
	if interval != (date.Interval{}) {
		v.Period = interval.String()
	}
	excluded := make(map[string]bool)

	var walk func(acc bookkeeping.Account, depth int) error
	walk = func(acc bookkeeping.Account, depth int) error {
		row := BalanceRow{UID: acc.UID, Name: acc.Name, Type: acc.Type, Depth: depth}
		if recursive {
			report, err := b.RecursiveBalance(ctx, acc.UID, interval, acc.Commodity)
			if err != nil {
				return err
			}
			row.Raw = report.Total
			for _, uid := range report.Excluded {
				excluded[uid] = true
			}
		} else if row.Raw, err = b.Balance(ctx, acc.UID, interval); err != nil {
			return err
		}
		row.Balance = bookkeeping.DisplayBalance(acc.Type, row.Raw, convention).Formatted()
		v.Rows = append(v.Rows, row)
		if !recursive {
			return nil
		}
		children, err := b.Book.ChildAccounts(ctx, acc.UID)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, 0); err != nil {
		return nil, err
	}

	for _, row := range v.Rows {
		if excluded[row.UID] {
			v.Excluded = append(v.Excluded, row.Name)
		}
	}
	return v, nil
}

// Balances renders v as a markdown table.
func Balances(v *BalanceView) string {
	return render("balances", v)
}
