package bookkeeping

import (
	"context"
	"fmt"

	"github.com/etnz/bookkeeping/date"
)

// BalanceSource is the read side of a book a Balancer needs.
type BalanceSource interface {
	Account(ctx context.Context, uid string) (Account, error)
	ChildAccounts(ctx context.Context, uid string) ([]Account, error)
	// AccountSplits returns the splits on account uid of non template
	// transactions occurring in interval.
	AccountSplits(ctx context.Context, uid string, interval date.Interval) ([]*Split, error)
}

// BalanceReport is the result of a recursive balance.
type BalanceReport struct {
	Total Money
	// Excluded lists the accounts left out of Total because no price
	// converts their commodity into the reporting one.
	Excluded []string
}

// Balancer computes account balances from the splits of a book.
type Balancer struct {
	Book   BalanceSource
	Prices PriceLookup // optional, without it foreign accounts are excluded
}

// Balance returns the balance of account uid over interval, positive on the
// account's normal side. The zero Interval covers all time.
func (b Balancer) Balance(ctx context.Context, uid string, interval date.Interval) (Money, error) {
	acc, err := b.Book.Account(ctx, uid)
	if err != nil {
		return Money{}, err
	}
	return b.balance(ctx, acc, acc.Type.HasDebitNormalBalance(), interval)
}

// balance sums the split quantities of acc, debits counted positive when debitNormal.
func (b Balancer) balance(ctx context.Context, acc Account, debitNormal bool, interval date.Interval) (Money, error) {
	splits, err := b.Book.AccountSplits(ctx, acc.UID, interval)
	if err != nil {
		return Money{}, fmt.Errorf("balance of %s: %w", acc.Name, err)
	}
	total := ZeroMoney(acc.Commodity)
	for _, s := range splits {
		if (s.Type == Debit) == debitNormal {
			total, err = total.Add(s.Quantity())
		} else {
			total, err = total.Sub(s.Quantity())
		}
		if err != nil {
			return Money{}, fmt.Errorf("balance of %s: %w", acc.Name, err)
		}
	}
	return total, nil
}

// RecursiveBalance returns the balance of account uid and all its
// descendants over interval, expressed in reporting. Descendant balances are
// signed on the normal side of account uid.
//
// A descendant whose commodity cannot be converted is reported in Excluded
// and does not contribute to the total.
func (b Balancer) RecursiveBalance(ctx context.Context, uid string, interval date.Interval, reporting Commodity) (BalanceReport, error) {
	root, err := b.Book.Account(ctx, uid)
	if err != nil {
		return BalanceReport{}, err
	}
	debitNormal := root.Type.HasDebitNormalBalance()
	report := BalanceReport{Total: ZeroMoney(reporting)}

	queue := []Account{root}
	for len(queue) > 0 {
		acc := queue[0]
		queue = queue[1:]
		children, err := b.Book.ChildAccounts(ctx, acc.UID)
		if err != nil {
			return BalanceReport{}, err
		}
		queue = append(queue, children...)

		raw, err := b.balance(ctx, acc, debitNormal, interval)
		if err != nil {
			return BalanceReport{}, err
		}
		if raw.IsZero() {
			continue
		}
		converted, ok, err := b.convert(ctx, raw, reporting)
		if err != nil {
			return BalanceReport{}, err
		}
		if !ok {
			report.Excluded = append(report.Excluded, acc.UID)
			continue
		}
		if report.Total, err = report.Total.Add(converted); err != nil {
			return BalanceReport{}, err
		}
	}
	return report, nil
}

func (b Balancer) convert(ctx context.Context, m Money, target Commodity) (Money, bool, error) {
	if m.Commodity().Code() == target.Code() {
		return m, true, nil
	}
	if b.Prices == nil {
		return Money{}, false, nil
	}
	p, ok, err := b.Prices.Price(ctx, m.Commodity().Code(), target.Code())
	if err != nil || !ok {
		return Money{}, false, err
	}
	c, err := Exchange(m, p, target)
	if err != nil {
		return Money{}, false, err
	}
	return c, true, nil
}
