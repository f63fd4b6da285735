package bookkeeping

import (
	"context"
	"fmt"
	"slices"

	"github.com/etnz/bookkeeping/date"
)

var (
	usd = MustCommodityOf("USD")
	eur = MustCommodityOf("EUR")
	jpy = MustCommodityOf("JPY")
)

// USD is a helper for test to create dollars from a decimal string.
func USD(v string) Money { return M(v, usd) }

// EUR is a helper for test to create euros from a decimal string.
func EUR(v string) Money { return M(v, eur) }

// fakeBook is a minimal BalanceSource over a fixed chart of accounts.
type fakeBook struct {
	accounts []Account
	txs      []*Transaction
}

func (b *fakeBook) Account(ctx context.Context, uid string) (Account, error) {
	i := slices.IndexFunc(b.accounts, func(a Account) bool { return a.UID == uid })
	if i < 0 {
		return Account{}, fmt.Errorf("account %s: %w", uid, ErrNotFound)
	}
	return b.accounts[i], nil
}

func (b *fakeBook) ChildAccounts(ctx context.Context, uid string) ([]Account, error) {
	var children []Account
	for _, a := range b.accounts {
		if a.ParentUID == uid {
			children = append(children, a)
		}
	}
	return children, nil
}

func (b *fakeBook) AccountSplits(ctx context.Context, uid string, interval date.Interval) ([]*Split, error) {
	var splits []*Split
	for _, tx := range b.txs {
		if tx.Template || !interval.Contains(tx.Time) {
			continue
		}
		for _, s := range tx.Splits() {
			if s.AccountUID == uid {
				splits = append(splits, s)
			}
		}
	}
	return splits, nil
}

// transfer returns a balanced two split transaction moving value from one account to another.
func transfer(desc string, value Money, from, to string) *Transaction {
	tx := NewTransaction(desc)
	tx.Commodity = value.Commodity()
	debit := NewSplit(value, to)
	credit := NewSplit(value, from)
	credit.Type = Credit
	tx.AddSplit(debit, credit)
	return tx
}
