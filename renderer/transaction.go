package renderer

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/etnz/bookkeeping"
)

// TransactionView lists transactions, one row per split.
type TransactionView struct {
	Title string
	Rows  []TransactionRow
}

// TransactionRow is one split. Date and description are only set on the
// first split of a transaction.
type TransactionRow struct {
	Date        string
	Description string
	Account     string
	Debit       string
	Credit      string
}

// NewTransactionView lists txs. accountName resolves the account of a split
// and defaults to its identifier.
func NewTransactionView(title string, txs []*bookkeeping.Transaction, accountName func(uid string) string) *TransactionView {
	v := &TransactionView{Title: title}
	for _, tx := range txs {
		for i, s := range tx.Splits() {
			row := TransactionRow{Account: s.AccountUID}
			if accountName != nil {
				row.Account = accountName(s.AccountUID)
			}
			if i == 0 {
				row.Date = day(tx.Time)
				row.Description = tx.Description
			}
			if s.Type == bookkeeping.Debit {
				row.Debit = amount(s.Value())
			} else {
				row.Credit = amount(s.Value())
			}
			v.Rows = append(v.Rows, row)
		}
	}
	return v
}

// Transactions renders v as a markdown table followed by the list of the
// transactions that do not balance.
func Transactions(v *TransactionView, txs []*bookkeeping.Transaction) string {
	var b strings.Builder
	b.WriteString(render("transactions", v))
	optional(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n## Imbalanced\n\n")
		found := false
		for _, tx := range txs {
			imbalance, err := tx.ComputeImbalance()
			if err != nil {
				fmt.Fprintf(w, "- %s %s: %v\n", day(tx.Time), tx.Description, err)
				found = true
				continue
			}
			for _, code := range slices.Sorted(maps.Keys(imbalance)) {
				if m := imbalance[code]; !m.IsZero() {
					fmt.Fprintf(w, "- %s %s: %s\n", day(tx.Time), tx.Description, m.SignedString())
					found = true
				}
			}
		}
		return found
	})
	return b.String()
}
