package bookkeeping

import (
	"context"
	"testing"
	"time"

	"github.com/etnz/bookkeeping/date"
	"github.com/shopspring/decimal"
)

// setupBook creates a small chart of accounts with a few transactions.
//
//	assets (USD)
//	├── checking (USD)
//	└── travel (EUR)
//	expenses (USD)
//	income (USD)
func setupBook(t *testing.T) *fakeBook {
	t.Helper()
	at := func(m time.Month, d int) time.Time { return time.Date(2025, m, d, 12, 0, 0, 0, time.UTC) }

	assets := Account{UID: "assets", Name: "Assets", Type: Asset, Commodity: usd, Placeholder: true}
	checking := Account{UID: "checking", Name: "Checking", Type: Bank, Commodity: usd, ParentUID: "assets"}
	travel := Account{UID: "travel", Name: "Travel money", Type: Cash, Commodity: eur, ParentUID: "assets"}
	expenses := Account{UID: "expenses", Name: "Expenses", Type: Expense, Commodity: usd}
	income := Account{UID: "income", Name: "Salary", Type: Income, Commodity: usd}

	salary := transfer("salary", USD("3000"), "income", "checking")
	salary.Time = at(time.January, 31)
	groceries := transfer("groceries", USD("120.40"), "checking", "expenses")
	groceries.Time = at(time.February, 3)

	// buy 200 EUR for 230 USD
	exchange := NewTransaction("exchange")
	exchange.Time = at(time.February, 10)
	exchange.AddSplit(NewSplitWithQuantity(USD("230"), EUR("200"), "travel"))
	leg := NewSplit(USD("230"), "checking")
	leg.Type = Credit
	exchange.AddSplit(leg)

	template := transfer("rent", USD("900"), "checking", "expenses")
	template.Template = true
	template.Time = at(time.January, 1)

	return &fakeBook{
		accounts: []Account{assets, checking, travel, expenses, income},
		txs:      []*Transaction{salary, groceries, exchange, template},
	}
}

func TestBalancer_Balance(t *testing.T) {
	book := setupBook(t)
	b := Balancer{Book: book}
	feb := date.NewRange(date.New(2025, time.February, 1), date.Monthly, time.UTC)

	testCases := []struct {
		name     string
		account  string
		interval date.Interval
		want     Money
	}{
		{"checking all time", "checking", date.All(), USD("2649.60")},
		{"checking in february", "checking", feb, USD("-350.40")},
		{"income is positive on the credit side", "income", date.All(), USD("3000")},
		{"expenses exclude templates", "expenses", date.All(), USD("120.40")},
		{"travel sums quantities", "travel", date.All(), EUR("200")},
		{"since march", "checking", date.Since(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)), USD("0")},
		{"upper bound is excluded", "checking", date.Interval{To: time.Date(2025, time.January, 31, 12, 0, 0, 0, time.UTC)}, USD("0")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := b.Balance(context.Background(), tc.account, tc.interval)
			if err != nil {
				t.Fatalf("Balance() unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("Balance(%s) = %v %v, want %v", tc.account, got, got.Commodity(), tc.want)
			}
		})
	}
}

func TestBalancer_RecursiveBalance(t *testing.T) {
	book := setupBook(t)

	t.Run("without price the foreign account is excluded", func(t *testing.T) {
		b := Balancer{Book: book}
		report, err := b.RecursiveBalance(context.Background(), "assets", date.All(), usd)
		if err != nil {
			t.Fatalf("RecursiveBalance() unexpected error: %v", err)
		}
		if !report.Total.Equal(USD("2649.60")) {
			t.Errorf("RecursiveBalance().Total = %v, want 2649.60", report.Total)
		}
		if len(report.Excluded) != 1 || report.Excluded[0] != "travel" {
			t.Errorf("RecursiveBalance().Excluded = %v, want [travel]", report.Excluded)
		}
	})

	t.Run("the inverse price converts", func(t *testing.T) {
		var prices PriceTable
		prices.Add(Price{From: "USD", To: "EUR", Day: date.New(2025, time.February, 1), Value: decimal.RequireFromString("0.8")})
		b := Balancer{Book: book, Prices: &prices}
		report, err := b.RecursiveBalance(context.Background(), "assets", date.All(), usd)
		if err != nil {
			t.Fatalf("RecursiveBalance() unexpected error: %v", err)
		}
		// 200 EUR at 1.25 USD
		if !report.Total.Equal(USD("2899.60")) {
			t.Errorf("RecursiveBalance().Total = %v, want 2899.60", report.Total)
		}
		if len(report.Excluded) != 0 {
			t.Errorf("RecursiveBalance().Excluded = %v, want none", report.Excluded)
		}
	})
}

func TestDisplayBalance(t *testing.T) {
	raw := USD("10")
	testCases := []struct {
		typ        AccountType
		convention DisplayConvention
		want       Money
	}{
		{Income, ReverseCredit, USD("10")},
		{Income, ReverseNone, USD("-10")},
		{Income, ReverseIncomeExpense, USD("10")},
		{Expense, ReverseCredit, USD("10")},
		{Expense, ReverseIncomeExpense, USD("-10")},
		{Liability, ReverseIncomeExpense, USD("-10")},
		{Bank, ReverseNone, USD("10")},
	}
	for _, tc := range testCases {
		t.Run(string(tc.typ)+"/"+string(tc.convention), func(t *testing.T) {
			if got := DisplayBalance(tc.typ, raw, tc.convention); !got.Equal(tc.want) {
				t.Errorf("DisplayBalance() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAccountType(t *testing.T) {
	debit := map[AccountType]bool{Cash: true, Bank: true, Asset: true, Expense: true, Receivable: true,
		Stock: true, Mutual: true, Trading: true}
	for _, typ := range AccountTypes {
		if got := typ.HasDebitNormalBalance(); got != debit[typ] {
			t.Errorf("%v.HasDebitNormalBalance() = %v", typ, got)
		}
		parsed, err := ParseAccountType(string(typ))
		if err != nil || parsed != typ {
			t.Errorf("ParseAccountType(%q) = %v, %v", typ, parsed, err)
		}
	}
}
