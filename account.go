package bookkeeping

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AccountType classifies accounts and fixes their normal balance side.
type AccountType string

const (
	Cash       AccountType = "CASH"
	Bank       AccountType = "BANK"
	CreditCard AccountType = "CREDIT"
	Asset      AccountType = "ASSET"
	Liability  AccountType = "LIABILITY"
	Income     AccountType = "INCOME"
	Expense    AccountType = "EXPENSE"
	Payable    AccountType = "PAYABLE"
	Receivable AccountType = "RECEIVABLE"
	Equity     AccountType = "EQUITY"
	Currency   AccountType = "CURRENCY"
	Stock      AccountType = "STOCK"
	Mutual     AccountType = "MUTUAL"
	Trading    AccountType = "TRADING"
	Root       AccountType = "ROOT"
)

// AccountTypes lists all account types.
var AccountTypes = []AccountType{Cash, Bank, CreditCard, Asset, Liability, Income, Expense,
	Payable, Receivable, Equity, Currency, Stock, Mutual, Trading, Root}

// HasDebitNormalBalance reports whether a debit increases the balance of
// accounts of type t: asset and expense like accounts.
func (t AccountType) HasDebitNormalBalance() bool {
	switch t {
	case Cash, Bank, Asset, Expense, Receivable, Stock, Mutual, Trading:
		return true
	}
	return false
}

func (t AccountType) String() string { return string(t) }

// ParseAccountType parses an account type name, case insensitive.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AccountTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

// DisplayConvention selects which account balances are shown with their sign
// reversed.
type DisplayConvention string

const (
	// ReverseCredit shows every balance positive on its normal side.
	ReverseCredit DisplayConvention = "credit"
	// ReverseIncomeExpense shows debits positive, except for income and
	// expense accounts which are reversed.
	ReverseIncomeExpense DisplayConvention = "income-expense"
	// ReverseNone shows debits positive for every account.
	ReverseNone DisplayConvention = "none"
)

// ParseDisplayConvention parses a DisplayConvention; "" is ReverseCredit.
func ParseDisplayConvention(s string) (DisplayConvention, error) {
	switch c := DisplayConvention(strings.ToLower(s)); c {
	case "":
		return ReverseCredit, nil
	case ReverseCredit, ReverseIncomeExpense, ReverseNone:
		return c, nil
	}
	return "", fmt.Errorf("unknown display convention %q", s)
}

// HasDebitDisplayBalance reports whether balances of type t are displayed
// positive on the debit side under convention.
func HasDebitDisplayBalance(t AccountType, convention DisplayConvention) bool {
	switch convention {
	case ReverseNone:
		return true
	case ReverseIncomeExpense:
		return t != Income && t != Expense
	default:
		return t.HasDebitNormalBalance()
	}
}

// DisplayBalance returns the raw balance of an account of type t, as it
// should be displayed under convention.
func DisplayBalance(t AccountType, raw Money, convention DisplayConvention) Money {
	if t.HasDebitNormalBalance() != HasDebitDisplayBalance(t, convention) {
		return raw.Neg()
	}
	return raw
}

// Account is a node of the chart of accounts.
type Account struct {
	UID         string      `json:"uid"`
	Name        string      `json:"name"`
	FullName    string      `json:"fullName,omitempty"`
	Type        AccountType `json:"type"`
	Commodity   Commodity   `json:"-"`
	ParentUID   string      `json:"parent,omitempty"`
	Placeholder bool        `json:"placeholder,omitempty"`
	Hidden      bool        `json:"hidden,omitempty"`
	Description string      `json:"description,omitempty"`
	Color       string      `json:"color,omitempty"`
	Favorite    bool        `json:"favorite,omitempty"`
}

// NewAccount returns an account with a fresh identifier.
func NewAccount(name string, t AccountType, c Commodity, parentUID string) Account {
	return Account{UID: NewUID(), Name: name, FullName: name, Type: t, Commodity: c, ParentUID: parentUID}
}

func (a Account) MarshalJSON() ([]byte, error) {
	type plain Account
	var w recordWriter
	w.Merge(plain(a))
	w.Set("commodity", a.Commodity.Code())
	return w.MarshalJSON()
}

func (a *Account) UnmarshalJSON(data []byte) error {
	type plain Account
	var temp struct {
		plain
		Commodity string `json:"commodity"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	c, err := lookupCommodity(temp.Commodity)
	if err != nil {
		return err
	}
	*a = Account(temp.plain)
	a.Commodity = c
	return nil
}
