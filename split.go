package bookkeeping

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SplitType is the side of a split: debit or credit.
type SplitType string

const (
	Debit  SplitType = "DEBIT"
	Credit SplitType = "CREDIT"
)

// Invert returns the opposite side.
func (t SplitType) Invert() SplitType {
	if t == Debit {
		return Credit
	}
	return Debit
}

func (t SplitType) String() string { return string(t) }

// ParseSplitType parses "debit" or "credit", case insensitive.
func ParseSplitType(s string) (SplitType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBIT", "DR":
		return Debit, nil
	case "CREDIT", "CR":
		return Credit, nil
	}
	return "", parseError(s, "unknown split type")
}

// ReconcileState tells whether a split was checked against a statement.
type ReconcileState string

const (
	NotReconciled ReconcileState = "n"
	Cleared       ReconcileState = "c"
	Reconciled    ReconcileState = "y"
	Frozen        ReconcileState = "f"
	Voided        ReconcileState = "v"
)

// Split is one leg of a transaction against one account.
//
// The value is expressed in the transaction commodity, the quantity in the
// account commodity. Both are stored as non-negative magnitudes: the direction
// is the Type.
type Split struct {
	UID            string
	TransactionUID string
	AccountUID     string
	Type           SplitType
	Memo           string
	Reconcile      ReconcileState
	ReconcileDate  time.Time

	value    Money
	quantity Money
}

// NewSplit returns a split of value on account. Its quantity equals its value.
// The type is Credit when value is negative, Debit otherwise.
func NewSplit(value Money, accountUID string) *Split {
	return NewSplitWithQuantity(value, value, accountUID)
}

// NewSplitWithQuantity returns a split whose quantity was exchanged
// independently of its value.
func NewSplitWithQuantity(value, quantity Money, accountUID string) *Split {
	s := &Split{
		UID:        NewUID(),
		AccountUID: accountUID,
		Type:       Debit,
		Reconcile:  NotReconciled,
	}
	if value.IsNegative() {
		s.Type = Credit
	}
	s.SetValue(value)
	s.SetQuantity(quantity)
	return s
}

// Value returns the magnitude of the split in the transaction commodity.
func (s *Split) Value() Money { return s.value }

// Quantity returns the magnitude of the split in the account commodity.
func (s *Split) Quantity() Money { return s.quantity }

// SetValue sets the value to the absolute value of v.
func (s *Split) SetValue(v Money) { s.value = v.Abs() }

// SetQuantity sets the quantity to the absolute value of q.
func (s *Split) SetQuantity(q Money) { s.quantity = q.Abs() }

// SignedValue returns the value signed by type: positive for credits.
func (s *Split) SignedValue() Money {
	if s.Type == Debit {
		return s.value.Neg()
	}
	return s.value
}

// CreatePair returns the counter split of s on accountUID: opposite type,
// same value and memo. The quantity is the value reinterpreted in commodity;
// callers must overwrite it when an exchange rate applies.
func (s *Split) CreatePair(accountUID string, commodity Commodity) (*Split, error) {
	q, err := s.value.WithCommodity(commodity)
	if err != nil {
		return nil, fmt.Errorf("pair of split %s: %w", s.UID, err)
	}
	return &Split{
		UID:            NewUID(),
		TransactionUID: s.TransactionUID,
		AccountUID:     accountUID,
		Type:           s.Type.Invert(),
		Memo:           s.Memo,
		Reconcile:      NotReconciled,
		value:          s.value,
		quantity:       q,
	}, nil
}

// IsPairOf reports whether s and other are the two legs of one transfer.
func (s *Split) IsPairOf(other *Split) bool {
	return s.TransactionUID == other.TransactionUID &&
		s.Type == other.Type.Invert() &&
		s.value.Equal(other.value) &&
		s.Memo == other.Memo
}

// IsEquivalentTo reports whether s and other carry the same data, ignoring identifiers.
func (s *Split) IsEquivalentTo(other *Split) bool {
	return s.AccountUID == other.AccountUID &&
		s.Type == other.Type &&
		s.Memo == other.Memo &&
		s.value.Equal(other.value) &&
		s.quantity.Equal(other.quantity)
}

// clone returns a copy of s, attached to transactionUID.
func (s *Split) clone(newUID bool, transactionUID string) *Split {
	c := *s
	if newUID {
		c.UID = NewUID()
		c.Reconcile = NotReconciled
		c.ReconcileDate = time.Time{}
	}
	c.TransactionUID = transactionUID
	return &c
}

func (s *Split) String() string {
	return fmt.Sprintf("%s %s %s", s.Type, s.value, s.AccountUID)
}

func (s *Split) MarshalJSON() ([]byte, error) {
	var w recordWriter
	w.Set("uid", s.UID)
	w.Set("account", s.AccountUID)
	w.Set("type", s.Type)
	w.Set("value", s.value)
	if !s.quantity.Equal(s.value) {
		w.Set("quantity", s.quantity)
	}
	w.SetNonZero("memo", s.Memo)
	if s.Reconcile != NotReconciled {
		w.SetNonZero("reconcile", s.Reconcile)
	}
	if !s.ReconcileDate.IsZero() {
		w.Set("reconcileDate", s.ReconcileDate)
	}
	return w.MarshalJSON()
}

func (s *Split) UnmarshalJSON(data []byte) error {
	var temp struct {
		UID           string         `json:"uid"`
		Account       string         `json:"account"`
		Type          SplitType      `json:"type"`
		Value         Money          `json:"value"`
		Quantity      *Money         `json:"quantity"`
		Memo          string         `json:"memo"`
		Reconcile     ReconcileState `json:"reconcile"`
		ReconcileDate time.Time      `json:"reconcileDate"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	typ, err := ParseSplitType(string(temp.Type))
	if err != nil {
		return err
	}
	*s = Split{
		UID:           temp.UID,
		AccountUID:    temp.Account,
		Type:          typ,
		Memo:          temp.Memo,
		Reconcile:     temp.Reconcile,
		ReconcileDate: temp.ReconcileDate,
	}
	if s.Reconcile == "" {
		s.Reconcile = NotReconciled
	}
	s.SetValue(temp.Value)
	s.SetQuantity(temp.Value)
	if temp.Quantity != nil {
		s.SetQuantity(*temp.Quantity)
	}
	return nil
}
