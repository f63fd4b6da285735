package bookkeeping

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Transaction is a set of splits that move value between accounts.
//
// A transaction owns its splits. For every commodity among the split values
// the credits should equal the debits; ComputeImbalance reports the residue.
type Transaction struct {
	UID         string
	Description string
	Note        string
	Commodity   Commodity
	Time        time.Time // when the transaction occurred
	Created     time.Time

	// Template transactions are patterns replayed by scheduled actions.
	// They are excluded from balances and exports.
	Template           bool
	Exported           bool
	ScheduledActionUID string

	splits []*Split
}

// NewTransaction returns an empty transaction in the default commodity, occurring now.
func NewTransaction(description string) *Transaction {
	now := time.Now()
	return &Transaction{
		UID:         NewUID(),
		Description: description,
		Commodity:   DefaultCommodity(),
		Time:        now,
		Created:     now,
	}
}

// AddSplit appends splits to t and attaches them to it.
func (t *Transaction) AddSplit(splits ...*Split) {
	for _, s := range splits {
		if s.UID == "" {
			s.UID = NewUID()
		}
		s.TransactionUID = t.UID
		t.splits = append(t.splits, s)
	}
}

// SetSplits replaces all the splits of t.
func (t *Transaction) SetSplits(splits ...*Split) {
	t.splits = nil
	t.AddSplit(splits...)
}

// Splits returns the splits of t in order.
func (t *Transaction) Splits() []*Split { return slices.Clone(t.splits) }

// Split returns the split with uid, or nil.
func (t *Transaction) Split(uid string) *Split {
	i := slices.IndexFunc(t.splits, func(s *Split) bool { return s.UID == uid })
	if i < 0 {
		return nil
	}
	return t.splits[i]
}

// RemoveSplit removes the split with uid and reports whether it existed.
func (t *Transaction) RemoveSplit(uid string) bool {
	n := len(t.splits)
	t.splits = slices.DeleteFunc(t.splits, func(s *Split) bool { return s.UID == uid })
	return len(t.splits) != n
}

// ComputeImbalance returns, per commodity code of the split values, the sum
// of credit values minus the sum of debit values.
func (t *Transaction) ComputeImbalance() (map[string]Money, error) {
	imbalance := make(map[string]Money)
	for _, s := range t.splits {
		code := s.value.Commodity().Code()
		sum, ok := imbalance[code]
		if !ok {
			sum = ZeroMoney(s.value.Commodity())
		}
		sum, err := sum.Add(s.SignedValue())
		if err != nil {
			return nil, fmt.Errorf("transaction %s imbalance: %w", t.UID, err)
		}
		imbalance[code] = sum
	}
	return imbalance, nil
}

// Imbalance returns the imbalance of t in commodity c.
func (t *Transaction) Imbalance(c Commodity) (Money, error) {
	imbalance, err := t.ComputeImbalance()
	if err != nil {
		return Money{}, err
	}
	if m, ok := imbalance[c.Code()]; ok {
		return m, nil
	}
	return ZeroMoney(c), nil
}

// IsBalanced reports whether t has at least two splits and a zero imbalance
// in every commodity. A single split transaction is never balanced.
func (t *Transaction) IsBalanced() bool {
	if len(t.splits) < 2 {
		return false
	}
	imbalance, err := t.ComputeImbalance()
	if err != nil {
		return false
	}
	for _, m := range imbalance {
		if !m.IsZero() {
			return false
		}
	}
	return true
}

// AutoBalance appends one split on imbalanceAccountUID for every commodity
// whose imbalance is not zero, and returns them. An excess of credits is
// absorbed by a debit, an excess of debits by a credit.
func (t *Transaction) AutoBalance(imbalanceAccountUID string) ([]*Split, error) {
	imbalance, err := t.ComputeImbalance()
	if err != nil {
		return nil, err
	}
	var created []*Split
	// sorted for a deterministic split order.
	for _, code := range slices.Sorted(maps.Keys(imbalance)) {
		m := imbalance[code]
		if m.IsZero() {
			continue
		}
		s := NewSplit(m, imbalanceAccountUID)
		s.Type = Debit
		if m.IsNegative() {
			s.Type = Credit
		}
		s.Memo = "imbalance"
		t.AddSplit(s)
		created = append(created, s)
	}
	return created, nil
}

// Clone returns a deep copy of t.
//
// With generateNewUID the copy is a new transaction: fresh identifiers for it
// and its splits, not a template, not exported, not linked to a scheduled
// action, created now. Otherwise the copy is exact.
func (t *Transaction) Clone(generateNewUID bool) *Transaction {
	c := *t
	c.splits = make([]*Split, 0, len(t.splits))
	if generateNewUID {
		c.UID = NewUID()
		c.Template = false
		c.Exported = false
		c.ScheduledActionUID = ""
		c.Created = time.Now()
	}
	for _, s := range t.splits {
		c.splits = append(c.splits, s.clone(generateNewUID, c.UID))
	}
	return &c
}

// Validate checks that t has splits, that every split references an account
// and that no amount is negative.
func (t *Transaction) Validate() error {
	var errs []error
	if t.UID == "" {
		errs = append(errs, errors.New("transaction has no identifier"))
	}
	if len(t.splits) == 0 {
		errs = append(errs, fmt.Errorf("transaction %q has no split", t.Description))
	}
	for i, s := range t.splits {
		if s.AccountUID == "" {
			errs = append(errs, fmt.Errorf("split #%d has no account", i))
		}
		if s.value.IsNegative() || s.quantity.IsNegative() {
			errs = append(errs, fmt.Errorf("split #%d has a negative amount", i))
		}
		if s.Type != Debit && s.Type != Credit {
			errs = append(errs, fmt.Errorf("split #%d has invalid type %q", i, s.Type))
		}
	}
	return errors.Join(errs...)
}

// MarshalJSON implements the json.Marshaler interface for Transaction.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	var w recordWriter
	w.Set("uid", t.UID)
	w.Set("time", t.Time)
	w.Set("description", t.Description)
	w.SetNonZero("note", t.Note)
	w.Set("commodity", t.Commodity.Code())
	w.Set("created", t.Created)
	w.SetNonZero("template", t.Template)
	w.SetNonZero("exported", t.Exported)
	w.SetNonZero("scheduledAction", t.ScheduledActionUID)
	w.Set("splits", t.splits)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Transaction.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var temp struct {
		UID             string    `json:"uid"`
		Time            time.Time `json:"time"`
		Description     string    `json:"description"`
		Note            string    `json:"note"`
		Commodity       string    `json:"commodity"`
		Created         time.Time `json:"created"`
		Template        bool      `json:"template"`
		Exported        bool      `json:"exported"`
		ScheduledAction string    `json:"scheduledAction"`
		Splits          []*Split  `json:"splits"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	c, err := lookupCommodity(temp.Commodity)
	if err != nil {
		return err
	}
	*t = Transaction{
		UID:                temp.UID,
		Description:        temp.Description,
		Note:               temp.Note,
		Commodity:          c,
		Time:               temp.Time,
		Created:            temp.Created,
		Template:           temp.Template,
		Exported:           temp.Exported,
		ScheduledActionUID: temp.ScheduledAction,
	}
	t.AddSplit(temp.Splits...)
	return nil
}
