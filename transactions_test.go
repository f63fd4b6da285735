package bookkeeping

import (
	"testing"
	"time"
)

func TestTransaction_ComputeImbalance(t *testing.T) {
	tx := transfer("rent", USD("20.00"), "B", "A")

	imbalance, err := tx.ComputeImbalance()
	if err != nil {
		t.Fatalf("ComputeImbalance() unexpected error: %v", err)
	}
	if len(imbalance) != 1 {
		t.Fatalf("ComputeImbalance() = %v, want a single commodity", imbalance)
	}
	if got := imbalance["USD"]; !got.IsZero() || got.String() != "0.00" {
		t.Errorf("ComputeImbalance()[USD] = %v, want 0.00", got)
	}
	if !tx.IsBalanced() {
		t.Error("IsBalanced() = false, want true")
	}
}

func TestTransaction_Imbalance(t *testing.T) {
	testCases := []struct {
		name   string
		splits func() []*Split
		want   map[string]Money
	}{
		{
			name: "credits exceed debits",
			splits: func() []*Split {
				d := NewSplit(USD("10"), "A")
				c := NewSplit(USD("-12.50"), "B")
				return []*Split{d, c}
			},
			want: map[string]Money{"USD": USD("2.50")},
		},
		{
			name: "debits exceed credits",
			splits: func() []*Split {
				return []*Split{NewSplit(USD("10"), "A"), NewSplit(USD("-4"), "B")}
			},
			want: map[string]Money{"USD": USD("-6")},
		},
		{
			name: "two commodities",
			splits: func() []*Split {
				return []*Split{NewSplit(USD("10"), "A"), NewSplit(USD("-10"), "B"), NewSplit(EUR("-3"), "C")}
			},
			want: map[string]Money{"USD": USD("0"), "EUR": EUR("3")},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx := NewTransaction(tc.name)
			tx.AddSplit(tc.splits()...)
			got, err := tx.ComputeImbalance()
			if err != nil {
				t.Fatalf("ComputeImbalance() unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("ComputeImbalance() = %v, want %v", got, tc.want)
			}
			for code, want := range tc.want {
				if !got[code].Equal(want) {
					t.Errorf("ComputeImbalance()[%s] = %v, want %v", code, got[code], want)
				}
			}
			if tx.IsBalanced() {
				t.Error("IsBalanced() = true, want false")
			}

			created, err := tx.AutoBalance("imbalance")
			if err != nil {
				t.Fatalf("AutoBalance() unexpected error: %v", err)
			}
			for _, s := range created {
				if s.AccountUID != "imbalance" || s.TransactionUID != tx.UID {
					t.Errorf("AutoBalance() created %+v", s)
				}
			}
			if !tx.IsBalanced() {
				t.Errorf("IsBalanced() after AutoBalance() = false, splits %v", tx.Splits())
			}
		})
	}
}

func TestTransaction_AutoBalanceSide(t *testing.T) {
	tx := NewTransaction("excess credit")
	tx.AddSplit(NewSplit(USD("-5"), "B"))
	created, err := tx.AutoBalance("imbalance")
	if err != nil {
		t.Fatalf("AutoBalance() unexpected error: %v", err)
	}
	if len(created) != 1 || created[0].Type != Debit || !created[0].Value().Equal(USD("5")) {
		t.Errorf("AutoBalance() = %v, want one 5.00 debit", created)
	}
}

func TestTransaction_SingleSplit(t *testing.T) {
	tx := NewTransaction("lonely")
	tx.AddSplit(NewSplit(USD("0"), "A"))
	imbalance, err := tx.ComputeImbalance()
	if err != nil {
		t.Fatalf("ComputeImbalance() unexpected error: %v", err)
	}
	if !imbalance["USD"].IsZero() {
		t.Errorf("ComputeImbalance() = %v", imbalance)
	}
	if tx.IsBalanced() {
		t.Error("IsBalanced() = true for a single split transaction")
	}
	if err := tx.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestTransaction_Clone(t *testing.T) {
	template := transfer("rent", USD("800"), "checking", "rent")
	template.Template = true
	template.Exported = true
	template.ScheduledActionUID = "action"
	template.Created = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	clone := template.Clone(true)
	if clone.UID == template.UID {
		t.Error("Clone(true) kept the transaction identifier")
	}
	if clone.Template || clone.Exported || clone.ScheduledActionUID != "" {
		t.Errorf("Clone(true) kept flags: %+v", clone)
	}
	if !clone.Created.After(template.Created) {
		t.Errorf("Clone(true).Created = %v, want now", clone.Created)
	}
	orig, copied := template.Splits(), clone.Splits()
	if len(copied) != len(orig) {
		t.Fatalf("Clone(true) has %d splits, want %d", len(copied), len(orig))
	}
	for i := range orig {
		if copied[i].UID == orig[i].UID || copied[i].TransactionUID != clone.UID {
			t.Errorf("split %d identifiers not renewed: %+v", i, copied[i])
		}
		if !copied[i].IsEquivalentTo(orig[i]) {
			t.Errorf("split %d = %v, want equivalent to %v", i, copied[i], orig[i])
		}
	}
	// the clone is deep.
	copied[0].Memo = "changed"
	if orig[0].Memo == "changed" {
		t.Error("Clone(true) shares splits with the original")
	}

	exact := template.Clone(false)
	if exact.UID != template.UID || !exact.Template || exact.ScheduledActionUID != "action" {
		t.Errorf("Clone(false) = %+v, want an exact copy", exact)
	}
	if exact.Splits()[0].UID != orig[0].UID {
		t.Error("Clone(false) renewed split identifiers")
	}
}

func TestTransaction_Validate(t *testing.T) {
	tx := NewTransaction("invalid")
	if err := tx.Validate(); err == nil {
		t.Error("Validate() of a transaction without splits expected an error")
	}
	tx.AddSplit(NewSplit(USD("1"), ""))
	if err := tx.Validate(); err == nil {
		t.Error("Validate() of a split without account expected an error")
	}
}

func TestTransaction_Splits(t *testing.T) {
	tx := transfer("t", USD("1"), "A", "B")
	s := tx.Splits()[0]
	if tx.Split(s.UID) != s {
		t.Error("Split(uid) did not find the split")
	}
	if !tx.RemoveSplit(s.UID) || len(tx.Splits()) != 1 {
		t.Error("RemoveSplit() did not remove the split")
	}
	if tx.RemoveSplit(s.UID) {
		t.Error("RemoveSplit() of an unknown split = true")
	}
}
