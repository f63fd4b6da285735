package bookkeeping

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Kinds of records in a JSONL book.
const (
	KindCommodity   = "commodity"
	KindAccount     = "account"
	KindTransaction = "transaction"
	KindPrice       = "price"
)

// Record is a book line of a kind this package does not decode itself.
type Record struct {
	Kind string
	Data json.RawMessage // the whole line
}

// Snapshot is the content of a book, as written in a JSONL file.
type Snapshot struct {
	Commodities  []Commodity
	Accounts     []Account
	Transactions []*Transaction
	Prices       []Price
	Records      []Record
}

// EncodeRecord writes v as one JSON line, with a leading "kind" field.
func EncodeRecord(w io.Writer, kind string, v any) error {
	var o recordWriter
	o.Set("kind", kind)
	o.Merge(v)
	data, err := o.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", kind, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %s: %w", kind, err)
	}
	return nil
}

// EncodeBook writes s to w in JSONL format: commodities, accounts,
// transactions in chronological order, prices, then the other records.
// The sort is stable, transactions occurring at the same time keep their
// relative order.
func EncodeBook(w io.Writer, s Snapshot) error {
	bw := bufio.NewWriter(w)
	for _, c := range s.Commodities {
		if err := EncodeRecord(bw, KindCommodity, c); err != nil {
			return err
		}
	}
	for _, a := range s.Accounts {
		if err := EncodeRecord(bw, KindAccount, a); err != nil {
			return err
		}
	}
	txs := slices.Clone(s.Transactions)
	slices.SortStableFunc(txs, func(a, b *Transaction) int { return a.Time.Compare(b.Time) })
	for _, tx := range txs {
		if err := EncodeRecord(bw, KindTransaction, tx); err != nil {
			return err
		}
	}
	for _, p := range s.Prices {
		if err := EncodeRecord(bw, KindPrice, p); err != nil {
			return err
		}
	}
	for _, r := range s.Records {
		if _, err := bw.Write(append(slices.Clone(r.Data), '\n')); err != nil {
			return fmt.Errorf("failed to write %s: %w", r.Kind, err)
		}
	}
	return bw.Flush()
}

// DecodeBook reads a JSONL book. Commodity lines are registered as they are
// read so that later lines may use them. Lines of unknown kinds are kept in
// Records.
func DecodeBook(r io.Reader) (Snapshot, error) {
	var s Snapshot
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}

		var identifier struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(lineBytes, &identifier); err != nil {
			return s, fmt.Errorf("line %d: could not identify kind: %w", line, err)
		}

		var err error
		switch identifier.Kind {
		case KindCommodity:
			var c Commodity
			if err = json.Unmarshal(lineBytes, &c); err == nil {
				c, err = NewCommodity(c.Namespace, c.Mnemonic, c.Fraction, c.Symbol)
			}
			if err == nil {
				RegisterCommodity(c)
				s.Commodities = append(s.Commodities, c)
			}
		case KindAccount:
			var a Account
			if err = json.Unmarshal(lineBytes, &a); err == nil {
				s.Accounts = append(s.Accounts, a)
			}
		case KindTransaction:
			tx := new(Transaction)
			if err = json.Unmarshal(lineBytes, tx); err == nil {
				s.Transactions = append(s.Transactions, tx)
			}
		case KindPrice:
			var p Price
			if err = json.Unmarshal(lineBytes, &p); err == nil {
				s.Prices = append(s.Prices, p)
			}
		case "":
			err = fmt.Errorf("missing kind")
		default:
			s.Records = append(s.Records, Record{Kind: identifier.Kind, Data: slices.Clone(lineBytes)})
		}
		if err != nil {
			return s, fmt.Errorf("line %d: %s: %w", line, identifier.Kind, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return s, fmt.Errorf("error reading from input: %w", err)
	}
	return s, nil
}
