package bookkeeping

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/Rhymond/go-money"
)

// CurrencyNamespace is the namespace of ISO-4217 currencies.
const CurrencyNamespace = "ISO4217"

// Commodity is a currency or any tradeable unit, with a fixed smallest fraction.
//
// Amounts are always stored as an integer number of 1/Fraction units.
type Commodity struct {
	Namespace string `json:"namespace"`
	Mnemonic  string `json:"mnemonic"`
	Fraction  int64  `json:"fraction"` // a positive power of ten: 100 for cents
	Symbol    string `json:"symbol,omitempty"`
}

// NewCommodity returns a validated Commodity.
func NewCommodity(namespace, mnemonic string, fraction int64, symbol string) (Commodity, error) {
	if mnemonic == "" {
		return Commodity{}, fmt.Errorf("commodity mnemonic is required")
	}
	if !isPowerOfTen(fraction) {
		return Commodity{}, fmt.Errorf("commodity %s: fraction %d is not a positive power of ten", mnemonic, fraction)
	}
	if symbol == "" {
		symbol = mnemonic
	}
	return Commodity{Namespace: namespace, Mnemonic: mnemonic, Fraction: fraction, Symbol: symbol}, nil
}

// MustCommodity is like NewCommodity but panics on error.
func MustCommodity(namespace, mnemonic string, fraction int64, symbol string) Commodity {
	c, err := NewCommodity(namespace, mnemonic, fraction, symbol)
	if err != nil {
		panic(err.Error())
	}
	return c
}

// CommodityOf returns the ISO-4217 currency for code.
func CommodityOf(code string) (Commodity, error) {
	cur := money.GetCurrency(code)
	if cur == nil {
		return Commodity{}, fmt.Errorf("currency %q: %w", code, ErrNotFound)
	}
	fraction := int64(1)
	for range cur.Fraction {
		fraction *= 10
	}
	return Commodity{
		Namespace: CurrencyNamespace,
		Mnemonic:  cur.Code,
		Fraction:  fraction,
		Symbol:    cur.Grapheme,
	}, nil
}

// MustCommodityOf is like CommodityOf but panics on error.
func MustCommodityOf(code string) Commodity {
	c, err := CommodityOf(code)
	if err != nil {
		panic(err.Error())
	}
	return c
}

// Code returns the commodity mnemonic, the key commodities are compared by.
func (c Commodity) Code() string { return c.Mnemonic }

// Digits returns the number of decimal places of the smallest fraction.
func (c Commodity) Digits() int {
	n := 0
	for f := c.Fraction; f > 1; f /= 10 {
		n++
	}
	return n
}

// IsCurrency reports whether c is an ISO-4217 currency.
func (c Commodity) IsCurrency() bool { return strings.EqualFold(c.Namespace, CurrencyNamespace) }

// IsZero reports whether c is the zero Commodity.
func (c Commodity) IsZero() bool { return c.Mnemonic == "" }

func (c Commodity) String() string { return c.Mnemonic }

// formatter returns the go-money formatter for c. Known currencies use their
// locale template, others place the symbol after the amount.
func (c Commodity) formatter() *money.Formatter {
	if cur := money.GetCurrency(c.Mnemonic); cur != nil && cur.Fraction == c.Digits() {
		return cur.Formatter()
	}
	return money.NewFormatter(c.Digits(), ".", ",", c.Symbol, "1 $")
}

func isPowerOfTen(f int64) bool {
	if f <= 0 {
		return false
	}
	for f%10 == 0 {
		f /= 10
	}
	return f == 1
}

var defaultCommodity atomic.Pointer[Commodity]

func init() {
	usd := MustCommodityOf("USD")
	defaultCommodity.Store(&usd)
}

// DefaultCommodity returns the process-wide commodity used when none is specified.
func DefaultCommodity() Commodity { return *defaultCommodity.Load() }

// SetDefaultCommodity replaces the process-wide default commodity.
func SetDefaultCommodity(c Commodity) { defaultCommodity.Store(&c) }
