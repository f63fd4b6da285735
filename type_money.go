package bookkeeping

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
)

// Money is an exact amount of a Commodity.
//
// The amount is num/Fraction of the commodity. Every operation computes the
// exact rational result and rounds it once, half to even, to the commodity
// fraction. Numerators outside ±math.MaxInt64 fail with ErrOverflow, so that
// every amount has an exact negation.
// Money is immutable.
type Money struct {
	num       int64
	commodity Commodity
}

var bigOne = big.NewInt(1)

// NewMoney returns value rounded to the fraction of c.
func NewMoney(value decimal.Decimal, c Commodity) (Money, error) {
	return fromRat(value.Rat(), c)
}

// M is like NewMoney but panics on error. It is meant for constants and tests.
func M[T float64 | int | int64 | string | decimal.Decimal](value T, c Commodity) Money {
	var d decimal.Decimal
	switch v := any(value).(type) {
	case decimal.Decimal:
		d = v
	case float64:
		d = decimal.NewFromFloat(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	case string:
		var err error
		if d, err = ParseAmount(v); err != nil {
			panic(err.Error())
		}
	}
	m, err := NewMoney(d, c)
	if err != nil {
		panic(err.Error())
	}
	return m
}

// ParseMoney parses text with ParseAmount and rounds it to the fraction of c.
func ParseMoney(text string, c Commodity) (Money, error) {
	d, err := ParseAmount(text)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(d, c)
}

// MoneyFromString parses text in the default commodity.
func MoneyFromString(text string) (Money, error) { return ParseMoney(text, DefaultCommodity()) }

// ZeroMoney returns a zero amount of c.
func ZeroMoney(c Commodity) Money { return Money{commodity: c} }

// MoneyFromRational returns num/den rounded to the fraction of c.
func MoneyFromRational(num, den int64, c Commodity) (Money, error) {
	if den == 0 {
		return Money{}, ErrDivideByZero
	}
	return fromRat(big.NewRat(num, den), c)
}

// fromRat rounds r half to even to the fraction of c.
func fromRat(r *big.Rat, c Commodity) (Money, error) {
	if c.Fraction <= 0 {
		return Money{}, fmt.Errorf("commodity %q has no fraction", c.Mnemonic)
	}
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt64(c.Fraction))
	n := roundHalfEven(scaled)
	if !n.IsInt64() || n.Int64() == math.MinInt64 {
		return Money{}, fmt.Errorf("%w: %s %s", ErrOverflow, r.FloatString(c.Digits()), c.Code())
	}
	return Money{num: n.Int64(), commodity: c}, nil
}

func roundHalfEven(r *big.Rat) *big.Int {
	num, den := r.Num(), r.Denom()
	q, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() == 0 {
		return q
	}
	twice := new(big.Int).Lsh(new(big.Int).Abs(rem), 1)
	if c := twice.Cmp(den); c > 0 || (c == 0 && q.Bit(0) == 1) {
		if num.Sign() < 0 {
			q.Sub(q, bigOne)
		} else {
			q.Add(q, bigOne)
		}
	}
	return q
}

// rat returns the exact value of m.
func (m Money) rat() *big.Rat {
	den := m.commodity.Fraction
	if den == 0 {
		den = 1
	}
	return big.NewRat(m.num, den)
}

// Commodity returns the commodity of m.
func (m Money) Commodity() Commodity { return m.commodity }

// Rational returns m as a fraction reduced by their gcd.
func (m Money) Rational() (num, den int64) {
	r := m.rat()
	return r.Num().Int64(), r.Denom().Int64()
}

// Decimal returns the value of m.
func (m Money) Decimal() decimal.Decimal { return decimal.New(m.num, -int32(m.commodity.Digits())) }

func (m Money) sameCommodity(n Money) error {
	if m.commodity.Code() != n.commodity.Code() {
		return mismatch(m.commodity, n.commodity)
	}
	return nil
}

// binary operators.

func (m Money) Add(n Money) (Money, error) {
	if err := m.sameCommodity(n); err != nil {
		return Money{}, err
	}
	return fromRat(new(big.Rat).Add(m.rat(), n.rat()), m.commodity)
}

func (m Money) Sub(n Money) (Money, error) {
	if err := m.sameCommodity(n); err != nil {
		return Money{}, err
	}
	return fromRat(new(big.Rat).Sub(m.rat(), n.rat()), m.commodity)
}

func (m Money) Mul(n Money) (Money, error) {
	if err := m.sameCommodity(n); err != nil {
		return Money{}, err
	}
	return fromRat(new(big.Rat).Mul(m.rat(), n.rat()), m.commodity)
}

func (m Money) Div(n Money) (Money, error) {
	if err := m.sameCommodity(n); err != nil {
		return Money{}, err
	}
	if n.num == 0 {
		return Money{}, ErrDivideByZero
	}
	return fromRat(new(big.Rat).Quo(m.rat(), n.rat()), m.commodity)
}

// scalar operators preserve the commodity.

func (m Money) MulScalar(s decimal.Decimal) (Money, error) {
	return fromRat(new(big.Rat).Mul(m.rat(), s.Rat()), m.commodity)
}

func (m Money) DivScalar(s decimal.Decimal) (Money, error) {
	if s.IsZero() {
		return Money{}, ErrDivideByZero
	}
	return fromRat(new(big.Rat).Quo(m.rat(), s.Rat()), m.commodity)
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{num: -m.num, commodity: m.commodity}
}

func (m Money) Abs() Money {
	if m.num < 0 {
		return m.Neg()
	}
	return m
}

func (m Money) IsZero() bool     { return m.num == 0 }
func (m Money) IsNegative() bool { return m.num < 0 }
func (m Money) IsPositive() bool { return m.num > 0 }

// Sign returns -1, 0 or +1.
func (m Money) Sign() int {
	switch {
	case m.num < 0:
		return -1
	case m.num > 0:
		return 1
	}
	return 0
}

// Equal reports whether m and n have the same commodity and value.
func (m Money) Equal(n Money) bool {
	return m.commodity.Code() == n.commodity.Code() && m.rat().Cmp(n.rat()) == 0
}

// Cmp compares the numeric values of m and n.
func (m Money) Cmp(n Money) int { return m.rat().Cmp(n.rat()) }

// WithCommodity reinterprets the value of m under target, without exchange.
func (m Money) WithCommodity(target Commodity) (Money, error) {
	return fromRat(m.rat(), target)
}

// String renders m at the commodity fraction, without symbol: "15.50".
func (m Money) String() string { return m.Decimal().StringFixed(int32(m.commodity.Digits())) }

// Formatted renders m with the commodity symbol and digit grouping: "$1,234.50".
func (m Money) Formatted() string { return m.commodity.formatter().Format(m.num) }

// SignedString returns the formatted value with an explicit sign, "-" for zero.
func (m Money) SignedString() string {
	if m.IsZero() {
		return "-"
	}
	if m.IsPositive() {
		return "+" + m.Formatted()
	}
	return m.Formatted()
}

// MustAdd is Add that panics on error.
func (m Money) MustAdd(n Money) Money { return must(m.Add(n)) }

// MustSub is Sub that panics on error.
func (m Money) MustSub(n Money) Money { return must(m.Sub(n)) }

func must(m Money, err error) Money {
	if err != nil {
		panic(err.Error())
	}
	return m
}

func (m Money) MarshalJSON() ([]byte, error) {
	var w recordWriter
	w.Set("amount", json.RawMessage(m.String()))
	w.Set("commodity", m.commodity.Code())
	return w.MarshalJSON()
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var a amountField
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	v, err := a.Money()
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// amountField is the JSON shape of a Money.
type amountField struct {
	Amount    decimal.Decimal `json:"amount"`
	Commodity string          `json:"commodity"`
}

// Money resolves the commodity code and rounds the amount.
func (a amountField) Money() (Money, error) {
	c, err := lookupCommodity(a.Commodity)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(a.Amount, c)
}

// commodities registered by the process, in addition to ISO-4217 currencies.
var commodities = struct {
	sync.RWMutex
	byCode map[string]Commodity
}{byCode: map[string]Commodity{}}

// RegisterCommodity makes c resolvable by code when decoding amounts.
func RegisterCommodity(c Commodity) {
	commodities.Lock()
	defer commodities.Unlock()
	commodities.byCode[c.Code()] = c
}

func lookupCommodity(code string) (Commodity, error) {
	if code == "" {
		return DefaultCommodity(), nil
	}
	commodities.RLock()
	c, ok := commodities.byCode[code]
	commodities.RUnlock()
	if ok {
		return c, nil
	}
	if d := DefaultCommodity(); d.Code() == code {
		return d, nil
	}
	return CommodityOf(code)
}
