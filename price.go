package bookkeeping

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/etnz/bookkeeping/date"
	"github.com/shopspring/decimal"
)

// Price is the value of one unit of From expressed in To, on a given day.
type Price struct {
	UID    string          `json:"uid,omitempty"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Day    date.Date       `json:"day"`
	Value  decimal.Decimal `json:"value"`
	Source string          `json:"source,omitempty"`
}

// Rational returns the price as an exact fraction.
func (p Price) Rational() *big.Rat { return p.Value.Rat() }

// Invert returns the price of To expressed in From.
func (p Price) Invert() (Price, error) {
	if p.Value.IsZero() {
		return Price{}, fmt.Errorf("price %s/%s: %w", p.From, p.To, ErrDivideByZero)
	}
	inv := new(big.Rat).Inv(p.Value.Rat())
	p.From, p.To = p.To, p.From
	p.Value = decimal.NewFromBigRat(inv, 16)
	return p, nil
}

// PriceLookup finds the exchange rate between two commodities.
//
// A missing price is not an error: ok is false.
type PriceLookup interface {
	Price(ctx context.Context, from, to string) (p Price, ok bool, err error)
}

// Exchange converts m into target using p. p.From must be the commodity of m.
func Exchange(m Money, p Price, target Commodity) (Money, error) {
	if p.From != m.Commodity().Code() || p.To != target.Code() {
		return Money{}, fmt.Errorf("%w: price %s/%s cannot convert %s to %s", ErrCurrencyMismatch, p.From, p.To, m.Commodity().Code(), target.Code())
	}
	return fromRat(new(big.Rat).Mul(m.rat(), p.Rational()), target)
}

// PriceTable is an in-memory PriceLookup keeping the history of each pair.
// Its zero value is ready to use.
type PriceTable struct {
	mu     sync.RWMutex
	prices map[[2]string]*date.History[decimal.Decimal]
}

// Add records p, replacing any price of the same pair on the same day.
func (t *PriceTable) Add(p Price) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.prices == nil {
		t.prices = make(map[[2]string]*date.History[decimal.Decimal])
	}
	key := [2]string{p.From, p.To}
	h, ok := t.prices[key]
	if !ok {
		h = new(date.History[decimal.Decimal])
		t.prices[key] = h
	}
	h.Set(p.Day, p.Value)
}

// Price returns the latest known price of from in to.
func (t *PriceTable) Price(ctx context.Context, from, to string) (Price, bool, error) {
	return t.PriceAsOf(from, to, date.New(9999, time.December, 31))
}

// PriceAsOf returns the price of from in to on day, or the most recent one
// before. When only the reverse pair is known, its inverse is returned.
func (t *PriceTable) PriceAsOf(from, to string, day date.Date) (Price, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if h, ok := t.prices[[2]string{from, to}]; ok {
		if on, v, ok := h.AsOf(day); ok {
			return Price{From: from, To: to, Day: on, Value: v}, true, nil
		}
	}
	if h, ok := t.prices[[2]string{to, from}]; ok {
		if on, v, ok := h.AsOf(day); ok {
			p, err := Price{From: to, To: from, Day: on, Value: v}.Invert()
			if err != nil {
				return Price{}, false, err
			}
			return p, true, nil
		}
	}
	return Price{}, false, nil
}

// Convert returns m expressed in target using the latest price.
func (t *PriceTable) Convert(m Money, target Commodity) (Money, bool, error) {
	if m.Commodity().Code() == target.Code() {
		return m, true, nil
	}
	p, ok, err := t.Price(context.Background(), m.Commodity().Code(), target.Code())
	if err != nil || !ok {
		return Money{}, ok, err
	}
	c, err := Exchange(m, p, target)
	return c, err == nil, err
}
