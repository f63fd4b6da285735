package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/date"
	"github.com/shopspring/decimal"
)

func (s *Store) AddPrice(ctx context.Context, p bookkeeping.Price) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO prices(uid, from_code, to_code, day, value, source) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(from_code, to_code, day) DO UPDATE SET
	 uid=excluded.uid,
	 value=excluded.value,
	 source=excluded.source;
	`, p.UID, p.From, p.To, p.Day.String(), p.Value.String(), p.Source)
	if err != nil {
		return fmt.Errorf("failed to add price %s/%s: %w", p.From, p.To, err)
	}
	return nil
}

// latest returns the most recent price of from in to.
func (s *Store) latest(ctx context.Context, from, to string) (bookkeeping.Price, bool, error) {
	p := bookkeeping.Price{From: from, To: to}
	var day, value string
	err := s.db.QueryRowContext(ctx, `
	SELECT uid, day, value, source FROM prices
	WHERE from_code = ? AND to_code = ?
	ORDER BY day DESC LIMIT 1`, from, to).Scan(&p.UID, &day, &value, &p.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return p, false, nil
	}
	if err != nil {
		return p, false, err
	}
	if p.Day, err = date.Parse(day); err != nil {
		return p, false, err
	}
	if p.Value, err = decimal.NewFromString(value); err != nil {
		return p, false, fmt.Errorf("price %s/%s on %s: %w", from, to, day, err)
	}
	return p, true, nil
}

// Price returns the latest price of from in to, or the inverse of the latest
// price of to in from.
func (s *Store) Price(ctx context.Context, from, to string) (bookkeeping.Price, bool, error) {
	if p, ok, err := s.latest(ctx, from, to); err != nil || ok {
		return p, ok, err
	}
	p, ok, err := s.latest(ctx, to, from)
	if err != nil || !ok {
		return p, ok, err
	}
	inv, err := p.Invert()
	return inv, err == nil, err
}
