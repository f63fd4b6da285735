// Package sqlite stores a book in a SQLite database file.
//
// The schema is embedded and applied with golang-migrate when the file is
// opened. Amounts are stored as exact num/denom integer pairs, times as
// fixed width UTC text so that they sort chronologically, next to the name of
// their zone.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/store"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is a store.Store backed by one SQLite file.
type Store struct {
	db   *sql.DB
	path string

	mu          sync.RWMutex
	commodities map[string]bookkeeping.Commodity
}

var _ store.Store = (*Store)(nil)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Migrate applies the pending schema migrations to the database at path.
func Migrate(path string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite3://"+path)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations of %s: %w", path, err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate %s: %w", path, err)
	}
	return nil
}

// Open opens, or creates, the book at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := Migrate(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path, commodities: make(map[string]bookkeeping.Commodity)}
	if err := s.loadCommodities(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// withTx runs fn in a transaction, rolled back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// timeFormat has a fixed width, text order is chronological order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// nullTime formats t, NULL for the zero time.
func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func formatTime(t time.Time) string { return t.UTC().Format(timeFormat) }

// parseTime parses a stored time and returns it in loc.
func parseTime(s sql.NullString, loc *time.Location) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return t, err
	}
	return t.In(loc), nil
}

// zoneName returns the stored name of the location of t. Times are stored in
// UTC, the zone keeps calendar arithmetic on the wall clock of the user.
// Locations unknown to the time zone database are stored as "name offset".
func zoneName(t time.Time) string {
	name, offset := t.Zone()
	loc := t.Location()
	if l, err := time.LoadLocation(loc.String()); err == nil {
		if _, o := t.In(l).Zone(); o == offset {
			return loc.String()
		}
	}
	return name + " " + strconv.Itoa(offset)
}

// location is the inverse of zoneName.
func location(name string) (*time.Location, error) {
	if i := strings.LastIndexByte(name, ' '); i >= 0 {
		zone, offset := name[:i], name[i+1:]
		seconds, err := strconv.Atoi(offset)
		if err != nil {
			return nil, fmt.Errorf("invalid time zone %q", name)
		}
		return time.FixedZone(zone, seconds), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return loc, nil
}

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func notFound(kind, uid string) error {
	return fmt.Errorf("%s %s: %w", kind, uid, bookkeeping.ErrNotFound)
}

func (s *Store) loadCommodities(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT code, namespace, fraction, symbol FROM commodities`)
	if err != nil {
		return err
	}
	defer rows.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var c bookkeeping.Commodity
		if err := rows.Scan(&c.Mnemonic, &c.Namespace, &c.Fraction, &c.Symbol); err != nil {
			return err
		}
		s.commodities[c.Code()] = c
		bookkeeping.RegisterCommodity(c)
	}
	return rows.Err()
}

func (s *Store) AddCommodity(ctx context.Context, c bookkeeping.Commodity) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO commodities(code, namespace, fraction, symbol) VALUES (?, ?, ?, ?)
	ON CONFLICT(code) DO UPDATE SET
	 namespace=excluded.namespace,
	 fraction=excluded.fraction,
	 symbol=excluded.symbol;
	`, c.Code(), c.Namespace, c.Fraction, c.Symbol)
	if err != nil {
		return fmt.Errorf("failed to add commodity %s: %w", c.Code(), err)
	}
	s.mu.Lock()
	s.commodities[c.Code()] = c
	s.mu.Unlock()
	bookkeeping.RegisterCommodity(c)
	return nil
}

func (s *Store) Commodity(ctx context.Context, code string) (bookkeeping.Commodity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.commodities[code]; ok {
		return c, nil
	}
	return bookkeeping.Commodity{}, notFound("commodity", code)
}

// commodity resolves a stored code: the book commodities first, then ISO 4217.
func (s *Store) commodity(code string) (bookkeeping.Commodity, error) {
	if code == "" {
		return bookkeeping.DefaultCommodity(), nil
	}
	s.mu.RLock()
	c, ok := s.commodities[code]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}
	return bookkeeping.CommodityOf(code)
}

// money rebuilds an amount from its stored columns.
func (s *Store) money(num, den int64, code string) (bookkeeping.Money, error) {
	c, err := s.commodity(code)
	if err != nil {
		return bookkeeping.Money{}, err
	}
	return bookkeeping.MoneyFromRational(num, den, c)
}
