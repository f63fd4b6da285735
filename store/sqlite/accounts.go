package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/etnz/bookkeeping"
)

const accountColumns = `uid, name, full_name, type, commodity, parent_uid, placeholder, hidden, description, color, favorite`

func (s *Store) scanAccount(row interface{ Scan(...any) error }) (bookkeeping.Account, error) {
	var a bookkeeping.Account
	var typ, code string
	var parent sql.NullString
	err := row.Scan(&a.UID, &a.Name, &a.FullName, &typ, &code, &parent, &a.Placeholder, &a.Hidden, &a.Description, &a.Color, &a.Favorite)
	if err != nil {
		return a, err
	}
	a.ParentUID = parent.String
	if a.Type, err = bookkeeping.ParseAccountType(typ); err != nil {
		return a, err
	}
	if a.Commodity, err = s.commodity(code); err != nil {
		return a, fmt.Errorf("account %s: %w", a.UID, err)
	}
	return a, nil
}

func (s *Store) Account(ctx context.Context, uid string) (bookkeeping.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE uid = ?`, uid)
	a, err := s.scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return a, notFound("account", uid)
	}
	return a, err
}

func (s *Store) accounts(ctx context.Context, where string, args ...any) ([]bookkeeping.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts `+where+` ORDER BY full_name, uid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []bookkeeping.Account
	for rows.Next() {
		a, err := s.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Accounts(ctx context.Context) ([]bookkeeping.Account, error) {
	return s.accounts(ctx, "")
}

func (s *Store) ChildAccounts(ctx context.Context, uid string) ([]bookkeeping.Account, error) {
	return s.accounts(ctx, `WHERE parent_uid = ?`, uid)
}

func (s *Store) AddAccount(ctx context.Context, a bookkeeping.Account) error {
	if a.UID == "" {
		return fmt.Errorf("account %q has no identifier", a.Name)
	}
	if a.ParentUID != "" {
		if _, err := s.Account(ctx, a.ParentUID); errors.Is(err, bookkeeping.ErrNotFound) {
			return fmt.Errorf("parent of account %s: %w", a.Name, bookkeeping.ErrMissingReference)
		} else if err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO accounts(`+accountColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(uid) DO UPDATE SET
	 name=excluded.name,
	 full_name=excluded.full_name,
	 type=excluded.type,
	 commodity=excluded.commodity,
	 parent_uid=excluded.parent_uid,
	 placeholder=excluded.placeholder,
	 hidden=excluded.hidden,
	 description=excluded.description,
	 color=excluded.color,
	 favorite=excluded.favorite;
	`, a.UID, a.Name, a.FullName, string(a.Type), a.Commodity.Code(), nullString(a.ParentUID),
		a.Placeholder, a.Hidden, a.Description, a.Color, a.Favorite)
	if err != nil {
		return fmt.Errorf("failed to add account %s: %w", a.Name, err)
	}
	return nil
}

// accountExists returns a lookup of the account identifiers, for validation.
func accountExists(ctx context.Context, q querier) (func(string) bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT uid FROM accounts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	uids := make(map[string]bool)
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids[uid] = true
	}
	return func(uid string) bool { return uids[uid] }, rows.Err()
}
