package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/date"
	"github.com/etnz/bookkeeping/store"
)

const (
	transactionColumns = `uid, description, note, commodity, time, created, template, exported, scheduled_action_uid, tz`
	splitColumns       = `uid, transaction_uid, account_uid, type, memo, reconcile, reconcile_date,
	value_num, value_denom, value_commodity, quantity_num, quantity_denom, quantity_commodity`
)

// transactions loads the transactions matching where, with their splits.
// where applies to the transactions table.
func (s *Store) transactions(ctx context.Context, q querier, where string, args ...any) ([]*bookkeeping.Transaction, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions `+where+` ORDER BY time, uid`, args...)
	if err != nil {
		return nil, err
	}
	var txs []*bookkeeping.Transaction
	byUID := make(map[string]*bookkeeping.Transaction)
	for rows.Next() {
		tx, err := s.scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		txs = append(txs, tx)
		byUID[tx.UID] = tx
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}

	splits, err := s.splits(ctx, q, `WHERE transaction_uid IN (SELECT uid FROM transactions `+where+`) ORDER BY transaction_uid, position`, args...)
	if err != nil {
		return nil, err
	}
	for _, sp := range splits {
		if tx, ok := byUID[sp.TransactionUID]; ok {
			if !sp.ReconcileDate.IsZero() {
				sp.ReconcileDate = sp.ReconcileDate.In(tx.Time.Location())
			}
			tx.AddSplit(sp)
		}
	}
	return txs, nil
}

func (s *Store) scanTransaction(rows *sql.Rows) (*bookkeeping.Transaction, error) {
	tx := new(bookkeeping.Transaction)
	var code, tz string
	var at, created sql.NullString
	if err := rows.Scan(&tx.UID, &tx.Description, &tx.Note, &code, &at, &created, &tx.Template, &tx.Exported, &tx.ScheduledActionUID, &tz); err != nil {
		return nil, err
	}
	loc, err := location(tz)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", tx.UID, err)
	}
	if tx.Commodity, err = s.commodity(code); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", tx.UID, err)
	}
	if tx.Time, err = parseTime(at, loc); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", tx.UID, err)
	}
	if tx.Created, err = parseTime(created, loc); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", tx.UID, err)
	}
	return tx, nil
}

func (s *Store) splits(ctx context.Context, q querier, where string, args ...any) ([]*bookkeeping.Split, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+splitColumns+` FROM splits `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*bookkeeping.Split
	for rows.Next() {
		var (
			uid, txUID, account, typ, memo, reconcile string
			reconciled                                sql.NullString
			vNum, vDen, qNum, qDen                    int64
			vCode, qCode                              string
		)
		if err := rows.Scan(&uid, &txUID, &account, &typ, &memo, &reconcile, &reconciled, &vNum, &vDen, &vCode, &qNum, &qDen, &qCode); err != nil {
			return nil, err
		}
		value, err := s.money(vNum, vDen, vCode)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", uid, err)
		}
		quantity, err := s.money(qNum, qDen, qCode)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", uid, err)
		}
		sp := bookkeeping.NewSplitWithQuantity(value, quantity, account)
		sp.UID = uid
		sp.TransactionUID = txUID
		sp.Memo = memo
		sp.Reconcile = bookkeeping.ReconcileState(reconcile)
		if sp.Type, err = bookkeeping.ParseSplitType(typ); err != nil {
			return nil, err
		}
		if sp.ReconcileDate, err = parseTime(reconciled, time.UTC); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *Store) Transaction(ctx context.Context, uid string) (*bookkeeping.Transaction, error) {
	txs, err := s.transactions(ctx, s.db, `WHERE uid = ?`, uid)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, notFound("transaction", uid)
	}
	return txs[0], nil
}

// insertTransactions validates then inserts txs within tx.
func (s *Store) insertTransactions(ctx context.Context, tx *sql.Tx, txs []*bookkeeping.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	exists, err := accountExists(ctx, tx)
	if err != nil {
		return err
	}
	for _, t := range txs {
		if err := store.ValidateTransaction(t, exists); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO transactions(`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.UID, t.Description, t.Note, t.Commodity.Code(), formatTime(t.Time), nullTime(t.Created),
			t.Template, t.Exported, t.ScheduledActionUID, zoneName(t.Time))
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", t.UID, err)
		}
		for i, sp := range t.Splits() {
			vNum, vDen := sp.Value().Rational()
			qNum, qDen := sp.Quantity().Rational()
			_, err := tx.ExecContext(ctx, `INSERT INTO splits(position, `+splitColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				i, sp.UID, t.UID, sp.AccountUID, string(sp.Type), sp.Memo, string(sp.Reconcile), nullTime(sp.ReconcileDate),
				vNum, vDen, sp.Value().Commodity().Code(), qNum, qDen, sp.Quantity().Commodity().Code())
			if err != nil {
				return fmt.Errorf("failed to insert split %s of transaction %s: %w", sp.UID, t.UID, err)
			}
		}
	}
	return nil
}

func (s *Store) AddTransactions(ctx context.Context, txs ...*bookkeeping.Transaction) error {
	return s.withTx(ctx, func(tx *sql.Tx) error { return s.insertTransactions(ctx, tx, txs) })
}

func (s *Store) DeleteTransaction(ctx context.Context, uid string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", uid, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("transaction", uid)
	}
	return nil
}

func (s *Store) TransactionsCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE template = 0`).Scan(&n)
	return n, err
}

func (s *Store) TransactionsSince(ctx context.Context, t time.Time, includeExported bool) ([]*bookkeeping.Transaction, error) {
	where := `WHERE template = 0 AND time >= ?`
	if !includeExported {
		where += ` AND exported = 0`
	}
	return s.transactions(ctx, s.db, where, formatTime(t))
}

func (s *Store) Templates(ctx context.Context) ([]*bookkeeping.Transaction, error) {
	return s.transactions(ctx, s.db, `WHERE template = 1`)
}

func (s *Store) MarkExported(ctx context.Context, uids ...string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, uid := range uids {
			res, err := tx.ExecContext(ctx, `UPDATE transactions SET exported = 1 WHERE uid = ?`, uid)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return notFound("transaction", uid)
			}
		}
		return nil
	})
}

func (s *Store) AccountSplits(ctx context.Context, uid string, interval date.Interval) ([]*bookkeeping.Split, error) {
	if _, err := s.Account(ctx, uid); err != nil {
		return nil, err
	}
	cond := []string{`t.template = 0`, `sp.account_uid = ?`}
	args := []any{uid}
	if !interval.From.IsZero() {
		cond = append(cond, `t.time >= ?`)
		args = append(args, formatTime(interval.From))
	}
	if !interval.To.IsZero() {
		cond = append(cond, `t.time < ?`)
		args = append(args, formatTime(interval.To))
	}
	where := `WHERE uid IN (SELECT sp.uid FROM splits sp JOIN transactions t ON t.uid = sp.transaction_uid WHERE ` +
		strings.Join(cond, " AND ") + `)`
	splits, err := s.splits(ctx, s.db, where+` ORDER BY (SELECT time FROM transactions WHERE uid = transaction_uid), transaction_uid, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits of account %s: %w", uid, err)
	}
	return splits, nil
}
