package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cashflow/internal/core"
	"cashflow/internal/sheets"
)

// SQLiteLedger is the SQLite implementation of the server repositories.
type SQLiteLedger struct {
	db *sql.DB
}

var (
	_ sheets.TransactionRepository = (*SQLiteLedger)(nil)
	_ sheets.UserRepository        = (*SQLiteLedger)(nil)
)

func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	return &SQLiteLedger{db: db}, nil
}

func (r *SQLiteLedger) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteLedger) ListByOwner(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, type, amount, category, date, description, notes
		FROM transactions
		WHERE owner = ?
		ORDER BY date DESC, rowid ASC`, strings.TrimSpace(owner))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx       core.Transaction
			typ, day string
			amount   int64
		)
		if err := rows.Scan(&tx.ID, &tx.Owner, &typ, &amount, &tx.Category, &day, &tx.Description, &tx.Notes); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Type, err = core.ParseTxType(typ); err != nil {
			slog.WarnContext(ctx, "Skipping row with unknown type", "id", tx.ID, "type", typ)
			continue
		}
		if tx.Date, err = core.ParseDate(day); err != nil {
			slog.WarnContext(ctx, "Skipping row with unparseable date", "id", tx.ID, "date", day)
			continue
		}
		tx.Amount = core.Money{Amount: amount}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteLedger) Upsert(ctx context.Context, tx core.Transaction) (bool, error) {
	if err := tx.Validate(); err != nil {
		return false, err
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	var exists int
	err = sqlTx.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE owner = ? AND id = ?`, tx.Owner, tx.ID).Scan(&exists)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("lookup transaction: %w", err)
	}

	if created {
		_, err = sqlTx.ExecContext(ctx, `
			INSERT INTO transactions (owner, id, type, amount, category, date, description, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			tx.Owner, tx.ID, tx.Type.String(), tx.Amount.Amount, tx.Category, tx.Date.String(), tx.Description, tx.Notes)
	} else {
		_, err = sqlTx.ExecContext(ctx, `
			UPDATE transactions
			SET type = ?, amount = ?, category = ?, date = ?, description = ?, notes = ?, updated_at = datetime('now')
			WHERE owner = ? AND id = ?`,
			tx.Type.String(), tx.Amount.Amount, tx.Category, tx.Date.String(), tx.Description, tx.Notes, tx.Owner, tx.ID)
	}
	if err != nil {
		return false, fmt.Errorf("save transaction: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite", "id", tx.ID, "owner", tx.Owner, "created", created)
	return created, nil
}

func (r *SQLiteLedger) Delete(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE owner = ? AND id = ?`, strings.TrimSpace(owner), id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sheets.ErrNotFound
	}
	return nil
}

func (r *SQLiteLedger) CreateUser(ctx context.Context, u sheets.StoredUser) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)`,
		strings.TrimSpace(u.Email), u.Name, u.PasswordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return sheets.ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *SQLiteLedger) FindUser(ctx context.Context, email string) (sheets.StoredUser, error) {
	var u sheets.StoredUser
	err := r.db.QueryRowContext(ctx, `SELECT name, email, password_hash FROM users WHERE email = ?`, strings.TrimSpace(email)).
		Scan(&u.Name, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return sheets.StoredUser{}, sheets.ErrUserNotFound
	}
	if err != nil {
		return sheets.StoredUser{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}
