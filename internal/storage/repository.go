package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"budgetcal/internal/core"
)

const (
	settingStartingBalance = "starting_balance_cents"
	settingBalanceDate     = "balance_effective_date"
)

// SQLiteStore persists the dataset in a SQLite database. Save replaces the
// whole state inside one transaction: the dataset is small (a personal
// budget) and whole-state replacement keeps the store in lockstep with the
// in-memory engine, exactly like the snapshot file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (core.Dataset, error) {
	ds := core.EmptyDataset()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, amount_cents, description, start_date, frequency, category
		FROM transactions ORDER BY start_date, position`)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	dropped := 0
	for rows.Next() {
		var (
			id, kind, description, startDate, frequency, category string
			amountCents                                           int64
		)
		if err := rows.Scan(&id, &kind, &amountCents, &description, &startDate, &frequency, &category); err != nil {
			return core.Dataset{}, fmt.Errorf("scan transaction: %w", err)
		}
		// Rows pass through the same boundary rules as imports.
		t, ok := sanitizeRecord(SnapshotTxn{
			ID:          id,
			Type:        kind,
			Amount:      float64(amountCents) / 100.0,
			Description: description,
			Date:        startDate,
			Frequency:   frequency,
			Category:    category,
		})
		if !ok {
			dropped++
			continue
		}
		ds.Transactions = append(ds.Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return core.Dataset{}, fmt.Errorf("iterate transactions: %w", err)
	}
	if dropped > 0 {
		slog.WarnContext(ctx, "Dropped invalid transaction rows on load", "dropped", dropped)
	}

	if v, err := s.setting(ctx, settingStartingBalance); err != nil {
		return core.Dataset{}, err
	} else if v != "" {
		if cents, err := strconv.ParseInt(v, 10, 64); err == nil {
			ds.StartingBalance = core.Money{Cents: cents}
		}
	}
	if v, err := s.setting(ctx, settingBalanceDate); err != nil {
		return core.Dataset{}, err
	} else if v != "" {
		if d, err := core.ParseDate(v); err == nil {
			ds.BalanceDate = d
		}
	}

	catRows, err := s.db.QueryContext(ctx, `SELECT label, kind FROM categories`)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("query categories: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var label, kind string
		if err := catRows.Scan(&label, &kind); err != nil {
			return core.Dataset{}, fmt.Errorf("scan category: %w", err)
		}
		if k, err := core.NormalizeKind(kind); err == nil {
			if k.IsIncome() {
				ds.Categories.Income = append(ds.Categories.Income, label)
			} else {
				ds.Categories.Expense = append(ds.Categories.Expense, label)
			}
		}
	}
	if err := catRows.Err(); err != nil {
		return core.Dataset{}, fmt.Errorf("iterate categories: %w", err)
	}

	ds.Normalize()
	return ds, nil
}

func (s *SQLiteStore) Save(ctx context.Context, d core.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM transactions`,
		`DELETE FROM categories`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear tables: %w", err)
		}
	}

	d.Normalize()
	for i, t := range d.Transactions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, kind, amount_cents, description, start_date, frequency, category, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, string(t.Kind), t.Amount.Cents, t.Description,
			t.StartDate.Key(), string(t.Frequency), t.Category, i)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := upsertSetting(ctx, tx, settingStartingBalance, strconv.FormatInt(d.StartingBalance.Cents, 10)); err != nil {
		return err
	}
	balanceDate := ""
	if !d.BalanceDate.IsZero() {
		balanceDate = d.BalanceDate.Key()
	}
	if err := upsertSetting(ctx, tx, settingBalanceDate, balanceDate); err != nil {
		return err
	}

	for _, label := range d.Categories.Expense {
		if _, err := tx.ExecContext(ctx, `INSERT INTO categories (label, kind) VALUES (?, ?)`, label, string(core.Expense)); err != nil {
			return fmt.Errorf("insert expense category: %w", err)
		}
	}
	for _, label := range d.Categories.Income {
		if _, err := tx.ExecContext(ctx, `INSERT INTO categories (label, kind) VALUES (?, ?)`, label, string(core.Income)); err != nil {
			return fmt.Errorf("insert income category: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	slog.DebugContext(ctx, "Dataset saved to SQLite", "transactions", len(d.Transactions))
	return nil
}

func (s *SQLiteStore) setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, nil
}

func upsertSetting(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}
