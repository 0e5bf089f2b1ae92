package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

// DefaultSQLiteDBPath is used when no database path is configured.
const DefaultSQLiteDBPath = "expenses.db"

const (
	selectExpenses = `SELECT id, date, description, amount, category FROM expenses ORDER BY position`
	deleteExpenses = `DELETE FROM expenses`
	insertExpense  = `INSERT INTO expenses (position, id, date, description, amount, category) VALUES (?, ?, ?, ?, ?, ?)`
)

// SQLiteRepository mirrors the expense list into a single SQLite table.
// The table is rewritten in full on every Save, like the JSON file.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

// NewSQLiteRepository opens or creates the database at dbPath. A file that
// SQLite does not recognize as a database is renamed to dbPath+".corrupt"
// and replaced by an empty one, matching the JSON store's recovery on load.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath == "" {
		dbPath = DefaultSQLiteDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	repo, err := openSQLite(dbPath)
	if err == nil || !isUnreadableDatabase(err) {
		return repo, err
	}

	aside := dbPath + corruptSuffix
	fields := applog.NewFields().WithComponent(applog.ComponentStorage).
		WithError(err).WithErrorType(applog.ErrorTypeStorage)
	fields[applog.FieldPath] = dbPath
	fields["moved_to"] = aside
	slog.Debug("Unreadable SQLite database, starting empty", fields.ToSlice()...)
	if err := os.Rename(dbPath, aside); err != nil {
		return nil, fmt.Errorf("move unreadable database aside: %w", err)
	}
	return openSQLite(dbPath)
}

const corruptSuffix = ".corrupt"

func openSQLite(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Debug("Opened SQLite database", applog.FieldComponent, applog.ComponentStorage,
		applog.FieldPath, dbPath, "schema_version", version)
	return &SQLiteRepository{db: db, path: dbPath}, nil
}

// isUnreadableDatabase reports whether err means the file is not a usable
// SQLite database, as opposed to an unreachable path.
func isUnreadableDatabase(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
		return true
	}
	return false
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements Store.
func (r *SQLiteRepository) Load(ctx context.Context) []core.Expense {
	expenses, err := r.load(ctx)
	if err != nil {
		slog.DebugContext(ctx, "Unreadable expenses table, starting empty", "path", r.path, "error", err)
		return []core.Expense{}
	}
	slog.DebugContext(ctx, "Loaded expenses from SQLite", "path", r.path, "count", len(expenses))
	return expenses
}

func (r *SQLiteRepository) load(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectExpenses)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		var (
			e           core.Expense
			date, value string
		)
		if err := rows.Scan(&e.ID, &date, &e.Description, &value, &e.Category); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, err
		}
		if e.Amount, err = core.ParseMoney(value); err != nil {
			return nil, fmt.Errorf("expense %d amount %q: %w", e.ID, value, err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// Save implements Store.
func (r *SQLiteRepository) Save(ctx context.Context, expenses []core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteExpenses); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertExpense)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range expenses {
		if _, err := stmt.ExecContext(ctx, i, e.ID, e.Date.String(), e.Description, e.Amount.String(), e.Category); err != nil {
			return fmt.Errorf("insert expense %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.DebugContext(ctx, "Saved expenses to SQLite", "path", r.path, "count", len(expenses))
	return nil
}
