package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

// DefaultDataFile is used when no data file is configured.
const DefaultDataFile = "expenses.json"

// JSONStore keeps the expenses as an indented JSON array in a single file.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	if path == "" {
		path = DefaultDataFile
	}
	return &JSONStore{path: path}
}

// Path returns the backing file path.
func (s *JSONStore) Path() string {
	return s.path
}

// Load implements Store.
func (s *JSONStore) Load(ctx context.Context) []core.Expense {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.DebugContext(ctx, "Unreadable data file, starting empty", s.failureFields(err)...)
		}
		return []core.Expense{}
	}

	var expenses []core.Expense
	if err := json.Unmarshal(b, &expenses); err != nil {
		slog.DebugContext(ctx, "Malformed data file, starting empty", s.failureFields(err)...)
		return []core.Expense{}
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}

	slog.DebugContext(ctx, "Loaded expenses", "path", s.path, "count", len(expenses))
	return expenses
}

func (s *JSONStore) failureFields(err error) []any {
	fields := applog.NewFields().WithComponent(applog.ComponentStorage).
		WithError(err).WithErrorType(applog.ErrorTypeStorage)
	fields[applog.FieldPath] = s.path
	return fields.ToSlice()
}

// Save implements Store.
func (s *JSONStore) Save(ctx context.Context, expenses []core.Expense) error {
	if expenses == nil {
		expenses = []core.Expense{}
	}
	b, err := json.MarshalIndent(expenses, "", "  ")
	if err != nil {
		return fmt.Errorf("encode expenses: %w", err)
	}
	if err := os.WriteFile(s.path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	slog.DebugContext(ctx, "Saved expenses", "path", s.path, "count", len(expenses))
	return nil
}
