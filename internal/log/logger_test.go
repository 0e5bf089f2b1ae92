package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
		{"verbose", slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Output: &buf, NoColor: true}).WithComponent(ComponentTracker)

	logger.Info("Expense added", FieldExpenseID, 7)

	out := buf.String()
	if !strings.Contains(out, "component=tracker") || !strings.Contains(out, "expense_id=7") {
		t.Fatalf("missing attributes in %q", out)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf, NoColor: true})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentStorage).
		WithOperation(OpSave).
		WithError(errors.New("disk full")).
		WithErrorType(ErrorTypeStorage).
		WithExpense(3, "Coffee", "4.50", "Food")

	if f[FieldComponent] != ComponentStorage || f[FieldOperation] != OpSave || f[FieldError] != "disk full" || f[FieldErrorType] != ErrorTypeStorage {
		t.Fatalf("unexpected fields %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatalf("ToSlice should flatten key/value pairs")
	}
	if _, ok := NewFields().WithError(nil)[FieldError]; ok {
		t.Fatalf("nil error should not add a field")
	}
}

func TestLoggerWithoutTerminalHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Output: &buf})

	logger.Warn("Failed to save expenses", FieldError, errors.New("disk full"))

	if out := buf.String(); strings.Contains(out, "\x1b[") || !strings.Contains(out, "disk full") {
		t.Fatalf("expected plain output, got %q", out)
	}
}
