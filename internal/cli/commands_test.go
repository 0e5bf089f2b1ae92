package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"expenses/internal/core"
	"expenses/internal/services"
	"expenses/internal/storage"
)

type cliHarness struct {
	t        *testing.T
	dataFile string
	dir      string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	dir := t.TempDir()
	return &cliHarness{t: t, dataFile: filepath.Join(dir, "expenses.json"), dir: dir}
}

// run executes one command in a fresh tracker, like a separate process would.
func (h *cliHarness) run(args ...string) (code int, stdout, stderr string) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	tracker := services.NewTracker(context.Background(), storage.NewJSONStore(h.dataFile), services.Options{
		Out: &out,
		Err: &errOut,
		Now: func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) },
	})
	app := NewApp(tracker, AppOptions{
		Out:        &out,
		Err:        &errOut,
		ExportFile: filepath.Join(h.dir, "expenses_export.csv"),
	})
	code = app.Run(context.Background(), args)
	return code, out.String(), errOut.String()
}

func (h *cliHarness) mustRun(want string, args ...string) {
	h.t.Helper()
	code, out, errOut := h.run(args...)
	if code != ExitOK {
		h.t.Fatalf("%v: exit %d, stdout %q, stderr %q", args, code, out, errOut)
	}
	if !strings.Contains(out, want) {
		h.t.Fatalf("%v: stdout %q does not contain %q", args, out, want)
	}
}

func TestCLIScenario(t *testing.T) {
	h := newCLIHarness(t)

	h.mustRun("Expense added successfully (ID: 1)", "add", "--description", "Coffee", "--amount", "4.50", "--category", "Food")
	h.mustRun("Expense added successfully (ID: 2)", "add", "--description=Bus", "--amount=2")
	h.mustRun("Total expenses: $6.50", "summary")
	h.mustRun("Total expenses for March: $6.50", "summary", "--month", "3")
	h.mustRun("Total expenses for April: $0.00", "summary", "--month", "4")
	h.mustRun("Expense deleted successfully", "delete", "--id", "1")
	h.mustRun("Total expenses: $2.00", "summary")
	h.mustRun("Expense updated successfully", "update", "--id", "2", "--amount", "3.00")
	h.mustRun("Total expenses: $3.00", "summary")

	code, out, _ := h.run("update", "--id", "99", "--amount", "1")
	if code != ExitError || out != "Error: Expense with ID 99 not found\n" {
		t.Fatalf("update of a missing id: exit %d, stdout %q", code, out)
	}

	code, out, _ = h.run("delete", "--id", "1")
	if code != ExitError || !strings.Contains(out, "not found") {
		t.Fatalf("second delete: exit %d, stdout %q", code, out)
	}
}

func TestCLIList(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("No expenses found.", "list")

	h.mustRun("ID: 1", "add", "--description", "Coffee", "--amount", "4.5", "--category", "Food")
	h.mustRun("ID: 2", "add", "--description", "Bus", "--amount", "2")

	_, out, _ := h.run("list")
	for _, want := range []string{"ID", "Description", "Coffee", "$4.50", "Bus", "General"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list output missing %q:\n%s", want, out)
		}
	}

	_, out, _ = h.run("list", "--category", "food")
	if !strings.Contains(out, "Coffee") || strings.Contains(out, "Bus") {
		t.Fatalf("category filter failed:\n%s", out)
	}

	h.mustRun("No expenses found.", "list", "--category", "Travel")
}

func TestCLIAddValidation(t *testing.T) {
	h := newCLIHarness(t)

	code, out, _ := h.run("add", "--description", "Refund", "--amount", "-5")
	if code != ExitError || out != "Error: amount must be positive\n" {
		t.Fatalf("negative amount: exit %d, stdout %q", code, out)
	}
	code, _, errOut := h.run("add", "--description", "x", "--amount", "lots")
	if code != ExitUsage || !strings.Contains(errOut, "invalid value") {
		t.Fatalf("malformed amount: exit %d, stderr %q", code, errOut)
	}
	code, _, errOut = h.run("add", "--amount", "3")
	if code != ExitUsage || !strings.Contains(errOut, "missing required flags: --description") {
		t.Fatalf("missing description: exit %d, stderr %q", code, errOut)
	}

	if _, err := os.Stat(h.dataFile); !os.IsNotExist(err) {
		t.Fatalf("rejected adds must not create the data file")
	}
}

func TestCLIUpdateOnlyCategory(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("ID: 1", "add", "--description", "Lunch", "--amount", "12.30", "--category", "Food")
	h.mustRun("updated", "update", "--id", "1", "--category", "Work")

	got := storage.NewJSONStore(h.dataFile).Load(context.Background())
	if len(got) != 1 || got[0].Description != "Lunch" || !got[0].Amount.Equal(core.MustParseMoney("12.30")) || got[0].Category != "Work" {
		t.Fatalf("unexpected record after update: %+v", got)
	}
}

func TestCLIUpdateInvalidAmount(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("ID: 1", "add", "--description", "Lunch", "--amount", "12.30")

	code, out, _ := h.run("update", "--id", "1", "--description", "Dinner", "--amount", "0")
	if code != ExitError || out != "Error: amount must be positive\n" {
		t.Fatalf("exit %d, stdout %q", code, out)
	}
	got := storage.NewJSONStore(h.dataFile).Load(context.Background())
	if got[0].Description != "Lunch" {
		t.Fatalf("invalid update must not modify the record: %+v", got[0])
	}
}

func TestCLISummaryInvalidMonth(t *testing.T) {
	h := newCLIHarness(t)
	code, out, _ := h.run("summary", "--month", "13")
	if code != ExitError || !strings.Contains(out, "invalid month") {
		t.Fatalf("exit %d, stdout %q", code, out)
	}
}

func TestCLIExport(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("ID: 1", "add", "--description", "Coffee", "--amount", "4.5", "--category", "Food")

	defaultPath := filepath.Join(h.dir, "expenses_export.csv")
	h.mustRun("Expenses exported to "+defaultPath+" successfully", "export")
	if _, err := os.Stat(defaultPath); err != nil {
		t.Fatalf("default export file missing: %v", err)
	}

	custom := filepath.Join(h.dir, "march.csv")
	h.mustRun("successfully", "export", "--filename", custom)
	b, err := os.ReadFile(custom)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "id,date,description,amount,category\r\n1,2025-03-10,Coffee,4.5,Food\r\n" {
		t.Fatalf("unexpected csv %q", b)
	}

	code, out, errOut := h.run("export", "--filename", filepath.Join(h.dir, "missing", "x.csv"))
	if code != ExitError || out != "Error exporting expenses\n" || !strings.Contains(errOut, "Error exporting to CSV") {
		t.Fatalf("failed export: exit %d, stdout %q, stderr %q", code, out, errOut)
	}
}

func TestCLIHelpAndUnknown(t *testing.T) {
	h := newCLIHarness(t)

	for _, args := range [][]string{nil, {"help"}, {"--help"}} {
		code, out, _ := h.run(args...)
		if code != ExitOK || !strings.Contains(out, "Usage: expenses <command>") {
			t.Fatalf("%v: exit %d, stdout %q", args, code, out)
		}
	}

	code, _, errOut := h.run("frobnicate")
	if code != ExitUsage || !strings.Contains(errOut, `unknown command "frobnicate"`) {
		t.Fatalf("unknown command: exit %d, stderr %q", code, errOut)
	}

	code, _, errOut = h.run("list", "-h")
	if code != ExitOK || !strings.Contains(errOut, "Usage: expenses list") {
		t.Fatalf("command help: exit %d, stderr %q", code, errOut)
	}

	code, _, errOut = h.run("list", "extra")
	if code != ExitUsage || !strings.Contains(errOut, "unexpected arguments: extra") {
		t.Fatalf("stray argument: exit %d, stderr %q", code, errOut)
	}
}

func TestCLIMalformedDataFile(t *testing.T) {
	h := newCLIHarness(t)
	if err := os.WriteFile(h.dataFile, []byte("definitely not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	code, out, errOut := h.run("list")
	if code != ExitOK || out != "No expenses found.\n" || errOut != "" {
		t.Fatalf("exit %d, stdout %q, stderr %q", code, out, errOut)
	}
}

type panickingStore struct{}

func (panickingStore) Load(context.Context) []core.Expense { return nil }

func (panickingStore) Save(context.Context, []core.Expense) error {
	panic("boom")
}

func TestCLIRecoversFromPanic(t *testing.T) {
	var out bytes.Buffer
	tracker := services.NewTracker(context.Background(), panickingStore{}, services.Options{Out: &out, Err: &out})
	app := NewApp(tracker, AppOptions{Out: &out, Err: &out})

	code := app.Run(context.Background(), []string{"add", "--description", "x", "--amount", "1"})
	if code != ExitError || out.String() != "Unexpected error: boom\n" {
		t.Fatalf("exit %d, output %q", code, out.String())
	}
}
