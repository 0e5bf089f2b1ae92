package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"expenses/internal/backend"
	"expenses/internal/config"
	applog "expenses/internal/log"
)

func setTestEnv(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", backend)
	t.Setenv("EXPENSES_DATA_FILE", filepath.Join(dir, "expenses.json"))
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "expenses.db"))
	t.Setenv("EXPORT_FILENAME", filepath.Join(dir, "export.csv"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func runMain(args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	code := Main(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestMainAcrossRuns(t *testing.T) {
	for _, backend := range []string{"json", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			setTestEnv(t, backend)

			if code, out, errOut := runMain("add", "--description", "Coffee", "--amount", "4.50", "--category", "Food"); code != ExitOK || !strings.Contains(out, "(ID: 1)") {
				t.Fatalf("add: exit %d, stdout %q, stderr %q", code, out, errOut)
			}
			if code, out, _ := runMain("add", "--description", "Bus", "--amount", "2"); code != ExitOK || !strings.Contains(out, "(ID: 2)") {
				t.Fatalf("add: exit %d, stdout %q", code, out)
			}
			if code, out, _ := runMain("summary"); code != ExitOK || out != "Total expenses: $6.50\n" {
				t.Fatalf("summary: exit %d, stdout %q", code, out)
			}
		})
	}
}

func TestMainHelpNeedsNoConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "nonsense")
	code, out, _ := runMain()
	if code != ExitOK || !strings.Contains(out, "Usage:") {
		t.Fatalf("exit %d, stdout %q", code, out)
	}
}

func TestMainInvalidConfig(t *testing.T) {
	setTestEnv(t, "nonsense")
	code, _, errOut := runMain("list")
	if code != ExitError || !strings.Contains(errOut, "invalid data backend 'nonsense'") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
}

func TestMainMalformedDataFile(t *testing.T) {
	for _, tc := range []struct {
		backend string
		env     string
		file    string
	}{
		{"json", "EXPENSES_DATA_FILE", "expenses.json"},
		{"sqlite", "SQLITE_DB_PATH", "expenses.db"},
	} {
		t.Run(tc.backend, func(t *testing.T) {
			dir := setTestEnv(t, tc.backend)
			path := filepath.Join(dir, tc.file)
			if err := os.WriteFile(path, []byte(strings.Repeat("garbage bytes ", 512)), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}

			code, out, errOut := runMain("list")
			if code != ExitOK || out != "No expenses found.\n" || errOut != "" {
				t.Fatalf("list: exit %d, stdout %q, stderr %q", code, out, errOut)
			}
			code, out, errOut = runMain("add", "--description", "Coffee", "--amount", "3")
			if code != ExitOK || !strings.Contains(out, "(ID: 1)") || errOut != "" {
				t.Fatalf("add: exit %d, stdout %q, stderr %q", code, out, errOut)
			}
		})
	}
}

func TestMainSQLiteOpenFailure(t *testing.T) {
	dir := setTestEnv(t, "sqlite")
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SQLITE_DB_PATH", filepath.Join(blocker, "expenses.db"))

	code, out, _ := runMain("list")
	if code != ExitError || !strings.HasPrefix(out, "Unexpected error:") {
		t.Fatalf("exit %d, stdout %q", code, out)
	}
}

func TestMainRecoversFromStartupPanic(t *testing.T) {
	setTestEnv(t, "json")
	orig := openBackend
	t.Cleanup(func() { openBackend = orig })
	openBackend = func(context.Context, *applog.Logger, *config.Config) (*backend.BackendResult, error) {
		panic("backend exploded")
	}

	code, out, _ := runMain("list")
	if code != ExitError || out != "Unexpected error: backend exploded\n" {
		t.Fatalf("exit %d, stdout %q", code, out)
	}
}
