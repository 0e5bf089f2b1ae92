package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/services"
)

// Exit codes returned by App.Run.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// errUsage marks a command line that could not be parsed; the flag package
// has already printed the details.
var errUsage = errors.New("usage")

// errReported marks a failure whose message has already been printed.
var errReported = errors.New("already reported")

type command struct {
	name string
	run  func(ctx context.Context, args []string) error
}

// AppOptions configures an App. Zero values pick stdout, stderr, the default
// export filename and a discarding logger.
type AppOptions struct {
	Out        io.Writer
	Err        io.Writer
	ExportFile string
	Logger     *applog.Logger
}

// App maps command lines to Tracker operations and renders their outcome.
type App struct {
	tracker    *services.Tracker
	out        io.Writer
	errOut     io.Writer
	exportFile string
	logger     *applog.Logger
	commands   []command
}

func NewApp(tracker *services.Tracker, opts AppOptions) *App {
	a := &App{
		tracker:    tracker,
		out:        opts.Out,
		errOut:     opts.Err,
		exportFile: opts.ExportFile,
		logger:     opts.Logger,
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.errOut == nil {
		a.errOut = os.Stderr
	}
	if a.exportFile == "" {
		a.exportFile = services.DefaultExportFile
	}
	if a.logger == nil {
		a.logger = applog.Discard()
	}
	a.commands = []command{
		{"add", a.add},
		{"delete", a.delete},
		{"update", a.update},
		{"list", a.list},
		{"summary", a.summary},
		{"export", a.export},
	}
	return a
}

// Run executes one command and returns the process exit code. Domain errors
// become a single "Error: ..." line; a panic becomes "Unexpected error: ...".
func (a *App) Run(ctx context.Context, args []string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(a.out, "Unexpected error: %v\n", r)
			a.logger.ErrorContext(ctx, "Command panicked", "panic", r, applog.FieldErrorType, applog.ErrorTypeInternal)
			code = ExitError
		}
	}()

	if wantsHelp(args) {
		printUsage(a.out)
		return ExitOK
	}

	name := args[0]
	cmd, ok := a.lookup(name)
	if !ok {
		fmt.Fprintf(a.errOut, "unknown command %q\n\n", name)
		printUsage(a.errOut)
		return ExitUsage
	}

	start := time.Now()
	err := cmd.run(ctx, args[1:])
	a.logger.DebugContext(ctx, "Command finished", applog.FieldCommand, name, "duration", time.Since(start), applog.FieldError, err)

	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.Is(err, errUsage):
		return ExitUsage
	case errors.Is(err, errReported):
		return ExitError
	default:
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return ExitError
	}
}

func (a *App) lookup(name string) (command, bool) {
	for _, c := range a.commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (a *App) add(ctx context.Context, args []string) error {
	fs := a.flagSet("add")
	description := &optionalString{}
	amount := &amountFlag{}
	fs.Var(description, "description", "Expense description (required)")
	fs.Var(amount, "amount", "Expense amount (required)")
	category := fs.String("category", core.DefaultCategory, "Expense category")
	if err := a.parse(fs, args, "description", "amount"); err != nil {
		return err
	}

	id, err := a.tracker.Add(ctx, description.value, amount.value, *category)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Expense added successfully (ID: %d)\n", id)
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	fs := a.flagSet("delete")
	id := fs.Int64("id", 0, "Expense ID to delete (required)")
	if err := a.parse(fs, args, "id"); err != nil {
		return err
	}

	if !a.tracker.Delete(ctx, *id) {
		return a.notFound(*id)
	}
	fmt.Fprintln(a.out, "Expense deleted successfully")
	return nil
}

func (a *App) update(ctx context.Context, args []string) error {
	fs := a.flagSet("update")
	id := fs.Int64("id", 0, "Expense ID to update (required)")
	description := &optionalString{}
	amount := &amountFlag{}
	category := &optionalString{}
	fs.Var(description, "description", "New description")
	fs.Var(amount, "amount", "New amount")
	fs.Var(category, "category", "New category")
	if err := a.parse(fs, args, "id"); err != nil {
		return err
	}

	ok, err := a.tracker.Update(ctx, *id, core.ExpenseUpdate{
		Description: description.optional(),
		Amount:      amount.optional(),
		Category:    category.optional(),
	})
	if err != nil {
		return err
	}
	if !ok {
		return a.notFound(*id)
	}
	fmt.Fprintln(a.out, "Expense updated successfully")
	return nil
}

func (a *App) list(_ context.Context, args []string) error {
	fs := a.flagSet("list")
	category := fs.String("category", "", "Filter by category")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	return a.tracker.List(*category)
}

func (a *App) summary(_ context.Context, args []string) error {
	fs := a.flagSet("summary")
	month := fs.Int("month", 0, "Month number (1-12)")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if !isSet(fs, "month") {
		total, err := a.tracker.Summary(core.None[int]())
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Total expenses: $%s\n", total.Format())
		return nil
	}

	total, err := a.tracker.Summary(core.Some(*month))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Total expenses for %s: $%s\n", time.Month(*month), total.Format())
	return nil
}

func (a *App) export(ctx context.Context, args []string) error {
	fs := a.flagSet("export")
	filename := fs.String("filename", a.exportFile, "Output filename")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if !a.tracker.ExportCSV(ctx, *filename) {
		fmt.Fprintln(a.out, "Error exporting expenses")
		return errReported
	}
	fmt.Fprintf(a.out, "Expenses exported to %s successfully\n", *filename)
	return nil
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: expenses %s [flags]\n", name)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args into fs and checks that every required flag was given.
func (a *App) parse(fs *flag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(a.errOut, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		fs.Usage()
		return errUsage
	}
	var missing []string
	for _, name := range required {
		if !isSet(fs, name) {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(a.errOut, "missing required flags: %s\n", strings.Join(missing, ", "))
		fs.Usage()
		return errUsage
	}
	return nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// notFound prints the not-found line for id.
func (a *App) notFound(id int64) error {
	fmt.Fprintf(a.out, "Error: Expense with ID %d not found\n", id)
	return errReported
}

func wantsHelp(args []string) bool {
	if len(args) == 0 {
		return true
	}
	switch args[0] {
	case "help", "-h", "-help", "--help":
		return true
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Simple Expense Tracker")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: expenses <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range []struct{ name, summary string }{
		{"add", "Add a new expense (--description, --amount, [--category])"},
		{"delete", "Delete an expense (--id)"},
		{"update", "Update an expense (--id, [--description], [--amount], [--category])"},
		{"list", "List all expenses ([--category])"},
		{"summary", "Show expense summary ([--month 1-12])"},
		{"export", "Export expenses to CSV ([--filename])"},
	} {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'expenses <command> -h' for command flags.")
}
