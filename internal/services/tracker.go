package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/storage"
)

// DefaultExportFile is the CSV target when none is given.
const DefaultExportFile = "expenses_export.csv"

// EventPublisher receives a notification after each persisted mutation.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, event *amqp.ExpenseEvent) error
}

// Options configures a Tracker. Zero values pick stdout, stderr, time.Now,
// no event publishing and a discarding logger.
type Options struct {
	Out       io.Writer
	Err       io.Writer
	Publisher EventPublisher
	Now       func() time.Time
	Logger    *applog.Logger
}

// Tracker holds the expense list loaded from a Store and writes it back
// in full after every mutation.
type Tracker struct {
	store     storage.Store
	publisher EventPublisher
	expenses  []core.Expense
	out       io.Writer
	errOut    io.Writer
	now       func() time.Time
	logger    *applog.Logger
}

// NewTracker loads the current expenses from store.
func NewTracker(ctx context.Context, store storage.Store, opts Options) *Tracker {
	t := &Tracker{
		store:     store,
		publisher: opts.Publisher,
		out:       opts.Out,
		errOut:    opts.Err,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if t.out == nil {
		t.out = os.Stdout
	}
	if t.errOut == nil {
		t.errOut = os.Stderr
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.logger == nil {
		t.logger = applog.Discard()
	}
	t.logger = t.logger.WithComponent(applog.ComponentTracker)

	t.expenses = store.Load(ctx)
	if t.expenses == nil {
		t.expenses = []core.Expense{}
	}
	return t
}

// Expenses returns a copy of the current list in store order.
func (t *Tracker) Expenses() []core.Expense {
	return slices.Clone(t.expenses)
}

// NextID returns 1 for an empty store, otherwise the highest id plus one.
func (t *Tracker) NextID() int64 {
	var maxID int64
	for _, e := range t.expenses {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	return maxID + 1
}

// Add records a new expense dated today and returns its id.
// An empty category becomes core.DefaultCategory.
func (t *Tracker) Add(ctx context.Context, description string, amount core.Money, category string) (int64, error) {
	if err := amount.Validate(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(description) == "" {
		return 0, core.ErrEmptyDescription
	}
	if category == "" {
		category = core.DefaultCategory
	}

	e := core.Expense{
		ID:          t.NextID(),
		Date:        core.DateOf(t.now()),
		Description: description,
		Amount:      amount,
		Category:    category,
	}
	t.expenses = append(t.expenses, e)
	t.persist(ctx)

	t.logger.InfoContext(ctx, "Expense added",
		applog.NewFields().WithOperation(applog.OpCreate).
			WithExpense(e.ID, e.Description, e.Amount.Format(), e.Category).ToSlice()...)
	t.publish(ctx, amqp.ExpenseCreated, e)
	return e.ID, nil
}

// Delete removes the expense with the given id. It reports false, and
// changes nothing, when no such expense exists.
func (t *Tracker) Delete(ctx context.Context, id int64) bool {
	i := t.indexOf(id)
	if i < 0 {
		t.notFound(ctx, applog.OpDelete, id)
		return false
	}
	removed := t.expenses[i]
	t.expenses = slices.Delete(t.expenses, i, i+1)
	t.persist(ctx)

	t.logger.InfoContext(ctx, "Expense deleted", applog.FieldOperation, applog.OpDelete, applog.FieldExpenseID, id)
	t.publish(ctx, amqp.ExpenseDeleted, removed)
	return true
}

// Update applies the supplied fields of u to the expense with the given id.
// It reports false when no such expense exists. A validation error leaves
// the expense and the store untouched.
func (t *Tracker) Update(ctx context.Context, id int64, u core.ExpenseUpdate) (bool, error) {
	i := t.indexOf(id)
	if i < 0 {
		t.notFound(ctx, applog.OpUpdate, id)
		return false, nil
	}
	if err := u.Validate(); err != nil {
		t.logger.DebugContext(ctx, "Rejected expense update",
			applog.NewFields().WithOperation(applog.OpUpdate).WithError(err).
				WithErrorType(applog.ErrorTypeValidation).ToSlice()...)
		return false, err
	}

	u.Apply(&t.expenses[i])
	t.persist(ctx)

	e := t.expenses[i]
	t.logger.InfoContext(ctx, "Expense updated",
		applog.NewFields().WithOperation(applog.OpUpdate).
			WithExpense(e.ID, e.Description, e.Amount.Format(), e.Category).ToSlice()...)
	t.publish(ctx, amqp.ExpenseUpdated, e)
	return true, nil
}

// Filter returns the expenses in the given category, ignoring case.
// An empty category returns every expense.
func (t *Tracker) Filter(category string) []core.Expense {
	if category == "" {
		return t.Expenses()
	}
	return core.InCategory(t.expenses, category)
}

// List prints the expenses in the given category as a table, or a notice
// when there is nothing to show.
func (t *Tracker) List(category string) error {
	expenses := t.Filter(category)
	t.logger.Debug("Listing expenses",
		applog.FieldOperation, applog.OpList, applog.FieldCategory, category, applog.FieldCount, len(expenses))
	if len(expenses) == 0 {
		_, err := fmt.Fprintln(t.out, "No expenses found.")
		return err
	}
	return RenderTable(t.out, expenses)
}

// Summary totals every expense, or only those in the given month (1-12) of
// the current year when month is set.
func (t *Tracker) Summary(month core.Optional[int]) (core.Money, error) {
	m, ok := month.Get()
	if !ok {
		t.logger.Debug("Summarizing expenses", applog.FieldOperation, applog.OpSummary)
		return core.Total(t.expenses), nil
	}
	if m < 1 || m > 12 {
		return core.Money{}, core.ErrInvalidMonth
	}
	year := t.now().Year()
	t.logger.Debug("Summarizing expenses",
		applog.FieldOperation, applog.OpSummary, applog.FieldMonth, m, applog.FieldYear, year)
	return core.Total(core.InMonth(t.expenses, year, m)), nil
}

// ExportCSV writes every expense to filename and reports whether it worked.
func (t *Tracker) ExportCSV(ctx context.Context, filename string) bool {
	if filename == "" {
		filename = DefaultExportFile
	}
	if err := writeCSVFile(filename, t.expenses); err != nil {
		fmt.Fprintf(t.errOut, "Error exporting to CSV: %v\n", err)
		t.logger.ErrorContext(ctx, "CSV export failed",
			applog.FieldOperation, applog.OpExport, applog.FieldPath, filename,
			applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeStorage)
		return false
	}
	t.logger.InfoContext(ctx, "Expenses exported",
		applog.FieldOperation, applog.OpExport, applog.FieldPath, filename, applog.FieldCount, len(t.expenses))
	return true
}

func (t *Tracker) notFound(ctx context.Context, op string, id int64) {
	t.logger.DebugContext(ctx, "Expense not found",
		applog.FieldOperation, op, applog.FieldExpenseID, id,
		applog.FieldError, core.ErrNotFound, applog.FieldErrorType, applog.ErrorTypeNotFound)
}

func (t *Tracker) indexOf(id int64) int {
	return slices.IndexFunc(t.expenses, func(e core.Expense) bool { return e.ID == id })
}

// persist writes the list back. A failure is reported, not returned: the
// in-memory list stays authoritative for the rest of the run.
func (t *Tracker) persist(ctx context.Context) {
	if err := t.store.Save(ctx, t.expenses); err != nil {
		fmt.Fprintf(t.errOut, "Error saving expenses: %v\n", err)
		t.logger.ErrorContext(ctx, "Failed to save expenses",
			applog.FieldOperation, applog.OpSave, applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeStorage)
	}
}

func (t *Tracker) publish(ctx context.Context, eventType amqp.EventType, e core.Expense) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(eventType, e)); err != nil {
		t.logger.WarnContext(ctx, "Failed to publish expense event",
			applog.FieldOperation, applog.OpPublish, applog.FieldExpenseID, e.ID,
			applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeNetwork)
	}
}
