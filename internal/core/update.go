package core

import "strings"

// Optional distinguishes a supplied value from an omitted one, so that a
// legitimate zero value is never mistaken for "not provided".
type Optional[T any] struct {
	value T
	set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

// ExpenseUpdate carries a partial update; only set fields are applied.
type ExpenseUpdate struct {
	Description Optional[string]
	Amount      Optional[Money]
	Category    Optional[string]
}

// Validate checks the supplied fields without touching any expense.
func (u ExpenseUpdate) Validate() error {
	if desc, ok := u.Description.Get(); ok && strings.TrimSpace(desc) == "" {
		return ErrEmptyDescription
	}
	if amount, ok := u.Amount.Get(); ok {
		if err := amount.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply overwrites the supplied fields of e. Callers validate first.
func (u ExpenseUpdate) Apply(e *Expense) {
	if desc, ok := u.Description.Get(); ok {
		e.Description = desc
	}
	if amount, ok := u.Amount.Get(); ok {
		e.Amount = amount
	}
	if cat, ok := u.Category.Get(); ok {
		e.Category = cat
	}
}

// IsEmpty reports whether no field was supplied.
func (u ExpenseUpdate) IsEmpty() bool {
	return !u.Description.IsSet() && !u.Amount.IsSet() && !u.Category.IsSet()
}
