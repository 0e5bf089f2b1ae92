// Package storage persists the full expense list.
//
// Every implementation follows the same contract: Load never fails (a missing,
// unreadable or malformed source yields an empty list) while Save reports its
// errors so the caller can tell the operator.
package storage

import (
	"context"

	"expenses/internal/core"
)

// Store loads and saves the whole expense sequence in insertion order.
type Store interface {
	Load(ctx context.Context) []core.Expense
	Save(ctx context.Context, expenses []core.Expense) error
}
