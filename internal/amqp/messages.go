package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"expenses/internal/core"
)

// EventType names the mutation an ExpenseEvent reports.
type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
)

// ExpenseEvent is published after a mutation has been written to the store.
// Expense carries the record as stored, or the removed record for deletions.
type ExpenseEvent struct {
	EventID   string        `json:"event_id"`
	Type      EventType     `json:"type"`
	ExpenseID int64         `json:"expense_id"`
	Expense   *core.Expense `json:"expense"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewExpenseEvent stamps a new event with a fresh id and the current time.
func NewExpenseEvent(eventType EventType, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		EventID:   uuid.NewString(),
		Type:      eventType,
		ExpenseID: e.ID,
		Expense:   &e,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes an event from JSON bytes
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
