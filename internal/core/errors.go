package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the balance and rotation computations.
type ErrorKind string

const (
	KindDataInconsistency ErrorKind = "data_inconsistency"
	KindConfiguration     ErrorKind = "configuration"
	KindPersistence       ErrorKind = "persistence"
	KindConflict          ErrorKind = "conflict"
)

var (
	ErrNoMembers          = errors.New("house has no members")
	ErrUnknownFrequency   = errors.New("unknown chore frequency")
	ErrAssignmentConflict = errors.New("chore assignment changed concurrently")
)

// RotationError reports why a single chore could not be rotated.
type RotationError struct {
	HouseID string
	ChoreID string
	Kind    ErrorKind
	Err     error
}

func (e *RotationError) Error() string {
	return fmt.Sprintf("rotate chore %s (%s): %v", e.ChoreID, e.Kind, e.Err)
}

func (e *RotationError) Unwrap() error {
	return e.Err
}

// Diagnostic describes input the balance computation skipped or could not
// reconcile. Diagnostics never fail the computation.
type Diagnostic struct {
	Kind      ErrorKind `json:"kind"`
	ExpenseID string    `json:"expenseId,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Message   string    `json:"message"`
}

func (d Diagnostic) String() string {
	if d.ExpenseID == "" {
		return d.Message
	}
	if d.UserID != "" {
		return fmt.Sprintf("expense %s, user %s: %s", d.ExpenseID, d.UserID, d.Message)
	}
	return fmt.Sprintf("expense %s: %s", d.ExpenseID, d.Message)
}
