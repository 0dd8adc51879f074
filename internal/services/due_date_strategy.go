// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for chore due dates. Each
// frequency has its own strategy that computes when the next assignment
// of a rotating chore falls due.

package services

import (
	"fmt"
	"time"

	"casa/internal/core"
)

// DueDateStrategy computes the due date of the next assignment of a chore.
type DueDateStrategy interface {
	// NextDue returns the due date of an assignment created at now.
	NextDue(now time.Time) time.Time
}

// WeeklyStrategy implements DueDateStrategy for weekly chores.
type WeeklyStrategy struct{}

// NextDue returns now plus exactly seven days.
func (WeeklyStrategy) NextDue(now time.Time) time.Time {
	return now.AddDate(0, 0, 7)
}

// MonthlyStrategy implements DueDateStrategy for monthly chores.
type MonthlyStrategy struct{}

// NextDue returns now plus one calendar month. When the target month is
// shorter the day is clamped to its last day, so Jan 31 becomes Feb 28
// (Feb 29 in leap years) instead of rolling into March.
func (MonthlyStrategy) NextDue(now time.Time) time.Time {
	return AddMonthsClamped(now, 1)
}

// AddMonthsClamped adds months to t keeping the time of day and clamping
// the day to the length of the target month.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return first.AddDate(0, 0, d-1)
}

// dueDateStrategies maps chore frequencies to their strategies. Its keys
// are exactly the frequencies core.Frequency.Valid accepts.
var dueDateStrategies = map[core.Frequency]DueDateStrategy{
	core.Weekly:  WeeklyStrategy{},
	core.Monthly: MonthlyStrategy{},
}

// GetDueDateStrategy returns the strategy for a chore frequency.
// The error wraps core.ErrUnknownFrequency when there is none.
func GetDueDateStrategy(frequency core.Frequency) (DueDateStrategy, error) {
	s, ok := dueDateStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownFrequency, frequency)
	}
	return s, nil
}
