package services

import (
	"time"

	"casa/internal/core"
)

// NextAssignment is the outcome of advancing a chore's rotation.
type NextAssignment struct {
	UserID  string
	DueDate time.Time
}

// AdvanceRotation picks the next assignee of chore and its due date.
//
// A chore never assigned goes to the first member. Otherwise the member
// after the last assignee takes it, wrapping around; if the last assignee
// has left the house the rotation restarts from the first member.
// Errors wrap core.ErrNoMembers or core.ErrUnknownFrequency.
func AdvanceRotation(chore core.Chore, members []core.Member, last *core.ChoreAssignment, now time.Time) (NextAssignment, error) {
	if len(members) == 0 {
		return NextAssignment{}, core.ErrNoMembers
	}
	strategy, err := GetDueDateStrategy(chore.Frequency)
	if err != nil {
		return NextAssignment{}, err
	}

	next := 0
	if last != nil {
		for i, m := range members {
			if m.UserID == last.UserID {
				next = (i + 1) % len(members)
				break
			}
		}
	}

	return NextAssignment{
		UserID:  members[next].UserID,
		DueDate: strategy.NextDue(now),
	}, nil
}
