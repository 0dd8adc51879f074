package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// JobType names the work a JobMessage asks the worker to do.
type JobType string

const (
	// JobRotate advances the chore rotation of one house, or of every house
	// when HouseID is empty.
	JobRotate JobType = "rotate"
	// JobExpenseCreated fans out notifications for a new expense.
	JobExpenseCreated JobType = "expense_created"
)

var ErrInvalidMessage = errors.New("invalid job message")

// JobMessage is the lightweight payload exchanged on the job queue. It only
// carries identifiers; the worker reloads everything else from the database.
type JobMessage struct {
	Type      JobType   `json:"type"`
	HouseID   string    `json:"houseId,omitempty"`
	ExpenseID string    `json:"expenseId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRotateMessage(houseID string) *JobMessage {
	return &JobMessage{
		Type:      JobRotate,
		HouseID:   houseID,
		Timestamp: time.Now().UTC(),
	}
}

func NewExpenseCreatedMessage(houseID, expenseID string) *JobMessage {
	return &JobMessage{
		Type:      JobExpenseCreated,
		HouseID:   houseID,
		ExpenseID: expenseID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *JobMessage) Validate() error {
	switch m.Type {
	case JobRotate:
		return nil
	case JobExpenseCreated:
		if m.HouseID == "" || m.ExpenseID == "" {
			return fmt.Errorf("%w: expense_created needs houseId and expenseId", ErrInvalidMessage)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, m.Type)
	}
}

// ToJSON converts the message to JSON bytes
func (m *JobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// JobMessageFromJSON decodes and validates a message.
func JobMessageFromJSON(data []byte) (*JobMessage, error) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
