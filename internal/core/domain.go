package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

const (
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
)

type (
	Role      string
	Frequency string

	User struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Name      string    `json:"name,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	House struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
		Members   []Member  `json:"members,omitempty"`
	}

	// Member is a user's membership in a house. A house's members are
	// always handled in creation order; rotation depends on it.
	Member struct {
		ID          string    `json:"id"`
		HouseID     string    `json:"houseId"`
		UserID      string    `json:"userId"`
		Role        Role      `json:"role"`
		DisplayName string    `json:"displayName"`
		Email       string    `json:"email"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	Expense struct {
		ID         string          `json:"id"`
		HouseID    string          `json:"houseId"`
		CreatorID  string          `json:"creatorId"`
		Title      string          `json:"title"`
		Amount     decimal.Decimal `json:"amount"`
		Currency   string          `json:"currency"`
		SplitEqual bool            `json:"splitEqual"`
		Shares     []ExpenseShare  `json:"shares"`
		CreatedAt  time.Time       `json:"createdAt"`
	}

	ExpenseShare struct {
		ExpenseID string          `json:"expenseId"`
		UserID    string          `json:"userId"`
		Amount    decimal.Decimal `json:"amount"`
	}

	Chore struct {
		ID          string            `json:"id"`
		HouseID     string            `json:"houseId"`
		Title       string            `json:"title"`
		Description string            `json:"description,omitempty"`
		Frequency   Frequency         `json:"frequency"`
		Active      bool              `json:"active"`
		CreatedAt   time.Time         `json:"createdAt"`
		Assignments []ChoreAssignment `json:"assignments,omitempty"`
	}

	ChoreAssignment struct {
		ID        string    `json:"id"`
		ChoreID   string    `json:"choreId"`
		UserID    string    `json:"userId"`
		DueDate   time.Time `json:"dueDate"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// ChoreState is an active chore together with its current assignment,
	// nil when the chore was never assigned.
	ChoreState struct {
		Chore Chore
		Last  *ChoreAssignment
	}

	Notification struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		Message   string    `json:"message"`
		Read      bool      `json:"read"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyMember    = errors.New("user is already a member of this house")
	ErrRemoveSelf       = errors.New("you cannot remove yourself as admin")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidRole      = errors.New("invalid role")
	ErrMissingShares    = errors.New("explicit split requires at least one share")
	ErrUnexpectedShares = errors.New("equal split does not take shares")
	ErrShareNotMember   = errors.New("share owner is not a member of this house")
	ErrDuplicateShare   = errors.New("duplicate share for the same user")
	ErrTooLong          = errors.New("value too long")
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

func (f Frequency) Valid() bool {
	return f == Weekly || f == Monthly
}

// Label is the name shown for a user: the name when set, the email otherwise.
func (u User) Label() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Email
}

func (u User) Validate() error {
	email := strings.TrimSpace(u.Email)
	if email == "" || !strings.Contains(email, "@") || len(email) > 254 {
		return ErrInvalidEmail
	}
	if len(u.Name) > 100 {
		return fmt.Errorf("%w: name (max 100 characters)", ErrTooLong)
	}
	return nil
}

func (h House) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return ErrEmptyName
	}
	if len(h.Name) > 100 {
		return fmt.Errorf("%w: name (max 100 characters)", ErrTooLong)
	}
	return nil
}

// IsAdmin reports whether userID holds the ADMIN role in members.
func IsAdmin(members []Member, userID string) bool {
	m, ok := FindMember(members, userID)
	return ok && m.Role == RoleAdmin
}

// FindMember returns the membership of userID, if any.
func FindMember(members []Member, userID string) (Member, bool) {
	for _, m := range members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// Validate checks the expense on its own. Share ownership against the
// current membership is checked by ValidateShares.
func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return fmt.Errorf("%w: title (max 200 characters)", ErrTooLong)
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if len(e.Currency) != 3 || strings.ToUpper(e.Currency) != e.Currency {
		return ErrInvalidCurrency
	}
	if e.SplitEqual {
		if len(e.Shares) > 0 {
			return ErrUnexpectedShares
		}
		return nil
	}
	if len(e.Shares) == 0 {
		return ErrMissingShares
	}
	seen := make(map[string]bool, len(e.Shares))
	for _, s := range e.Shares {
		if seen[s.UserID] {
			return ErrDuplicateShare
		}
		seen[s.UserID] = true
		if err := ValidateAmount(s.Amount); err != nil {
			return err
		}
	}
	return nil
}

// ValidateShares checks that every share belongs to one of members.
func (e Expense) ValidateShares(members []Member) error {
	for _, s := range e.Shares {
		if _, ok := FindMember(members, s.UserID); !ok {
			return ErrShareNotMember
		}
	}
	return nil
}

// SharesTotal sums the explicit shares of the expense.
func (e Expense) SharesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, s := range e.Shares {
		total = total.Add(s.Amount)
	}
	return total
}

func (c Chore) Validate() error {
	if len(strings.TrimSpace(c.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(c.Title) > 200 {
		return fmt.Errorf("%w: title (max 200 characters)", ErrTooLong)
	}
	if len(c.Description) > 1000 {
		return fmt.Errorf("%w: description (max 1000 characters)", ErrTooLong)
	}
	if !c.Frequency.Valid() {
		return ErrUnknownFrequency
	}
	return nil
}
