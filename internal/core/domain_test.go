package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestUserLabel(t *testing.T) {
	if got := (User{Email: "a@x.io", Name: "Anna"}).Label(); got != "Anna" {
		t.Fatalf("expected name, got %q", got)
	}
	if got := (User{Email: "a@x.io", Name: "  "}).Label(); got != "a@x.io" {
		t.Fatalf("expected email fallback, got %q", got)
	}
}

func TestUserValidate(t *testing.T) {
	if err := (User{Email: "a@x.io"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (User{Email: "nope"}).Validate(); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestHouseValidate(t *testing.T) {
	if err := (House{Name: "Via Roma"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (House{Name: " "}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := []Expense{
		{Title: "Groceries", Amount: dec("90"), Currency: "EUR", SplitEqual: true},
		{Title: "Rent", Amount: dec("100"), Currency: "EUR", Shares: []ExpenseShare{
			{UserID: "a", Amount: dec("60")},
			{UserID: "b", Amount: dec("40")},
		}},
	}
	for i, e := range good {
		if err := e.Validate(); err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
	}

	bads := []struct {
		e   Expense
		err error
	}{
		{Expense{Title: "", Amount: dec("1"), Currency: "EUR", SplitEqual: true}, ErrEmptyTitle},
		{Expense{Title: "a", Amount: dec("0"), Currency: "EUR", SplitEqual: true}, ErrInvalidAmount},
		{Expense{Title: "a", Amount: dec("1"), Currency: "eur", SplitEqual: true}, ErrInvalidCurrency},
		{Expense{Title: "a", Amount: dec("1"), Currency: "EURO", SplitEqual: true}, ErrInvalidCurrency},
		{Expense{Title: "a", Amount: dec("1"), Currency: "EUR"}, ErrMissingShares},
		{Expense{Title: "a", Amount: dec("1"), Currency: "EUR", SplitEqual: true, Shares: []ExpenseShare{{UserID: "a", Amount: dec("1")}}}, ErrUnexpectedShares},
		{Expense{Title: "a", Amount: dec("2"), Currency: "EUR", Shares: []ExpenseShare{{UserID: "a", Amount: dec("1")}, {UserID: "a", Amount: dec("1")}}}, ErrDuplicateShare},
		{Expense{Title: "a", Amount: dec("2"), Currency: "EUR", Shares: []ExpenseShare{{UserID: "a", Amount: dec("-1")}}}, ErrInvalidAmount},
	}
	for i, tc := range bads {
		if err := tc.e.Validate(); !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestExpenseValidateShares(t *testing.T) {
	members := []Member{{UserID: "a"}, {UserID: "b"}}
	e := Expense{Shares: []ExpenseShare{{UserID: "a"}, {UserID: "b"}}}
	if err := e.ValidateShares(members); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	e.Shares = append(e.Shares, ExpenseShare{UserID: "z"})
	if err := e.ValidateShares(members); !errors.Is(err, ErrShareNotMember) {
		t.Fatalf("expected ErrShareNotMember, got %v", err)
	}
}

func TestChoreValidate(t *testing.T) {
	if err := (Chore{Title: "Bins", Frequency: Weekly}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Chore{Title: "Bins", Frequency: "DAILY"}).Validate(); !errors.Is(err, ErrUnknownFrequency) {
		t.Fatalf("expected ErrUnknownFrequency, got %v", err)
	}
	if err := (Chore{Frequency: Monthly}).Validate(); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestValidateTooLong(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"user name", User{Email: "a@x.io", Name: strings.Repeat("x", 101)}.Validate()},
		{"house name", House{Name: strings.Repeat("x", 101)}.Validate()},
		{"expense title", Expense{Title: strings.Repeat("x", 201), Amount: dec("1"), Currency: "EUR", SplitEqual: true}.Validate()},
		{"chore title", Chore{Title: strings.Repeat("x", 201), Frequency: Weekly}.Validate()},
		{"chore description", Chore{Title: "Bins", Description: strings.Repeat("x", 1001), Frequency: Weekly}.Validate()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, ErrTooLong) {
				t.Errorf("expected ErrTooLong, got %v", tt.err)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	members := []Member{{UserID: "a", Role: RoleAdmin}, {UserID: "b", Role: RoleMember}}
	if !IsAdmin(members, "a") || IsAdmin(members, "b") || IsAdmin(members, "z") {
		t.Fatal("unexpected admin resolution")
	}
}

func TestRotationErrorUnwrap(t *testing.T) {
	err := error(&RotationError{ChoreID: "c1", Kind: KindConfiguration, Err: ErrNoMembers})
	if !errors.Is(err, ErrNoMembers) {
		t.Fatal("expected RotationError to unwrap to ErrNoMembers")
	}
	var re *RotationError
	if !errors.As(err, &re) || re.Kind != KindConfiguration {
		t.Fatalf("unexpected rotation error %#v", re)
	}
}
