package services

import (
	"context"
	"errors"
	"testing"

	"casa/internal/core"
)

var (
	_ HouseStore        = (*memStore)(nil)
	_ ExpenseStore      = (*memStore)(nil)
	_ ChoreStore        = (*memStore)(nil)
	_ NotificationStore = (*memStore)(nil)
)

func TestHouseService_CreateAndGet(t *testing.T) {
	store := newMemStore()
	store.addUser("A", "Anna")
	svc := NewHouseService(store, nil)
	ctx := context.Background()

	h, err := svc.CreateHouse(ctx, "A", "  Via Roma 1 ")
	if err != nil {
		t.Fatalf("CreateHouse() error = %v", err)
	}
	if h.Name != "Via Roma 1" {
		t.Fatalf("name not trimmed: %q", h.Name)
	}
	got, err := svc.GetHouse(ctx, "A", h.ID)
	if err != nil {
		t.Fatalf("GetHouse() error = %v", err)
	}
	if len(got.Members) != 1 || got.Members[0].Role != core.RoleAdmin {
		t.Fatalf("creator should be the only ADMIN member: %+v", got.Members)
	}

	if _, err := svc.CreateHouse(ctx, "A", " "); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestHouseService_MembershipRules(t *testing.T) {
	store := newMemStore()
	store.seedHouse("h1", "admin", "member")
	store.addUser("newbie", "New")
	svc := NewHouseService(store, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"member cannot add", func() error {
			_, err := svc.AddMember(ctx, "member", "h1", "newbie", "")
			return err
		}, core.ErrForbidden},
		{"unknown user", func() error {
			_, err := svc.AddMember(ctx, "admin", "h1", "ghost", "")
			return err
		}, core.ErrNotFound},
		{"invalid role", func() error {
			_, err := svc.AddMember(ctx, "admin", "h1", "newbie", "OWNER")
			return err
		}, core.ErrInvalidRole},
		{"already member", func() error {
			_, err := svc.AddMember(ctx, "admin", "h1", "member", "")
			return err
		}, core.ErrAlreadyMember},
		{"admin cannot remove self", func() error {
			return svc.RemoveMember(ctx, "admin", "h1", "admin")
		}, core.ErrRemoveSelf},
		{"remove unknown member", func() error {
			return svc.RemoveMember(ctx, "admin", "h1", "newbie")
		}, core.ErrNotFound},
		{"member cannot rename", func() error {
			_, err := svc.RenameHouse(ctx, "member", "h1", "x")
			return err
		}, core.ErrForbidden},
		{"unknown house", func() error {
			_, err := svc.GetHouse(ctx, "admin", "nope")
			return err
		}, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	m, err := svc.AddMember(ctx, "admin", "h1", "newbie", "")
	if err != nil || m.Role != core.RoleMember {
		t.Fatalf("AddMember() = %+v, %v", m, err)
	}
	if err := svc.RemoveMember(ctx, "admin", "h1", "member"); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	ms, _ := store.ListMembers(ctx, "h1")
	if len(ms) != 2 || ms[0].UserID != "admin" || ms[1].UserID != "newbie" {
		t.Fatalf("unexpected members %+v", ms)
	}
}

func TestChoreService(t *testing.T) {
	store := newMemStore()
	store.seedHouse("h1", "admin", "member")
	pub := &recordingPublisher{}
	svc := NewChoreService(store, pub)
	ctx := context.Background()

	if _, err := svc.CreateChore(ctx, "member", core.Chore{HouseID: "h1", Title: "Bins", Frequency: core.Weekly}); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.CreateChore(ctx, "admin", core.Chore{HouseID: "h1", Title: "Bins", Frequency: "daily"}); !errors.Is(err, core.ErrUnknownFrequency) {
		t.Fatalf("expected ErrUnknownFrequency, got %v", err)
	}
	c, err := svc.CreateChore(ctx, "admin", core.Chore{HouseID: "h1", Title: "Bins", Frequency: "weekly"})
	if err != nil {
		t.Fatalf("CreateChore() error = %v", err)
	}
	if !c.Active || c.Frequency != core.Weekly {
		t.Fatalf("unexpected chore %+v", c)
	}

	chores, err := svc.ListChores(ctx, "member", "h1")
	if err != nil || len(chores) != 1 {
		t.Fatalf("ListChores() = %v, %v", chores, err)
	}

	if err := svc.RequestRotation(ctx, "member", "h1"); err != nil {
		t.Fatalf("RequestRotation() error = %v", err)
	}
	if err := svc.RequestRotation(ctx, "member", ""); err != nil {
		t.Fatalf("RequestRotation() error = %v", err)
	}
	if len(pub.rotates) != 2 || pub.rotates[0] != "h1" || pub.rotates[1] != "" {
		t.Fatalf("unexpected rotate jobs %v", pub.rotates)
	}

	if err := NewChoreService(store, nil).RequestRotation(ctx, "member", ""); !errors.Is(err, ErrQueueUnavailable) {
		t.Fatalf("expected ErrQueueUnavailable, got %v", err)
	}
}

func TestNotificationService(t *testing.T) {
	store := newMemStore()
	store.seedHouse("h1", "A", "B", "C")
	store.users["A"] = core.User{ID: "A", Email: "a@casa.test", Name: "Anna"}
	ctx := context.Background()

	e, _ := store.CreateExpense(ctx, core.Expense{HouseID: "h1", CreatorID: "A", Title: "Pizza", Amount: d("30"), Currency: "EUR", SplitEqual: true})
	svc := NewNotificationService(store, store, store, store)

	n, err := svc.NotifyExpenseCreated(ctx, "h1", e.ID)
	if err != nil || n != 2 {
		t.Fatalf("NotifyExpenseCreated() = %d, %v", n, err)
	}
	list, err := svc.List(ctx, "B", "B")
	if err != nil || len(list) != 1 {
		t.Fatalf("List() = %v, %v", list, err)
	}
	if want := `Anna added "Pizza": 30.00 EUR`; list[0].Message != want {
		t.Fatalf("message = %q, want %q", list[0].Message, want)
	}

	if _, err := svc.List(ctx, "A", "B"); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.MarkRead(ctx, "C", list[0].ID); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	read, err := svc.MarkRead(ctx, "B", list[0].ID)
	if err != nil || !read.Read {
		t.Fatalf("MarkRead() = %+v, %v", read, err)
	}
	if _, err := svc.MarkRead(ctx, "B", "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.NotifyExpenseCreated(ctx, "h1", "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
