package services

import (
	"context"
	"fmt"
	"log/slog"

	"casa/internal/core"
)

// NotificationService lists notifications and fans out expense notices.
type NotificationService struct {
	store    NotificationStore
	expenses ExpenseLister
	members  MembershipLister
	users    UserReader
}

func NewNotificationService(store NotificationStore, expenses ExpenseLister, members MembershipLister, users UserReader) *NotificationService {
	return &NotificationService{store: store, expenses: expenses, members: members, users: users}
}

// List returns the notifications of ownerID. Users only see their own.
func (s *NotificationService) List(ctx context.Context, userID, ownerID string) ([]core.Notification, error) {
	if userID != ownerID {
		return nil, core.ErrForbidden
	}
	ns, err := s.store.ListNotifications(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}

// MarkRead marks a notification of userID as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (core.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return core.Notification{}, fmt.Errorf("get notification: %w", err)
	}
	if n.UserID != userID {
		return core.Notification{}, core.ErrForbidden
	}
	n, err = s.store.MarkNotificationRead(ctx, id)
	if err != nil {
		return core.Notification{}, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}

// NotifyExpenseCreated tells every member except the creator about a new
// expense. It returns the number of notifications written.
func (s *NotificationService) NotifyExpenseCreated(ctx context.Context, houseID, expenseID string) (int, error) {
	expenses, err := s.expenses.ListExpenses(ctx, houseID)
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}
	var expense *core.Expense
	for i := range expenses {
		if expenses[i].ID == expenseID {
			expense = &expenses[i]
			break
		}
	}
	if expense == nil {
		return 0, fmt.Errorf("expense %s: %w", expenseID, core.ErrNotFound)
	}

	members, err := s.members.ListMembers(ctx, houseID)
	if err != nil {
		return 0, fmt.Errorf("list members: %w", err)
	}
	creator := expense.CreatorID
	if u, err := s.users.GetUser(ctx, expense.CreatorID); err == nil {
		creator = u.Label()
	}

	msg := fmt.Sprintf("%s added %q: %s %s", creator, expense.Title, core.FormatAmount(expense.Amount), expense.Currency)
	var ns []core.Notification
	for _, m := range members {
		if m.UserID == expense.CreatorID {
			continue
		}
		ns = append(ns, core.Notification{UserID: m.UserID, Message: msg})
	}
	if len(ns) == 0 {
		return 0, nil
	}
	if err := s.store.CreateNotifications(ctx, ns); err != nil {
		return 0, fmt.Errorf("create notifications: %w", err)
	}
	slog.InfoContext(ctx, "Expense notifications sent",
		"house_id", houseID,
		"expense_id", expenseID,
		"recipients", len(ns))
	return len(ns), nil
}
