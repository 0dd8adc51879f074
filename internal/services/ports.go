package services

import (
	"context"

	"casa/internal/core"
)

// Ports for outbound adapters. Lookups of missing rows return errors
// wrapping core.ErrNotFound.
type (
	UserReader interface {
		GetUser(ctx context.Context, id string) (core.User, error)
	}

	HouseStore interface {
		MembershipLister
		UserReader
		// CreateHouse stores the house and makes creatorID its ADMIN.
		CreateHouse(ctx context.Context, name, creatorID string) (core.House, error)
		GetHouse(ctx context.Context, id string) (core.House, error)
		// ListHousesForUser returns the houses userID belongs to, members included.
		ListHousesForUser(ctx context.Context, userID string) ([]core.House, error)
		RenameHouse(ctx context.Context, id, name string) (core.House, error)
		// AddMember fails with core.ErrAlreadyMember for an existing membership.
		AddMember(ctx context.Context, houseID, userID string, role core.Role) (core.Member, error)
		RemoveMember(ctx context.Context, houseID, userID string) error
	}

	// ExpenseLister returns a house's expenses with their shares.
	ExpenseLister interface {
		ListExpenses(ctx context.Context, houseID string) ([]core.Expense, error)
	}

	ExpenseStore interface {
		MembershipLister
		ExpenseLister
		GetHouse(ctx context.Context, id string) (core.House, error)
		// CreateExpense stores the expense and its shares atomically.
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	}

	ChoreStore interface {
		MembershipLister
		GetHouse(ctx context.Context, id string) (core.House, error)
		CreateChore(ctx context.Context, c core.Chore) (core.Chore, error)
		// ListChores returns every chore of a house with its assignment history,
		// latest due date first.
		ListChores(ctx context.Context, houseID string) ([]core.Chore, error)
	}

	NotificationStore interface {
		CreateNotifications(ctx context.Context, ns []core.Notification) error
		ListNotifications(ctx context.Context, userID string) ([]core.Notification, error)
		GetNotification(ctx context.Context, id string) (core.Notification, error)
		MarkNotificationRead(ctx context.Context, id string) (core.Notification, error)
	}

	// JobPublisher enqueues background work. A nil JobPublisher disables
	// publishing.
	JobPublisher interface {
		PublishRotate(ctx context.Context, houseID string) error
		PublishExpenseCreated(ctx context.Context, houseID, expenseID string) error
	}
)
