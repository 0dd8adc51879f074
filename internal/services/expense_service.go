package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"casa/internal/core"
	"casa/internal/metrics"
)

// ExpenseService orchestrates expense operations across the store, the
// balance cache and the job queue.
type ExpenseService struct {
	store     ExpenseStore
	balances  *BalanceCache
	publisher JobPublisher
}

func NewExpenseService(store ExpenseStore, balances *BalanceCache, publisher JobPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		balances:  balances,
		publisher: publisher,
	}
}

// CreateExpense records an expense paid by userID in a house they belong to.
// Shares that do not add up to the amount are accepted and only logged;
// the balance view reports them.
func (s *ExpenseService) CreateExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	e.Title = strings.TrimSpace(e.Title)
	e.Currency = strings.ToUpper(strings.TrimSpace(e.Currency))
	e.CreatorID = userID
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	members, err := membersOf(ctx, s.store, e.HouseID, userID)
	if err != nil {
		return core.Expense{}, err
	}
	if err := e.ValidateShares(members); err != nil {
		return core.Expense{}, err
	}
	if !e.SplitEqual {
		if total := e.SharesTotal(); !total.Equal(e.Amount) {
			slog.WarnContext(ctx, "Expense shares do not sum to amount",
				"house_id", e.HouseID,
				"amount", core.FormatAmount(e.Amount),
				"shares_total", core.FormatAmount(total))
		}
	}

	// Save first; publishing is best-effort
	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.balances.Invalidate(e.HouseID)

	slog.InfoContext(ctx, "Expense created",
		"house_id", saved.HouseID,
		"expense_id", saved.ID,
		"amount", core.FormatAmount(saved.Amount),
		"currency", saved.Currency,
		"split_equal", saved.SplitEqual)

	if err := s.publishExpenseCreated(ctx, saved); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense created message",
			"expense_id", saved.ID, "error", err)
		// Don't fail the request - expense is saved
	}

	return saved, nil
}

// ListExpenses returns the expenses of a house, visible to members only.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID, houseID string) ([]core.Expense, error) {
	if _, err := membersOf(ctx, s.store, houseID, userID); err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Balance returns the net balance of every member of a house.
func (s *ExpenseService) Balance(ctx context.Context, userID, houseID string) (BalanceReport, error) {
	gen := s.balances.Generation(houseID)
	members, err := membersOf(ctx, s.store, houseID, userID)
	if err != nil {
		return BalanceReport{}, err
	}
	if r, ok := s.balances.Get(houseID); ok {
		return r, nil
	}

	start := time.Now()
	expenses, err := s.store.ListExpenses(ctx, houseID)
	if err != nil {
		return BalanceReport{}, fmt.Errorf("list expenses: %w", err)
	}
	report := ComputeBalances(members, expenses)
	metrics.RecordBalance(time.Since(start), len(report.Diagnostics))

	for _, d := range report.Diagnostics {
		slog.WarnContext(ctx, "Balance input inconsistency",
			"house_id", houseID,
			"kind", d.Kind,
			"detail", d.String())
	}

	s.balances.Set(houseID, gen, report)
	return report, nil
}

func (s *ExpenseService) publishExpenseCreated(ctx context.Context, e core.Expense) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Job publisher not available, skipping expense created message")
		return nil
	}
	return s.publisher.PublishExpenseCreated(ctx, e.HouseID, e.ID)
}
