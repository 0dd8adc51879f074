package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"casa/internal/core"
)

type expenseRow struct {
	ID         string          `db:"id"`
	HouseID    string          `db:"house_id"`
	CreatorID  string          `db:"creator_id"`
	Title      string          `db:"title"`
	Amount     decimal.Decimal `db:"amount"`
	Currency   string          `db:"currency"`
	SplitEqual bool            `db:"split_equal"`
	CreatedAt  string          `db:"created_at"`
}

type shareRow struct {
	ExpenseID string          `db:"expense_id"`
	UserID    string          `db:"user_id"`
	Amount    decimal.Decimal `db:"amount"`
}

// CreateExpense stores an expense and its shares in one transaction.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = newID()
	e.CreatedAt = r.now().UTC()
	if e.SplitEqual {
		e.Shares = nil
	}
	for i := range e.Shares {
		e.Shares[i].ExpenseID = e.ID
	}

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO expenses (id, house_id, creator_id, title, amount, currency, split_equal, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.HouseID, e.CreatorID, e.Title, e.Amount.StringFixed(2), e.Currency, e.SplitEqual, formatTime(e.CreatedAt)); err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		for _, s := range e.Shares {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO expense_shares (expense_id, user_id, amount) VALUES (?, ?, ?)`,
				e.ID, s.UserID, s.Amount.StringFixed(2)); err != nil {
				return fmt.Errorf("insert share for %s: %w", s.UserID, err)
			}
		}
		return nil
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if e.Shares == nil {
		e.Shares = []core.ExpenseShare{}
	}
	return e, nil
}

// ListExpenses returns the expenses of a house, oldest first, with shares.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, houseID string) ([]core.Expense, error) {
	var rows []expenseRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, house_id, creator_id, title, amount, currency, split_equal, created_at
		FROM expenses
		WHERE house_id = ?
		ORDER BY created_at, rowid`, houseID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	var shares []shareRow
	err = r.db.SelectContext(ctx, &shares, `
		SELECT s.expense_id, s.user_id, s.amount
		FROM expense_shares s JOIN expenses e ON e.id = s.expense_id
		WHERE e.house_id = ?
		ORDER BY s.rowid`, houseID)
	if err != nil {
		return nil, fmt.Errorf("list expense shares: %w", err)
	}
	byExpense := make(map[string][]core.ExpenseShare, len(rows))
	for _, s := range shares {
		byExpense[s.ExpenseID] = append(byExpense[s.ExpenseID], core.ExpenseShare{
			ExpenseID: s.ExpenseID,
			UserID:    s.UserID,
			Amount:    s.Amount,
		})
	}

	expenses := make([]core.Expense, len(rows))
	for i, row := range rows {
		shares := byExpense[row.ID]
		if shares == nil {
			shares = []core.ExpenseShare{}
		}
		expenses[i] = core.Expense{
			ID:         row.ID,
			HouseID:    row.HouseID,
			CreatorID:  row.CreatorID,
			Title:      row.Title,
			Amount:     row.Amount,
			Currency:   row.Currency,
			SplitEqual: row.SplitEqual,
			Shares:     shares,
			CreatedAt:  parseTime(row.CreatedAt),
		}
	}
	return expenses, nil
}
