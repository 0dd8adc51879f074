package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"casa/internal/core"
)

type choreRow struct {
	ID          string `db:"id"`
	HouseID     string `db:"house_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Frequency   string `db:"frequency"`
	Active      bool   `db:"active"`
	CreatedAt   string `db:"created_at"`
}

func (c choreRow) toCore() core.Chore {
	return core.Chore{
		ID:          c.ID,
		HouseID:     c.HouseID,
		Title:       c.Title,
		Description: c.Description,
		Frequency:   core.Frequency(c.Frequency),
		Active:      c.Active,
		CreatedAt:   parseTime(c.CreatedAt),
	}
}

type assignmentRow struct {
	ID        string `db:"id"`
	ChoreID   string `db:"chore_id"`
	UserID    string `db:"user_id"`
	DueDate   string `db:"due_date"`
	CreatedAt string `db:"created_at"`
}

func (a assignmentRow) toCore() core.ChoreAssignment {
	return core.ChoreAssignment{
		ID:        a.ID,
		ChoreID:   a.ChoreID,
		UserID:    a.UserID,
		DueDate:   parseTime(a.DueDate),
		CreatedAt: parseTime(a.CreatedAt),
	}
}

// currentOrder ranks a chore's assignments, the current one first.
const currentOrder = `ORDER BY due_date DESC, created_at DESC, rowid DESC`

func (r *SQLiteRepository) CreateChore(ctx context.Context, c core.Chore) (core.Chore, error) {
	c.ID = newID()
	c.CreatedAt = r.now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chores (id, house_id, title, description, frequency, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.HouseID, c.Title, c.Description, string(c.Frequency), c.Active, formatTime(c.CreatedAt))
	if err != nil {
		return core.Chore{}, fmt.Errorf("create chore: %w", err)
	}
	return c, nil
}

// ListChores returns every chore of a house with its assignment history,
// latest due date first.
func (r *SQLiteRepository) ListChores(ctx context.Context, houseID string) ([]core.Chore, error) {
	chores, err := r.selectChores(ctx, houseID, false)
	if err != nil {
		return nil, err
	}

	var rows []assignmentRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT a.id, a.chore_id, a.user_id, a.due_date, a.created_at
		FROM chore_assignments a JOIN chores c ON c.id = a.chore_id
		WHERE c.house_id = ?
		ORDER BY a.due_date DESC, a.created_at DESC, a.rowid DESC`, houseID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	byChore := make(map[string][]core.ChoreAssignment, len(chores))
	for _, a := range rows {
		byChore[a.ChoreID] = append(byChore[a.ChoreID], a.toCore())
	}
	for i := range chores {
		chores[i].Assignments = byChore[chores[i].ID]
	}
	return chores, nil
}

// ListRotationCandidates returns the active chores of a house with their
// current assignment.
func (r *SQLiteRepository) ListRotationCandidates(ctx context.Context, houseID string) ([]core.ChoreState, error) {
	chores, err := r.selectChores(ctx, houseID, true)
	if err != nil {
		return nil, err
	}
	states := make([]core.ChoreState, len(chores))
	for i, c := range chores {
		last, err := latestAssignment(ctx, r.db, c.ID)
		if err != nil {
			return nil, err
		}
		states[i] = core.ChoreState{Chore: c, Last: last}
	}
	return states, nil
}

func (r *SQLiteRepository) selectChores(ctx context.Context, houseID string, activeOnly bool) ([]core.Chore, error) {
	query := `SELECT id, house_id, title, description, frequency, active, created_at
		FROM chores WHERE house_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at, rowid`

	var rows []choreRow
	if err := r.db.SelectContext(ctx, &rows, query, houseID); err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	chores := make([]core.Chore, len(rows))
	for i, row := range rows {
		chores[i] = row.toCore()
	}
	return chores, nil
}

func latestAssignment(ctx context.Context, q sqlx.QueryerContext, choreID string) (*core.ChoreAssignment, error) {
	var row assignmentRow
	err := sqlx.GetContext(ctx, q, &row, `
		SELECT id, chore_id, user_id, due_date, created_at
		FROM chore_assignments
		WHERE chore_id = ? `+currentOrder+` LIMIT 1`, choreID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest assignment of chore %s: %w", choreID, err)
	}
	a := row.toCore()
	return &a, nil
}

// AppendAssignment adds a new current assignment to a chore, provided the
// chore's current assignment is still previousID ("" when it had none).
// The check, the insert and the assignee's notice share one transaction.
func (r *SQLiteRepository) AppendAssignment(ctx context.Context, a core.ChoreAssignment, previousID, notice string) (core.ChoreAssignment, error) {
	a.ID = newID()
	a.CreatedAt = r.now().UTC()
	a.DueDate = a.DueDate.UTC()

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := latestAssignment(ctx, tx, a.ChoreID)
		if err != nil {
			return err
		}
		currentID := ""
		if current != nil {
			currentID = current.ID
		}
		if currentID != previousID {
			return fmt.Errorf("chore %s now at %q, expected %q: %w", a.ChoreID, currentID, previousID, core.ErrAssignmentConflict)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chore_assignments (id, chore_id, user_id, due_date, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			a.ID, a.ChoreID, a.UserID, formatTime(a.DueDate), formatTime(a.CreatedAt)); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
		if notice != "" {
			if err := insertNotifications(ctx, tx, []core.Notification{{UserID: a.UserID, Message: notice, CreatedAt: a.CreatedAt}}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.ChoreAssignment{}, fmt.Errorf("append assignment: %w", err)
	}
	return a, nil
}
