package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"casa/internal/core"
)

type houseRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	CreatedAt string `db:"created_at"`
}

func (h houseRow) toCore() core.House {
	return core.House{ID: h.ID, Name: h.Name, CreatedAt: parseTime(h.CreatedAt)}
}

type memberRow struct {
	ID          string `db:"id"`
	HouseID     string `db:"house_id"`
	UserID      string `db:"user_id"`
	Role        string `db:"role"`
	DisplayName string `db:"display_name"`
	Email       string `db:"email"`
	CreatedAt   string `db:"created_at"`
}

func (m memberRow) toCore() core.Member {
	return core.Member{
		ID:          m.ID,
		HouseID:     m.HouseID,
		UserID:      m.UserID,
		Role:        core.Role(m.Role),
		DisplayName: m.DisplayName,
		Email:       m.Email,
		CreatedAt:   parseTime(m.CreatedAt),
	}
}

// memberColumns is selected from memberships m joined with users u. Rows are
// ordered by (m.created_at, m.rowid), the stable rotation order.
const memberColumns = `m.id, m.house_id, m.user_id, m.role,
	COALESCE(NULLIF(u.name, ''), u.email) AS display_name, u.email, m.created_at`

func (r *SQLiteRepository) CreateHouse(ctx context.Context, name, creatorID string) (core.House, error) {
	now := r.now().UTC()
	h := core.House{ID: newID(), Name: name, CreatedAt: now}
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO houses (id, name, created_at) VALUES (?, ?, ?)`,
			h.ID, h.Name, formatTime(now)); err != nil {
			return fmt.Errorf("insert house: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (id, house_id, user_id, role, created_at) VALUES (?, ?, ?, ?, ?)`,
			newID(), h.ID, creatorID, string(core.RoleAdmin), formatTime(now)); err != nil {
			return fmt.Errorf("insert admin membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.House{}, fmt.Errorf("create house: %w", err)
	}
	return h, nil
}

func (r *SQLiteRepository) GetHouse(ctx context.Context, id string) (core.House, error) {
	var row houseRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, name, created_at FROM houses WHERE id = ?`, id); err != nil {
		return core.House{}, notFound(err, "house "+id)
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) ListHouseIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM houses ORDER BY created_at, rowid`); err != nil {
		return nil, fmt.Errorf("list house ids: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) ListHousesForUser(ctx context.Context, userID string) ([]core.House, error) {
	var rows []houseRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT h.id, h.name, h.created_at
		FROM houses h
		JOIN memberships m ON m.house_id = h.id
		WHERE m.user_id = ?
		ORDER BY h.created_at, h.rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list houses for user: %w", err)
	}
	if len(rows) == 0 {
		return []core.House{}, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	query, args, err := sqlx.In(`
		SELECT `+memberColumns+`
		FROM memberships m JOIN users u ON u.id = m.user_id
		WHERE m.house_id IN (?)
		ORDER BY m.created_at, m.rowid`, ids)
	if err != nil {
		return nil, fmt.Errorf("build members query: %w", err)
	}
	var members []memberRow
	if err := r.db.SelectContext(ctx, &members, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	byHouse := make(map[string][]core.Member, len(rows))
	for _, m := range members {
		byHouse[m.HouseID] = append(byHouse[m.HouseID], m.toCore())
	}

	houses := make([]core.House, len(rows))
	for i, row := range rows {
		houses[i] = row.toCore()
		houses[i].Members = byHouse[row.ID]
	}
	return houses, nil
}

func (r *SQLiteRepository) RenameHouse(ctx context.Context, id, name string) (core.House, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE houses SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return core.House{}, fmt.Errorf("rename house: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.House{}, fmt.Errorf("house %s: %w", id, core.ErrNotFound)
	}
	return r.GetHouse(ctx, id)
}

// ListMembers returns the members of a house in creation order.
func (r *SQLiteRepository) ListMembers(ctx context.Context, houseID string) ([]core.Member, error) {
	var rows []memberRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+memberColumns+`
		FROM memberships m JOIN users u ON u.id = m.user_id
		WHERE m.house_id = ?
		ORDER BY m.created_at, m.rowid`, houseID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	members := make([]core.Member, len(rows))
	for i, row := range rows {
		members[i] = row.toCore()
	}
	return members, nil
}

func (r *SQLiteRepository) AddMember(ctx context.Context, houseID, userID string, role core.Role) (core.Member, error) {
	now := r.now().UTC()
	id := newID()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO memberships (id, house_id, user_id, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, houseID, userID, string(role), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Member{}, core.ErrAlreadyMember
		}
		return core.Member{}, fmt.Errorf("insert membership: %w", err)
	}

	var row memberRow
	err = r.db.GetContext(ctx, &row, `
		SELECT `+memberColumns+`
		FROM memberships m JOIN users u ON u.id = m.user_id
		WHERE m.id = ?`, id)
	if err != nil {
		return core.Member{}, fmt.Errorf("read membership: %w", err)
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) RemoveMember(ctx context.Context, houseID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memberships WHERE house_id = ? AND user_id = ?`, houseID, userID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("member %s: %w", userID, core.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
