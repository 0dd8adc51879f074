package storage

import (
	"context"
	"fmt"
	"strings"

	"casa/internal/core"
)

type userRow struct {
	ID        string `db:"id"`
	Email     string `db:"email"`
	Name      string `db:"name"`
	CreatedAt string `db:"created_at"`
}

func (u userRow) toCore() core.User {
	return core.User{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: parseTime(u.CreatedAt)}
}

// CreateUser stores a new user. Emails are unique, compared case-insensitively.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, name string) (core.User, error) {
	u := core.User{
		ID:        newID(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Name:      strings.TrimSpace(name),
		CreatedAt: r.now().UTC(),
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, formatTime(u.CreatedAt))
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT id, email, name, created_at FROM users WHERE id = ?`, id)
	if err != nil {
		return core.User{}, notFound(err, "user "+id)
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, email, name, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return core.User{}, notFound(err, "user "+email)
	}
	return row.toCore(), nil
}
