package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"casa/internal/core"
)

type notificationRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Message   string `db:"message"`
	Read      bool   `db:"read"`
	CreatedAt string `db:"created_at"`
}

func (n notificationRow) toCore() core.Notification {
	return core.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: parseTime(n.CreatedAt),
	}
}

func insertNotifications(ctx context.Context, tx *sqlx.Tx, ns []core.Notification) error {
	for _, n := range ns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO notifications (id, user_id, message, read, created_at) VALUES (?, ?, ?, 0, ?)`,
			newID(), n.UserID, n.Message, formatTime(n.CreatedAt)); err != nil {
			return fmt.Errorf("insert notification for %s: %w", n.UserID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) CreateNotifications(ctx context.Context, ns []core.Notification) error {
	now := r.now().UTC()
	for i := range ns {
		if ns[i].CreatedAt.IsZero() {
			ns[i].CreatedAt = now
		}
	}
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		return insertNotifications(ctx, tx, ns)
	})
}

// ListNotifications returns the notifications of a user, newest first.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, userID string) ([]core.Notification, error) {
	var rows []notificationRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, message, read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	ns := make([]core.Notification, len(rows))
	for i, row := range rows {
		ns[i] = row.toCore()
	}
	return ns, nil
}

func (r *SQLiteRepository) GetNotification(ctx context.Context, id string) (core.Notification, error) {
	var row notificationRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, user_id, message, read, created_at FROM notifications WHERE id = ?`, id)
	if err != nil {
		return core.Notification{}, notFound(err, "notification "+id)
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, id string) (core.Notification, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return core.Notification{}, fmt.Errorf("mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Notification{}, fmt.Errorf("notification %s: %w", id, core.ErrNotFound)
	}
	return r.GetNotification(ctx, id)
}
