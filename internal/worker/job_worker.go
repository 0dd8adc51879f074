package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"casa/internal/amqp"
	"casa/internal/metrics"
	"casa/internal/services"
)

// Rotator advances chore rotations.
type Rotator interface {
	RotateAll(ctx context.Context, now time.Time) (services.RotationReport, error)
	RotateHouse(ctx context.Context, houseID string, now time.Time) (services.RotationReport, error)
}

// ExpenseNotifier fans out notifications for a new expense.
type ExpenseNotifier interface {
	NotifyExpenseCreated(ctx context.Context, houseID, expenseID string) (int, error)
}

// JobWorker handles the jobs consumed from the queue.
type JobWorker struct {
	rotator  Rotator
	notifier ExpenseNotifier
	now      func() time.Time
}

func NewJobWorker(rotator Rotator, notifier ExpenseNotifier) *JobWorker {
	return &JobWorker{
		rotator:  rotator,
		notifier: notifier,
		now:      time.Now,
	}
}

// Handle dispatches msg by type. It satisfies amqp.Handler.
func (w *JobWorker) Handle(ctx context.Context, msg *amqp.JobMessage) error {
	var err error
	switch msg.Type {
	case amqp.JobRotate:
		err = w.handleRotate(ctx, msg.HouseID)
	case amqp.JobExpenseCreated:
		err = w.handleExpenseCreated(ctx, msg.HouseID, msg.ExpenseID)
	default:
		err = fmt.Errorf("%w: unknown type %q", amqp.ErrInvalidMessage, msg.Type)
	}
	metrics.RecordJob(string(msg.Type), err == nil)
	return err
}

// handleRotate runs a rotation batch. Per-chore failures are logged and
// counted but never returned: a retried batch would advance the chores that
// did rotate a second time. Only a batch that rotated nothing can fail.
func (w *JobWorker) handleRotate(ctx context.Context, houseID string) error {
	start := time.Now()
	now := w.now().UTC()

	var (
		report services.RotationReport
		err    error
	)
	if houseID == "" {
		report, err = w.rotator.RotateAll(ctx, now)
	} else {
		report, err = w.rotator.RotateHouse(ctx, houseID, now)
	}

	byKind := make(map[string]int)
	for _, f := range report.Failures {
		byKind[string(f.Kind)]++
		slog.WarnContext(ctx, "Chore rotation failed",
			"house_id", f.HouseID,
			"chore_id", f.ChoreID,
			"kind", f.Kind,
			"error", f.Err)
	}
	metrics.RecordRotation(time.Since(start), len(report.Rotated), byKind)

	if err != nil && len(report.Rotated) == 0 && ctx.Err() == nil {
		return fmt.Errorf("rotate chores: %w", err)
	}
	if err != nil {
		slog.WarnContext(ctx, "Chore rotation interrupted", "house_id", houseID, "rotated", len(report.Rotated), "error", err)
	}
	return nil
}

func (w *JobWorker) handleExpenseCreated(ctx context.Context, houseID, expenseID string) error {
	n, err := w.notifier.NotifyExpenseCreated(ctx, houseID, expenseID)
	if err != nil {
		return fmt.Errorf("notify expense %s: %w", expenseID, err)
	}
	slog.InfoContext(ctx, "Expense notifications delivered", "expense_id", expenseID, "recipients", n)
	return nil
}
