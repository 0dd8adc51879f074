package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"casa/internal/core"
)

// MembershipLister returns the members of a house in creation order.
type MembershipLister interface {
	ListMembers(ctx context.Context, houseID string) ([]core.Member, error)
}

// ChoreLister returns the active chores of a house with their current
// assignment.
type ChoreLister interface {
	ListRotationCandidates(ctx context.Context, houseID string) ([]core.ChoreState, error)
}

// AssignmentWriter appends one assignment to a chore's history. The write
// succeeds only while the chore's current assignment is still previousID
// ("" for a chore never assigned); otherwise it returns an error wrapping
// core.ErrAssignmentConflict. notice, when set, is delivered to the new
// assignee in the same transaction.
type AssignmentWriter interface {
	AppendAssignment(ctx context.Context, a core.ChoreAssignment, previousID string, notice string) (core.ChoreAssignment, error)
}

// HouseLister returns the IDs of every house.
type HouseLister interface {
	ListHouseIDs(ctx context.Context) ([]string, error)
}

// RotationStore is everything the rotation processor reads and writes.
type RotationStore interface {
	MembershipLister
	ChoreLister
	AssignmentWriter
	HouseLister
}

// RotationReport summarises one rotation batch.
type RotationReport struct {
	Houses   int
	Rotated  []core.ChoreAssignment
	Failures []*core.RotationError
}

// Err joins the failures of the batch, nil when every chore rotated.
func (r RotationReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func (r *RotationReport) merge(o RotationReport) {
	r.Houses += o.Houses
	r.Rotated = append(r.Rotated, o.Rotated...)
	r.Failures = append(r.Failures, o.Failures...)
}

// RotationProcessor advances the rotation of every active chore.
type RotationProcessor struct {
	store       RotationStore
	concurrency int
}

// NewRotationProcessor creates a processor rotating at most concurrency
// houses at a time.
func NewRotationProcessor(store RotationStore, concurrency int) *RotationProcessor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RotationProcessor{
		store:       store,
		concurrency: concurrency,
	}
}

// RotateAll rotates the chores of every house. Houses are processed
// concurrently; a failing house or chore never stops the others.
func (p *RotationProcessor) RotateAll(ctx context.Context, now time.Time) (RotationReport, error) {
	if p.store == nil {
		return RotationReport{}, fmt.Errorf("processor not properly initialized")
	}

	houseIDs, err := p.store.ListHouseIDs(ctx)
	if err != nil {
		return RotationReport{}, fmt.Errorf("list houses: %w", err)
	}

	var (
		mu     sync.Mutex
		report RotationReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, houseID := range houseIDs {
		g.Go(func() error {
			r, err := p.RotateHouse(gctx, houseID, now)
			if err != nil {
				r.Failures = append(r.Failures, &core.RotationError{
					HouseID: houseID,
					Kind:    core.KindPersistence,
					Err:     err,
				})
			}
			mu.Lock()
			report.merge(r)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "Chore rotation complete",
		"houses", report.Houses,
		"rotated", len(report.Rotated),
		"failed", len(report.Failures))

	return report, ctx.Err()
}

// RotateHouse advances every active chore of one house. Chores are
// handled one by one; per-chore failures are collected in the report. The
// error is non-nil only when the house could not be loaded.
func (p *RotationProcessor) RotateHouse(ctx context.Context, houseID string, now time.Time) (RotationReport, error) {
	report := RotationReport{Houses: 1}
	if p.store == nil {
		return report, fmt.Errorf("processor not properly initialized")
	}

	members, err := p.store.ListMembers(ctx, houseID)
	if err != nil {
		return report, fmt.Errorf("list members of house %s: %w", houseID, err)
	}
	chores, err := p.store.ListRotationCandidates(ctx, houseID)
	if err != nil {
		return report, fmt.Errorf("list chores of house %s: %w", houseID, err)
	}

	slog.DebugContext(ctx, "Rotating house chores",
		"house_id", houseID,
		"chores", len(chores),
		"members", len(members))

	for _, state := range chores {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		a, rerr := p.rotateChore(ctx, houseID, state, members, now)
		if rerr != nil {
			slog.ErrorContext(ctx, "Failed to rotate chore",
				"house_id", houseID,
				"chore_id", state.Chore.ID,
				"kind", rerr.Kind,
				"error", rerr.Err)
			report.Failures = append(report.Failures, rerr)
			continue
		}
		report.Rotated = append(report.Rotated, a)
		slog.InfoContext(ctx, "Chore rotated",
			"house_id", houseID,
			"chore_id", state.Chore.ID,
			"user_id", a.UserID,
			"due_date", a.DueDate.Format(time.RFC3339))
	}

	return report, nil
}

func (p *RotationProcessor) rotateChore(ctx context.Context, houseID string, state core.ChoreState, members []core.Member, now time.Time) (core.ChoreAssignment, *core.RotationError) {
	fail := func(kind core.ErrorKind, err error) *core.RotationError {
		return &core.RotationError{HouseID: houseID, ChoreID: state.Chore.ID, Kind: kind, Err: err}
	}

	next, err := AdvanceRotation(state.Chore, members, state.Last, now)
	if err != nil {
		return core.ChoreAssignment{}, fail(core.KindConfiguration, err)
	}

	previousID := ""
	if state.Last != nil {
		previousID = state.Last.ID
	}
	notice := fmt.Sprintf("You have been assigned %q, due %s", state.Chore.Title, next.DueDate.Format("2006-01-02"))

	a, err := p.store.AppendAssignment(ctx, core.ChoreAssignment{
		ChoreID: state.Chore.ID,
		UserID:  next.UserID,
		DueDate: next.DueDate,
	}, previousID, notice)
	if err != nil {
		if errors.Is(err, core.ErrAssignmentConflict) {
			return core.ChoreAssignment{}, fail(core.KindConflict, err)
		}
		return core.ChoreAssignment{}, fail(core.KindPersistence, err)
	}
	return a, nil
}
