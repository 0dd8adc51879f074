package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"casa/internal/amqp"
	"casa/internal/core"
	"casa/internal/services"
)

var errBoom = errors.New("boom")

type fakeRotator struct {
	all      int
	houses   []string
	report   services.RotationReport
	err      error
	lastTime time.Time
}

func (f *fakeRotator) RotateAll(_ context.Context, now time.Time) (services.RotationReport, error) {
	f.all++
	f.lastTime = now
	return f.report, f.err
}

func (f *fakeRotator) RotateHouse(_ context.Context, houseID string, now time.Time) (services.RotationReport, error) {
	f.houses = append(f.houses, houseID)
	f.lastTime = now
	return f.report, f.err
}

type fakeNotifier struct {
	calls [][2]string
	err   error
}

func (f *fakeNotifier) NotifyExpenseCreated(_ context.Context, houseID, expenseID string) (int, error) {
	f.calls = append(f.calls, [2]string{houseID, expenseID})
	return 2, f.err
}

func newTestWorker(r *fakeRotator, n *fakeNotifier) *JobWorker {
	w := NewJobWorker(r, n)
	w.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }
	return w
}

func TestJobWorker_Dispatch(t *testing.T) {
	r := &fakeRotator{}
	n := &fakeNotifier{}
	w := newTestWorker(r, n)
	ctx := context.Background()

	if err := w.Handle(ctx, amqp.NewRotateMessage("")); err != nil {
		t.Fatalf("rotate all: %v", err)
	}
	if err := w.Handle(ctx, amqp.NewRotateMessage("h1")); err != nil {
		t.Fatalf("rotate house: %v", err)
	}
	if err := w.Handle(ctx, amqp.NewExpenseCreatedMessage("h1", "e1")); err != nil {
		t.Fatalf("expense created: %v", err)
	}

	if r.all != 1 || len(r.houses) != 1 || r.houses[0] != "h1" {
		t.Errorf("rotator calls: all=%d houses=%v", r.all, r.houses)
	}
	if !r.lastTime.Equal(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("rotation clock = %v", r.lastTime)
	}
	if len(n.calls) != 1 || n.calls[0] != [2]string{"h1", "e1"} {
		t.Errorf("notifier calls = %v", n.calls)
	}

	err := w.Handle(ctx, &amqp.JobMessage{Type: "sync"})
	if !errors.Is(err, amqp.ErrInvalidMessage) {
		t.Errorf("unknown type: expected ErrInvalidMessage, got %v", err)
	}
}

func TestJobWorker_RotationErrors(t *testing.T) {
	tests := []struct {
		name    string
		report  services.RotationReport
		err     error
		wantErr bool
	}{
		{
			name: "chore failures are not retried",
			report: services.RotationReport{
				Houses:   1,
				Failures: []*core.RotationError{{HouseID: "h1", ChoreID: "c1", Kind: core.KindConfiguration, Err: core.ErrNoMembers}},
			},
		},
		{
			name:    "nothing loaded is retried",
			err:     errBoom,
			wantErr: true,
		},
		{
			name:   "partial batch is not retried",
			report: services.RotationReport{Houses: 2, Rotated: []core.ChoreAssignment{{ID: "a1"}}},
			err:    errBoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorker(&fakeRotator{report: tt.report, err: tt.err}, &fakeNotifier{})
			err := w.Handle(context.Background(), amqp.NewRotateMessage("h1"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Handle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errBoom) {
				t.Errorf("expected wrapped errBoom, got %v", err)
			}
		})
	}
}

func TestJobWorker_NotifyFailure(t *testing.T) {
	w := newTestWorker(&fakeRotator{}, &fakeNotifier{err: core.ErrNotFound})
	err := w.Handle(context.Background(), amqp.NewExpenseCreatedMessage("h1", "gone"))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type fakePublisher struct {
	houses []string
	err    error
}

func (f *fakePublisher) PublishRotate(_ context.Context, houseID string) error {
	f.houses = append(f.houses, houseID)
	return f.err
}

func TestScheduler(t *testing.T) {
	t.Run("invalid schedule", func(t *testing.T) {
		if _, err := NewScheduler("every tuesday", nil, nil); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("publishes when queue available", func(t *testing.T) {
		pub := &fakePublisher{}
		r := &fakeRotator{}
		s, err := NewScheduler("@weekly", pub, newTestWorker(r, &fakeNotifier{}))
		if err != nil {
			t.Fatalf("NewScheduler() error = %v", err)
		}
		if err := s.Trigger(context.Background()); err != nil {
			t.Fatalf("Trigger() error = %v", err)
		}
		if len(pub.houses) != 1 || pub.houses[0] != "" || r.all != 0 {
			t.Errorf("published=%v direct=%d", pub.houses, r.all)
		}
	})

	t.Run("runs in process without queue", func(t *testing.T) {
		r := &fakeRotator{}
		s, err := NewScheduler("0 6 * * 1", nil, newTestWorker(r, &fakeNotifier{}))
		if err != nil {
			t.Fatalf("NewScheduler() error = %v", err)
		}
		if err := s.Trigger(context.Background()); err != nil {
			t.Fatalf("Trigger() error = %v", err)
		}
		if r.all != 1 {
			t.Errorf("RotateAll calls = %d, want 1", r.all)
		}
	})

	t.Run("start and stop", func(t *testing.T) {
		s, err := NewScheduler("@daily", &fakePublisher{}, nil)
		if err != nil {
			t.Fatalf("NewScheduler() error = %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		s.Start(ctx)
		cancel()
		s.Stop()
	})
}
