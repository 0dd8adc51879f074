package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// RotatePublisher queues rotation jobs.
type RotatePublisher interface {
	PublishRotate(ctx context.Context, houseID string) error
}

// Scheduler triggers a rotation of every house on a cron schedule. With a
// publisher it queues a rotate job; without one it runs the job in process.
type Scheduler struct {
	cron      *cron.Cron
	publisher RotatePublisher
	worker    *JobWorker
	timeout   time.Duration
}

// NewScheduler parses spec, a standard five-field expression or a
// descriptor such as "@weekly", evaluated in UTC.
func NewScheduler(spec string, publisher RotatePublisher, worker *JobWorker) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		publisher: publisher,
		worker:    worker,
		timeout:   5 * time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("parse rotation schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.Trigger(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled rotation failed", "error", err)
	}
}

// Trigger requests a rotation of every house now.
func (s *Scheduler) Trigger(ctx context.Context) error {
	if s.publisher != nil {
		return s.publisher.PublishRotate(ctx, "")
	}
	if s.worker == nil {
		return fmt.Errorf("scheduler has neither publisher nor worker")
	}
	return s.worker.handleRotate(ctx, "")
}

// Start runs the schedule until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		slog.InfoContext(ctx, "Rotation schedule active", "next", e.Next.Format(time.RFC3339))
	}
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop halts the schedule and waits for a running trigger to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
