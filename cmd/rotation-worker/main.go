package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"casa/internal/cli"
	"casa/internal/log"
	"casa/internal/services"
	"casa/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "rotate every house once and exit")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting rotation-worker",
		"schedule", cfg.RotationSchedule,
		"concurrency", cfg.RotationConcurrency)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	processor := services.NewRotationProcessor(repo, cfg.RotationConcurrency)
	notifier := services.NewNotificationService(repo, repo, repo, repo)
	jobs := worker.NewJobWorker(processor, notifier)

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		sched, err := worker.NewScheduler(cfg.RotationSchedule, nil, jobs)
		if err != nil {
			logger.Error("Invalid rotation schedule", "error", err)
			os.Exit(1)
		}
		if err := sched.Trigger(ctx); err != nil {
			logger.Error("Rotation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	_, amqpClient := cli.InitPublisher(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	// Without a broker the schedule runs rotations in process
	var publisher worker.RotatePublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	sched, err := worker.NewScheduler(cfg.RotationSchedule, publisher, jobs)
	if err != nil {
		logger.Error("Invalid rotation schedule", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		sched.Stop()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Start(gctx)
		<-gctx.Done()
		return nil
	})
	if amqpClient != nil {
		g.Go(func() error {
			logger.Info("Consuming jobs", "queue", cfg.AMQPQueue)
			return amqpClient.Consume(gctx, jobs.Handle)
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no broker configured")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Rotation worker stopped")
}
