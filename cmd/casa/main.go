package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"casa/internal/auth"
	"casa/internal/cache"
	"casa/internal/cli"
	apphttp "casa/internal/http"
	"casa/internal/log"
	"casa/internal/middleware/ratelimit"
	"casa/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	publisher, amqpClient := cli.InitPublisher(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	// Balance views are cached per house and swept in the background
	cacheManager := cache.NewManager()
	balanceLRU := cache.NewLRUCache[services.BalanceReport](cfg.BalanceCacheSize, cfg.BalanceCacheTTL)
	cacheManager.Register(balanceLRU)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()
	balances := services.NewBalanceCache(balanceLRU)

	svc := apphttp.Services{
		Houses:        services.NewHouseService(repo, balances),
		Expenses:      services.NewExpenseService(repo, balances, publisher),
		Chores:        services.NewChoreService(repo, publisher),
		Notifications: services.NewNotificationService(repo, repo, repo, repo),
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Tokens: auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		Logger: logger.WithComponent(log.ComponentHTTP),
		Ready:  repo.Ping,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting casa server",
		"port", cfg.Port,
		"amqp", cfg.AMQPEnabled(),
		"db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
