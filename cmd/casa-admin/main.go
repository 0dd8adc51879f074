package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"casa/internal/auth"
	"casa/internal/cli"
	"casa/internal/config"
	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentAdmin)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "migrate":
		runMigrate(logger)
	case "user":
		if len(os.Args) < 3 || os.Args[2] != "add" {
			fmt.Fprintln(os.Stderr, "Usage: casa-admin user add -email EMAIL [-name NAME]")
			os.Exit(1)
		}
		runUserAdd(logger, os.Args[3:])
	case "token":
		runToken(logger)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("casa operator CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  casa-admin <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  migrate    Apply pending database migrations")
	fmt.Println("  user add   Create a user")
	fmt.Println("  token      Issue a bearer token for a user")
	fmt.Println("  help       Show this help message")
}

func runMigrate(logger *log.Logger) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", config.Load().SQLiteDBPath, "SQLite database path")
	fs.Parse(os.Args[2:])

	if err := storage.RunMigrations(*dbPath); err != nil {
		logger.Error("Migration failed", "error", err, log.FieldPath, *dbPath)
		os.Exit(1)
	}
	version, dirty, err := storage.MigrationVersion(*dbPath)
	if err != nil {
		logger.Error("Failed to read migration version", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Database %s at version %d (dirty=%v)\n", *dbPath, version, dirty)
}

func runUserAdd(logger *log.Logger, args []string) {
	fs := flag.NewFlagSet("user add", flag.ExitOnError)
	dbPath := fs.String("db", config.Load().SQLiteDBPath, "SQLite database path")
	email := fs.String("email", "", "user email")
	name := fs.String("name", "", "display name")
	fs.Parse(args)

	if *email == "" {
		logger.Error("Error: -email is required")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, *dbPath)
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	u, err := repo.CreateUser(ctx, *email, *name)
	if err != nil {
		logger.Error("Failed to create user", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Created user %s (%s)\n", u.ID, u.Email)
}

func runToken(logger *log.Logger) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.String("user", "", "user ID")
	email := fs.String("email", "", "user email, used when -user is empty")
	ttl := fs.Duration("ttl", 0, "token lifetime (default JWT_TTL)")
	fs.Parse(os.Args[2:])

	cfg := cli.LoadAndValidateConfig(logger)
	if *ttl > 0 {
		cfg.JWTTTL = *ttl
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		u   core.User
		err error
	)
	switch {
	case *userID != "":
		u, err = repo.GetUser(ctx, *userID)
	case *email != "":
		u, err = repo.GetUserByEmail(ctx, *email)
	default:
		err = errors.New("-user or -email is required")
	}
	if err != nil {
		logger.Error("Failed to resolve user", "error", err)
		os.Exit(1)
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL).Generate(u.ID, u.Email)
	if err != nil {
		logger.Error("Failed to issue token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
