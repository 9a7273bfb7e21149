package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/database"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/mailer"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/tasks"
	"github.com/James-Kabz/CLIENT-PORTAL/pkg/config"
	"github.com/James-Kabz/CLIENT-PORTAL/pkg/queue"
	"github.com/James-Kabz/CLIENT-PORTAL/pkg/util"
)

// tokenSweepInterval is how often expired verification tokens are purged.
const tokenSweepInterval = time.Hour

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting client-portal worker")

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Create task handler
	mailService := mailer.NewSMTPMailer(cfg.SMTP, cfg.App.BaseURL)
	handler := tasks.NewHandler(db, logger, mailService)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodically enqueue the expired-token sweep.
	client := queue.NewClient(&cfg.Redis)
	defer client.Close()

	go func() {
		ticker := time.NewTicker(tokenSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := client.EnqueueContext(ctx, tasks.NewTokenSweepTask()); err != nil {
					logger.Error("enqueueing token sweep failed", "error", err)
				}
			}
		}
	}()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
