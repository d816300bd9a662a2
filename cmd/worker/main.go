// Worker purges expired and revoked sessions on SESSION_PURGE_SCHEDULE (cron spec, default "@every 10m").
// Requires DATABASE_URL; the in-memory stores of the server are process-local and purge themselves on restart.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"gym-tenancy/backend/internal/config"
	"gym-tenancy/backend/internal/db"
	"gym-tenancy/backend/internal/platform/logging"
	"gym-tenancy/backend/internal/session/purge"
	sessionrepo "gym-tenancy/backend/internal/session/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DatabaseURL == "" {
		logger.Fatal("worker: DATABASE_URL is required")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("worker: open database", zap.Error(err))
	}
	defer conn.Close()

	job := purge.NewJob(sessionrepo.NewPostgresRepository(conn), purge.DefaultRetention, logger)
	c, err := purge.Schedule(cfg.SessionPurgeSchedule, job, logger)
	if err != nil {
		logger.Fatal("worker: invalid SESSION_PURGE_SCHEDULE", zap.String("schedule", cfg.SessionPurgeSchedule), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Purge once at startup so a long schedule does not leave a backlog.
	job.Run()
	c.Start()
	logger.Info("worker: session purge scheduled", zap.String("schedule", cfg.SessionPurgeSchedule))

	<-ctx.Done()
	logger.Info("worker: shutting down...")
	<-c.Stop().Done()
	logger.Info("worker: stopped")
}
