// seed inserts the sample gyms and accounts into Postgres for local testing.
// Idempotent: skips inserts if admin@x.com already exists. All accounts use the password "password123".
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"gym-tenancy/backend/internal/config"
	"gym-tenancy/backend/internal/db"
	membershiprepo "gym-tenancy/backend/internal/membership/repository"
	orgrepo "gym-tenancy/backend/internal/organization/repository"
	"gym-tenancy/backend/internal/platform/logging"
	"gym-tenancy/backend/internal/security"
	"gym-tenancy/backend/internal/seed"
	userrepo "gym-tenancy/backend/internal/user/repository"
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
		logger.Fatal("DATABASE_URL is not set")
	}
	if cfg.IsProduction() {
		logger.Fatal("refusing to seed sample accounts in production")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	stores := seed.Stores{
		Users:       userrepo.NewPostgresRepository(conn),
		Orgs:        orgrepo.NewPostgresRepository(conn),
		Memberships: membershiprepo.NewPostgresRepository(conn),
	}
	applied, err := seed.Load(ctx, stores, security.NewHasher(cfg.BcryptCost), time.Now().UTC())
	if err != nil {
		logger.Fatal("seed", zap.Error(err))
	}
	if !applied {
		logger.Info("sample data already present; nothing to do")
		return
	}
	logger.Info("seeded sample gyms and accounts",
		zap.Strings("gyms", []string{seed.GymAID, seed.GymBID, seed.GymCID}),
		zap.Strings("accounts", []string{seed.AdminEmail, seed.DirectEmail, seed.TrainerEmail, seed.SuperAdminEmail, seed.NoGymEmail}))
}
