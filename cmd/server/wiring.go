package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"

	"gym-tenancy/backend/internal/audit"
	auditrepo "gym-tenancy/backend/internal/audit/repository"
	"gym-tenancy/backend/internal/authz"
	"gym-tenancy/backend/internal/authz/cache"
	"gym-tenancy/backend/internal/config"
	"gym-tenancy/backend/internal/db"
	"gym-tenancy/backend/internal/health"
	"gym-tenancy/backend/internal/identity/lockout"
	"gym-tenancy/backend/internal/identity/service"
	membershiprepo "gym-tenancy/backend/internal/membership/repository"
	"gym-tenancy/backend/internal/membership/resolver"
	orgrepo "gym-tenancy/backend/internal/organization/repository"
	"gym-tenancy/backend/internal/policy/engine"
	"gym-tenancy/backend/internal/security"
	"gym-tenancy/backend/internal/seed"
	"gym-tenancy/backend/internal/server/httpapi"
	"gym-tenancy/backend/internal/server/interceptors"
	sessionrepo "gym-tenancy/backend/internal/session/repository"
	telemetryotel "gym-tenancy/backend/internal/telemetry/otel"
	"gym-tenancy/backend/internal/tenancy"
	tenancyhandler "gym-tenancy/backend/internal/tenancy/handler"
	userrepo "gym-tenancy/backend/internal/user/repository"
)

type userStore interface {
	authz.UserStore
	service.CredentialStore
	resolver.UserStore
	tenancy.UserStore
}

type orgStore interface {
	resolver.OrgStore
	tenancy.OrgStore
}

type membershipStore interface {
	resolver.MembershipStore
	tenancy.MembershipStore
}

// app is the wired object graph of the server.
type app struct {
	http    *httpapi.Server
	rpc     *tenancyhandler.Server
	gate    *authz.Gate
	audit   audit.AuditLogger
	pinger  health.Pinger
	closers []func() error
}

// Close releases the database pool and redis client.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func build(ctx context.Context, cfg *config.Config, logger *zap.Logger, lp *sdklog.LoggerProvider) (*app, error) {
	a := &app{}
	hasher := security.NewHasher(cfg.BcryptCost)

	tokens, err := tokenProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		users       userStore
		orgs        orgStore
		memberships membershipStore
		auditRepo   auditrepo.Repository
		conn        *sqlx.DB
	)
	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			return nil, errors.New("DATABASE_URL is required in production")
		}
		logger.Warn("DATABASE_URL not set; using in-memory stores with sample data")
		m, err := seed.LoadMemory(ctx, hasher)
		if err != nil {
			return nil, fmt.Errorf("seed memory stores: %w", err)
		}
		users, orgs, memberships = m.Users, m.Orgs, m.Memberships
		auditRepo = auditrepo.NewMemoryRepository()
	} else {
		conn, err = openDB(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		a.pinger = conn
		users = userrepo.NewPostgresRepository(conn)
		orgs = orgrepo.NewPostgresRepository(conn)
		memberships = membershiprepo.NewPostgresRepository(conn)
		auditRepo = auditrepo.NewPostgresRepository(conn)
	}

	var rdb redis.Cmdable
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := pingRedis(ctx, client); err != nil {
			_ = client.Close()
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		rdb = client
	}

	timeout := cfg.StoreCallTimeout()
	res := resolver.New(users, resolver.NewExplicitTable(memberships), resolver.NewDirectAssignment(orgs), timeout)

	var sessions sessionrepo.Repository
	if conn != nil {
		sessions = sessionrepo.NewPostgresRepository(conn)
	} else {
		sessions = sessionrepo.NewMemoryRepository(res.IsMember)
	}

	roleCache, err := cache.New(cfg.AuthzCache, cfg.AuthzCacheSize, cfg.AuthzCacheLifetime(), rdb)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.audit = telemetryotel.MirrorAudit(
		audit.NewLogger(auditRepo, audit.FirstIP(httpapi.ClientIP, interceptors.ClientIP), logger),
		lp,
	)

	evaluator, err := engine.NewOPAEvaluator(ctx, "")
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("policy: %w", err)
	}

	a.gate = authz.NewGate(tokens, sessions, users, res, roleCache, a.audit, logger, authz.Options{StoreTimeout: timeout})
	ctrl := tenancy.NewController(tenancy.Deps{
		Auth:         a.gate,
		Roles:        res,
		Sessions:     sessions,
		Memberships:  memberships,
		Users:        users,
		Orgs:         orgs,
		Cache:        roleCache,
		Audit:        a.audit,
		Log:          logger,
		StoreTimeout: timeout,
	})
	verifier := service.NewVerifier(users, hasher, lockoutPolicy(cfg, rdb), a.audit, logger, timeout)
	authSvc := service.NewAuthService(verifier, sessions, res, tokens, a.gate, a.audit, logger,
		service.Config{SessionTTL: cfg.SessionLifetime(), StoreTimeout: timeout})

	a.rpc = tenancyhandler.NewServer(authSvc, ctrl, ctrl)
	a.http = httpapi.New(httpapi.Deps{
		Auth:      authSvc,
		Tenancy:   ctrl,
		Gate:      a.gate,
		Evaluator: evaluator,
		Pinger:    a.pinger,
		Log:       logger,
	})
	return a, nil
}

func tokenProvider(cfg *config.Config, logger *zap.Logger) (*security.TokenProvider, error) {
	if cfg.JWTPrivateKey != "" || cfg.JWTPublicKey != "" {
		return security.NewKeyPairTokenProvider(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.JWTIssuer, cfg.JWTAudience)
	}
	if cfg.IsProduction() {
		return nil, errors.New("JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required in production")
	}
	logger.Warn("JWT keys not set; signing with an ephemeral key, sessions end on restart")
	return security.NewEphemeralTokenProvider(cfg.JWTIssuer, cfg.JWTAudience)
}

// lockoutPolicy always honors the account status and, when LOCKOUT_MAX_ATTEMPTS > 0, adds a
// failed-attempt counter in redis (shared across replicas) or in process memory.
func lockoutPolicy(cfg *config.Config, rdb redis.Cmdable) lockout.Policy {
	chain := lockout.Chain{lockout.StatusPolicy{}}
	if cfg.LockoutMaxAttempts <= 0 {
		return chain
	}
	if rdb != nil {
		return append(chain, lockout.NewRedisPolicy(rdb, cfg.LockoutMaxAttempts, cfg.LockoutDuration()))
	}
	return append(chain, lockout.NewMemoryPolicy(cfg.LockoutMaxAttempts, cfg.LockoutDuration()))
}

// openDB retries the initial connection so the server survives starting before Postgres.
func openDB(ctx context.Context, dsn string, logger *zap.Logger) (*sqlx.DB, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 5 * time.Second
	return backoff.Retry(ctx, func() (*sqlx.DB, error) {
		conn, err := db.Open(dsn)
		if err != nil {
			logger.Warn("database not ready", zap.Error(err))
			return nil, err
		}
		return conn, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(time.Minute))
}

func pingRedis(ctx context.Context, client *redis.Client) error {
	_, err := backoff.Retry(ctx, func() (string, error) {
		return client.Ping(ctx).Result()
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
	return err
}
