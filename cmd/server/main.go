// server runs the gym tenancy JSON API and the gRPC health endpoint.
// Without DATABASE_URL (outside production) it runs on in-memory stores seeded with the sample gyms.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gym-tenancy/backend/internal/config"
	"gym-tenancy/backend/internal/health"
	"gym-tenancy/backend/internal/platform/logging"
	"gym-tenancy/backend/internal/server"
	telemetryotel "gym-tenancy/backend/internal/telemetry/otel"
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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "gym-tenancy", cfg.OTLPInsecure)
	if err != nil {
		return err
	}
	providers.SetGlobal()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	app, err := build(ctx, cfg, logger, providers.LoggerProvider)
	if err != nil {
		return err
	}
	defer app.Close()

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.http.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcSrv, healthSrv := server.NewGRPCServer(server.GRPCDeps{
		Gate:    app.gate,
		Audit:   app.audit,
		Tenancy: app.rpc,
		Log:     logger,
	})
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	probe := health.NewProbe(app.pinger, healthSrv, logger, server.ServiceName)
	go probe.Run(ctx, 10*time.Second)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("listener failed", zap.Error(err))
	}

	logger.Info("shutting down")
	healthSrv.Shutdown()
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()
	logger.Info("servers stopped")
	return nil
}
