// Package health drives the gRPC health service from database readiness.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger checks database connectivity (e.g. *sqlx.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StatusSetter is the write side of the gRPC health server.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// Probe pings the database and publishes the result for the overall server ("") and each named service.
type Probe struct {
	pinger   Pinger
	status   StatusSetter
	services []string
	timeout  time.Duration
	log      *zap.Logger
	last     healthpb.HealthCheckResponse_ServingStatus
}

// NewProbe returns a Probe. A nil pinger means there is no database and the server is always serving.
func NewProbe(pinger Pinger, status StatusSetter, log *zap.Logger, services ...string) *Probe {
	if log == nil {
		log = zap.NewNop()
	}
	return &Probe{
		pinger:   pinger,
		status:   status,
		services: append([]string{""}, services...),
		timeout:  2 * time.Second,
		log:      log,
	}
}

// Check pings once and publishes the resulting status.
func (p *Probe) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if p.pinger != nil {
		pctx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.pinger.PingContext(pctx)
		cancel()
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			if p.last != st {
				p.log.Warn("health: database ping failed", zap.Error(err))
			}
		}
	}
	if st != p.last {
		for _, svc := range p.services {
			p.status.SetServingStatus(svc, st)
		}
		p.last = st
	}
	return st
}

// Run checks immediately and then every interval until ctx is done.
func (p *Probe) Run(ctx context.Context, interval time.Duration) {
	p.Check(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Check(ctx)
		}
	}
}
