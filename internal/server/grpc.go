package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"gym-tenancy/backend/internal/audit"
	"gym-tenancy/backend/internal/authz"
	"gym-tenancy/backend/internal/server/interceptors"
	tenancyhandler "gym-tenancy/backend/internal/tenancy/handler"
)

// ServiceName is the health-checked name of the tenancy API.
const ServiceName = "gym.tenancy"

// publicMethods bypass session authorization, auditing and request metrics.
var publicMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
	healthpb.Health_Watch_FullMethodName: true,
	"/grpc.health.v1.Health/List":        true,
}

// GRPCDeps holds the dependencies of the gRPC server.
type GRPCDeps struct {
	// Gate authorizes every non-public unary RPC.
	Gate interceptors.Authorizer
	// Audit records authorized RPCs bound to an organization. If nil, no RPCs are audited.
	Audit audit.AuditLogger
	// Requirements maps full method names to their organization requirement; unlisted methods need a live session.
	// If nil, tenancyhandler.Requirements is used.
	Requirements map[string]authz.Requirement
	// Tenancy serves TenancyService. If nil, only the health service is registered.
	Tenancy tenancyhandler.TenancyServer
	Log     *zap.Logger
}

// NewGRPCServer builds the gRPC server with the tenancy interceptor chain and registers TenancyService and
// the health service.
// The returned health server starts NOT_SERVING; callers drive it with health.Probe.
//
// Interceptor order: telemetry → auth → audit, so metrics see every outcome and audit sees the authz context.
func NewGRPCServer(d GRPCDeps) (*grpc.Server, *grpchealth.Server) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	requirements := d.Requirements
	if requirements == nil {
		requirements = tenancyhandler.Requirements
	}
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.TelemetryUnary(log, publicMethods),
			interceptors.AuthUnary(d.Gate, publicMethods, requirements),
			interceptors.AuditUnary(d.Audit, publicMethods),
		),
	)
	if d.Tenancy != nil {
		tenancyhandler.Register(s, d.Tenancy)
	}
	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}
