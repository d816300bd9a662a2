package interceptors

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	rpcCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gym",
		Subsystem: "grpc",
		Name:      "requests_total",
		Help:      "gRPC requests by method and status code.",
	}, []string{"method", "code"})

	rpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gym",
		Subsystem: "grpc",
		Name:      "request_duration_seconds",
		Help:      "gRPC request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

// TelemetryUnary returns a unary server interceptor that counts and times each RPC and logs failures.
// skipMethods is the set of full method names to not record (e.g. health checks).
func TelemetryUnary(log *zap.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		code := status.Code(err)
		elapsed := time.Since(start)
		rpcCounter.WithLabelValues(info.FullMethod, code.String()).Inc()
		rpcDuration.WithLabelValues(info.FullMethod).Observe(elapsed.Seconds())
		if err != nil {
			userID, _ := GetUserID(ctx)
			log.Debug("grpc request failed",
				zap.String("method", info.FullMethod),
				zap.String("code", code.String()),
				zap.String("user_id", userID),
				zap.String("client_ip", ClientIP(ctx)),
				zap.Duration("duration", elapsed))
		}
		return resp, err
	}
}
