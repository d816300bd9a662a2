package interceptors

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"gym-tenancy/backend/internal/authz"
	"gym-tenancy/backend/internal/platform/autherr"
)

const bearerPrefix = "bearer "

// Authorizer checks a session token against an organization requirement.
type Authorizer interface {
	Authorize(ctx context.Context, token string, req authz.Requirement) (*authz.Context, error)
}

// AuthUnary returns a unary server interceptor that authorizes the Bearer session token from gRPC
// metadata and stores the resulting authz.Context for the handler.
// publicMethods skip authorization entirely (e.g. the health service).
// requirements maps full method names to their organization requirement; methods not listed only need a live session.
func AuthUnary(gate Authorizer, publicMethods map[string]bool, requirements map[string]authz.Requirement) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		token := BearerToken(ctx)
		if token == "" {
			return nil, StatusError(autherr.ErrUnauthenticated)
		}
		r, ok := requirements[info.FullMethod]
		if !ok {
			r = authz.AnyContext()
		}
		ac, err := gate.Authorize(ctx, token, r)
		if err != nil {
			return nil, StatusError(err)
		}
		return handler(authz.WithContext(ctx, ac), req)
	}
}

// StatusError converts err into a gRPC status carrying the client-safe message of an auth error.
// Errors outside the auth taxonomy become codes.Internal without detail.
func StatusError(err error) error {
	var e *autherr.Error
	if errors.As(err, &e) {
		return status.Error(autherr.GRPCCode(err), e.Message)
	}
	return status.Error(codes.Internal, "internal error")
}

// BearerToken returns the Bearer token from incoming gRPC metadata, or "" if missing or malformed.
func BearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
