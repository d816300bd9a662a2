// Package handler exposes session context and organization switching over gRPC.
//
// There is no .proto for this service; requests and responses use the protobuf well-known types
// (Empty, StringValue, Struct) so any gRPC client can call it with the standard codec.
package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"gym-tenancy/backend/internal/authz"
	"gym-tenancy/backend/internal/identity/service"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
	"gym-tenancy/backend/internal/platform/rbac"
	"gym-tenancy/backend/internal/server/interceptors"
	sessiondomain "gym-tenancy/backend/internal/session/domain"
	"gym-tenancy/backend/internal/tenancy"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "gym.tenancy.v1.TenancyService"

const (
	GetCurrentContextFullMethodName     = "/" + ServiceName + "/GetCurrentContext"
	ListOrganizationsFullMethodName     = "/" + ServiceName + "/ListOrganizations"
	SetActiveOrganizationFullMethodName = "/" + ServiceName + "/SetActiveOrganization"
	GetActiveGymFullMethodName          = "/" + ServiceName + "/GetActiveGym"
)

// Requirements lists the methods that need more than a live session.
var Requirements = map[string]authz.Requirement{
	GetActiveGymFullMethodName: authz.ActiveOrganization(),
}

// ContextService answers session context queries by token.
type ContextService interface {
	GetCurrentContext(ctx context.Context, token string) (*service.CurrentContext, error)
	ListAvailableOrganizations(ctx context.Context, token string) ([]*orgdomain.Org, error)
}

// Switcher changes the active organization of a session.
type Switcher interface {
	SetActive(ctx context.Context, token, orgID string) (*sessiondomain.Session, error)
}

// GymReader loads an organization by id.
type GymReader interface {
	Organization(ctx context.Context, orgID string) (*orgdomain.Org, error)
}

// TenancyServer is the server API of TenancyService.
type TenancyServer interface {
	GetCurrentContext(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListOrganizations(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetActiveOrganization(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetActiveGym(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// Server implements TenancyServer. It runs behind interceptors.AuthUnary, which has already
// authorized the caller against Requirements.
type Server struct {
	auth     ContextService
	switcher Switcher
	gyms     GymReader
}

var _ TenancyServer = (*Server)(nil)

// NewServer returns a TenancyService server.
func NewServer(auth ContextService, switcher Switcher, gyms GymReader) *Server {
	return &Server{auth: auth, switcher: switcher, gyms: gyms}
}

// Register registers s with the gRPC server.
func Register(r grpc.ServiceRegistrar, s TenancyServer) {
	r.RegisterService(&ServiceDesc, s)
}

// GetCurrentContext returns the identity, session and active organization of the caller.
func (s *Server) GetCurrentContext(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	cur, err := s.auth.GetCurrentContext(ctx, interceptors.BearerToken(ctx))
	if err != nil {
		return nil, interceptors.StatusError(err)
	}
	return contextStruct(cur)
}

// ListOrganizations returns the organizations the caller may select.
func (s *Server) ListOrganizations(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	orgs, err := s.auth.ListAvailableOrganizations(ctx, interceptors.BearerToken(ctx))
	if err != nil {
		return nil, interceptors.StatusError(err)
	}
	list := make([]interface{}, 0, len(orgs))
	for _, o := range orgs {
		list = append(list, orgFields(o))
	}
	return newStruct(map[string]interface{}{"organizations": list})
}

// SetActiveOrganization makes req the caller's active organization and returns the new context.
func (s *Server) SetActiveOrganization(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	token := interceptors.BearerToken(ctx)
	if _, err := s.switcher.SetActive(ctx, token, req.GetValue()); err != nil {
		return nil, interceptors.StatusError(err)
	}
	cur, err := s.auth.GetCurrentContext(ctx, token)
	if err != nil {
		return nil, interceptors.StatusError(err)
	}
	return contextStruct(cur)
}

// GetActiveGym returns the caller's active organization.
func (s *Server) GetActiveGym(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ac, err := rbac.RequireOrgMember(ctx)
	if err != nil {
		return nil, interceptors.StatusError(err)
	}
	o, err := s.gyms.Organization(ctx, ac.OrganizationID)
	if errors.Is(err, tenancy.ErrUnknownOrganization) {
		return nil, status.Error(codes.NotFound, "organization not found")
	}
	if err != nil {
		return nil, interceptors.StatusError(err)
	}
	fields := orgFields(o)
	fields["role"] = string(ac.Role)
	return newStruct(fields)
}

func contextStruct(cur *service.CurrentContext) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"identity_id":        cur.User.ID,
		"user_type":          string(cur.User.Type),
		"session_id":         cur.Session.ID,
		"organization_id":    nil,
		"selection_required": true,
	}
	if cur.Authz != nil {
		if cur.Authz.Role != "" {
			fields["role"] = string(cur.Authz.Role)
		}
		if cur.Authz.OrganizationID != "" {
			fields["organization_id"] = cur.Authz.OrganizationID
			fields["selection_required"] = false
		}
	}
	return newStruct(fields)
}

func orgFields(o *orgdomain.Org) map[string]interface{} {
	return map[string]interface{}{
		"id":          o.ID,
		"name":        o.Name,
		"street":      o.Address.Street,
		"city":        o.Address.City,
		"state":       o.Address.State,
		"postal_code": o.Address.PostalCode,
		"country":     o.Address.Country,
	}
}

func newStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, interceptors.StatusError(err)
	}
	return st, nil
}
