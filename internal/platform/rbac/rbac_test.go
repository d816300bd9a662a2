package rbac

import (
	"context"
	"errors"
	"testing"

	"gym-tenancy/backend/internal/authz"
	"gym-tenancy/backend/internal/membership/domain"
	"gym-tenancy/backend/internal/platform/autherr"
	"gym-tenancy/backend/internal/policy/engine"
)

// staticEvaluator implements engine.Evaluator for tests.
type staticEvaluator struct {
	grants map[domain.Role][]string
	err    error
}

func (e *staticEvaluator) Allowed(_ context.Context, role domain.Role, action string) (bool, error) {
	if e.err != nil {
		return false, e.err
	}
	for _, a := range e.grants[role] {
		if a == action {
			return true, nil
		}
	}
	return false, nil
}

func TestRequireOrgMember(t *testing.T) {
	testCases := []struct {
		name    string
		ac      *authz.Context
		wantErr error
	}{
		{"no context", nil, autherr.ErrUnauthenticated},
		{"no organization", &authz.Context{IdentityID: "u1"}, autherr.ErrOrganizationSelectionRequired},
		{"scoped", &authz.Context{IdentityID: "u1", OrganizationID: "o1", Role: domain.RoleMember}, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.ac != nil {
				ctx = authz.WithContext(ctx, tc.ac)
			}
			ac, err := RequireOrgMember(ctx)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("RequireOrgMember err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr == nil && ac.OrganizationID != "o1" {
				t.Errorf("OrganizationID = %q, want o1", ac.OrganizationID)
			}
		})
	}
}

func TestRequireAction(t *testing.T) {
	ev := &staticEvaluator{grants: map[domain.Role][]string{
		domain.RoleMember:            {engine.ActionGymRead},
		domain.RoleOrganizationAdmin: {engine.ActionGymRead, engine.ActionMembersManage},
	}}
	testCases := []struct {
		name    string
		role    domain.Role
		action  string
		wantErr error
	}{
		{"member reads gym", domain.RoleMember, engine.ActionGymRead, nil},
		{"member manages members", domain.RoleMember, engine.ActionMembersManage, autherr.ErrPermissionDenied},
		{"admin manages members", domain.RoleOrganizationAdmin, engine.ActionMembersManage, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := authz.WithContext(context.Background(), &authz.Context{IdentityID: "u1", OrganizationID: "o1", Role: tc.role})
			_, err := RequireAction(ctx, ev, tc.action)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("RequireAction err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRequireOrgAdmin_EvaluatorError(t *testing.T) {
	boom := errors.New("policy unavailable")
	ctx := authz.WithContext(context.Background(), &authz.Context{IdentityID: "u1", OrganizationID: "o1", Role: domain.RoleOrganizationAdmin})
	if _, err := RequireOrgAdmin(ctx, &staticEvaluator{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("RequireOrgAdmin err = %v, want %v", err, boom)
	}
}

func TestRequireOrgAdmin_WithOPAPolicy(t *testing.T) {
	ev, err := engine.NewOPAEvaluator(context.Background(), "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	testCases := []struct {
		role    domain.Role
		wantErr error
	}{
		{domain.RoleMember, autherr.ErrPermissionDenied},
		{domain.RoleTrainer, autherr.ErrPermissionDenied},
		{domain.RoleOrganizationAdmin, nil},
		{domain.RoleSuperAdmin, nil},
	}
	for _, tc := range testCases {
		t.Run(string(tc.role), func(t *testing.T) {
			ctx := authz.WithContext(context.Background(), &authz.Context{IdentityID: "u1", OrganizationID: "o1", Role: tc.role})
			if _, err := RequireOrgAdmin(ctx, ev); !errors.Is(err, tc.wantErr) {
				t.Fatalf("RequireOrgAdmin err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
