package engine

import (
	"context"
	"testing"

	"gym-tenancy/backend/internal/membership/domain"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	ctx := context.Background()
	e, err := NewOPAEvaluator(ctx, "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if err := e.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_DefaultGrants(t *testing.T) {
	ctx := context.Background()
	e, err := NewOPAEvaluator(ctx, "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	testCases := []struct {
		role   domain.Role
		action string
		want   bool
	}{
		{domain.RoleMember, ActionGymRead, true},
		{domain.RoleMember, ActionMembersRead, false},
		{domain.RoleMember, ActionMembersManage, false},
		{domain.RoleTrainer, ActionMembersRead, true},
		{domain.RoleTrainer, ActionMembersManage, false},
		{domain.RoleOrganizationAdmin, ActionMembersManage, true},
		{domain.RoleSuperAdmin, ActionMembersManage, true},
		{domain.RoleSuperAdmin, "anything.at.all", true},
		{domain.RoleOrganizationAdmin, "unknown.action", false},
		{"", ActionGymRead, false},
	}
	for _, tc := range testCases {
		t.Run(string(tc.role)+"/"+tc.action, func(t *testing.T) {
			got, err := e.Allowed(ctx, tc.role, tc.action)
			if err != nil {
				t.Fatalf("Allowed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Allowed(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.want)
			}
		})
	}
}

func TestOPAEvaluator_CustomPolicy(t *testing.T) {
	ctx := context.Background()
	policy := `package gym.authz

default allow := false

allow if input.action == "gym.read"
`
	e, err := NewOPAEvaluator(ctx, policy)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if ok, _ := e.Allowed(ctx, domain.RoleMember, ActionGymRead); !ok {
		t.Error("custom policy should allow gym.read")
	}
	if ok, _ := e.Allowed(ctx, domain.RoleSuperAdmin, ActionMembersManage); ok {
		t.Error("custom policy should deny members.manage even for super-admin")
	}
}

func TestNewOPAEvaluator_InvalidPolicy(t *testing.T) {
	if _, err := NewOPAEvaluator(context.Background(), "package broken\n\nallow if {"); err == nil {
		t.Fatal("NewOPAEvaluator should reject a policy that does not compile")
	}
}
