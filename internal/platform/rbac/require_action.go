package rbac

import (
	"context"
	"fmt"

	"gym-tenancy/backend/internal/authz"
	"gym-tenancy/backend/internal/platform/autherr"
	"gym-tenancy/backend/internal/policy/engine"
)

// RequireAction ensures the caller's role in its organization may perform action.
// Returns ErrPermissionDenied when the policy denies it.
func RequireAction(ctx context.Context, evaluator engine.Evaluator, action string) (*authz.Context, error) {
	ac, err := RequireOrgMember(ctx)
	if err != nil {
		return nil, err
	}
	allowed, err := evaluator.Allowed(ctx, ac.Role, action)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", action, err)
	}
	if !allowed {
		return nil, autherr.ErrPermissionDenied
	}
	return ac, nil
}

// RequireOrgAdmin ensures the caller may manage the members of its organization.
func RequireOrgAdmin(ctx context.Context, evaluator engine.Evaluator) (*authz.Context, error) {
	return RequireAction(ctx, evaluator, engine.ActionMembersManage)
}
