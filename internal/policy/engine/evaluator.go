package engine

import (
	"context"

	"gym-tenancy/backend/internal/membership/domain"
)

// Actions checked by organization-scoped routes.
const (
	ActionGymRead       = "gym.read"
	ActionMembersRead   = "members.read"
	ActionMembersManage = "members.manage"
)

// Evaluator decides whether a role may perform an action inside its active organization.
type Evaluator interface {
	Allowed(ctx context.Context, role domain.Role, action string) (bool, error)
}
