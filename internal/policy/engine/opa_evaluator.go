package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"gym-tenancy/backend/internal/membership/domain"
)

const allowQuery = "data.gym.authz.allow"

// DefaultPolicy grants actions per organization role. Super-admins may do everything.
const DefaultPolicy = `package gym.authz

default allow := false

grants := {
	"member": {"gym.read"},
	"trainer": {"gym.read", "members.read"},
	"organization-admin": {"gym.read", "members.read", "members.manage"},
}

allow if input.role == "super-admin"

allow if input.action in grants[input.role]
`

// OPAEvaluator evaluates role grants with an in-process OPA Rego query prepared once.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy (DefaultPolicy when empty) and prepares the allow query.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// Allowed reports whether role may perform action. An undefined result is a deny.
func (e *OPAEvaluator) Allowed(ctx context.Context, role domain.Role, action string) (bool, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"role":   string(role),
		"action": action,
	}))
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, _ := rs[0].Expressions[0].Value.(bool)
	return allowed, nil
}

// HealthCheck evaluates a known grant to verify the engine works.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	ok, err := e.Allowed(ctx, domain.RoleOrganizationAdmin, ActionGymRead)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("policy health check: organization-admin denied %s", ActionGymRead)
	}
	return nil
}
