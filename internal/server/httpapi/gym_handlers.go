package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	membershipdomain "gym-tenancy/backend/internal/membership/domain"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
	"gym-tenancy/backend/internal/platform/rbac"
	"gym-tenancy/backend/internal/policy/engine"
)

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type gymView struct {
	Organization organizationView `json:"organization"`
	Role         string           `json:"role"`
	CrossTenant  bool             `json:"cross_tenant,omitempty"`
}

func (s *Server) getGym(w http.ResponseWriter, r *http.Request) {
	ac, err := rbac.RequireAction(r.Context(), s.evaluator, engine.ActionGymRead)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	org, err := retryRead(r.Context(), func() (*orgdomain.Org, error) {
		return s.tenancy.Organization(r.Context(), ac.OrganizationID)
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	ok(w, gymView{Organization: toOrganizationView(org), Role: string(ac.Role), CrossTenant: ac.CrossTenant})
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	ac, err := rbac.RequireAction(r.Context(), s.evaluator, engine.ActionMembersRead)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	ms, err := retryRead(r.Context(), func() ([]*membershipdomain.Membership, error) {
		return s.tenancy.ListMembers(r.Context(), ac.OrganizationID)
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	out := make([]membershipView, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMembershipView(m))
	}
	ok(w, out)
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	ac, err := rbac.RequireOrgAdmin(r.Context(), s.evaluator)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		badRequest(w, "user_id is required")
		return
	}
	m, err := s.tenancy.AddMember(r.Context(), ac, ac.OrganizationID, userID, membershipdomain.Role(strings.TrimSpace(req.Role)))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	created(w, toMembershipView(m))
}

func (s *Server) revokeMember(w http.ResponseWriter, r *http.Request) {
	ac, err := rbac.RequireOrgAdmin(r.Context(), s.evaluator)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	revoked, err := s.tenancy.RevokeMember(r.Context(), ac, ac.OrganizationID, routeVar(r, "userID"))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	ok(w, map[string]int64{"sessions_revoked": revoked})
}
