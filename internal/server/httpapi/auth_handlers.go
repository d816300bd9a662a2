package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"gym-tenancy/backend/internal/identity/service"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
}

type setActiveRequest struct {
	OrganizationID string `json:"organization_id"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	res, err := s.auth.Login(r.Context(), req.Email, req.Password, req.UserType)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	ok(w, toLoginView(res))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		writeError(w, s.log, err)
		return
	}
	noContent(w)
}

func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	orgs, err := retryRead(r.Context(), func() ([]*orgdomain.Org, error) {
		return s.auth.ListAvailableOrganizations(r.Context(), token)
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	ok(w, toOrganizationViews(orgs))
}

func (s *Server) setActiveOrganization(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	orgID := strings.TrimSpace(req.OrganizationID)
	if orgID == "" {
		badRequest(w, "organization_id is required")
		return
	}
	token := bearerToken(r)
	if _, err := s.tenancy.SetActive(r.Context(), token, orgID); err != nil {
		writeError(w, s.log, err)
		return
	}
	cur, err := s.auth.GetCurrentContext(r.Context(), token)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	ok(w, toContextView(cur))
}

func (s *Server) currentContext(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	cur, err := retryRead(r.Context(), func() (*service.CurrentContext, error) {
		return s.auth.GetCurrentContext(r.Context(), token)
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	ok(w, toContextView(cur))
}
