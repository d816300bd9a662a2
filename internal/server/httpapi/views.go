package httpapi

import (
	"time"

	"gym-tenancy/backend/internal/identity/service"
	membershipdomain "gym-tenancy/backend/internal/membership/domain"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
)

type addressView struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type organizationView struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Address addressView `json:"address"`
}

type contextView struct {
	IdentityID     string    `json:"identity_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	UserType       string    `json:"user_type"`
	SessionID      string    `json:"session_id"`
	ExpiresAt      time.Time `json:"expires_at"`
	OrganizationID *string   `json:"organization_id"`
	Role           string    `json:"role,omitempty"`
	// SelectionRequired tells clients to send the user to the organization picker.
	SelectionRequired bool `json:"selection_required"`
}

type loginView struct {
	Token         string             `json:"token"`
	ExpiresAt     time.Time          `json:"expires_at"`
	Context       contextView        `json:"context"`
	Organizations []organizationView `json:"organizations"`
}

type membershipView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	OrgID     string    `json:"organization_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toOrganizationView(o *orgdomain.Org) organizationView {
	return organizationView{
		ID:   o.ID,
		Name: o.Name,
		Address: addressView{
			Street:     o.Address.Street,
			City:       o.Address.City,
			State:      o.Address.State,
			PostalCode: o.Address.PostalCode,
			Country:    o.Address.Country,
		},
	}
}

func toOrganizationViews(orgs []*orgdomain.Org) []organizationView {
	out := make([]organizationView, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, toOrganizationView(o))
	}
	return out
}

func toContextView(c *service.CurrentContext) contextView {
	v := contextView{
		IdentityID: c.User.ID,
		Email:      c.User.Email,
		Name:       c.User.Name,
		UserType:   string(c.User.Type),
		SessionID:  c.Session.ID,
		ExpiresAt:  c.Session.ExpiresAt,
		Role:       string(c.Authz.Role),
	}
	if c.Authz.OrganizationID != "" {
		org := c.Authz.OrganizationID
		v.OrganizationID = &org
	} else {
		v.SelectionRequired = true
	}
	return v
}

func toLoginView(r *service.LoginResult) loginView {
	v := contextView{
		IdentityID:        r.User.ID,
		Email:             r.User.Email,
		Name:              r.User.Name,
		UserType:          string(r.User.Type),
		SessionID:         r.Session.ID,
		ExpiresAt:         r.Session.ExpiresAt,
		SelectionRequired: r.Session.ActiveOrgID == "",
	}
	if r.Session.ActiveOrgID != "" {
		org := r.Session.ActiveOrgID
		v.OrganizationID = &org
	}
	return loginView{
		Token:         r.Token,
		ExpiresAt:     r.Session.ExpiresAt,
		Context:       v,
		Organizations: toOrganizationViews(r.Organizations),
	}
}

func toMembershipView(m *membershipdomain.Membership) membershipView {
	return membershipView{ID: m.ID, UserID: m.UserID, OrgID: m.OrgID, Role: string(m.Role), CreatedAt: m.CreatedAt}
}
