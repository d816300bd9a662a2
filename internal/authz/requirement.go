package authz

import "fmt"

// Mode is what a route needs from the session's organization context.
type Mode int

const (
	// ModeAnyContext needs an authenticated session only.
	ModeAnyContext Mode = iota
	// ModeActiveOrganization needs some active organization.
	ModeActiveOrganization
	// ModePinnedOrganization needs a specific organization to be the active one.
	ModePinnedOrganization
)

// Requirement is the organization requirement of a route.
type Requirement struct {
	Mode  Mode
	OrgID string
}

// AnyContext returns a requirement satisfied by any live session.
func AnyContext() Requirement { return Requirement{Mode: ModeAnyContext} }

// ActiveOrganization returns a requirement satisfied when the session has an active organization.
func ActiveOrganization() Requirement { return Requirement{Mode: ModeActiveOrganization} }

// Organization returns a requirement pinned to orgID.
func Organization(orgID string) Requirement {
	return Requirement{Mode: ModePinnedOrganization, OrgID: orgID}
}

func (r Requirement) String() string {
	switch r.Mode {
	case ModeAnyContext:
		return "any"
	case ModeActiveOrganization:
		return "active"
	case ModePinnedOrganization:
		return fmt.Sprintf("org:%s", r.OrgID)
	default:
		return "unknown"
	}
}
