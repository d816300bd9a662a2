package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gym",
		Subsystem: "authz",
		Name:      "decisions_total",
		Help:      "The total number of authorization decisions by requirement mode and outcome",
	}, []string{"mode", "outcome"})

	crossTenantCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gym",
		Subsystem: "authz",
		Name:      "cross_tenant_access_total",
		Help:      "The total number of super-admin accesses outside the active organization",
	})

	roleCacheCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gym",
		Subsystem: "authz",
		Name:      "role_cache_lookups_total",
		Help:      "The total number of role cache lookups by result",
	}, []string{"result"})
)

func modeLabel(m Mode) string {
	switch m {
	case ModeAnyContext:
		return "any"
	case ModeActiveOrganization:
		return "active"
	case ModePinnedOrganization:
		return "pinned"
	default:
		return "unknown"
	}
}
