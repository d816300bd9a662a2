// Package httpapi is the JSON HTTP surface: login, logout, organization selection and the
// organization-scoped gym routes, each gated by the authorization gate.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"gym-tenancy/backend/internal/authz"
	"gym-tenancy/backend/internal/identity/service"
	membershipdomain "gym-tenancy/backend/internal/membership/domain"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
	"gym-tenancy/backend/internal/policy/engine"
	sessiondomain "gym-tenancy/backend/internal/session/domain"
)

// AuthService is the login and session query surface.
type AuthService interface {
	Login(ctx context.Context, email, password, userType string) (*service.LoginResult, error)
	Logout(ctx context.Context, token string) error
	ListAvailableOrganizations(ctx context.Context, token string) ([]*orgdomain.Org, error)
	GetCurrentContext(ctx context.Context, token string) (*service.CurrentContext, error)
}

// Tenancy switches active organizations and manages memberships.
type Tenancy interface {
	SetActive(ctx context.Context, token, orgID string) (*sessiondomain.Session, error)
	Organization(ctx context.Context, orgID string) (*orgdomain.Org, error)
	ListMembers(ctx context.Context, orgID string) ([]*membershipdomain.Membership, error)
	AddMember(ctx context.Context, actor *authz.Context, orgID, userID string, role membershipdomain.Role) (*membershipdomain.Membership, error)
	RevokeMember(ctx context.Context, actor *authz.Context, orgID, userID string) (int64, error)
}

// Pinger reports database readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds the dependencies of the HTTP API. Pinger may be nil.
type Deps struct {
	Auth      AuthService
	Tenancy   Tenancy
	Gate      Authorizer
	Evaluator engine.Evaluator
	Pinger    Pinger
	Log       *zap.Logger
}

// Server serves the HTTP API.
type Server struct {
	auth      AuthService
	tenancy   Tenancy
	gate      Authorizer
	evaluator engine.Evaluator
	pinger    Pinger
	log       *zap.Logger
}

// New returns a Server.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Server{
		auth:      d.Auth,
		tenancy:   d.Tenancy,
		gate:      d.Gate,
		evaluator: d.Evaluator,
		pinger:    d.Pinger,
		log:       d.Log,
	}
}

// Router returns the mux router with all routes registered, without outer middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	v1.HandleFunc("/auth/logout", s.logout).Methods(http.MethodPost)
	v1.HandleFunc("/organizations", s.listOrganizations).Methods(http.MethodGet)
	v1.HandleFunc("/session/active-organization", s.setActiveOrganization).Methods(http.MethodPut)
	v1.HandleFunc("/session/context", s.currentContext).Methods(http.MethodGet)

	v1.HandleFunc("/gyms/{orgID}", s.requireOrganization(s.getGym)).Methods(http.MethodGet)
	v1.HandleFunc("/gyms/{orgID}/members", s.requireOrganization(s.listMembers)).Methods(http.MethodGet)
	v1.HandleFunc("/gyms/{orgID}/members", s.requireOrganization(s.addMember)).Methods(http.MethodPost)
	v1.HandleFunc("/gyms/{orgID}/members/{userID}", s.requireOrganization(s.revokeMember)).Methods(http.MethodDelete)

	return r
}

// Handler returns the full HTTP handler: routes wrapped with request logging, panic recovery
// and OpenTelemetry instrumentation.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	h = loggingMiddleware(s.log)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(zapRecoveryLogger{s.log}))(h)
	return otelhttp.NewHandler(h, "http.server")
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.PingContext(r.Context()); err != nil {
			s.log.Warn("health: database ping failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, Body{Error: &ErrorBody{Code: "unavailable", Message: "database unavailable", Retryable: true}})
			return
		}
	}
	ok(w, map[string]string{"status": "ok"})
}

func routeVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// zapRecoveryLogger adapts zap to the gorilla/handlers recovery logger.
type zapRecoveryLogger struct {
	log *zap.Logger
}

func (l zapRecoveryLogger) Println(v ...interface{}) {
	l.log.Error("http: recovered from panic", zap.Any("panic", v))
}
