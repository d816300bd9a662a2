package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"gym-tenancy/backend/internal/authz"
)

type contextKey struct{ name string }

var clientIPKey = contextKey{"client_ip"}

const bearerPrefix = "bearer "

// ClientIP returns the client address stored by the logging middleware, or "" outside an HTTP request.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}

func requestIP(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); s != "" {
		if i := strings.Index(s, ","); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		return s
	}
	if s := strings.TrimSpace(r.Header.Get("X-Real-IP")); s != "" {
		return s
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// bearerToken returns the Bearer token of r, or "" if missing or malformed.
func bearerToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

// statusWriter captures the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// loggingMiddleware logs one line per request and stores the client IP for audit entries.
func loggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ip := requestIP(r)
			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), clientIPKey, ip)))
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.code),
				zap.Duration("latency", time.Since(start)),
				zap.String("client_ip", ip),
			}
			if sw.code >= http.StatusInternalServerError {
				log.Warn("http request", fields...)
				return
			}
			log.Debug("http request", fields...)
		})
	}
}

// Authorizer is the authorization gate as seen by the router.
type Authorizer interface {
	Authorize(ctx context.Context, token string, req authz.Requirement) (*authz.Context, error)
}

// requireOrganization authorizes requests against the organization named by the {orgID} route
// variable and attaches the resolved context for the handler.
func (s *Server) requireOrganization(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID := routeVar(r, "orgID")
		ac, err := s.gate.Authorize(r.Context(), bearerToken(r), authz.Organization(orgID))
		if err != nil {
			writeError(w, s.log, err)
			return
		}
		next(w, r.WithContext(authz.WithContext(r.Context(), ac)))
	}
}
