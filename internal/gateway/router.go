// Package gateway is the HTTP entry point: it validates bearer tokens
// against cached verification material, enforces CORS, and routes authorized
// requests to the dispatch handler. It is the only layer that translates
// internal failures into HTTP status codes.
package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wildrydes/dispatch/internal/dispatch"
	"github.com/wildrydes/dispatch/internal/identity"
	"github.com/wildrydes/dispatch/internal/ledger"
	"github.com/wildrydes/dispatch/internal/rate"
	"github.com/wildrydes/dispatch/internal/token"
)

// Deps wires the router. Everything is an interface or a leaf struct so
// tests can swap any collaborator.
type Deps struct {
	Verifier   *token.Verifier
	Dispatcher *dispatch.Handler
	Ledger     ledger.Store
	Identity   *identity.Service

	CORSAllowedOrigins []string
	RateLimiter        rate.Limiter // applied to the identity surface; nil disables
	MetricsHandler     http.Handler // nil disables /metrics

	// Readiness checks run on GET /readyz.
	Readiness []func() error
}

// NewRouter builds the full HTTP surface. Stateless between requests: every
// per-request value lives in the request context.
func NewRouter(d Deps) http.Handler {
	rides := &rideHandlers{dispatcher: d.Dispatcher, ledger: d.Ledger}
	auth := &authHandlers{identity: d.Identity}
	health := &healthHandlers{readiness: d.Readiness}

	r := chi.NewRouter()

	// Outermost first. CORS sits before routing so OPTIONS preflight is
	// answered without auth and never reaches a handler.
	r.Use(WithRecover())
	r.Use(WithRequestID())
	r.Use(WithSecurityHeaders())
	r.Use(WithCORS(d.CORSAllowedOrigins))
	r.Use(WithMetrics())
	r.Use(WithLogging())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Dispatch surface: token required, no exceptions.
	r.Group(func(pr chi.Router) {
		pr.Use(RequireAuth(d.Verifier))
		pr.Post("/ride", rides.postRide)
		pr.Get("/ride/{id}", rides.getRide)
	})

	// Token issuance surface: public, rate limited.
	r.Group(func(ar chi.Router) {
		ar.Use(WithRateLimit(d.RateLimiter))
		ar.Post("/auth/signup", auth.signUp)
		ar.Post("/auth/confirm", auth.confirm)
		ar.Post("/auth/signin", auth.signIn)
	})

	r.Get("/.well-known/jwks.json", auth.jwks)
	r.Get("/healthz", health.healthz)
	r.Get("/readyz", health.readyz)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	return r
}
