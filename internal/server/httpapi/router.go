// Package httpapi is the JSON-over-HTTP surface: credential redemption, grant checks and the
// operator endpoints under /admin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	accessservice "creator-access-gate/internal/access/service"
	auditdomain "creator-access-gate/internal/audit/domain"
	"creator-access-gate/internal/credential/domain"
	credentialservice "creator-access-gate/internal/credential/service"
	"creator-access-gate/internal/ratelimit"
	"creator-access-gate/internal/server/middleware"
	"creator-access-gate/internal/session"
)

// Redeemer turns a presented secret into a session grant.
type Redeemer interface {
	Redeem(ctx context.Context, resourceID, secret, sourceAddress, agentDescriptor string) (*accessservice.Result, error)
}

// CredentialAdmin is the operator-side credential service.
type CredentialAdmin interface {
	Issue(ctx context.Context, in credentialservice.IssueInput) (*credentialservice.IssueResult, error)
	List(ctx context.Context, resourceID string) ([]*domain.Credential, error)
	Delete(ctx context.Context, id string) error
	Now() time.Time
}

// EventLister reads the access log.
type EventLister interface {
	ListRecent(ctx context.Context, limit int) ([]*auditdomain.EventView, error)
	ListByResource(ctx context.Context, resourceID string, limit int) ([]*auditdomain.EventView, error)
}

// Deps holds everything the router needs. Limiter, TrustedProxies and Pinger may be nil.
type Deps struct {
	Validator   Redeemer
	Credentials CredentialAdmin
	Events      EventLister
	Gate        *session.Gate
	Limiter     ratelimit.Limiter
	// TrustedProxies decides when forwarding headers name the rate-limited peer.
	TrustedProxies *middleware.ProxyTrust
	Pinger         Pinger
	Logger         zerolog.Logger

	AdminToken     string
	Production     bool
	RequestTimeout time.Duration
}

// API holds handler dependencies.
type API struct {
	validator   Redeemer
	credentials CredentialAdmin
	events      EventLister
	gate        *session.Gate
	pinger      Pinger
	logger      zerolog.Logger
	adminToken  string
	production  bool
}

// NewRouter builds the HTTP handler with middleware applied.
func NewRouter(deps Deps) http.Handler {
	a := &API{
		validator:   deps.Validator,
		credentials: deps.Credentials,
		events:      deps.Events,
		gate:        deps.Gate,
		pinger:      deps.Pinger,
		logger:      deps.Logger,
		adminToken:  deps.AdminToken,
		production:  deps.Production,
	}
	limit := middleware.RateLimit(deps.Limiter, deps.TrustedProxies, deps.Logger)

	r := chi.NewRouter()
	r.Use(middleware.Recover(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.SecureHeaders(deps.Production))
	r.Use(middleware.Timeout(deps.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)

	r.With(limit).Post("/validate", a.handleValidate)
	r.With(limit).Post("/validate-token", a.handleValidateToken)
	r.Get("/access/{resourceId}", a.handleAccessCheck)
	r.Delete("/access/{resourceId}", a.handleAccessRevoke)

	r.Route("/admin", func(r chi.Router) {
		r.With(limit).Post("/login", a.handleAdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(deps.AdminToken))
			r.Post("/credentials", a.handleCreateCredential)
			r.Get("/credentials", a.handleListCredentials)
			r.Delete("/credentials/{id}", a.handleDeleteCredential)
			r.Get("/access-events", a.handleListEvents)
		})
	})

	return otelhttp.NewHandler(r, "creator-access-gate",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz" && r.URL.Path != "/readyz"
		}),
	)
}
