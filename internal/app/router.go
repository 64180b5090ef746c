package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lodgeline/lodgeline/internal/customers"
	"github.com/lodgeline/lodgeline/internal/observability"
	"github.com/lodgeline/lodgeline/internal/overview"
	"github.com/lodgeline/lodgeline/internal/payments"
	"github.com/lodgeline/lodgeline/internal/rbac"
	"github.com/lodgeline/lodgeline/internal/roles"
	"github.com/lodgeline/lodgeline/internal/shared"
	"github.com/lodgeline/lodgeline/internal/tickets"
	"github.com/lodgeline/lodgeline/internal/users"
	"github.com/lodgeline/lodgeline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	CustomersHandler   *customers.Handler
	OverviewHandler    *overview.Handler
	PaymentsHandler    *payments.Handler
	TicketsHandler     *tickets.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Lodgeline defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.UsersHandler.MountAuthRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.PaymentsHandler != nil {
			r.Route("/payments", params.PaymentsHandler.MountRoutes)
		}
		if params.TicketsHandler != nil {
			r.Route("/tickets", params.TicketsHandler.MountRoutes)
		}
		if params.OverviewHandler != nil {
			r.Route("/overview", params.OverviewHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
