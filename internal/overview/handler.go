package overview

import (
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/lodgeline/lodgeline/internal/authz"
	"github.com/lodgeline/lodgeline/internal/platform/httpx"
	"github.com/lodgeline/lodgeline/internal/rbac"
)

// Handler serves the admin dashboard summary.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes registers the dashboard route on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(authz.PermOverview))
		r.Get("/", h.snapshot)
	})
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("build overview snapshot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}
