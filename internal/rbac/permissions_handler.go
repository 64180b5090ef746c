package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lodgeline/lodgeline/internal/authz"
	"github.com/lodgeline/lodgeline/internal/platform/httpx"
)

// PermissionsHandler serves the permission vocabulary and the calling
// actor's effective set so the dashboard can filter navigation.
type PermissionsHandler struct {
	logger *slog.Logger
	rbac   Middleware
}

// NewPermissionsHandler builds a PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(authz.PermRoleView))
		r.Get("/", h.listPermissions)
	})
	r.Get("/effective", h.effectivePermissions)
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"permissions": authz.Vocabulary(),
	})
}

// effectivePermissions resolves the caller's own set. Unlike the
// guarded listing above it needs no permission: every authenticated
// actor may ask what it is allowed to do.
func (h *PermissionsHandler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.rbac.currentUserID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	actor, err := h.rbac.Actors.ActorByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("resolve effective permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	granted := authz.Resolve(actor)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        actor.Role,
		"role_kind":   actor.Kind().String(),
		"permissions": granted.List(),
	})
}
