package rbac

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/lodgeline/lodgeline/internal/authz"
	"github.com/lodgeline/lodgeline/internal/shared"
)

// ActorSource loads the authenticated actor for a user id. Implemented
// by the users service; the middleware stays ignorant of storage.
type ActorSource interface {
	ActorByID(ctx context.Context, userID int64) (authz.Actor, error)
}

// Middleware wires permission checks into HTTP handlers. Every guarded
// request resolves the actor's effective set fresh; nothing is cached
// here, so a role change takes effect on the next request.
type Middleware struct {
	Actors ActorSource
	Logger *slog.Logger
}

// RequireAny ensures the current user holds at least one of the
// required permissions.
func (m Middleware) RequireAny(perms ...authz.Permission) func(http.Handler) http.Handler {
	return m.require(authz.Any(perms...))
}

// RequireAll ensures the current user holds every required permission.
func (m Middleware) RequireAll(perms ...authz.Permission) func(http.Handler) http.Handler {
	return m.require(authz.All(perms...))
}

func (m Middleware) require(req authz.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(req.Permissions) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := m.currentUserID(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			actor, err := m.Actors.ActorByID(r.Context(), userID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac load actor", slog.Int64("user_id", userID), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			granted := authz.Resolve(actor)
			if !authz.Check(granted, req) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			ctx := shared.ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
