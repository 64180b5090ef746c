package tickets

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lodgeline/lodgeline/internal/authz"
	"github.com/lodgeline/lodgeline/internal/platform/httpx"
	"github.com/lodgeline/lodgeline/internal/rbac"
)

// Handler wires HTTP endpoints for maintenance tickets.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      mw,
		validator: validator.New(),
	}
}

// MountRoutes registers ticket routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(authz.PermMaintenanceView, authz.PermSupportView))
		r.Get("/", h.listOpen)
		r.Get("/customer/{customerID}", h.listByCustomer)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(authz.PermMaintenanceCreate, authz.PermTenantRequests))
		r.Post("/", h.open)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(authz.PermMaintenanceAssign))
		r.Post("/{id}/assign", h.assign)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(authz.PermMaintenanceClose, authz.PermSupportClose))
		r.Post("/{id}/close", h.close)
	})
}

type openForm struct {
	CustomerID  int64  `json:"customer_id" validate:"required,gt=0"`
	PropertyID  int64  `json:"property_id" validate:"gte=0"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

type assignForm struct {
	AssigneeID int64 `json:"assignee_id" validate:"required,gt=0"`
}

type ticketResponse struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	PropertyID int64  `json:"property_id,omitempty"`
	Title      string `json:"title"`
	Priority   string `json:"priority"`
	Status     string `json:"status"`
	AssigneeID int64  `json:"assignee_id,omitempty"`
}

func toResponse(t Ticket) ticketResponse {
	return ticketResponse{
		ID:         t.ID,
		CustomerID: t.CustomerID,
		PropertyID: t.PropertyID,
		Title:      t.Title,
		Priority:   t.Priority,
		Status:     t.Status,
		AssigneeID: t.AssigneeID,
	}
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListOpen(r.Context())
	if err != nil {
		h.logger.Error("list open tickets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]ticketResponse, len(list))
	for i, t := range list {
		out[i] = toResponse(t)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tickets": out})
}

func (h *Handler) listByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}
	list, err := h.service.ListByCustomer(r.Context(), customerID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]ticketResponse, len(list))
	for i, t := range list {
		out[i] = toResponse(t)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tickets": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid ticket id")
		return
	}
	ticket, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(ticket))
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	var form openForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ticket, err := h.service.Open(r.Context(), form.CustomerID, form.PropertyID, form.Title, form.Description, form.Priority)
	if err != nil {
		if errors.Is(err, ErrUnknownPriority) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(ticket))
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid ticket id")
		return
	}
	var form assignForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ticket, err := h.service.Assign(r.Context(), id, form.AssigneeID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(ticket))
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid ticket id")
		return
	}
	ticket, err := h.service.Close(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(ticket))
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
