package payments

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

// Handler wires HTTP endpoints for payments.
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

// MountRoutes registers payment routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(authz.PermPaymentView, authz.PermBillingView))
		r.Get("/customer/{customerID}", h.listByCustomer)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(authz.PermPaymentRecord, authz.PermBillingManagement))
		r.Post("/", h.record)
		r.Post("/{id}/status", h.transition)
	})
}

type recordForm struct {
	CustomerID  int64  `json:"customer_id" validate:"required,gt=0"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Reference   string `json:"reference" validate:"max=120"`
	Pending     bool   `json:"pending"`
}

type transitionForm struct {
	Status string `json:"status" validate:"required"`
}

type paymentResponse struct {
	ID          int64  `json:"id"`
	CustomerID  int64  `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Reference   string `json:"reference,omitempty"`
	PaidAt      string `json:"paid_at,omitempty"`
}

func toResponse(p Payment) paymentResponse {
	resp := paymentResponse{
		ID:          p.ID,
		CustomerID:  p.CustomerID,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Status:      p.Status,
		Reference:   p.Reference,
	}
	if !p.PaidAt.IsZero() {
		resp.PaidAt = p.PaidAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

func (h *Handler) listByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}
	list, err := h.service.ListByCustomer(r.Context(), customerID)
	if err != nil {
		h.logger.Error("list payments", slog.Int64("customer_id", customerID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]paymentResponse, len(list))
	for i, p := range list {
		out[i] = toResponse(p)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payment id")
		return
	}
	payment, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(payment))
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var form recordForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var (
		payment Payment
		err     error
	)
	if form.Pending {
		payment, err = h.service.Open(r.Context(), form.CustomerID, form.AmountCents, form.Currency, form.Reference)
	} else {
		payment, err = h.service.Record(r.Context(), form.CustomerID, form.AmountCents, form.Currency, form.Reference)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(payment))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payment id")
		return
	}
	var form transitionForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	payment, err := h.service.Transition(r.Context(), id, form.Status)
	if err != nil {
		if errors.Is(err, ErrUnknownStatus) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(payment))
}
