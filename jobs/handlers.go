package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/lodgeline/lodgeline/internal/payments"
	"github.com/lodgeline/lodgeline/internal/realtime"
)

// EventSink publishes realtime envelopes. Satisfied by realtime.Publisher.
type EventSink interface {
	Emit(ctx context.Context, topic string, payload any) error
}

// PendingPayments exposes the slice of the payments service the
// reminder sweep needs.
type PendingPayments interface {
	ListPending(ctx context.Context, olderThan time.Time) ([]payments.Payment, error)
}

// Handlers owns the worker-side task processors.
type Handlers struct {
	events   EventSink
	payments PendingPayments
	logger   *slog.Logger
}

// NewHandlers constructs the task processors.
func NewHandlers(events EventSink, pending PendingPayments, logger *slog.Logger) *Handlers {
	return &Handlers{events: events, payments: pending, logger: logger}
}

// Registrations returns the handler wiring consumed by NewWorker.
func (h *Handlers) Registrations() []TaskHandler {
	return []TaskHandler{
		{Type: TaskTypeForceReauth, Handler: h.HandleForceReauth},
		{Type: TaskTypeNotifyFanout, Handler: h.HandleNotifyFanout},
		{Type: TaskTypePaymentReminders, Handler: h.HandlePaymentReminders},
	}
}

// HandleForceReauth pushes the force-reauth event. Delivery is the only
// job here; the subscriber owns its own session teardown.
func (h *Handlers) HandleForceReauth(ctx context.Context, t *asynq.Task) error {
	var payload ForceReauthPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	event := realtime.ForceReauth{
		Reason:    payload.Reason,
		Timestamp: time.Now().UTC(),
		UserID:    payload.UserID,
	}
	if err := h.events.Emit(ctx, realtime.TopicForceReauth, event); err != nil {
		return err
	}
	h.logger.Info("force reauth pushed",
		slog.Int64("user_id", payload.UserID),
		slog.String("reason", payload.Reason),
	)
	return nil
}

// HandleNotifyFanout broadcasts one staff notification.
func (h *Handlers) HandleNotifyFanout(ctx context.Context, t *asynq.Task) error {
	var payload NotifyFanoutPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	notification := realtime.Notification{
		ID:      uuid.NewString(),
		Kind:    payload.Kind,
		Message: payload.Message,
	}
	return h.events.Emit(ctx, realtime.TopicNotificationNew, notification)
}

// HandlePaymentReminders sweeps stale pending payments and notifies the
// billing feed about each one.
func (h *Handlers) HandlePaymentReminders(ctx context.Context, t *asynq.Task) error {
	var payload PaymentRemindersPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.MaxAge <= 0 {
		payload.MaxAge = 72 * time.Hour
	}
	cutoff := time.Now().Add(-payload.MaxAge)
	stale, err := h.payments.ListPending(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, p := range stale {
		notification := realtime.Notification{
			ID:      uuid.NewString(),
			Kind:    "billing",
			Message: fmt.Sprintf("payment %d for customer %d pending since %s", p.ID, p.CustomerID, p.CreatedAt.Format("2006-01-02")),
		}
		if err := h.events.Emit(ctx, realtime.TopicNotificationNew, notification); err != nil {
			return err
		}
	}
	if len(stale) > 0 {
		h.logger.Info("payment reminders sent", slog.Int("count", len(stale)))
	}
	return nil
}
