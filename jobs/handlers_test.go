package jobs

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgeline/lodgeline/internal/payments"
	"github.com/lodgeline/lodgeline/internal/realtime"
)

type capturedEvent struct {
	topic   string
	payload any
}

type captureSink struct {
	events []capturedEvent
	err    error
}

func (c *captureSink) Emit(_ context.Context, topic string, payload any) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, capturedEvent{topic: topic, payload: payload})
	return nil
}

type stubPending struct {
	payments []payments.Payment
	cutoff   time.Time
}

func (s *stubPending) ListPending(_ context.Context, olderThan time.Time) ([]payments.Payment, error) {
	s.cutoff = olderThan
	return s.payments, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleForceReauthPushesEvent(t *testing.T) {
	sink := &captureSink{}
	h := NewHandlers(sink, &stubPending{}, discardLogger())

	task, err := NewForceReauthTask(ForceReauthPayload{UserID: 42, Reason: "role_changed"})
	require.NoError(t, err)
	require.NoError(t, h.HandleForceReauth(context.Background(), task))

	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.TopicForceReauth, sink.events[0].topic)
	event := sink.events[0].payload.(realtime.ForceReauth)
	assert.Equal(t, int64(42), event.UserID)
	assert.Equal(t, "role_changed", event.Reason)
	assert.False(t, event.Timestamp.IsZero())
}

func TestHandleForceReauthBadPayloadSkipsRetry(t *testing.T) {
	h := NewHandlers(&captureSink{}, &stubPending{}, discardLogger())

	err := h.HandleForceReauth(context.Background(), asynq.NewTask(TaskTypeForceReauth, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleNotifyFanoutBroadcasts(t *testing.T) {
	sink := &captureSink{}
	h := NewHandlers(sink, &stubPending{}, discardLogger())

	task, err := NewNotifyFanoutTask(NotifyFanoutPayload{Kind: "maintenance", Message: "urgent ticket #9"})
	require.NoError(t, err)
	require.NoError(t, h.HandleNotifyFanout(context.Background(), task))

	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.TopicNotificationNew, sink.events[0].topic)
	notification := sink.events[0].payload.(realtime.Notification)
	assert.NotEmpty(t, notification.ID)
	assert.Equal(t, "maintenance", notification.Kind)
}

func TestHandlePaymentRemindersNotifiesEachStalePayment(t *testing.T) {
	sink := &captureSink{}
	pending := &stubPending{payments: []payments.Payment{
		{ID: 1, CustomerID: 7, CreatedAt: time.Now().Add(-100 * time.Hour)},
		{ID: 2, CustomerID: 8, CreatedAt: time.Now().Add(-90 * time.Hour)},
	}}
	h := NewHandlers(sink, pending, discardLogger())

	data, err := json.Marshal(PaymentRemindersPayload{MaxAge: 72 * time.Hour})
	require.NoError(t, err)
	require.NoError(t, h.HandlePaymentReminders(context.Background(), asynq.NewTask(TaskTypePaymentReminders, data)))

	assert.Len(t, sink.events, 2)
	assert.WithinDuration(t, time.Now().Add(-72*time.Hour), pending.cutoff, time.Minute)
}

func TestHandlePaymentRemindersDefaultsMaxAge(t *testing.T) {
	pending := &stubPending{}
	h := NewHandlers(&captureSink{}, pending, discardLogger())

	data, err := json.Marshal(PaymentRemindersPayload{})
	require.NoError(t, err)
	require.NoError(t, h.HandlePaymentReminders(context.Background(), asynq.NewTask(TaskTypePaymentReminders, data)))

	assert.WithinDuration(t, time.Now().Add(-72*time.Hour), pending.cutoff, time.Minute)
}
