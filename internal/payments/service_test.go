package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgeline/lodgeline/internal/realtime"
	"github.com/lodgeline/lodgeline/internal/shared"
)

type mockPaymentRepo struct {
	payments map[int64]Payment
	nextID   int64
}

func newMockPaymentRepo(seed ...Payment) *mockPaymentRepo {
	repo := &mockPaymentRepo{payments: make(map[int64]Payment), nextID: 1}
	for _, p := range seed {
		repo.payments[p.ID] = p
		if p.ID >= repo.nextID {
			repo.nextID = p.ID + 1
		}
	}
	return repo
}

func (m *mockPaymentRepo) ListByCustomer(_ context.Context, customerID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) ListPending(_ context.Context, olderThan time.Time) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.Status == StatusPending && p.CreatedAt.Before(olderThan) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) Get(_ context.Context, id int64) (Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return Payment{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockPaymentRepo) Create(_ context.Context, customerID, amountCents int64, currency, status, reference string, paidAt *time.Time) (Payment, error) {
	p := Payment{
		ID:          m.nextID,
		CustomerID:  customerID,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      status,
		Reference:   reference,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if paidAt != nil {
		p.PaidAt = *paidAt
	}
	m.nextID++
	m.payments[p.ID] = p
	return p, nil
}

func (m *mockPaymentRepo) SetStatus(_ context.Context, id int64, status string, paidAt *time.Time) (Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return Payment{}, shared.ErrNotFound
	}
	p.Status = status
	if paidAt != nil {
		p.PaidAt = *paidAt
	}
	p.UpdatedAt = time.Now()
	m.payments[id] = p
	return p, nil
}

type capturedEvent struct {
	topic   string
	payload any
}

type captureSink struct {
	events []capturedEvent
}

func (c *captureSink) Emit(_ context.Context, topic string, payload any) error {
	c.events = append(c.events, capturedEvent{topic: topic, payload: payload})
	return nil
}

func TestRecordEmitsPaymentReceived(t *testing.T) {
	sink := &captureSink{}
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc := NewService(newMockPaymentRepo(), sink, nil).WithClock(func() time.Time { return fixed })

	payment, err := svc.Record(context.Background(), 7, 129900, "usd", "inv-2026-031")
	require.NoError(t, err)
	assert.Equal(t, "USD", payment.Currency)
	assert.Equal(t, StatusReceived, payment.Status)
	assert.Equal(t, fixed, payment.PaidAt)

	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.TopicPaymentReceived, sink.events[0].topic)
	payload := sink.events[0].payload.(realtime.PaymentEvent)
	assert.Equal(t, int64(129900), payload.AmountCents)
	assert.Equal(t, fixed, payload.PaidAt)
}

func TestRecordRejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(newMockPaymentRepo(), &captureSink{}, nil)

	_, err := svc.Record(context.Background(), 7, 0, "USD", "")
	require.Error(t, err)
}

func TestRecordRejectsBadCurrency(t *testing.T) {
	svc := NewService(newMockPaymentRepo(), &captureSink{}, nil)

	_, err := svc.Record(context.Background(), 7, 100, "dollars", "")
	require.Error(t, err)
}

func TestOpenDoesNotEmit(t *testing.T) {
	sink := &captureSink{}
	svc := NewService(newMockPaymentRepo(), sink, nil)

	payment, err := svc.Open(context.Background(), 7, 50000, "EUR", "inv-2026-032")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, payment.Status)
	assert.True(t, payment.PaidAt.IsZero())
	assert.Empty(t, sink.events)
}

func TestTransitionSettlementEmitsReceived(t *testing.T) {
	repo := newMockPaymentRepo(Payment{ID: 3, CustomerID: 7, AmountCents: 50000, Currency: "EUR", Status: StatusPending})
	sink := &captureSink{}
	fixed := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	svc := NewService(repo, sink, nil).WithClock(func() time.Time { return fixed })

	payment, err := svc.Transition(context.Background(), 3, StatusReceived)
	require.NoError(t, err)
	assert.Equal(t, fixed, payment.PaidAt)

	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.TopicPaymentReceived, sink.events[0].topic)
}

func TestTransitionRefundEmitsUpdated(t *testing.T) {
	repo := newMockPaymentRepo(Payment{ID: 3, CustomerID: 7, AmountCents: 50000, Currency: "EUR", Status: StatusReceived})
	sink := &captureSink{}
	svc := NewService(repo, sink, nil)

	_, err := svc.Transition(context.Background(), 3, StatusRefunded)
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.TopicPaymentUpdated, sink.events[0].topic)
}

func TestTransitionUnknownStatus(t *testing.T) {
	svc := NewService(newMockPaymentRepo(), &captureSink{}, nil)

	_, err := svc.Transition(context.Background(), 3, "teleported")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestListPendingFiltersByCutoff(t *testing.T) {
	old := Payment{ID: 1, CustomerID: 7, Status: StatusPending, CreatedAt: time.Now().Add(-72 * time.Hour)}
	fresh := Payment{ID: 2, CustomerID: 7, Status: StatusPending, CreatedAt: time.Now()}
	svc := NewService(newMockPaymentRepo(old, fresh), &captureSink{}, nil)

	list, err := svc.ListPending(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)
}
