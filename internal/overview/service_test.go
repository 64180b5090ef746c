package overview

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOverviewRepo struct {
	active    int
	suspended int
	pending   int
	received  int64
	open      int
	urgent    int
	since     time.Time
	fail      error
}

func (m *mockOverviewRepo) CustomerCounts(ctx context.Context) (int, int, error) {
	if m.fail != nil {
		return 0, 0, m.fail
	}
	return m.active, m.suspended, nil
}

func (m *mockOverviewRepo) PaymentSummary(ctx context.Context, since time.Time) (int, int64, error) {
	if m.fail != nil {
		return 0, 0, m.fail
	}
	m.since = since
	return m.pending, m.received, nil
}

func (m *mockOverviewRepo) TicketCounts(ctx context.Context) (int, int, error) {
	if m.fail != nil {
		return 0, 0, m.fail
	}
	return m.open, m.urgent, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSnapshotAggregatesAllDomains(t *testing.T) {
	repo := &mockOverviewRepo{active: 12, suspended: 3, pending: 4, received: 98500, open: 7, urgent: 2}
	svc := NewService(repo, discardLogger()).WithClock(func() time.Time {
		return time.Date(2026, time.March, 18, 15, 30, 0, 0, time.UTC)
	})

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, snap.ActiveCustomers)
	assert.Equal(t, 3, snap.SuspendedCustomers)
	assert.Equal(t, 4, snap.PendingPayments)
	assert.Equal(t, int64(98500), snap.ReceivedCents)
	assert.Equal(t, 7, snap.OpenTickets)
	assert.Equal(t, 2, snap.UrgentTickets)
}

func TestSnapshotPaymentWindowStartsAtMonthBoundary(t *testing.T) {
	repo := &mockOverviewRepo{}
	svc := NewService(repo, discardLogger()).WithClock(func() time.Time {
		return time.Date(2026, time.March, 18, 15, 30, 0, 0, time.UTC)
	})

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	wantSince := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, wantSince, repo.since)
	assert.Equal(t, wantSince, snap.Since)
}

func TestSnapshotPropagatesRepositoryError(t *testing.T) {
	repo := &mockOverviewRepo{fail: errors.New("connection reset")}
	svc := NewService(repo, discardLogger())

	_, err := svc.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
