package overview

import (
	"context"
	"time"

	"log/slog"

	"golang.org/x/sync/errgroup"
)

// RepositoryPort supplies the aggregate counts shown on the dashboard.
type RepositoryPort interface {
	CustomerCounts(ctx context.Context) (active int, suspended int, err error)
	PaymentSummary(ctx context.Context, since time.Time) (pending int, receivedCents int64, err error)
	TicketCounts(ctx context.Context) (open int, urgent int, err error)
}

// Snapshot is a point-in-time summary across all tenant accounts.
type Snapshot struct {
	ActiveCustomers    int       `json:"active_customers"`
	SuspendedCustomers int       `json:"suspended_customers"`
	PendingPayments    int       `json:"pending_payments"`
	ReceivedCents      int64     `json:"received_cents"`
	OpenTickets        int       `json:"open_tickets"`
	UrgentTickets      int       `json:"urgent_tickets"`
	Since              time.Time `json:"since"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// Service assembles dashboard snapshots from the domain repositories.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    Clock
}

func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(clock Clock) *Service {
	s.now = clock
	return s
}

// Snapshot gathers the per-domain counts concurrently. Payment totals
// cover the current calendar month in UTC.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	snap := Snapshot{Since: since, GeneratedAt: now}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		active, suspended, err := s.repo.CustomerCounts(ctx)
		if err != nil {
			return err
		}
		snap.ActiveCustomers = active
		snap.SuspendedCustomers = suspended
		return nil
	})

	g.Go(func() error {
		pending, received, err := s.repo.PaymentSummary(ctx, since)
		if err != nil {
			return err
		}
		snap.PendingPayments = pending
		snap.ReceivedCents = received
		return nil
	})

	g.Go(func() error {
		open, urgent, err := s.repo.TicketCounts(ctx)
		if err != nil {
			return err
		}
		snap.OpenTickets = open
		snap.UrgentTickets = urgent
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
