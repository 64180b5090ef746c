package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/lodgeline/lodgeline/internal/realtime"
)

// RepositoryPort defines data access methods for payments.
type RepositoryPort interface {
	ListByCustomer(ctx context.Context, customerID int64) ([]Payment, error)
	ListPending(ctx context.Context, olderThan time.Time) ([]Payment, error)
	Get(ctx context.Context, id int64) (Payment, error)
	Create(ctx context.Context, customerID, amountCents int64, currency, status, reference string, paidAt *time.Time) (Payment, error)
	SetStatus(ctx context.Context, id int64, status string, paidAt *time.Time) (Payment, error)
}

// EventSink publishes realtime events after successful mutations.
type EventSink interface {
	Emit(ctx context.Context, topic string, payload any) error
}

// ErrUnknownStatus is returned for a status outside the lifecycle.
var ErrUnknownStatus = errors.New("payments: unknown status")

// Clock abstracts time for deterministic tests.
type Clock func() time.Time

// Service handles payment business logic.
type Service struct {
	repo   RepositoryPort
	events EventSink
	logger *slog.Logger
	now    Clock
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, events EventSink, logger *slog.Logger) *Service {
	return &Service{repo: repo, events: events, logger: logger, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now Clock) *Service {
	s.now = now
	return s
}

// ListByCustomer returns a customer's payment history.
func (s *Service) ListByCustomer(ctx context.Context, customerID int64) ([]Payment, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

// ListPending returns pending payments older than the cutoff.
func (s *Service) ListPending(ctx context.Context, olderThan time.Time) ([]Payment, error) {
	return s.repo.ListPending(ctx, olderThan)
}

// Get fetches a payment by ID.
func (s *Service) Get(ctx context.Context, id int64) (Payment, error) {
	return s.repo.Get(ctx, id)
}

// Record stores a received payment and notifies billing watchers.
func (s *Service) Record(ctx context.Context, customerID, amountCents int64, currency, reference string) (Payment, error) {
	if amountCents <= 0 {
		return Payment{}, errors.New("payments: amount must be positive")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Payment{}, fmt.Errorf("payments: invalid currency %q", currency)
	}
	paidAt := s.now().UTC()
	payment, err := s.repo.Create(ctx, customerID, amountCents, currency, StatusReceived, reference, &paidAt)
	if err != nil {
		return Payment{}, err
	}
	s.emit(ctx, realtime.TopicPaymentReceived, payment)
	return payment, nil
}

// Open stores a pending payment awaiting settlement. No event fires
// until the status moves.
func (s *Service) Open(ctx context.Context, customerID, amountCents int64, currency, reference string) (Payment, error) {
	if amountCents <= 0 {
		return Payment{}, errors.New("payments: amount must be positive")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Payment{}, fmt.Errorf("payments: invalid currency %q", currency)
	}
	return s.repo.Create(ctx, customerID, amountCents, currency, StatusPending, reference, nil)
}

// Transition moves a payment through its lifecycle. Settling a pending
// payment stamps the paid-at time and fires payment:received; every
// other move fires payment:updated.
func (s *Service) Transition(ctx context.Context, id int64, status string) (Payment, error) {
	if !validStatus(status) {
		return Payment{}, fmt.Errorf("%w %q", ErrUnknownStatus, status)
	}
	var paidAt *time.Time
	if status == StatusReceived {
		ts := s.now().UTC()
		paidAt = &ts
	}
	payment, err := s.repo.SetStatus(ctx, id, status, paidAt)
	if err != nil {
		return Payment{}, err
	}
	topic := realtime.TopicPaymentUpdated
	if status == StatusReceived {
		topic = realtime.TopicPaymentReceived
	}
	s.emit(ctx, topic, payment)
	return payment, nil
}

func (s *Service) emit(ctx context.Context, topic string, p Payment) {
	if s.events == nil {
		return
	}
	payload := realtime.PaymentEvent{
		ID:          p.ID,
		CustomerID:  p.CustomerID,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Status:      p.Status,
		PaidAt:      p.PaidAt,
	}
	if err := s.events.Emit(ctx, topic, payload); err != nil && s.logger != nil {
		s.logger.Warn("emit payment event", slog.String("topic", topic), slog.Any("error", err))
	}
}
