package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"github.com/lodgeline/lodgeline/internal/realtime"
)

// RepositoryPort defines data access methods for tickets.
type RepositoryPort interface {
	ListOpen(ctx context.Context) ([]Ticket, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]Ticket, error)
	Get(ctx context.Context, id int64) (Ticket, error)
	Create(ctx context.Context, customerID, propertyID int64, title, description, priority string) (Ticket, error)
	Assign(ctx context.Context, id, assigneeID int64) (Ticket, error)
	Close(ctx context.Context, id int64) (Ticket, error)
}

// EventSink publishes realtime events after successful mutations.
type EventSink interface {
	Emit(ctx context.Context, topic string, payload any) error
}

// Notifier queues a notification fan-out for the support staff feed.
// Implemented by the jobs client.
type Notifier interface {
	ScheduleNotifyFanout(ctx context.Context, kind, message string) error
}

// ErrUnknownPriority is returned for a priority outside the ladder.
var ErrUnknownPriority = errors.New("tickets: unknown priority")

// Service handles maintenance ticket business logic.
type Service struct {
	repo     RepositoryPort
	events   EventSink
	notifier Notifier
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, events EventSink, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, events: events, notifier: notifier, logger: logger}
}

// ListOpen returns every ticket not yet closed.
func (s *Service) ListOpen(ctx context.Context) ([]Ticket, error) {
	return s.repo.ListOpen(ctx)
}

// ListByCustomer returns a customer's tickets.
func (s *Service) ListByCustomer(ctx context.Context, customerID int64) ([]Ticket, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

// Get fetches a ticket by ID.
func (s *Service) Get(ctx context.Context, id int64) (Ticket, error) {
	return s.repo.Get(ctx, id)
}

// Open raises a new ticket, notifies maintenance watchers and queues a
// staff notification for urgent work.
func (s *Service) Open(ctx context.Context, customerID, propertyID int64, title, description, priority string) (Ticket, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Ticket{}, errors.New("tickets: title required")
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !validPriority(priority) {
		return Ticket{}, fmt.Errorf("%w %q", ErrUnknownPriority, priority)
	}
	ticket, err := s.repo.Create(ctx, customerID, propertyID, title, strings.TrimSpace(description), priority)
	if err != nil {
		return Ticket{}, err
	}
	s.emit(ctx, realtime.TopicMaintenanceCreated, ticket)
	if ticket.Priority == PriorityUrgent || ticket.Priority == PriorityHigh {
		s.notify(ctx, "maintenance", fmt.Sprintf("%s ticket #%d: %s", ticket.Priority, ticket.ID, ticket.Title))
	}
	return ticket, nil
}

// Assign hands the ticket to a staff member.
func (s *Service) Assign(ctx context.Context, id, assigneeID int64) (Ticket, error) {
	ticket, err := s.repo.Assign(ctx, id, assigneeID)
	if err != nil {
		return Ticket{}, err
	}
	s.emit(ctx, realtime.TopicMaintenanceUpdated, ticket)
	return ticket, nil
}

// Close resolves the ticket.
func (s *Service) Close(ctx context.Context, id int64) (Ticket, error) {
	ticket, err := s.repo.Close(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	s.emit(ctx, realtime.TopicMaintenanceClosed, ticket)
	return ticket, nil
}

func (s *Service) emit(ctx context.Context, topic string, t Ticket) {
	if s.events == nil {
		return
	}
	payload := realtime.MaintenanceEvent{
		ID:         t.ID,
		CustomerID: t.CustomerID,
		Title:      t.Title,
		Priority:   t.Priority,
		Status:     t.Status,
	}
	if err := s.events.Emit(ctx, topic, payload); err != nil && s.logger != nil {
		s.logger.Warn("emit maintenance event", slog.String("topic", topic), slog.Any("error", err))
	}
}

func (s *Service) notify(ctx context.Context, kind, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ScheduleNotifyFanout(ctx, kind, message); err != nil && s.logger != nil {
		s.logger.Error("schedule notification", slog.String("kind", kind), slog.Any("error", err))
	}
}
