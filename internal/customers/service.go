package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"github.com/lodgeline/lodgeline/internal/realtime"
	"github.com/lodgeline/lodgeline/internal/shared"
)

// RepositoryPort defines data access methods for customers.
type RepositoryPort interface {
	List(ctx context.Context, page shared.Pagination) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, name, email, plan string) (Customer, error)
	Update(ctx context.Context, id int64, name, email, plan string) (Customer, error)
	SetStatus(ctx context.Context, id int64, status string) (Customer, error)
	Delete(ctx context.Context, id int64) error
}

// EventSink publishes realtime events after successful mutations.
type EventSink interface {
	Emit(ctx context.Context, topic string, payload any) error
}

// ErrUnknownPlan is returned for a plan outside the offered set.
var ErrUnknownPlan = errors.New("customers: unknown plan")

// Service handles customer account business logic.
type Service struct {
	repo   RepositoryPort
	events EventSink
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, events EventSink, logger *slog.Logger) *Service {
	return &Service{repo: repo, events: events, logger: logger}
}

// List returns a page of customers with pagination metadata.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Customer, shared.Pagination, error) {
	pagination := shared.NewPagination(page, perPage, 0)
	list, total, err := s.repo.List(ctx, pagination)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, perPage, total), nil
}

// Get fetches a customer by ID.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new customer account on a plan.
func (s *Service) Create(ctx context.Context, name, email, plan string) (Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Customer{}, errors.New("customers: name required")
	}
	if !validPlan(plan) {
		return Customer{}, fmt.Errorf("%w %q", ErrUnknownPlan, plan)
	}
	customer, err := s.repo.Create(ctx, name, strings.ToLower(strings.TrimSpace(email)), plan)
	if err != nil {
		return Customer{}, err
	}
	s.emitCustomer(ctx, realtime.TopicCustomerCreated, customer)
	return customer, nil
}

// Update replaces a customer's profile. A plan change also notifies
// account watchers so billing views refresh.
func (s *Service) Update(ctx context.Context, id int64, name, email, plan string) (Customer, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	if !validPlan(plan) {
		return Customer{}, fmt.Errorf("%w %q", ErrUnknownPlan, plan)
	}
	customer, err := s.repo.Update(ctx, id, strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email)), plan)
	if err != nil {
		return Customer{}, err
	}
	s.emitCustomer(ctx, realtime.TopicCustomerUpdated, customer)
	if existing.Plan != customer.Plan {
		s.emitAccount(ctx, realtime.TopicAccountUpdated, customer, "plan_changed")
	}
	return customer, nil
}

// Suspend locks the account out and notifies both customer and account
// watchers.
func (s *Service) Suspend(ctx context.Context, id int64, reason string) (Customer, error) {
	customer, err := s.repo.SetStatus(ctx, id, StatusSuspended)
	if err != nil {
		return Customer{}, err
	}
	s.emitCustomer(ctx, realtime.TopicCustomerUpdated, customer)
	s.emitAccount(ctx, realtime.TopicAccountSuspended, customer, reason)
	return customer, nil
}

// Reinstate returns a suspended account to active.
func (s *Service) Reinstate(ctx context.Context, id int64) (Customer, error) {
	customer, err := s.repo.SetStatus(ctx, id, StatusActive)
	if err != nil {
		return Customer{}, err
	}
	s.emitCustomer(ctx, realtime.TopicCustomerUpdated, customer)
	s.emitAccount(ctx, realtime.TopicAccountUpdated, customer, "reinstated")
	return customer, nil
}

// Delete removes a customer account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emitCustomer(ctx, realtime.TopicCustomerDeleted, existing)
	return nil
}

func (s *Service) emitCustomer(ctx context.Context, topic string, c Customer) {
	if s.events == nil {
		return
	}
	payload := realtime.CustomerEvent{ID: c.ID, Name: c.Name, Email: c.Email, Plan: c.Plan, Status: c.Status}
	if err := s.events.Emit(ctx, topic, payload); err != nil && s.logger != nil {
		s.logger.Warn("emit customer event", slog.String("topic", topic), slog.Any("error", err))
	}
}

func (s *Service) emitAccount(ctx context.Context, topic string, c Customer, reason string) {
	if s.events == nil {
		return
	}
	payload := realtime.AccountEvent{CustomerID: c.ID, Status: c.Status, Reason: reason}
	if err := s.events.Emit(ctx, topic, payload); err != nil && s.logger != nil {
		s.logger.Warn("emit account event", slog.String("topic", topic), slog.Any("error", err))
	}
}
