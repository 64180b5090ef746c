package customers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgeline/lodgeline/internal/realtime"
	"github.com/lodgeline/lodgeline/internal/shared"
)

type mockCustomerRepo struct {
	customers map[int64]Customer
	nextID    int64
}

func newMockCustomerRepo(seed ...Customer) *mockCustomerRepo {
	repo := &mockCustomerRepo{customers: make(map[int64]Customer), nextID: 1}
	for _, c := range seed {
		repo.customers[c.ID] = c
		if c.ID >= repo.nextID {
			repo.nextID = c.ID + 1
		}
	}
	return repo
}

func (m *mockCustomerRepo) List(_ context.Context, page shared.Pagination) ([]Customer, int, error) {
	out := make([]Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	return out, len(m.customers), nil
}

func (m *mockCustomerRepo) Get(_ context.Context, id int64) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *mockCustomerRepo) Create(_ context.Context, name, email, plan string) (Customer, error) {
	c := Customer{
		ID:        m.nextID,
		Name:      name,
		Email:     email,
		Plan:      plan,
		Status:    StatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.nextID++
	m.customers[c.ID] = c
	return c, nil
}

func (m *mockCustomerRepo) Update(_ context.Context, id int64, name, email, plan string) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	c.Name = name
	c.Email = email
	c.Plan = plan
	c.UpdatedAt = time.Now()
	m.customers[id] = c
	return c, nil
}

func (m *mockCustomerRepo) SetStatus(_ context.Context, id int64, status string) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	c.Status = status
	m.customers[id] = c
	return c, nil
}

func (m *mockCustomerRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.customers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.customers, id)
	return nil
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

func (c *captureSink) topics() []string {
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.topic
	}
	return out
}

func TestCreateRejectsUnknownPlan(t *testing.T) {
	svc := NewService(newMockCustomerRepo(), &captureSink{}, nil)

	_, err := svc.Create(context.Background(), "Harbor Stays", "ops@harbor.test", "platinum")
	require.ErrorIs(t, err, ErrUnknownPlan)
}

func TestCreateEmitsCustomerCreated(t *testing.T) {
	sink := &captureSink{}
	svc := NewService(newMockCustomerRepo(), sink, nil)

	customer, err := svc.Create(context.Background(), "Harbor Stays", "Ops@Harbor.Test", PlanProfessional)
	require.NoError(t, err)
	assert.Equal(t, "ops@harbor.test", customer.Email)
	assert.Equal(t, StatusActive, customer.Status)

	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.TopicCustomerCreated, sink.events[0].topic)
	payload := sink.events[0].payload.(realtime.CustomerEvent)
	assert.Equal(t, customer.ID, payload.ID)
	assert.Equal(t, PlanProfessional, payload.Plan)
}

func TestUpdatePlanChangeNotifiesAccountWatchers(t *testing.T) {
	repo := newMockCustomerRepo(Customer{ID: 5, Name: "Harbor Stays", Plan: PlanStarter, Status: StatusActive})
	sink := &captureSink{}
	svc := NewService(repo, sink, nil)

	_, err := svc.Update(context.Background(), 5, "Harbor Stays", "", PlanEnterprise)
	require.NoError(t, err)

	assert.Equal(t, []string{realtime.TopicCustomerUpdated, realtime.TopicAccountUpdated}, sink.topics())
}

func TestUpdateSamePlanSkipsAccountEvent(t *testing.T) {
	repo := newMockCustomerRepo(Customer{ID: 5, Name: "Harbor Stays", Plan: PlanStarter, Status: StatusActive})
	sink := &captureSink{}
	svc := NewService(repo, sink, nil)

	_, err := svc.Update(context.Background(), 5, "Harbor Stays Ltd", "", PlanStarter)
	require.NoError(t, err)

	assert.Equal(t, []string{realtime.TopicCustomerUpdated}, sink.topics())
}

func TestSuspendEmitsAccountSuspended(t *testing.T) {
	repo := newMockCustomerRepo(Customer{ID: 5, Name: "Harbor Stays", Plan: PlanStarter, Status: StatusActive})
	sink := &captureSink{}
	svc := NewService(repo, sink, nil)

	customer, err := svc.Suspend(context.Background(), 5, "non_payment")
	require.NoError(t, err)
	assert.True(t, customer.Suspended())

	require.Len(t, sink.events, 2)
	assert.Equal(t, realtime.TopicAccountSuspended, sink.events[1].topic)
	payload := sink.events[1].payload.(realtime.AccountEvent)
	assert.Equal(t, int64(5), payload.CustomerID)
	assert.Equal(t, "non_payment", payload.Reason)
}

func TestReinstateReturnsToActive(t *testing.T) {
	repo := newMockCustomerRepo(Customer{ID: 5, Name: "Harbor Stays", Plan: PlanStarter, Status: StatusSuspended})
	sink := &captureSink{}
	svc := NewService(repo, sink, nil)

	customer, err := svc.Reinstate(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, customer.Status)
	assert.Equal(t, []string{realtime.TopicCustomerUpdated, realtime.TopicAccountUpdated}, sink.topics())
}

func TestDeleteEmitsCustomerDeleted(t *testing.T) {
	repo := newMockCustomerRepo(Customer{ID: 5, Name: "Harbor Stays", Plan: PlanStarter, Status: StatusActive})
	sink := &captureSink{}
	svc := NewService(repo, sink, nil)

	require.NoError(t, svc.Delete(context.Background(), 5))
	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.TopicCustomerDeleted, sink.events[0].topic)
}

func TestDeleteMissingCustomer(t *testing.T) {
	svc := NewService(newMockCustomerRepo(), &captureSink{}, nil)

	err := svc.Delete(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
