package roles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgeline/lodgeline/internal/authz"
	"github.com/lodgeline/lodgeline/internal/realtime"
	"github.com/lodgeline/lodgeline/internal/shared"
)

type mockRoleRepo struct {
	roles        map[int64]Role
	nextID       int64
	listErr      error
	getByNameErr error
}

func newMockRoleRepo(seed ...Role) *mockRoleRepo {
	repo := &mockRoleRepo{roles: make(map[int64]Role), nextID: 1}
	for _, role := range seed {
		repo.roles[role.ID] = role
		if role.ID >= repo.nextID {
			repo.nextID = role.ID + 1
		}
	}
	return repo
}

func (m *mockRoleRepo) List(context.Context) ([]Role, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Role, 0, len(m.roles))
	for _, role := range m.roles {
		out = append(out, role)
	}
	return out, nil
}

func (m *mockRoleRepo) Get(_ context.Context, id int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (m *mockRoleRepo) GetByName(_ context.Context, name string) (Role, error) {
	if m.getByNameErr != nil {
		return Role{}, m.getByNameErr
	}
	for _, role := range m.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return Role{}, shared.ErrNotFound
}

func (m *mockRoleRepo) Create(_ context.Context, name, description string, permissions []string) (Role, error) {
	role := Role{
		ID:          m.nextID,
		Name:        name,
		Description: description,
		Permissions: permissions,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.nextID++
	m.roles[role.ID] = role
	return role, nil
}

func (m *mockRoleRepo) Update(_ context.Context, id int64, name, description string, permissions []string) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	role.Name = name
	role.Description = description
	role.Permissions = permissions
	role.UpdatedAt = time.Now()
	m.roles[id] = role
	return role, nil
}

func (m *mockRoleRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
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

func TestServiceCreateValidatesVocabulary(t *testing.T) {
	svc := NewService(newMockRoleRepo(), &captureSink{})

	_, err := svc.Create(context.Background(), "Night Auditor", "", []string{authz.PermOverview, "launch_rockets"})
	require.ErrorIs(t, err, ErrUnknownPermission)
	assert.Contains(t, err.Error(), "launch_rockets")
}

func TestServiceCreateEmitsPermissionsUpdated(t *testing.T) {
	sink := &captureSink{}
	svc := NewService(newMockRoleRepo(), sink)

	role, err := svc.Create(context.Background(), "  Night Auditor  ", "after-hours books", []string{authz.PermOverview, authz.PermPaymentView})
	require.NoError(t, err)
	assert.Equal(t, "Night Auditor", role.Name)

	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.TopicPermissionsUpdated, sink.events[0].topic)
	payload, ok := sink.events[0].payload.(realtime.PermissionsUpdated)
	require.True(t, ok)
	assert.Equal(t, "Night Auditor", payload.Role)
}

func TestServiceCreateRequiresName(t *testing.T) {
	svc := NewService(newMockRoleRepo(), &captureSink{})

	_, err := svc.Create(context.Background(), "   ", "", nil)
	require.Error(t, err)
}

func TestServiceUpdateRejectsSystemRole(t *testing.T) {
	repo := newMockRoleRepo(Role{ID: 1, Name: "Admin", IsSystem: true})
	sink := &captureSink{}
	svc := NewService(repo, sink)

	_, err := svc.Update(context.Background(), 1, "Admin", "", []string{authz.PermOverview})
	require.ErrorIs(t, err, ErrSystemRole)
	assert.Empty(t, sink.events)
}

func TestServiceUpdateEmitsPermissionsUpdated(t *testing.T) {
	repo := newMockRoleRepo(Role{ID: 7, Name: "Concierge"})
	sink := &captureSink{}
	svc := NewService(repo, sink)

	role, err := svc.Update(context.Background(), 7, "Concierge", "front desk", []string{authz.PermCustomerView})
	require.NoError(t, err)
	assert.Equal(t, []authz.Permission{authz.PermCustomerView}, role.Permissions)

	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.TopicPermissionsUpdated, sink.events[0].topic)
}

func TestServiceDeleteRejectsSystemRole(t *testing.T) {
	repo := newMockRoleRepo(Role{ID: 1, Name: "Support", IsSystem: true})
	svc := NewService(repo, &captureSink{})

	err := svc.Delete(context.Background(), 1)
	require.ErrorIs(t, err, ErrSystemRole)
	_, err = repo.Get(context.Background(), 1)
	require.NoError(t, err)
}

func TestServiceDeleteEmitsForRemovedRole(t *testing.T) {
	repo := newMockRoleRepo(Role{ID: 3, Name: "Seasonal Staff"})
	sink := &captureSink{}
	svc := NewService(repo, sink)

	require.NoError(t, svc.Delete(context.Background(), 3))
	require.Len(t, sink.events, 1)
	payload := sink.events[0].payload.(realtime.PermissionsUpdated)
	assert.Equal(t, "Seasonal Staff", payload.Role)
}

func TestPermissionsByRoleNameUnknownRoleIsEmpty(t *testing.T) {
	svc := NewService(newMockRoleRepo(), &captureSink{})

	perms, err := svc.PermissionsByRoleName(context.Background(), "Ghost Role")
	require.NoError(t, err)
	assert.Nil(t, perms)
}

func TestPermissionsByRoleNameReturnsStoredSet(t *testing.T) {
	repo := newMockRoleRepo(Role{ID: 2, Name: "Billing", Permissions: []authz.Permission{authz.PermBillingManagement}})
	svc := NewService(repo, &captureSink{})

	perms, err := svc.PermissionsByRoleName(context.Background(), "Billing")
	require.NoError(t, err)
	assert.Equal(t, []authz.Permission{authz.PermBillingManagement}, perms)
}

func TestPermissionsByRoleNameSurfacesRepositoryError(t *testing.T) {
	repo := newMockRoleRepo()
	repo.getByNameErr = errors.New("connection refused")
	svc := NewService(repo, &captureSink{})

	// A transient failure must not masquerade as an unknown role, or the
	// actor would silently fall back to the static defaults.
	_, err := svc.PermissionsByRoleName(context.Background(), "Billing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestServiceWithoutSinkDoesNotPanic(t *testing.T) {
	svc := NewService(newMockRoleRepo(), nil)

	_, err := svc.Create(context.Background(), "Quiet Role", "", []string{authz.PermOverview})
	require.NoError(t, err)
}
