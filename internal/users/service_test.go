package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lodgeline/lodgeline/internal/authz"
	"github.com/lodgeline/lodgeline/internal/realtime"
	"github.com/lodgeline/lodgeline/internal/shared"
)

type mockUserRepo struct {
	users  map[int64]User
	nextID int64
}

func newMockUserRepo(seed ...User) *mockUserRepo {
	repo := &mockUserRepo{users: make(map[int64]User), nextID: 1}
	for _, u := range seed {
		repo.users[u.ID] = u
		if u.ID >= repo.nextID {
			repo.nextID = u.ID + 1
		}
	}
	return repo
}

func (m *mockUserRepo) List(context.Context) ([]User, error) {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserRepo) Get(_ context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *mockUserRepo) Create(_ context.Context, email, name, passwordHash, role string, permissions []string) (User, error) {
	u := User{
		ID:           m.nextID,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		Permissions:  permissions,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.nextID++
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserRepo) Update(_ context.Context, id int64, name, role string, permissions []string, isActive bool) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	u.Name = name
	u.Role = role
	u.Permissions = permissions
	u.IsActive = isActive
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return u, nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type stubRoles struct {
	perms map[string][]authz.Permission
}

func (s *stubRoles) PermissionsByRoleName(_ context.Context, name string) ([]authz.Permission, error) {
	return s.perms[name], nil
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

type reauthCall struct {
	userID int64
	reason string
}

type captureReauth struct {
	calls []reauthCall
}

func (c *captureReauth) ScheduleForceReauth(_ context.Context, userID int64, reason string) error {
	c.calls = append(c.calls, reauthCall{userID: userID, reason: reason})
	return nil
}

func seededUser(t *testing.T, id int64, email, password, role string) User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return User{ID: id, Email: email, PasswordHash: string(hash), Role: role, IsActive: true}
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := newMockUserRepo(seededUser(t, 1, "ops@lodgeline.test", "hunter2hunter2", "Manager"))
	svc := NewService(repo, &stubRoles{}, &captureSink{}, &captureReauth{}, nil)

	user, err := svc.Authenticate(context.Background(), "  OPS@lodgeline.test ", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newMockUserRepo(seededUser(t, 1, "ops@lodgeline.test", "hunter2hunter2", "Manager"))
	svc := NewService(repo, &stubRoles{}, &captureSink{}, &captureReauth{}, nil)

	_, err := svc.Authenticate(context.Background(), "ops@lodgeline.test", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	u := seededUser(t, 1, "ops@lodgeline.test", "hunter2hunter2", "Manager")
	u.IsActive = false
	svc := NewService(newMockUserRepo(u), &stubRoles{}, &captureSink{}, &captureReauth{}, nil)

	_, err := svc.Authenticate(context.Background(), "ops@lodgeline.test", "hunter2hunter2")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestCreateHashesPasswordAndEmits(t *testing.T) {
	repo := newMockUserRepo()
	sink := &captureSink{}
	svc := NewService(repo, &stubRoles{}, sink, &captureReauth{}, nil)

	user, err := svc.Create(context.Background(), CreateInput{
		Email:    "New@Lodgeline.Test",
		Name:     "New Hire",
		Password: "longenoughpw",
		Role:     "Support",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@lodgeline.test", user.Email)
	assert.NotEqual(t, "longenoughpw", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("longenoughpw")))

	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.TopicUserCreated, sink.events[0].topic)
}

func TestCreateRejectsUnknownOverride(t *testing.T) {
	svc := NewService(newMockUserRepo(), &stubRoles{}, &captureSink{}, &captureReauth{}, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Email:       "x@lodgeline.test",
		Password:    "longenoughpw",
		Role:        "Support",
		Permissions: []string{"rule_the_world"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule_the_world")
}

func TestUpdateRoleChangeSchedulesReauth(t *testing.T) {
	repo := newMockUserRepo(seededUser(t, 4, "ops@lodgeline.test", "hunter2hunter2", "Support"))
	reauth := &captureReauth{}
	sink := &captureSink{}
	svc := NewService(repo, &stubRoles{}, sink, reauth, nil)

	_, err := svc.Update(context.Background(), 4, UpdateInput{Role: "Property Manager", IsActive: true})
	require.NoError(t, err)

	require.Len(t, reauth.calls, 1)
	assert.Equal(t, int64(4), reauth.calls[0].userID)
	assert.Equal(t, ReauthRoleChanged, reauth.calls[0].reason)
	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.TopicUserUpdated, sink.events[0].topic)
}

func TestUpdateOverrideChangeSchedulesReauth(t *testing.T) {
	u := seededUser(t, 4, "ops@lodgeline.test", "hunter2hunter2", "Support")
	u.Permissions = []authz.Permission{authz.PermSupportView}
	reauth := &captureReauth{}
	svc := NewService(newMockUserRepo(u), &stubRoles{}, &captureSink{}, reauth, nil)

	_, err := svc.Update(context.Background(), 4, UpdateInput{
		Role:        "Support",
		Permissions: []string{authz.PermSupportView, authz.PermSupportClose},
		IsActive:    true,
	})
	require.NoError(t, err)

	require.Len(t, reauth.calls, 1)
	assert.Equal(t, ReauthPermissionsChanged, reauth.calls[0].reason)
}

func TestUpdateDeactivationWinsOverRoleChange(t *testing.T) {
	repo := newMockUserRepo(seededUser(t, 4, "ops@lodgeline.test", "hunter2hunter2", "Support"))
	reauth := &captureReauth{}
	svc := NewService(repo, &stubRoles{}, &captureSink{}, reauth, nil)

	_, err := svc.Update(context.Background(), 4, UpdateInput{Role: "Tenant", IsActive: false})
	require.NoError(t, err)

	require.Len(t, reauth.calls, 1)
	assert.Equal(t, ReauthAccountDeactivated, reauth.calls[0].reason)
}

func TestUpdateNoAccessChangeSkipsReauth(t *testing.T) {
	repo := newMockUserRepo(seededUser(t, 4, "ops@lodgeline.test", "hunter2hunter2", "Support"))
	reauth := &captureReauth{}
	svc := NewService(repo, &stubRoles{}, &captureSink{}, reauth, nil)

	_, err := svc.Update(context.Background(), 4, UpdateInput{Name: "Renamed", Role: "Support", IsActive: true})
	require.NoError(t, err)
	assert.Empty(t, reauth.calls)
}

func TestDeleteEmitsAndSchedulesReauth(t *testing.T) {
	repo := newMockUserRepo(seededUser(t, 9, "bye@lodgeline.test", "hunter2hunter2", "Analyst"))
	sink := &captureSink{}
	reauth := &captureReauth{}
	svc := NewService(repo, &stubRoles{}, sink, reauth, nil)

	require.NoError(t, svc.Delete(context.Background(), 9))

	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.TopicUserDeleted, sink.events[0].topic)
	require.Len(t, reauth.calls, 1)
	assert.Equal(t, ReauthAccountDeleted, reauth.calls[0].reason)
}

func TestActorByIDCarriesRoleAndOverrideGrants(t *testing.T) {
	u := seededUser(t, 2, "ops@lodgeline.test", "hunter2hunter2", "Billing")
	u.Permissions = []authz.Permission{authz.PermOverview}
	roles := &stubRoles{perms: map[string][]authz.Permission{
		"Billing": {authz.PermBillingView, authz.PermBillingManagement},
	}}
	svc := NewService(newMockUserRepo(u), roles, &captureSink{}, &captureReauth{}, nil)

	actor, err := svc.ActorByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Billing", actor.Role)
	assert.Equal(t, []authz.Permission{authz.PermOverview}, actor.Permissions)
	assert.Equal(t, []authz.Permission{authz.PermBillingView, authz.PermBillingManagement}, actor.RolePermissions)
	assert.Equal(t, authz.RoleBilling, actor.Kind())
}

func TestActorByIDInactiveAccount(t *testing.T) {
	u := seededUser(t, 2, "ops@lodgeline.test", "hunter2hunter2", "Billing")
	u.IsActive = false
	svc := NewService(newMockUserRepo(u), &stubRoles{}, &captureSink{}, &captureReauth{}, nil)

	_, err := svc.ActorByID(context.Background(), 2)
	require.ErrorIs(t, err, ErrInactive)
}

func TestChangePasswordRejectsShortPassword(t *testing.T) {
	svc := NewService(newMockUserRepo(), &stubRoles{}, &captureSink{}, &captureReauth{}, nil)

	err := svc.ChangePassword(context.Background(), 1, "short")
	require.Error(t, err)
}
