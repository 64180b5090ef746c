package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/lodgeline/lodgeline/internal/authz"
	"github.com/lodgeline/lodgeline/internal/realtime"
	"github.com/lodgeline/lodgeline/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, email, name, passwordHash, role string, permissions []string) (User, error)
	Update(ctx context.Context, id int64, name, role string, permissions []string, isActive bool) (User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}

// RoleSource resolves the permission set stored on a role name.
// Implemented by the roles service.
type RoleSource interface {
	PermissionsByRoleName(ctx context.Context, name string) ([]authz.Permission, error)
}

// EventSink publishes realtime events after successful mutations.
type EventSink interface {
	Emit(ctx context.Context, topic string, payload any) error
}

// ReauthScheduler queues a deferred force-reauth push for a user whose
// access just changed. Implemented by the jobs client.
type ReauthScheduler interface {
	ScheduleForceReauth(ctx context.Context, userID int64, reason string) error
}

// Force-reauth reasons carried on the queued task and the eventual push.
const (
	ReauthRoleChanged        = "role_changed"
	ReauthPermissionsChanged = "permissions_changed"
	ReauthAccountDeactivated = "account_deactivated"
	ReauthAccountDeleted     = "account_deleted"
)

// ErrInactive is returned when a disabled account attempts anything.
var ErrInactive = errors.New("users: account is inactive")

// CreateInput collects fields for a new user.
type CreateInput struct {
	Email       string
	Name        string
	Password    string
	Role        string
	Permissions []string
}

// UpdateInput collects mutable fields for an existing user.
type UpdateInput struct {
	Name        string
	Role        string
	Permissions []string
	IsActive    bool
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	roles  RoleSource
	events EventSink
	reauth ReauthScheduler
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, roles RoleSource, events EventSink, reauth ReauthScheduler, logger *slog.Logger) *Service {
	return &Service{repo: repo, roles: roles, events: events, reauth: reauth, logger: logger}
}

// Authenticate verifies the credentials and returns the user. Inactive
// accounts and wrong passwords collapse into the same error so login
// responses never confirm whether an email exists.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new user with a freshly hashed password.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return User{}, errors.New("users: email required")
	}
	if len(input.Password) < 8 {
		return User{}, errors.New("users: password must be at least 8 characters")
	}
	if err := validateOverrides(input.Permissions); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	user, err := s.repo.Create(ctx, email, strings.TrimSpace(input.Name), string(hash), strings.TrimSpace(input.Role), input.Permissions)
	if err != nil {
		return User{}, err
	}
	s.emit(ctx, realtime.TopicUserCreated, user)
	return user, nil
}

// Update replaces a user's profile and access. A change to the role,
// the explicit overrides or the active flag schedules a force-reauth
// push so the affected session re-resolves its permissions.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (User, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := validateOverrides(input.Permissions); err != nil {
		return User{}, err
	}
	user, err := s.repo.Update(ctx, id, strings.TrimSpace(input.Name), strings.TrimSpace(input.Role), input.Permissions, input.IsActive)
	if err != nil {
		return User{}, err
	}
	s.emit(ctx, realtime.TopicUserUpdated, user)

	switch {
	case existing.IsActive && !user.IsActive:
		s.scheduleReauth(ctx, user.ID, ReauthAccountDeactivated)
	case existing.Role != user.Role:
		s.scheduleReauth(ctx, user.ID, ReauthRoleChanged)
	case !equalGrants(existing.Permissions, user.Permissions):
		s.scheduleReauth(ctx, user.ID, ReauthPermissionsChanged)
	}
	return user, nil
}

// ChangePassword rehashes and stores a new password.
func (s *Service) ChangePassword(ctx context.Context, id int64, password string) error {
	if len(password) < 8 {
		return errors.New("users: password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

// Delete removes a user and tells any live session to re-authenticate.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, realtime.TopicUserDeleted, existing)
	s.scheduleReauth(ctx, existing.ID, ReauthAccountDeleted)
	return nil
}

// ActorByID loads the user and builds the actor consulted by the
// permission middleware. The role's stored permission set rides along
// so resolution can prefer explicit overrides, then role grants, then
// the static family defaults.
func (s *Service) ActorByID(ctx context.Context, userID int64) (authz.Actor, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return authz.Actor{}, err
	}
	if !user.IsActive {
		return authz.Actor{}, ErrInactive
	}
	var rolePerms []authz.Permission
	if s.roles != nil && user.Role != "" {
		rolePerms, err = s.roles.PermissionsByRoleName(ctx, user.Role)
		if err != nil {
			return authz.Actor{}, err
		}
	}
	return authz.NewActor(user.Role, user.Permissions, rolePerms), nil
}

func (s *Service) emit(ctx context.Context, topic string, user User) {
	if s.events == nil {
		return
	}
	payload := realtime.UserEvent{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}
	if err := s.events.Emit(ctx, topic, payload); err != nil && s.logger != nil {
		s.logger.Warn("emit user event", slog.String("topic", topic), slog.Any("error", err))
	}
}

func (s *Service) scheduleReauth(ctx context.Context, userID int64, reason string) {
	if s.reauth == nil {
		return
	}
	if err := s.reauth.ScheduleForceReauth(ctx, userID, reason); err != nil && s.logger != nil {
		s.logger.Error("schedule force reauth", slog.Int64("user_id", userID), slog.String("reason", reason), slog.Any("error", err))
	}
}

func validateOverrides(permissions []string) error {
	for _, p := range permissions {
		if !authz.Known(p) {
			return fmt.Errorf("users: unknown permission %q", p)
		}
	}
	return nil
}

func equalGrants(a, b []authz.Permission) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[authz.Permission]int, len(a))
	for _, p := range a {
		seen[p]++
	}
	for _, p := range b {
		seen[p]--
		if seen[p] < 0 {
			return false
		}
	}
	return true
}
