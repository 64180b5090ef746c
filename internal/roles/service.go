package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lodgeline/lodgeline/internal/authz"
	"github.com/lodgeline/lodgeline/internal/realtime"
	"github.com/lodgeline/lodgeline/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (Role, error)
	GetByName(ctx context.Context, name string) (Role, error)
	Create(ctx context.Context, name, description string, permissions []string) (Role, error)
	Update(ctx context.Context, id int64, name, description string, permissions []string) (Role, error)
	Delete(ctx context.Context, id int64) error
}

// EventSink publishes realtime events after successful mutations.
type EventSink interface {
	Emit(ctx context.Context, topic string, payload any) error
}

var (
	// ErrSystemRole is returned when a mutation targets an immutable
	// seed role.
	ErrSystemRole = errors.New("roles: system roles are immutable")
	// ErrUnknownPermission is returned when a role references a token
	// outside the vocabulary.
	ErrUnknownPermission = errors.New("roles: unknown permission")
)

// Service handles role business logic.
type Service struct {
	repo   RepositoryPort
	events EventSink
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, events EventSink) *Service {
	return &Service{repo: repo, events: events}
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get fetches a role by ID.
func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	return s.repo.Get(ctx, id)
}

// PermissionsByRoleName resolves the stored permission set for a role
// name. Unknown roles yield an empty list, not an error: resolution
// falls through to the static defaults downstream.
func (s *Service) PermissionsByRoleName(ctx context.Context, name string) ([]authz.Permission, error) {
	role, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return role.Permissions, nil
}

// Create inserts a new custom role after validating its permission set
// against the vocabulary.
func (s *Service) Create(ctx context.Context, name, description string, permissions []string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	if err := validatePermissions(permissions); err != nil {
		return Role{}, err
	}
	role, err := s.repo.Create(ctx, name, strings.TrimSpace(description), permissions)
	if err != nil {
		return Role{}, err
	}
	s.emitPermissionsUpdated(ctx, role)
	return role, nil
}

// Update replaces a custom role's definition. System roles reject the
// mutation.
func (s *Service) Update(ctx context.Context, id int64, name, description string, permissions []string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if existing.IsSystem {
		return Role{}, ErrSystemRole
	}
	if err := validatePermissions(permissions); err != nil {
		return Role{}, err
	}
	role, err := s.repo.Update(ctx, id, name, strings.TrimSpace(description), permissions)
	if err != nil {
		return Role{}, err
	}
	s.emitPermissionsUpdated(ctx, role)
	return role, nil
}

// Delete removes a custom role. System roles reject the mutation.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return ErrSystemRole
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emitPermissionsUpdated(ctx, existing)
	return nil
}

func (s *Service) emitPermissionsUpdated(ctx context.Context, role Role) {
	if s.events == nil {
		return
	}
	// Dashboards re-resolve their actor on this signal; a lost event
	// is recovered on the next full page load.
	_ = s.events.Emit(ctx, realtime.TopicPermissionsUpdated, realtime.PermissionsUpdated{Role: role.Name})
}

func validatePermissions(permissions []string) error {
	for _, p := range permissions {
		if !authz.Known(p) {
			return fmt.Errorf("%w %q", ErrUnknownPermission, p)
		}
	}
	return nil
}
