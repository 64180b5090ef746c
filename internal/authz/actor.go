package authz

import "strings"

// Actor is the authenticated caller whose effective permission set is
// being resolved. Permissions is a per-user override; RolePermissions is
// the set resolved server-side from the actor's role. Either or both may
// be absent.
type Actor struct {
	Role            string
	Permissions     []Permission
	RolePermissions []Permission
	kind            RoleKind
	kindResolved    bool
}

// NewActor constructs an Actor with its role kind resolved once up front.
func NewActor(role string, permissions, rolePermissions []Permission) Actor {
	return Actor{
		Role:            role,
		Permissions:     permissions,
		RolePermissions: rolePermissions,
		kind:            ParseRoleKind(role),
		kindResolved:    true,
	}
}

// Kind returns the actor's role kind, resolving it lazily for actors
// built as struct literals rather than through NewActor.
func (a Actor) Kind() RoleKind {
	if a.kindResolved {
		return a.kind
	}
	return ParseRoleKind(a.Role)
}

// RoleKind is an enumerated role family. The fuzzy string matching the
// dashboard historically relied on lives only in ParseRoleKind, so actors
// carry an explicit tag instead of re-matching strings on every check.
type RoleKind int

const (
	RoleUnknown RoleKind = iota
	RoleAdmin
	RoleSupport
	RoleOwner
	RoleManager
	RoleTenant
	RoleAnalyst
	RoleBilling
)

func (k RoleKind) String() string {
	switch k {
	case RoleAdmin:
		return "admin"
	case RoleSupport:
		return "support"
	case RoleOwner:
		return "owner"
	case RoleManager:
		return "manager"
	case RoleTenant:
		return "tenant"
	case RoleAnalyst:
		return "analyst"
	case RoleBilling:
		return "billing"
	default:
		return "unknown"
	}
}

// ParseRoleKind maps a role display name to its family. Matching is
// case-insensitive and tolerant of "super admin", "super_admin" and
// "superadmin" spellings; admin accounts must never be locked out by a
// renamed or misspelled role, so the admin test runs on substrings.
func ParseRoleKind(role string) RoleKind {
	name := strings.ToLower(strings.TrimSpace(role))
	switch name {
	case "admin", "superadmin", "super_admin":
		return RoleAdmin
	}
	switch {
	case strings.Contains(name, "super") && strings.Contains(name, "admin"):
		return RoleAdmin
	case strings.Contains(name, "support"):
		return RoleSupport
	case strings.Contains(name, "owner"):
		return RoleOwner
	case strings.Contains(name, "manager"):
		return RoleManager
	case strings.Contains(name, "tenant"):
		return RoleTenant
	case strings.Contains(name, "analyst"):
		return RoleAnalyst
	case strings.Contains(name, "finance") || strings.Contains(name, "billing"):
		return RoleBilling
	default:
		return RoleUnknown
	}
}
