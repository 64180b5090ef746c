package authz

import "strings"

// Set is a resolved permission set. Membership is case-insensitive:
// tokens are normalized to lower case on insertion and lookup.
type Set map[Permission]struct{}

// NewSet builds a Set from the given tokens.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether the permission is in the set.
func (s Set) Has(p Permission) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(p))]
	return ok
}

// List returns the set's tokens sorted for display.
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sortPermissions(out)
	return out
}

// Default permission lists per role family. These back the static
// fallback tier: actors that carry no stored grants resolve by role
// family alone. Unrecognized families resolve to nothing.
var roleDefaults = map[RoleKind][]Permission{
	RoleSupport: {
		PermOverview, PermSupport, PermCustomerView,
		PermSupportView, PermSupportCreate, PermSupportRespond, PermSupportClose,
	},
	RoleOwner: {
		PermOverview, PermPropertyView, PermPropertyCreate, PermPropertyEdit,
		PermCustomerView, PermPaymentView, PermBillingView,
		PermAnalyticsView, PermMaintenanceView,
	},
	RoleManager: {
		PermOverview, PermPropertyView, PermPropertyEdit, PermCustomerView,
		PermMaintenanceView, PermMaintenanceCreate, PermMaintenanceAssign, PermMaintenanceClose,
	},
	RoleTenant: {
		PermTenantPortal, PermTenantPayments, PermTenantRequests, PermMaintenanceCreate,
	},
	RoleAnalyst: {
		PermOverview, PermAnalyticsView, PermAnalyticsExport,
		PermCustomerView, PermPaymentView,
	},
	RoleBilling: {
		PermOverview, PermBillingView, PermBillingManagement,
		PermPaymentView, PermPaymentRecord, PermPlanView, PermPlanManagement,
		PermCustomerView,
	},
}

// Defaults returns a copy of the static fallback list for a role
// family. Seed tooling uses it to store the same sets the resolver
// would fall back to.
func Defaults(kind RoleKind) []Permission {
	defaults := roleDefaults[kind]
	out := make([]Permission, len(defaults))
	copy(out, defaults)
	return out
}

// Resolve maps an actor to its effective permission set. Resolution is
// total: every actor maps to some set, possibly empty, never nil.
//
// Precedence, first match wins, no merging across tiers:
//  1. Admin roles get the entire vocabulary, ignoring any stored grants.
//     A stale or corrupted grant list must never lock an admin out.
//  2. A non-empty explicit Permissions list is returned verbatim.
//  3. A non-empty role-derived RolePermissions list is returned verbatim.
//  4. The static per-family fallback table; unknown families resolve to
//     the empty set.
func Resolve(actor Actor) Set {
	kind := actor.Kind()
	if kind == RoleAdmin {
		return NewSet(vocabulary...)
	}
	if len(actor.Permissions) > 0 {
		return NewSet(actor.Permissions...)
	}
	if len(actor.RolePermissions) > 0 {
		return NewSet(actor.RolePermissions...)
	}
	return NewSet(roleDefaults[kind]...)
}
