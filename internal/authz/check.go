package authz

import "sort"

// Requirement expresses the permissions an item or route demands. With
// RequireAll unset at least one listed permission must be granted; with
// it set, every listed permission must be granted.
type Requirement struct {
	Permissions []Permission
	RequireAll  bool
}

// Any builds an any-of requirement.
func Any(perms ...Permission) Requirement {
	return Requirement{Permissions: perms}
}

// All builds an all-of requirement.
func All(perms ...Permission) Requirement {
	return Requirement{Permissions: perms, RequireAll: true}
}

// Check decides a requirement against a granted set. An empty granted
// set always denies: no permission means no access, never allow by
// default.
func Check(granted Set, req Requirement) bool {
	if len(granted) == 0 {
		return false
	}
	if len(req.Permissions) == 0 {
		return true
	}
	if req.RequireAll {
		for _, p := range req.Permissions {
			if !granted.Has(p) {
				return false
			}
		}
		return true
	}
	for _, p := range req.Permissions {
		if granted.Has(p) {
			return true
		}
	}
	return false
}

// CheckOne is the single-permission membership test.
func CheckOne(granted Set, perm Permission) bool {
	return Check(granted, Requirement{Permissions: []Permission{perm}})
}

// Filter keeps the items whose requirement passes against the granted
// set. Used by navigation and action lists to hide what the actor may
// not touch.
func Filter[T any](granted Set, items []T, requirement func(T) Requirement) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if Check(granted, requirement(item)) {
			out = append(out, item)
		}
	}
	return out
}

func sortPermissions(perms []Permission) {
	sort.Strings(perms)
}
