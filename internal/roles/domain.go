package roles

import (
	"time"

	"github.com/lodgeline/lodgeline/internal/authz"
)

// Role represents a named permission bundle assignable to users.
// System roles are immutable seed data; custom roles own an explicit
// permission set maintained by admins.
type Role struct {
	ID          int64
	Name        string
	Description string
	Permissions []authz.Permission
	IsSystem    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SystemRoleNames lists the seeded immutable roles.
var SystemRoleNames = []string{
	"Super Admin",
	"Admin",
	"Property Owner",
	"Property Manager",
	"Tenant",
	"Billing",
	"Support",
	"Analyst",
}
