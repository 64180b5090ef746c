package users

import (
	"time"

	"github.com/lodgeline/lodgeline/internal/authz"
)

// User is a staff account on the admin dashboard. Permissions holds
// explicit per-user grants; when present they take precedence over the
// permission set stored on the user's role.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Permissions  []authz.Permission
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
