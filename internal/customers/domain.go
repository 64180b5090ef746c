package customers

import "time"

// Customer statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Subscription plans offered to property-management customers.
const (
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// Customer is a property-management company subscribed to the platform.
type Customer struct {
	ID        int64
	Name      string
	Email     string
	Plan      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Suspended reports whether the account is currently locked out.
func (c Customer) Suspended() bool {
	return c.Status == StatusSuspended
}

func validPlan(plan string) bool {
	switch plan {
	case PlanStarter, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}
