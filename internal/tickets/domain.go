package tickets

import "time"

// Ticket statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusClosed     = "closed"
)

// Ticket priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Ticket is a maintenance request raised against a customer's property.
type Ticket struct {
	ID          int64
	CustomerID  int64
	PropertyID  int64
	Title       string
	Description string
	Priority    string
	Status      string
	AssigneeID  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    time.Time
}

func validPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
