package payments

import "time"

// Payment statuses.
const (
	StatusPending  = "pending"
	StatusReceived = "received"
	StatusFailed   = "failed"
	StatusRefunded = "refunded"
)

// Payment is a subscription charge against a customer account. Amounts
// are integer cents so arithmetic never touches floats.
type Payment struct {
	ID          int64
	CustomerID  int64
	AmountCents int64
	Currency    string
	Status      string
	Reference   string
	PaidAt      time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusReceived, StatusFailed, StatusRefunded:
		return true
	}
	return false
}
