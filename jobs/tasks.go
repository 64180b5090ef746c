package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical carries access-revocation work that must not sit
	// behind bulk jobs.
	QueueCritical = "critical"

	// TaskTypeForceReauth pushes a forced re-authentication to a user
	// whose access changed. Enqueued with a grace delay so the session
	// owner gets a moment to save work.
	TaskTypeForceReauth = "reauth:force"
	// TaskTypeNotifyFanout pushes a staff notification to every
	// connected dashboard.
	TaskTypeNotifyFanout = "notify:fanout"
	// TaskTypePaymentReminders is the nightly sweep over stale pending
	// payments.
	TaskTypePaymentReminders = "payments:reminders"
)

// ForceReauthPayload identifies the user and why their session must end.
type ForceReauthPayload struct {
	UserID int64  `json:"user_id"`
	Reason string `json:"reason"`
}

// NewForceReauthTask constructs an Asynq task.
func NewForceReauthTask(payload ForceReauthPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeForceReauth, data), nil
}

// NotifyFanoutPayload describes one staff notification.
type NotifyFanoutPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewNotifyFanoutTask constructs an Asynq task.
func NewNotifyFanoutTask(payload NotifyFanoutPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyFanout, data), nil
}

// PaymentRemindersPayload bounds the reminder sweep. MaxAge selects
// pending payments older than now minus MaxAge.
type PaymentRemindersPayload struct {
	MaxAge time.Duration `json:"max_age"`
}

// NewPaymentRemindersTask constructs an Asynq task.
func NewPaymentRemindersTask(payload PaymentRemindersPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePaymentReminders, data), nil
}
