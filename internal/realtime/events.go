package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire frame for every event. Data holds the raw
// topic-specific payload; typed subscribers decode it at the boundary so
// a shape mismatch surfaces as an explicit decode error instead of a
// silently stale dashboard.
type Envelope struct {
	ID    string          `json:"id"`
	Topic string          `json:"topic"`
	At    time.Time       `json:"at"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope wraps a payload for publishing.
func NewEnvelope(topic string, payload any) (Envelope, error) {
	env := Envelope{
		ID:    uuid.NewString(),
		Topic: topic,
		At:    time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("realtime: encode %s payload: %w", topic, err)
		}
		env.Data = data
	}
	return env, nil
}

func (e Envelope) marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("realtime: encode envelope: %w", err)
	}
	return data, nil
}

func decodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("realtime: decode envelope: %w", err)
	}
	if env.Topic == "" {
		return Envelope{}, fmt.Errorf("realtime: envelope missing topic")
	}
	return env, nil
}

// Decode unpacks the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("realtime: %s event has no payload", e.Topic)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("realtime: decode %s payload: %w", e.Topic, err)
	}
	return nil
}

// CustomerEvent accompanies customer:* topics.
type CustomerEvent struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Plan   string `json:"plan,omitempty"`
	Status string `json:"status,omitempty"`
}

// UserEvent accompanies user:* topics.
type UserEvent struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// PropertyEvent accompanies property:* topics.
type PropertyEvent struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	Name       string `json:"name"`
	Units      int    `json:"units,omitempty"`
}

// PaymentEvent accompanies payment:* topics. Amounts are integer cents.
type PaymentEvent struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	PaidAt      time.Time `json:"paid_at,omitzero"`
}

// MaintenanceEvent accompanies maintenance:* topics.
type MaintenanceEvent struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	Title      string `json:"title"`
	Priority   string `json:"priority,omitempty"`
	Status     string `json:"status"`
}

// Notification accompanies notification:new.
type Notification struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ForceReauth is a unilateral server push instructing the client to end
// its session after a grace period. Delivery is this package's only
// responsibility; session teardown belongs to the subscriber.
type ForceReauth struct {
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
	UserID    int64     `json:"user_id,omitempty"`
}

// PermissionsUpdated accompanies permissions:updated.
type PermissionsUpdated struct {
	UserID int64  `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
}

// AccountEvent accompanies account:* topics.
type AccountEvent struct {
	CustomerID int64  `json:"customer_id"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}
