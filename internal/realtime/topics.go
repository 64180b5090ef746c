package realtime

// Topic names. The helper pairs below wrap Subscribe/Unsubscribe so UI
// collaborators never spell these out; a typo'd topic string means
// silent staleness, not an error.
const (
	TopicCustomerCreated = "customer:created"
	TopicCustomerUpdated = "customer:updated"
	TopicCustomerDeleted = "customer:deleted"

	TopicUserCreated = "user:created"
	TopicUserUpdated = "user:updated"
	TopicUserDeleted = "user:deleted"

	TopicPropertyCreated = "property:created"
	TopicPropertyUpdated = "property:updated"
	TopicPropertyDeleted = "property:deleted"

	TopicPaymentReceived = "payment:received"
	TopicPaymentUpdated  = "payment:updated"

	TopicMaintenanceCreated = "maintenance:created"
	TopicMaintenanceUpdated = "maintenance:updated"
	TopicMaintenanceClosed  = "maintenance:closed"

	TopicNotificationNew = "notification:new"

	TopicForceReauth = "force:reauth"

	TopicPermissionsUpdated = "permissions:updated"

	TopicAccountUpdated   = "account:updated"
	TopicAccountSuspended = "account:suspended"
)

// Registration bundles the subscriptions created by one helper call so
// a collaborator can unsubscribe symmetrically on unmount.
type Registration struct {
	client *Client
	subs   []Subscription
}

// Cancel removes every handler this registration added.
func (r *Registration) Cancel() {
	if r == nil || r.client == nil {
		return
	}
	for _, sub := range r.subs {
		r.client.Unsubscribe(sub)
	}
	r.subs = nil
}

// typed wires a decoded handler for one topic. Decode failures go to
// the diagnostic hook and the event is dropped for this handler.
func typed[T any](c *Client, reg *Registration, topic string, fn func(T)) {
	if fn == nil {
		return
	}
	sub := c.Subscribe(topic, func(env Envelope) {
		var payload T
		if err := env.Decode(&payload); err != nil {
			c.reportError(err)
			return
		}
		fn(payload)
	})
	reg.subs = append(reg.subs, sub)
}

// CustomerCallbacks selects which customer events to receive. Nil
// callbacks are simply not subscribed.
type CustomerCallbacks struct {
	OnCreated func(CustomerEvent)
	OnUpdated func(CustomerEvent)
	OnDeleted func(CustomerEvent)
}

// SubscribeCustomerEvents registers the supplied customer callbacks.
func (c *Client) SubscribeCustomerEvents(cb CustomerCallbacks) *Registration {
	reg := &Registration{client: c}
	typed(c, reg, TopicCustomerCreated, cb.OnCreated)
	typed(c, reg, TopicCustomerUpdated, cb.OnUpdated)
	typed(c, reg, TopicCustomerDeleted, cb.OnDeleted)
	return reg
}

// UnsubscribeCustomerEvents removes every customer handler.
func (c *Client) UnsubscribeCustomerEvents() {
	c.UnsubscribeTopic(TopicCustomerCreated)
	c.UnsubscribeTopic(TopicCustomerUpdated)
	c.UnsubscribeTopic(TopicCustomerDeleted)
}

// UserCallbacks selects which user events to receive.
type UserCallbacks struct {
	OnCreated func(UserEvent)
	OnUpdated func(UserEvent)
	OnDeleted func(UserEvent)
}

// SubscribeUserEvents registers the supplied user callbacks.
func (c *Client) SubscribeUserEvents(cb UserCallbacks) *Registration {
	reg := &Registration{client: c}
	typed(c, reg, TopicUserCreated, cb.OnCreated)
	typed(c, reg, TopicUserUpdated, cb.OnUpdated)
	typed(c, reg, TopicUserDeleted, cb.OnDeleted)
	return reg
}

// UnsubscribeUserEvents removes every user handler.
func (c *Client) UnsubscribeUserEvents() {
	c.UnsubscribeTopic(TopicUserCreated)
	c.UnsubscribeTopic(TopicUserUpdated)
	c.UnsubscribeTopic(TopicUserDeleted)
}

// PropertyCallbacks selects which property events to receive.
type PropertyCallbacks struct {
	OnCreated func(PropertyEvent)
	OnUpdated func(PropertyEvent)
	OnDeleted func(PropertyEvent)
}

// SubscribePropertyEvents registers the supplied property callbacks.
func (c *Client) SubscribePropertyEvents(cb PropertyCallbacks) *Registration {
	reg := &Registration{client: c}
	typed(c, reg, TopicPropertyCreated, cb.OnCreated)
	typed(c, reg, TopicPropertyUpdated, cb.OnUpdated)
	typed(c, reg, TopicPropertyDeleted, cb.OnDeleted)
	return reg
}

// UnsubscribePropertyEvents removes every property handler.
func (c *Client) UnsubscribePropertyEvents() {
	c.UnsubscribeTopic(TopicPropertyCreated)
	c.UnsubscribeTopic(TopicPropertyUpdated)
	c.UnsubscribeTopic(TopicPropertyDeleted)
}

// PaymentCallbacks selects which payment events to receive.
type PaymentCallbacks struct {
	OnReceived func(PaymentEvent)
	OnUpdated  func(PaymentEvent)
}

// SubscribePaymentEvents registers the supplied payment callbacks.
func (c *Client) SubscribePaymentEvents(cb PaymentCallbacks) *Registration {
	reg := &Registration{client: c}
	typed(c, reg, TopicPaymentReceived, cb.OnReceived)
	typed(c, reg, TopicPaymentUpdated, cb.OnUpdated)
	return reg
}

// UnsubscribePaymentEvents removes every payment handler.
func (c *Client) UnsubscribePaymentEvents() {
	c.UnsubscribeTopic(TopicPaymentReceived)
	c.UnsubscribeTopic(TopicPaymentUpdated)
}

// MaintenanceCallbacks selects which maintenance-ticket events to
// receive.
type MaintenanceCallbacks struct {
	OnCreated func(MaintenanceEvent)
	OnUpdated func(MaintenanceEvent)
	OnClosed  func(MaintenanceEvent)
}

// SubscribeMaintenanceEvents registers the supplied maintenance
// callbacks.
func (c *Client) SubscribeMaintenanceEvents(cb MaintenanceCallbacks) *Registration {
	reg := &Registration{client: c}
	typed(c, reg, TopicMaintenanceCreated, cb.OnCreated)
	typed(c, reg, TopicMaintenanceUpdated, cb.OnUpdated)
	typed(c, reg, TopicMaintenanceClosed, cb.OnClosed)
	return reg
}

// UnsubscribeMaintenanceEvents removes every maintenance handler.
func (c *Client) UnsubscribeMaintenanceEvents() {
	c.UnsubscribeTopic(TopicMaintenanceCreated)
	c.UnsubscribeTopic(TopicMaintenanceUpdated)
	c.UnsubscribeTopic(TopicMaintenanceClosed)
}

// SubscribeNotifications registers a handler for broadcast
// notifications.
func (c *Client) SubscribeNotifications(fn func(Notification)) *Registration {
	reg := &Registration{client: c}
	typed(c, reg, TopicNotificationNew, fn)
	return reg
}

// UnsubscribeNotifications removes every notification handler.
func (c *Client) UnsubscribeNotifications() {
	c.UnsubscribeTopic(TopicNotificationNew)
}

// SubscribeForceReauth registers a handler for the force
// re-authentication push.
func (c *Client) SubscribeForceReauth(fn func(ForceReauth)) *Registration {
	reg := &Registration{client: c}
	typed(c, reg, TopicForceReauth, fn)
	return reg
}

// UnsubscribeForceReauth removes every force-reauth handler.
func (c *Client) UnsubscribeForceReauth() {
	c.UnsubscribeTopic(TopicForceReauth)
}

// SubscribePermissionsUpdated registers a handler for permission
// changes; dashboards re-resolve their actor when it fires.
func (c *Client) SubscribePermissionsUpdated(fn func(PermissionsUpdated)) *Registration {
	reg := &Registration{client: c}
	typed(c, reg, TopicPermissionsUpdated, fn)
	return reg
}

// UnsubscribePermissionsUpdated removes every permissions-updated
// handler.
func (c *Client) UnsubscribePermissionsUpdated() {
	c.UnsubscribeTopic(TopicPermissionsUpdated)
}

// AccountCallbacks selects which account events to receive.
type AccountCallbacks struct {
	OnUpdated   func(AccountEvent)
	OnSuspended func(AccountEvent)
}

// SubscribeAccountEvents registers the supplied account callbacks.
func (c *Client) SubscribeAccountEvents(cb AccountCallbacks) *Registration {
	reg := &Registration{client: c}
	typed(c, reg, TopicAccountUpdated, cb.OnUpdated)
	typed(c, reg, TopicAccountSuspended, cb.OnSuspended)
	return reg
}

// UnsubscribeAccountEvents removes every account handler.
func (c *Client) UnsubscribeAccountEvents() {
	c.UnsubscribeTopic(TopicAccountUpdated)
	c.UnsubscribeTopic(TopicAccountSuspended)
}
