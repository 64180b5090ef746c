package realtime

import (
	"context"
	"time"
)

// Message is a single inbound event as the transport received it.
// Messages for a given topic arrive on Conn.Messages in the order the
// transport received them; no ordering holds across topics and no
// deduplication is performed.
type Message struct {
	Topic   string
	Payload []byte
}

// ConnEventKind classifies connection lifecycle notifications.
type ConnEventKind int

const (
	// ConnEstablished fires on the initial acknowledgment and again on
	// every successful re-authentication after a drop.
	ConnEstablished ConnEventKind = iota
	// ConnDropped fires when the channel is lost. ServerInitiated
	// distinguishes an explicit server-side close from ambient network
	// loss.
	ConnDropped
	// ConnRetryFailed fires once per failed automatic reconnect
	// attempt inside the transport's own backoff policy.
	ConnRetryFailed
)

// ConnEvent is a connection lifecycle notification.
type ConnEvent struct {
	Kind            ConnEventKind
	Err             error
	Attempt         int
	ServerInitiated bool
}

// Conn is an authenticated bidirectional channel. Implementations own
// their reconnection policy: bounded exponential backoff, capped
// attempts, with each failed attempt reported as ConnRetryFailed and
// recovery reported as ConnEstablished. Both channels close when the
// conn is finished, either through Close or through an exhausted retry
// budget.
type Conn interface {
	Subscribe(ctx context.Context, topics ...string) error
	Unsubscribe(ctx context.Context, topics ...string) error
	Publish(ctx context.Context, topic string, payload []byte) error
	Messages() <-chan Message
	Events() <-chan ConnEvent
	Close() error
}

// Transport dials authenticated channels. The token is an opaque bearer
// credential supplied by the session layer; transports neither validate
// nor refresh it.
type Transport interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

// Scheduler abstracts deferred execution so reconnect timing is
// deterministic under test instead of wall-clock dependent.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancelable pending callback.
type Timer interface {
	Stop() bool
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// NewScheduler returns the wall-clock scheduler.
func NewScheduler() Scheduler {
	return realScheduler{}
}
