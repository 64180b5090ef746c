package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxReconnectAttempts is the consecutive-failure budget
	// before the client goes terminally disconnected.
	DefaultMaxReconnectAttempts = 5
	// DefaultServerCloseRetryDelay is the delay before the single
	// supplementary manual reconnect after a server-initiated close.
	DefaultServerCloseRetryDelay = time.Second
)

// Options configures a Client. Transport is required; everything else
// has a usable default.
type Options struct {
	Transport Transport
	Scheduler Scheduler
	Logger    *slog.Logger

	// OnError receives diagnostic failures: dial errors, reconnect
	// errors, payload decode errors. Never invoked concurrently with
	// itself for the same connection.
	OnError func(error)
	// OnTerminalFailure fires exactly once when the reconnect budget is
	// exhausted and the client will not try again on its own.
	OnTerminalFailure func(error)

	MaxReconnectAttempts  int
	ServerCloseRetryDelay time.Duration
}

// Handler consumes an inbound event.
type Handler func(Envelope)

// Subscription identifies one registered handler so it can be removed
// individually.
type Subscription struct {
	topic string
	id    uint64
}

// Client keeps dashboards consistent with server-side mutations over a
// persistent authenticated channel. Each Client owns at most one
// channel; Connect is idempotent so repeated calls from multiple UI
// mount points are safe without caller-side coordination.
//
// Delivery is at-least-once: after a reconnect the transport may replay
// buffered state, so handlers must treat updates as idempotent upserts
// keyed by entity id. Per-topic ordering follows transport receipt
// order; nothing is guaranteed across topics.
type Client struct {
	opts Options

	mu       sync.Mutex
	state    State
	terminal bool
	conn     Conn
	token    string
	gen      uint64
	attempts int
	nextSub  uint64
	handlers map[string][]registration
	retry    Timer
}

type registration struct {
	id      uint64
	handler Handler
}

// NewClient constructs a Client. It does not dial; call Connect.
func NewClient(opts Options) (*Client, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("realtime: transport is required")
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewScheduler()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if opts.ServerCloseRetryDelay <= 0 {
		opts.ServerCloseRetryDelay = DefaultServerCloseRetryDelay
	}
	return &Client{
		opts:     opts,
		handlers: make(map[string][]registration),
	}, nil
}

// Connect opens the channel with the given bearer token. If the client
// is already connected the call is a no-op; a stale channel is torn
// down first. The token is stored for the supplementary reconnect path.
func (c *Client) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.state == StateConnected && c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.teardownLocked()
	c.terminal = false
	c.attempts = 0
	c.token = token
	c.state = StateConnecting
	gen := c.gen
	topics := c.topicsLocked()
	c.mu.Unlock()

	conn, err := c.opts.Transport.Dial(ctx, token)
	if err != nil {
		c.mu.Lock()
		if c.gen == gen {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		c.reportError(fmt.Errorf("realtime: connect: %w", err))
		return err
	}

	if len(topics) > 0 {
		if err := conn.Subscribe(ctx, topics...); err != nil {
			_ = conn.Close()
			c.mu.Lock()
			if c.gen == gen {
				c.state = StateDisconnected
			}
			c.mu.Unlock()
			c.reportError(fmt.Errorf("realtime: resubscribe: %w", err))
			return err
		}
	}

	c.mu.Lock()
	if c.gen != gen {
		// Disconnect raced the dial; the caller's answer is a closed
		// channel, not a half-adopted one.
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.state = StateConnected
	missed := c.missedTopicsLocked(topics)
	c.mu.Unlock()

	// Topics registered while the dial was in flight saw a nil conn in
	// Subscribe; attach them now so they are live on this channel.
	if len(missed) > 0 {
		if err := conn.Subscribe(ctx, missed...); err != nil {
			c.reportError(fmt.Errorf("realtime: resubscribe: %w", err))
		}
	}

	c.opts.Logger.Debug("realtime channel connected")
	go c.run(conn, gen)
	return nil
}

// Disconnect tears the channel down and removes every topic
// subscription so stale handlers cannot fire after teardown.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.teardownLocked()
	c.handlers = make(map[string][]registration)
	c.token = ""
	c.terminal = false
	c.attempts = 0
	c.mu.Unlock()
	c.opts.Logger.Debug("realtime channel disconnected")
}

// IsConnected reports whether the channel is currently established.
// After the reconnect budget is exhausted this stays false; callers
// that care about prolonged loss should also register
// OnTerminalFailure.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected && c.conn != nil
}

// ConnectionState returns the current lifecycle state.
func (c *Client) ConnectionState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a handler for a topic. Multiple handlers per
// topic fan out in registration order. The returned Subscription
// removes this handler specifically via Unsubscribe.
func (c *Client) Subscribe(topic string, h Handler) Subscription {
	c.mu.Lock()
	c.nextSub++
	sub := Subscription{topic: topic, id: c.nextSub}
	newTopic := len(c.handlers[topic]) == 0
	c.handlers[topic] = append(c.handlers[topic], registration{id: sub.id, handler: h})
	conn := c.conn
	c.mu.Unlock()

	c.opts.Logger.Debug("realtime subscribe", slog.String("topic", topic))
	if newTopic && conn != nil {
		if err := conn.Subscribe(context.Background(), topic); err != nil {
			c.reportError(fmt.Errorf("realtime: subscribe %s: %w", topic, err))
		}
	}
	return sub
}

// Unsubscribe removes the given handler. UnsubscribeTopic removes every
// handler for a topic at once.
func (c *Client) Unsubscribe(sub Subscription) {
	c.mu.Lock()
	regs := c.handlers[sub.topic]
	for i, reg := range regs {
		if reg.id == sub.id {
			c.handlers[sub.topic] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	emptied := len(c.handlers[sub.topic]) == 0
	if emptied {
		delete(c.handlers, sub.topic)
	}
	conn := c.conn
	c.mu.Unlock()

	c.opts.Logger.Debug("realtime unsubscribe", slog.String("topic", sub.topic))
	if emptied && conn != nil {
		if err := conn.Unsubscribe(context.Background(), sub.topic); err != nil {
			c.reportError(fmt.Errorf("realtime: unsubscribe %s: %w", sub.topic, err))
		}
	}
}

// UnsubscribeTopic removes all handlers registered for the topic.
func (c *Client) UnsubscribeTopic(topic string) {
	c.mu.Lock()
	_, had := c.handlers[topic]
	delete(c.handlers, topic)
	conn := c.conn
	c.mu.Unlock()

	c.opts.Logger.Debug("realtime unsubscribe topic", slog.String("topic", topic))
	if had && conn != nil {
		if err := conn.Unsubscribe(context.Background(), topic); err != nil {
			c.reportError(fmt.Errorf("realtime: unsubscribe %s: %w", topic, err))
		}
	}
}

// Send publishes a payload on a topic, fire-and-forget. On a
// disconnected channel this is a documented no-op with a warning, not
// an error: the channel carries non-critical UI signals, not durable
// commands, and callers must not assume delivery.
func (c *Client) Send(ctx context.Context, topic string, payload any) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected && conn != nil
	c.mu.Unlock()

	if !connected {
		c.opts.Logger.Warn("realtime send on disconnected channel", slog.String("topic", topic))
		return
	}
	env, err := NewEnvelope(topic, payload)
	if err != nil {
		c.reportError(err)
		return
	}
	data, err := env.marshal()
	if err != nil {
		c.reportError(err)
		return
	}
	c.opts.Logger.Debug("realtime send", slog.String("topic", topic), slog.String("event_id", env.ID))
	if err := conn.Publish(ctx, topic, data); err != nil {
		c.reportError(fmt.Errorf("realtime: send %s: %w", topic, err))
	}
}

// run consumes one connection until its channels close or the client
// moves on to a newer generation. A single goroutine per connection
// keeps per-topic delivery in transport receipt order.
func (c *Client) run(conn Conn, gen uint64) {
	messages := conn.Messages()
	events := conn.Events()
	for messages != nil || events != nil {
		select {
		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			c.dispatch(gen, msg)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.handleConnEvent(gen, ev)
		}
	}
	c.connFinished(gen)
}

func (c *Client) dispatch(gen uint64, msg Message) {
	env, err := decodeEnvelope(msg.Payload)
	if err != nil {
		// Tolerate bare payloads from older publishers: deliver them
		// raw under the transport topic.
		env = Envelope{Topic: msg.Topic, Data: msg.Payload}
	}
	if env.Topic == "" {
		env.Topic = msg.Topic
	}

	c.mu.Lock()
	if gen != c.gen {
		// A late in-flight delivery after Disconnect; registered
		// handlers must not see it.
		c.mu.Unlock()
		return
	}
	regs := c.handlers[env.Topic]
	snapshot := make([]Handler, len(regs))
	for i, reg := range regs {
		snapshot[i] = reg.handler
	}
	c.mu.Unlock()

	c.opts.Logger.Debug("realtime event",
		slog.String("topic", env.Topic),
		slog.String("event_id", env.ID),
		slog.Int("handlers", len(snapshot)),
	)
	for _, h := range snapshot {
		h(env)
	}
}

func (c *Client) handleConnEvent(gen uint64, ev ConnEvent) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	switch ev.Kind {
	case ConnEstablished:
		c.state = StateConnected
		c.attempts = 0
		c.mu.Unlock()
		c.opts.Logger.Debug("realtime channel established")

	case ConnDropped:
		c.state = StateReconnecting
		serverInitiated := ev.ServerInitiated
		c.mu.Unlock()
		c.opts.Logger.Warn("realtime channel dropped",
			slog.Bool("server_initiated", serverInitiated),
			slog.Any("error", ev.Err),
		)
		if serverInitiated {
			// A server-initiated close is assumed intentional and
			// recoverable: schedule one manual reconnect on top of the
			// transport's own recovery.
			c.scheduleManualReconnect(gen)
		}

	case ConnRetryFailed:
		c.attempts++
		attempts := c.attempts
		exhausted := attempts >= c.opts.MaxReconnectAttempts
		if exhausted {
			c.terminal = true
			c.state = StateDisconnected
			c.teardownConnLocked()
		}
		c.mu.Unlock()
		c.reportError(fmt.Errorf("realtime: reconnect attempt %d: %w", attempts, ev.Err))
		if exhausted {
			c.opts.Logger.Error("realtime reconnect budget exhausted",
				slog.Int("attempts", attempts),
			)
			if c.opts.OnTerminalFailure != nil {
				c.opts.OnTerminalFailure(fmt.Errorf("realtime: gave up after %d reconnect attempts: %w", attempts, ev.Err))
			}
		}

	default:
		c.mu.Unlock()
	}
}

// connFinished runs when a connection's channels close without an
// explicit Disconnect, meaning the transport's retry budget is gone.
func (c *Client) connFinished(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.terminal {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()
}

func (c *Client) scheduleManualReconnect(gen uint64) {
	c.mu.Lock()
	if c.retry != nil {
		c.retry.Stop()
	}
	token := c.token
	c.retry = c.opts.Scheduler.AfterFunc(c.opts.ServerCloseRetryDelay, func() {
		c.mu.Lock()
		stale := gen != c.gen || c.state == StateConnected
		c.mu.Unlock()
		if stale {
			return
		}
		c.opts.Logger.Info("realtime manual reconnect after server close")
		if err := c.Connect(context.Background(), token); err != nil {
			c.reportError(fmt.Errorf("realtime: manual reconnect: %w", err))
		}
	})
	c.mu.Unlock()
}

func (c *Client) reportError(err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
}

func (c *Client) topicsLocked() []string {
	topics := make([]string, 0, len(c.handlers))
	for topic := range c.handlers {
		topics = append(topics, topic)
	}
	return topics
}

// missedTopicsLocked returns topics in the registry that are absent
// from the pre-dial snapshot. Callers hold c.mu.
func (c *Client) missedTopicsLocked(before []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, topic := range before {
		seen[topic] = struct{}{}
	}
	var missed []string
	for topic := range c.handlers {
		if _, ok := seen[topic]; !ok {
			missed = append(missed, topic)
		}
	}
	return missed
}

// teardownLocked invalidates the current generation and closes the
// connection. Callers hold c.mu.
func (c *Client) teardownLocked() {
	c.gen++
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.teardownConnLocked()
	c.state = StateDisconnected
}

func (c *Client) teardownConnLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
