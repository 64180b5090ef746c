package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultChannelPrefix namespaces pub/sub channels so several
	// deployments can share one redis.
	DefaultChannelPrefix = "lodgeline:rt:"

	dialTimeout     = 5 * time.Second
	retryBaseDelay  = 500 * time.Millisecond
	retryMaxDelay   = 8 * time.Second
	retryMaxAttempt = DefaultMaxReconnectAttempts
)

// RedisTransport dials authenticated channels over redis pub/sub. The
// bearer token is presented as the redis credential. Reconnection is
// handled here with bounded exponential backoff; the Client only layers
// its supplementary manual reconnect on top.
type RedisTransport struct {
	Addr     string
	Username string
	Prefix   string
	Logger   *slog.Logger
}

// NewRedisTransport constructs a transport for the given address.
func NewRedisTransport(addr, prefix string, logger *slog.Logger) *RedisTransport {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisTransport{Addr: addr, Prefix: prefix, Logger: logger}
}

// Dial opens and acknowledges the channel.
func (t *RedisTransport) Dial(ctx context.Context, token string) (Conn, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     t.Addr,
		Username: t.Username,
		Password: token,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("realtime: redis dial: %w", err)
	}

	conn := &redisConn{
		client: client,
		pubsub: client.Subscribe(context.Background()),
		prefix: t.Prefix,
		logger: t.Logger,
		msgs:   make(chan Message, 64),
		events: make(chan ConnEvent, 16),
		topics: make(map[string]struct{}),
		closed: make(chan struct{}),
	}
	go conn.pump()
	return conn, nil
}

type redisConn struct {
	client *redis.Client
	pubsub *redis.PubSub
	prefix string
	logger *slog.Logger

	msgs   chan Message
	events chan ConnEvent

	mu     sync.Mutex
	topics map[string]struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

func (c *redisConn) Subscribe(ctx context.Context, topics ...string) error {
	if len(topics) == 0 {
		return nil
	}
	channels := make([]string, len(topics))
	for i, topic := range topics {
		channels[i] = c.prefix + topic
	}
	if err := c.pubsub.Subscribe(ctx, channels...); err != nil {
		return fmt.Errorf("realtime: redis subscribe: %w", err)
	}
	c.mu.Lock()
	for _, topic := range topics {
		c.topics[topic] = struct{}{}
	}
	c.mu.Unlock()
	return nil
}

func (c *redisConn) Unsubscribe(ctx context.Context, topics ...string) error {
	if len(topics) == 0 {
		return nil
	}
	channels := make([]string, len(topics))
	for i, topic := range topics {
		channels[i] = c.prefix + topic
	}
	if err := c.pubsub.Unsubscribe(ctx, channels...); err != nil {
		return fmt.Errorf("realtime: redis unsubscribe: %w", err)
	}
	c.mu.Lock()
	for _, topic := range topics {
		delete(c.topics, topic)
	}
	c.mu.Unlock()
	return nil
}

func (c *redisConn) Publish(ctx context.Context, topic string, payload []byte) error {
	return c.client.Publish(ctx, c.prefix+topic, payload).Err()
}

func (c *redisConn) Messages() <-chan Message { return c.msgs }

func (c *redisConn) Events() <-chan ConnEvent { return c.events }

func (c *redisConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.pubsub.Close()
		if cerr := c.client.Close(); err == nil {
			err = cerr
		}
	})
	return err
}

func (c *redisConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// pump reads the subscription until the conn is closed or the retry
// budget is exhausted, then closes both outbound channels.
func (c *redisConn) pump() {
	defer close(c.msgs)
	defer close(c.events)

	c.emit(ConnEvent{Kind: ConnEstablished})
	for {
		msg, err := c.pubsub.ReceiveMessage(context.Background())
		if err != nil {
			if c.isClosed() {
				return
			}
			if !c.recover(err) {
				return
			}
			continue
		}
		select {
		case c.msgs <- Message{Topic: strings.TrimPrefix(msg.Channel, c.prefix), Payload: []byte(msg.Payload)}:
		case <-c.closed:
			return
		}
	}
}

// recover runs the transport's reconnect policy after a receive error.
// Returns false when the budget is exhausted or the conn was closed.
func (c *redisConn) recover(cause error) bool {
	c.emit(ConnEvent{
		Kind:            ConnDropped,
		Err:             cause,
		ServerInitiated: isServerInitiated(cause),
	})

	for attempt := 1; attempt <= retryMaxAttempt; attempt++ {
		if !c.sleep(backoffDelay(attempt)) {
			return false
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		err := c.client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			// go-redis re-subscribes the PubSub's channels itself once
			// the connection is back.
			c.emit(ConnEvent{Kind: ConnEstablished})
			return true
		}
		if c.isClosed() {
			return false
		}
		c.logger.Debug("realtime redis reconnect failed",
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		c.emit(ConnEvent{Kind: ConnRetryFailed, Attempt: attempt, Err: err})
	}
	return false
}

func (c *redisConn) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.closed:
		return false
	}
}

func (c *redisConn) emit(ev ConnEvent) {
	select {
	case c.events <- ev:
	case <-c.closed:
	}
}

// backoffDelay is bounded exponential: base doubles per attempt, capped.
func backoffDelay(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	if d > retryMaxDelay {
		return retryMaxDelay
	}
	return d
}

// isServerInitiated classifies a drop cause. Protocol-level error
// replies and a clean EOF mean the server ended the channel on purpose;
// anything else is ambient network loss.
func isServerInitiated(err error) bool {
	var redisErr redis.Error
	if errors.As(err, &redisErr) && !errors.Is(err, redis.Nil) {
		return true
	}
	return errors.Is(err, io.EOF)
}
