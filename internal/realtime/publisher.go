package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Publisher is the server-side counterpart of the Client: domain
// services and background jobs push mutation events through it after a
// successful write. Best effort; a lost event costs a dashboard one
// refresh, not data.
type Publisher struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
	onEmit func(topic string)
}

// NewPublisher constructs a Publisher on an existing redis client.
func NewPublisher(client *redis.Client, prefix string, logger *slog.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, prefix: prefix, logger: logger}
}

// OnEmit installs a hook invoked after every successful publish, used
// for metrics.
func (p *Publisher) OnEmit(fn func(topic string)) {
	p.onEmit = fn
}

// Emit publishes an enveloped payload on the topic.
func (p *Publisher) Emit(ctx context.Context, topic string, payload any) error {
	env, err := NewEnvelope(topic, payload)
	if err != nil {
		return err
	}
	data, err := env.marshal()
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.prefix+topic, data).Err(); err != nil {
		return fmt.Errorf("realtime: publish %s: %w", topic, err)
	}
	if p.onEmit != nil {
		p.onEmit(topic)
	}
	p.logger.Debug("realtime emit",
		slog.String("topic", topic),
		slog.String("event_id", env.ID),
	)
	return nil
}
