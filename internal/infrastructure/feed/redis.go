package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisNotifier relays changes through a Redis pub/sub channel so that every
// instance sharing the server sees every write
type RedisNotifier struct {
	client  *redis.Client
	channel string
	hub     *hub
	logger  *zap.Logger

	cancel   context.CancelFunc
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewRedisNotifier subscribes to channel and starts relaying. The client is
// shared and not closed by Close.
func NewRedisNotifier(ctx context.Context, client *redis.Client, channel string, logger *zap.Logger) (*RedisNotifier, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	pubsub := client.Subscribe(subCtx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	n := &RedisNotifier{
		client:  client,
		channel: channel,
		hub:     newHub(logger),
		logger:  logger,
		cancel:  cancel,
		doneCh:  make(chan struct{}),
	}
	go n.relay(subCtx, pubsub)

	logger.Info("Subscribed to change channel", zap.String("channel", channel))
	return n, nil
}

// Publish sends the change to every instance, this one included
func (n *RedisNotifier) Publish(ctx context.Context, change Change) error {
	if change.Timestamp == 0 {
		change.Timestamp = time.Now().UnixNano()
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change on %s: %w", n.channel, err)
	}
	return nil
}

// Subscribe registers fn for changes to the tenant's collection
func (n *RedisNotifier) Subscribe(c shared.Collection, companyID string, fn func(Change)) (func(), error) {
	select {
	case <-n.doneCh:
		return nil, ErrClosed
	default:
	}
	return n.hub.add(Topic(c, companyID), fn), nil
}

// Close stops relaying and waits for the relay goroutine
func (n *RedisNotifier) Close() error {
	n.stopOnce.Do(n.cancel)
	<-n.doneCh
	return nil
}

func (n *RedisNotifier) relay(ctx context.Context, pubsub *redis.PubSub) {
	defer close(n.doneCh)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				n.logger.Warn("Change channel closed", zap.String("channel", n.channel))
				return
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				n.logger.Warn("Dropping malformed change message",
					zap.String("channel", n.channel),
					zap.Error(err),
				)
				continue
			}
			n.hub.dispatch(change)
		}
	}
}

var _ Notifier = (*RedisNotifier)(nil)
