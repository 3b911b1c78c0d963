package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/kiosk-service/internal/session"
)

// RedisPublisher broadcasts notifications to kiosk displays over Redis pub/sub
// and keeps the latest one under a key so a display that reconnects can
// redraw without waiting for the next event.
type RedisPublisher struct {
	client         *redis.Client
	channel        string
	queue          chan session.Notification
	log            *zap.Logger
	lastTTL        time.Duration
	publishTimeout time.Duration
}

func NewRedisPublisher(client *redis.Client, channel string, log *zap.Logger, buffer int) *RedisPublisher {
	if buffer <= 0 {
		buffer = 128
	}
	return &RedisPublisher{
		client:         client,
		channel:        channel,
		queue:          make(chan session.Notification, buffer),
		log:            log,
		lastTTL:        15 * time.Minute,
		publishTimeout: 2 * time.Second,
	}
}

// Notify enqueues n without blocking. When the queue is full the
// notification is dropped.
func (p *RedisPublisher) Notify(n session.Notification) {
	select {
	case p.queue <- n:
	default:
		p.log.Warn("notification queue full, dropping",
			zap.String("type", string(n.Kind)),
			zap.String("session_id", n.SessionID))
	}
}

// Run publishes queued notifications until ctx is cancelled.
func (p *RedisPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-p.queue:
			if err := p.publish(ctx, n); err != nil {
				p.log.Warn("failed to publish notification",
					zap.String("type", string(n.Kind)),
					zap.Error(err))
			}
		}
	}
}

func (p *RedisPublisher) publish(ctx context.Context, n session.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}

	ctx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	_, err = p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.channel, payload)
		pipe.Set(ctx, lastKey(p.channel), payload, p.lastTTL)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "redis publish failed")
	}
	return nil
}

// Last returns the most recently published notification, if any.
func (p *RedisPublisher) Last(ctx context.Context) (*session.Notification, error) {
	data, err := p.client.Get(ctx, lastKey(p.channel)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get failed")
	}
	var n session.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, errors.Wrap(err, "unmarshal notification failed")
	}
	return &n, nil
}

func lastKey(channel string) string {
	return fmt.Sprintf("%s:last", channel)
}
