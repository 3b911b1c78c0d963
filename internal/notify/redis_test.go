package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"github.com/fjod/go_cart/kiosk-service/internal/session"
)

const testChannel = "kiosk:session"

// setupTestRedis creates a miniredis server and a publisher on top of it.
func setupTestRedis(t *testing.T, buffer int) (*RedisPublisher, *redis.Client, *miniredis.Miniredis, *observer.ObservedLogs) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	core, logs := observer.New(zap.DebugLevel)
	return NewRedisPublisher(client, testChannel, zap.New(core), buffer), client, mr, logs
}

func runPublisher(t *testing.T, p *RedisPublisher) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestRedisPublisher_PublishesNotification(t *testing.T) {
	p, client, _, _ := setupTestRedis(t, 8)
	ctx := context.Background()

	sub := client.Subscribe(ctx, testChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	runPublisher(t, p)
	p.Notify(session.Notification{
		Kind:      session.KindStateChanged,
		SessionID: "s-1",
		From:      domain.StateIdle,
		State:     domain.StateScanning,
	})

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, "state_changed", got["type"])
	assert.Equal(t, "s-1", got["session_id"])
	assert.Equal(t, "SCANNING", got["state"])
	assert.Equal(t, "IDLE", got["from"])
}

func TestRedisPublisher_KeepsLastNotification(t *testing.T) {
	p, _, mr, _ := setupTestRedis(t, 8)
	ctx := context.Background()

	last, err := p.Last(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	runPublisher(t, p)
	p.Notify(session.Notification{Kind: session.KindCartChanged, SessionID: "s-1", Total: "$1.50"})
	p.Notify(session.Notification{Kind: session.KindCartChanged, SessionID: "s-1", Total: "$3.99"})

	require.Eventually(t, func() bool {
		n, err := p.Last(ctx)
		return err == nil && n != nil && n.Total == "$3.99"
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, mr.Exists(lastKey(testChannel)))
	assert.Greater(t, mr.TTL(lastKey(testChannel)), time.Duration(0))
}

func TestRedisPublisher_DropsWhenQueueFull(t *testing.T) {
	p, _, _, logs := setupTestRedis(t, 1)

	// nothing drains the queue yet
	p.Notify(session.Notification{Kind: session.KindTimerTick, Remaining: 3})
	p.Notify(session.Notification{Kind: session.KindTimerTick, Remaining: 2})

	assert.Equal(t, 1, logs.FilterMessage("notification queue full, dropping").Len())
	assert.Len(t, p.queue, 1)
}

func TestRedisPublisher_RedisDown(t *testing.T) {
	p, _, mr, logs := setupTestRedis(t, 8)
	mr.Close()

	runPublisher(t, p)
	p.Notify(session.Notification{Kind: session.KindQRReady})

	require.Eventually(t, func() bool {
		return logs.FilterMessage("failed to publish notification").Len() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestLastKey(t *testing.T) {
	assert.Equal(t, "kiosk:session:last", lastKey("kiosk:session"))
}
