package notifications

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_PublishUser(t *testing.T) {
	// Notifier with nil Redis should return nil error (fail-open/noop)
	n := NewNotifier(nil)
	err := n.PublishUser(context.Background(), 1, "test payload")
	assert.NoError(t, err)
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
	}
}

func TestParseUserChannel(t *testing.T) {
	t.Parallel()

	userID, err := ParseUserChannel("notifications:user:42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)

	_, err = ParseUserChannel("notifications:broadcast")
	assert.Error(t, err)
}

func TestNotifier_PatternSubscriberDelivers(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received int32
	channels := make(chan string, 2)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel string, _ string) {
		atomic.AddInt32(&received, 1)
		channels <- channel
	}))

	require.NoError(t, n.PublishUser(context.Background(), 7, `{"type":"notification"}`))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) >= 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "notifications:user:7", <-channels)
}

func TestNotifier_PatternSubscriberStopsOnCancel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	var received int32
	require.NoError(t, n.StartPatternSubscriber(ctx, func(string, string) {
		atomic.AddInt32(&received, 1)
	}))

	require.NoError(t, n.PublishBroadcast(context.Background(), "before-cancel"))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) >= 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	before := atomic.LoadInt32(&received)

	require.NoError(t, n.PublishBroadcast(context.Background(), "after-cancel"))
	assert.Never(t, func() bool {
		return atomic.LoadInt32(&received) > before
	}, 200*time.Millisecond, 20*time.Millisecond)
}
