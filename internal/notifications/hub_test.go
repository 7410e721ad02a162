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

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	clientA, err := hub.Register(10, nil)
	require.NoError(t, err)
	clientB, err := hub.Register(10, nil)
	require.NoError(t, err)
	assert.True(t, hub.IsOnline(10))

	hub.UnregisterClient(clientA)
	assert.True(t, hub.IsOnline(10), "one connection still open")

	hub.UnregisterClient(clientB)
	assert.False(t, hub.IsOnline(10))

	// Double unregister must not corrupt the count.
	hub.UnregisterClient(clientB)
	assert.False(t, hub.IsOnline(10))
}

func TestHub_PerUserConnectionLimit(t *testing.T) {
	hub := NewHub()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(5, nil)
		require.NoError(t, err)
	}

	_, err := hub.Register(5, nil)
	assert.Error(t, err)
}

// Shutdown must leave the hub empty and reusable: nobody online, limits
// reset, and new registrations accepted.
func TestHub_ShutdownEmptiesHub(t *testing.T) {
	hub := NewHub()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(7, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(8, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))

	assert.False(t, hub.IsOnline(7))
	assert.False(t, hub.IsOnline(8))

	// The per-user limit counts from zero again.
	_, err = hub.Register(7, nil)
	require.NoError(t, err)
}

func TestHub_BroadcastReachesOnlyTargetUser(t *testing.T) {
	hub := NewHub()

	target, err := hub.Register(1, nil)
	require.NoError(t, err)
	other, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.Broadcast(1, "hello")

	select {
	case msg := <-target.Send:
		assert.Equal(t, "hello", string(msg))
	default:
		t.Fatal("target client received nothing")
	}

	select {
	case <-other.Send:
		t.Fatal("other user should not receive the message")
	default:
	}
}

func TestHub_WiringForwardsPublishedEvents(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	hub := NewHub()
	client, err := hub.Register(44, nil)
	require.NoError(t, err)

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	var delivered int32
	go func() {
		<-client.Send
		atomic.AddInt32(&delivered, 1)
	}()

	require.NoError(t, n.PublishUser(context.Background(), 44, `{"type":"notification"}`))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&delivered) == 1
	}, testEventuallyTimeout, testPollInterval)
}
