// Package notifications provides notification persistence and real-time delivery.
package notifications

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	broadcastChannel  = "notifications:broadcast"
)

// Notifier publishes notification payloads into Redis pub/sub channels. Every
// method tolerates a nil client so redis-less deployments degrade to
// persistence without delivery.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier returns a Notifier over the given Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a payload to one user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a payload to every connected user.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, broadcastChannel, payload).Err()
}

// StartPatternSubscriber subscribes to all user channels plus the broadcast
// channel and invokes onMessage for each payload. The subscription runs on
// its own goroutine until ctx is cancelled; a panicking callback is logged
// and does not kill the loop.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", broadcastChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				deliver(onMessage, msg.Channel, msg.Payload)
			}
		}
	}()
	return nil
}

func deliver(onMessage func(channel, payload string), channel, payload string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic in notification subscriber: %v\n%s", r, debug.Stack())
		}
	}()
	onMessage(channel, payload)
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user ID from a notifications:user:<id>
// channel name.
func ParseUserChannel(channel string) (uint, error) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, fmt.Errorf("not a user channel: %q", channel)
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid user channel %q: %w", channel, err)
	}
	return uint(id), nil
}
