// Package notifications relays realtime activity to websocket clients
// through Redis pub/sub.
package notifications

import (
	"context"
	"runtime/debug"
	"strconv"
	"strings"

	"canopy/internal/middleware"
	"canopy/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	// ActivityChannel carries events about public entities.
	ActivityChannel = "activity:public"

	userChannelPrefix = "notifications:user:"
)

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishActivity broadcasts event and, when it has an owner, copies it to
// the owner's channel.
func (n *Notifier) PublishActivity(ctx context.Context, event ActivityEvent) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := event.Encode()
	if err != nil {
		return err
	}

	pipe := n.rdb.Pipeline()
	pipe.Publish(ctx, ActivityChannel, payload)
	if event.OwnerID != 0 && event.OwnerID != event.Payload.ActorID {
		pipe.Publish(ctx, UserChannel(event.OwnerID), payload)
	}
	_, err = pipe.Exec(ctx)
	if err == nil {
		observability.WebSocketEventsTotal.WithLabelValues(event.Type).Inc()
	}
	return err
}

// StartSubscriber subscribes to user channels and the public activity
// channel and calls onMessage for each incoming message until ctx is done.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", ActivityChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
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
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in activity subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user id from a channel produced by UserChannel.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
