package server

import (
	"context"

	"canopy/internal/notifications"
	"canopy/internal/observability"
)

// activityRelay publishes activity through Redis when available so every
// instance's hub receives it. Without Redis it delivers to the local hub
// directly, with the same channel semantics.
type activityRelay struct {
	hub      *notifications.Hub
	notifier *notifications.Notifier
}

func (r *activityRelay) PublishActivity(ctx context.Context, event notifications.ActivityEvent) error {
	if r.notifier != nil {
		return r.notifier.PublishActivity(ctx, event)
	}
	if r.hub == nil {
		return nil
	}

	payload, err := event.Encode()
	if err != nil {
		return err
	}
	r.hub.Dispatch(notifications.ActivityChannel, payload)
	if event.OwnerID != 0 && event.OwnerID != event.Payload.ActorID {
		r.hub.Dispatch(notifications.UserChannel(event.OwnerID), payload)
	}
	observability.WebSocketEventsTotal.WithLabelValues(event.Type).Inc()
	return nil
}
