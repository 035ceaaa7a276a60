package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"canopy/internal/models"

	"github.com/google/uuid"
)

// EventInteractionToggled is emitted after a toggle on a public entity.
const EventInteractionToggled = "interaction_toggled"

// ActivityEvent is the websocket envelope for realtime activity.
type ActivityEvent struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	OccurredAt time.Time           `json:"occurred_at"`
	Payload    InteractionActivity `json:"payload"`
	// OwnerID receives the event on the owner's channel as well.
	OwnerID uint `json:"-"`
}

// InteractionActivity describes a toggle.
type InteractionActivity struct {
	Entity  models.EntityRef       `json:"entity"`
	ActorID uint                   `json:"actor_id"`
	Kind    models.InteractionType `json:"interaction_type"`
	Action  models.ToggleAction    `json:"action"`
}

// NewInteractionToggled builds the event for a completed toggle.
func NewInteractionToggled(ref models.EntityRef, ownerID, actorID uint, result *models.ToggleResult) ActivityEvent {
	activity := InteractionActivity{Entity: ref, ActorID: actorID, Action: result.Action}
	if result.Interaction != nil {
		activity.Kind = result.Interaction.Type
	}
	return ActivityEvent{
		ID:         uuid.NewString(),
		Type:       EventInteractionToggled,
		OccurredAt: time.Now().UTC(),
		Payload:    activity,
		OwnerID:    ownerID,
	}
}

// Encode marshals the event for transport.
func (e ActivityEvent) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal activity event: %w", err)
	}
	return string(b), nil
}
