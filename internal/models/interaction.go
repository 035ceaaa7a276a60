package models

import (
	"fmt"
	"strings"
	"time"
)

// InteractionType is a typed reaction a user can toggle on an entity.
type InteractionType string

const (
	InteractionLike     InteractionType = "LIKE"
	InteractionShare    InteractionType = "SHARE"
	InteractionBookmark InteractionType = "BOOKMARK"
	InteractionReport   InteractionType = "REPORT"
	InteractionHide     InteractionType = "HIDE"
)

// EngagementTypes are the interaction types that count towards popularity,
// activity and the For You feed.
var EngagementTypes = []InteractionType{InteractionLike, InteractionShare, InteractionBookmark}

// ParseInteractionType validates raw case-insensitively.
func ParseInteractionType(raw string) (InteractionType, error) {
	t := InteractionType(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case InteractionLike, InteractionShare, InteractionBookmark, InteractionReport, InteractionHide:
		return t, nil
	}
	return "", NewValidationError(fmt.Sprintf("Invalid interaction type %q", raw))
}

// Interaction links a user to an entity. At most one row exists per
// (entity, user, type).
type Interaction struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	EntityType EntityType      `gorm:"size:16;not null;uniqueIndex:idx_interactions_unique,priority:1;index:idx_interactions_entity,priority:1" json:"entity_type"`
	EntityID   uint            `gorm:"not null;uniqueIndex:idx_interactions_unique,priority:2;index:idx_interactions_entity,priority:2" json:"entity_id"`
	UserID     uint            `gorm:"not null;uniqueIndex:idx_interactions_unique,priority:3;index" json:"user_id"`
	Type       InteractionType `gorm:"size:16;not null;uniqueIndex:idx_interactions_unique,priority:4" json:"type"`
	User       *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
}

// Ref returns the entity the interaction points at.
func (i *Interaction) Ref() EntityRef {
	return EntityRef{Type: i.EntityType, ID: i.EntityID}
}

// ToggleAction reports what a toggle did.
type ToggleAction string

const (
	ToggleAdded   ToggleAction = "added"
	ToggleRemoved ToggleAction = "removed"
)

// ToggleResult is returned by an interaction toggle.
type ToggleResult struct {
	Action      ToggleAction `json:"action"`
	Interaction *Interaction `json:"interaction"`
}
