package models

import (
	"fmt"
	"time"
)

// TimelineKind selects the feed to build.
type TimelineKind string

const (
	TimelineTrending TimelineKind = "trending"
	TimelineForYou   TimelineKind = "forYou"
)

// ParseTimelineKind validates the kind query parameter.
func ParseTimelineKind(raw string) (TimelineKind, error) {
	switch TimelineKind(raw) {
	case TimelineTrending, TimelineForYou:
		return TimelineKind(raw), nil
	}
	return "", NewValidationError(fmt.Sprintf("Invalid timeline kind %q", raw))
}

// TimelineItemType tags the content of a TimelineItem.
type TimelineItemType string

const (
	ItemProject     TimelineItemType = "project"
	ItemBranch      TimelineItemType = "branch"
	ItemPost        TimelineItemType = "post"
	ItemInteraction TimelineItemType = "interaction"
)

// TimelineItem is one entry of a feed page. Content is a *Project, *Branch,
// *Post or *Interaction depending on Type.
type TimelineItem struct {
	Type      TimelineItemType `json:"type"`
	ID        uint             `json:"id"`
	Content   interface{}      `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Score     float64          `json:"score,omitempty"`
	// Interaction is set for interaction items and names the entity acted on.
	Interaction *EntityRef `json:"interaction,omitempty"`
}

// Key identifies the item across pages.
func (t TimelineItem) Key() string {
	return fmt.Sprintf("%s:%d", t.Type, t.ID)
}

// ItemFromEntity wraps e with its updated_at timestamp and trending score.
func ItemFromEntity(e Entity) TimelineItem {
	ref := e.Ref()
	return TimelineItem{
		Type:      TimelineItemType(ref.Type),
		ID:        ref.ID,
		Content:   e,
		Timestamp: e.Updated(),
		Score:     e.EngagementStats().TrendingScore,
	}
}

// ItemFromInteraction wraps an interaction event.
func ItemFromInteraction(i *Interaction) TimelineItem {
	ref := i.Ref()
	return TimelineItem{
		Type:        ItemInteraction,
		ID:          i.ID,
		Content:     i,
		Timestamp:   i.CreatedAt,
		Interaction: &ref,
	}
}

// TimelinePage is one page of a feed.
type TimelinePage struct {
	Items   []TimelineItem `json:"data"`
	HasMore bool           `json:"hasMore"`
}
