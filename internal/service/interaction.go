package service

import (
	"context"
	"slices"

	"canopy/internal/featureflags"
	"canopy/internal/middleware"
	"canopy/internal/models"
	"canopy/internal/notifications"
	"canopy/internal/observability"
	"canopy/internal/repository"
	"canopy/internal/visibility"

	"go.opentelemetry.io/otel/attribute"
)

// ActivityPublisher relays interaction events to realtime subscribers.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, event notifications.ActivityEvent) error
}

// InteractionService toggles typed reactions on visible entities.
type InteractionService struct {
	entities     repository.EntityRepository
	interactions repository.InteractionRepository
	publisher    ActivityPublisher
	flags        *featureflags.Manager
}

// NewInteractionService returns a new InteractionService. publisher may be nil.
func NewInteractionService(
	entities repository.EntityRepository,
	interactions repository.InteractionRepository,
	publisher ActivityPublisher,
	flags *featureflags.Manager,
) *InteractionService {
	return &InteractionService{
		entities:     entities,
		interactions: interactions,
		publisher:    publisher,
		flags:        flags,
	}
}

// Toggle adds the viewer's interaction of type t on ref, or removes it if it
// exists. Visibility is checked again at mutation time, so an entity that
// became private since it was read answers NotFound.
func (s *InteractionService) Toggle(ctx context.Context, viewer *models.Viewer, ref models.EntityRef, t models.InteractionType) (result *models.ToggleResult, err error) {
	span, ctx := observability.NewSpan(ctx, "interaction.toggle",
		attribute.String("entity.ref", ref.String()),
		attribute.String("interaction.type", string(t)),
	)
	defer func() { span.End(err) }()

	if viewer == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if t, err = models.ParseInteractionType(string(t)); err != nil {
		return nil, err
	}
	if _, err = models.ParseEntityType(string(ref.Type)); err != nil {
		return nil, err
	}

	entity, err := s.entities.FindUnique(ctx, ref, visibility.ForViewer(viewer))
	if err != nil {
		return nil, err
	}

	result, err = s.interactions.Toggle(ctx, viewer.ID, ref, t)
	if err != nil {
		return nil, err
	}
	observability.InteractionToggles.WithLabelValues(string(t), string(result.Action)).Inc()

	s.publish(ctx, entity, viewer.ID, result)
	return result, nil
}

// publish announces engagement toggles on entities anyone may see. Reports
// and hides stay private to the actor. Failures are logged; the toggle has
// already committed.
func (s *InteractionService) publish(ctx context.Context, entity models.Entity, actorID uint, result *models.ToggleResult) {
	if s.publisher == nil || !s.flags.Enabled(featureflags.RealtimeActivity, actorID) {
		return
	}
	if result.Interaction == nil || !slices.Contains(models.EngagementTypes, result.Interaction.Type) {
		return
	}
	if !visibility.ForViewer(nil).Allows(entity.Access()) {
		return
	}
	event := notifications.NewInteractionToggled(entity.Ref(), entity.OwnerID(), actorID, result)
	if err := s.publisher.PublishActivity(ctx, event); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish activity",
			"entity", entity.Ref().String(), "error", err.Error())
	}
}
