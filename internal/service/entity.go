package service

import (
	"context"

	"canopy/internal/models"
	"canopy/internal/repository"
	"canopy/internal/visibility"
)

// EntityPage is one page of an entity listing.
type EntityPage struct {
	Items   []models.Entity `json:"data"`
	HasMore bool            `json:"hasMore"`
}

// EntityService serves single-entity reads and the viewer's own listings.
type EntityService struct {
	entities     repository.EntityRepository
	interactions repository.InteractionRepository
	limits       PageLimits
}

// NewEntityService returns a new EntityService.
func NewEntityService(entities repository.EntityRepository, interactions repository.InteractionRepository, limits PageLimits) *EntityService {
	return &EntityService{entities: entities, interactions: interactions, limits: limits}
}

// Get returns the entity if the viewer may see it, with engagement counters,
// trending flags and the viewer's own interaction types attached.
func (s *EntityService) Get(ctx context.Context, viewer *models.Viewer, ref models.EntityRef) (models.Entity, error) {
	entity, err := s.entities.FindUnique(ctx, ref, visibility.ForViewer(viewer))
	if err != nil {
		return nil, err
	}
	if viewer == nil {
		return entity, nil
	}

	types, err := s.interactions.TypesForUser(ctx, viewer.ID, ref)
	if err != nil {
		return nil, err
	}
	entity.EngagementStats().ViewerInteractions = types
	return entity, nil
}

// ListMine returns the viewer's own entities of type t, most recently updated first.
func (s *EntityService) ListMine(ctx context.Context, viewer *models.Viewer, t models.EntityType, page, pageSize int) (*EntityPage, error) {
	filter, err := visibility.OwnerFilter(viewer)
	if err != nil {
		return nil, err
	}
	p, err := NewPage(page, pageSize, s.limits)
	if err != nil {
		return nil, err
	}

	items, err := s.entities.FindMany(ctx, repository.FindManyParams{
		Type:   t,
		Filter: filter,
		Order:  repository.OrderRecent,
		Offset: p.Skip(),
		Limit:  p.Size,
	})
	if err != nil {
		return nil, err
	}
	return &EntityPage{Items: items, HasMore: len(items) == p.Size}, nil
}

// Delete removes one of the viewer's own entities together with its
// descendants and their interactions. Entities the viewer did not author
// answer NotFound.
func (s *EntityService) Delete(ctx context.Context, viewer *models.Viewer, ref models.EntityRef) error {
	filter, err := visibility.OwnerFilter(viewer)
	if err != nil {
		return err
	}
	if _, err := s.entities.FindUnique(ctx, ref, filter); err != nil {
		return err
	}
	return s.entities.Delete(ctx, ref)
}
