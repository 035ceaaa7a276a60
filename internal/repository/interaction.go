package repository

import (
	"context"
	"errors"
	"fmt"

	"canopy/internal/models"
	"canopy/internal/observability"
	"canopy/internal/visibility"

	"gorm.io/gorm"
)

// ActivityQuery selects engagement interactions made by a set of users on
// entities of one type that the filter admits.
type ActivityQuery struct {
	UserIDs    []uint
	EntityType models.EntityType
	Filter     visibility.Filter
	Limit      int
}

// InteractionRepository defines data operations for interactions.
type InteractionRepository interface {
	Toggle(ctx context.Context, userID uint, ref models.EntityRef, t models.InteractionType) (*models.ToggleResult, error)
	TypesForUser(ctx context.Context, userID uint, ref models.EntityRef) ([]models.InteractionType, error)
	ListByUsers(ctx context.Context, q ActivityQuery) ([]*models.Interaction, error)
}

type interactionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

// Toggle removes the user's interaction of type t on ref if present and
// creates it otherwise. When the insert loses a race against a concurrent
// toggle the unique index rejects it and the toggle is retried once, which
// then removes the row the other request created.
func (r *interactionRepository) Toggle(ctx context.Context, userID uint, ref models.EntityRef, t models.InteractionType) (*models.ToggleResult, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "Toggle", "interactions")
	defer span.End()
	defer observability.TrackQuery("toggle", "interactions")()

	result, err := r.toggleOnce(ctx, userID, ref, t)
	if err != nil && isUniqueConstraintError(err) {
		observability.InteractionToggleRetries.Inc()
		result, err = r.toggleOnce(ctx, userID, ref, t)
	}
	if err != nil {
		span.RecordError(err)
		return nil, models.NewInternalError(err)
	}
	return result, nil
}

func (r *interactionRepository) toggleOnce(ctx context.Context, userID uint, ref models.EntityRef, t models.InteractionType) (*models.ToggleResult, error) {
	var result *models.ToggleResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Interaction
		err := tx.Where("entity_type = ? AND entity_id = ? AND user_id = ? AND type = ?", ref.Type, ref.ID, userID, t).
			Take(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			result = &models.ToggleResult{Action: models.ToggleRemoved, Interaction: &existing}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			created := &models.Interaction{EntityType: ref.Type, EntityID: ref.ID, UserID: userID, Type: t}
			if err := tx.Create(created).Error; err != nil {
				return err
			}
			result = &models.ToggleResult{Action: models.ToggleAdded, Interaction: created}
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *interactionRepository) TypesForUser(ctx context.Context, userID uint, ref models.EntityRef) ([]models.InteractionType, error) {
	types := []models.InteractionType{}
	err := r.db.WithContext(ctx).Model(&models.Interaction{}).
		Where("entity_type = ? AND entity_id = ? AND user_id = ?", ref.Type, ref.ID, userID).
		Order("type ASC").
		Pluck("type", &types).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return types, nil
}

// ListByUsers returns LIKE, SHARE and BOOKMARK interactions ordered
// created_at DESC, id ASC. Interactions on entities the filter hides are
// excluded in SQL.
func (r *interactionRepository) ListByUsers(ctx context.Context, q ActivityQuery) ([]*models.Interaction, error) {
	if len(q.UserIDs) == 0 || q.Limit <= 0 {
		return []*models.Interaction{}, nil
	}
	table := q.EntityType.Table()
	if table == "" {
		return nil, models.NewValidationError(fmt.Sprintf("Invalid entity type %q", q.EntityType))
	}

	ctx, span := observability.TraceRepositoryMethod(ctx, "ListByUsers", "interactions")
	defer span.End()
	defer observability.TrackQuery("list_by_users", "interactions")()

	var interactions []*models.Interaction
	err := r.db.WithContext(ctx).
		Joins(fmt.Sprintf("JOIN %[1]s ON %[1]s.id = interactions.entity_id", table)).
		Scopes(q.Filter.Scope(q.EntityType)).
		Where("interactions.entity_type = ? AND interactions.user_id IN ? AND interactions.type IN ?",
			q.EntityType, q.UserIDs, models.EngagementTypes).
		Preload("User").
		Order("interactions.created_at DESC").
		Order("interactions.id ASC").
		Limit(q.Limit).
		Find(&interactions).Error
	if err != nil {
		span.RecordError(err)
		return nil, models.NewInternalError(err)
	}
	return interactions, nil
}
