package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"canopy/internal/cache"
	"canopy/internal/models"
	"canopy/internal/observability"
	"canopy/internal/trending"
	"canopy/internal/visibility"

	"gorm.io/gorm"
)

// EntityOrder selects the ordering of a FindMany query.
type EntityOrder int

const (
	// OrderTrending sorts by trending_score DESC, updated_at DESC, id ASC.
	OrderTrending EntityOrder = iota
	// OrderRecent sorts by updated_at DESC, id ASC.
	OrderRecent
)

// TrendingSnapshotSize is how many rows of each table the anonymous trending
// cache holds.
const TrendingSnapshotSize = 200

// FindManyParams describes one source query.
type FindManyParams struct {
	Type   models.EntityType
	Filter visibility.Filter
	Order  EntityOrder
	// AuthorIDs restricts results to these authors when non-nil.
	AuthorIDs []uint
	Offset    int
	Limit     int
}

// EntityRepository defines data operations shared by projects, branches and posts.
type EntityRepository interface {
	FindMany(ctx context.Context, p FindManyParams) ([]models.Entity, error)
	FindUnique(ctx context.Context, ref models.EntityRef, filter visibility.Filter) (models.Entity, error)
	Create(ctx context.Context, e models.Entity) error
	Delete(ctx context.Context, ref models.EntityRef) error
}

type entityRepository struct {
	db       *gorm.DB
	scorer   *trending.Scorer
	store    *cache.Store
	cacheTTL time.Duration
}

// NewEntityRepository creates a new entity repository. Anonymous trending
// queries are served through store for cacheTTL; a nil store disables caching.
func NewEntityRepository(db *gorm.DB, scorer *trending.Scorer, store *cache.Store, cacheTTL time.Duration) EntityRepository {
	return &entityRepository{db: db, scorer: scorer, store: store, cacheTTL: cacheTTL}
}

func engagementTypesSQL() string {
	quoted := make([]string, len(models.EngagementTypes))
	for i, t := range models.EngagementTypes {
		quoted[i] = "'" + string(t) + "'"
	}
	return strings.Join(quoted, ", ")
}

// withStats selects the entity columns plus popularity_count, activity_count
// and trending_score computed from interactions. The score is a bare output
// column so it can be referenced in ORDER BY.
func (r *entityRepository) withStats(db *gorm.DB, t models.EntityType, since time.Time) *gorm.DB {
	table := t.Table()
	base := fmt.Sprintf(
		"SELECT COUNT(*) FROM interactions i WHERE i.entity_type = '%s' AND i.entity_id = %s.id AND i.type IN (%s)",
		t, table, engagementTypesSQL())
	popularity := base
	activity := base + " AND i.created_at >= ?"

	selectQuery := fmt.Sprintf("%s.*, (%s) AS popularity_count, (%s) AS activity_count, CAST(%s AS DOUBLE PRECISION) AS trending_score",
		table, popularity, activity, r.scorer.SQLExpr(popularity, activity))
	return db.Select(selectQuery, since, since)
}

func (r *entityRepository) applyOrder(db *gorm.DB, t models.EntityType, order EntityOrder) *gorm.DB {
	table := t.Table()
	if order == OrderTrending {
		db = db.Order("trending_score DESC")
	}
	return db.Order(table + ".updated_at DESC").Order(table + ".id ASC")
}

// newEntitySlice returns a pointer to a typed slice for Find and a function
// converting its contents to []models.Entity.
func newEntitySlice(t models.EntityType) (any, func() []models.Entity, error) {
	switch t {
	case models.EntityProject:
		var rows []*models.Project
		return &rows, func() []models.Entity { return toEntities(rows) }, nil
	case models.EntityBranch:
		var rows []*models.Branch
		return &rows, func() []models.Entity { return toEntities(rows) }, nil
	case models.EntityPost:
		var rows []*models.Post
		return &rows, func() []models.Entity { return toEntities(rows) }, nil
	}
	return nil, nil, models.NewValidationError(fmt.Sprintf("Invalid entity type %q", t))
}

func toEntities[E models.Entity](rows []E) []models.Entity {
	out := make([]models.Entity, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out
}

func (r *entityRepository) FindMany(ctx context.Context, p FindManyParams) ([]models.Entity, error) {
	dest, collect, err := newEntitySlice(p.Type)
	if err != nil {
		return nil, err
	}
	if p.Limit <= 0 || (p.AuthorIDs != nil && len(p.AuthorIDs) == 0) {
		return []models.Entity{}, nil
	}

	ctx, span := observability.TraceRepositoryMethod(ctx, "FindMany", p.Type.Table())
	defer span.End()
	defer observability.TrackQuery("find_many", p.Type.Table())()

	since := r.scorer.Since()
	load := func(limit int) func(context.Context) error {
		return func(ctx context.Context) error {
			q := r.withStats(r.db.WithContext(ctx).Model(dest), p.Type, since).
				Scopes(p.Filter.Scope(p.Type)).
				Preload("Author").
				Preload("Permissions.AllowedUsers")
			if p.AuthorIDs != nil {
				q = q.Where(p.Type.Table()+".author_id IN ?", p.AuthorIDs)
			}
			return r.applyOrder(q, p.Type, p.Order).Offset(p.Offset).Limit(limit).Find(dest).Error
		}
	}

	// Anonymous trending heads are served from one fixed-size snapshot per
	// table; deeper windows always read the database.
	if r.store.Enabled() && r.cacheTTL > 0 && p.Filter.Anonymous() && p.Order == OrderTrending &&
		p.AuthorIDs == nil && p.Offset == 0 && p.Limit <= TrendingSnapshotSize {
		key := cache.TrendingSourceKey(p.Type.Table(), since)
		err = r.store.Aside(ctx, key, dest, r.cacheTTL, load(TrendingSnapshotSize))
	} else {
		err = load(p.Limit)(ctx)
	}
	if err != nil {
		span.RecordError(err)
		return nil, models.NewInternalError(err)
	}

	entities := collect()
	if len(entities) > p.Limit {
		entities = entities[:p.Limit]
	}
	for _, e := range entities {
		r.scorer.Decorate(e.EngagementStats())
	}
	return entities, nil
}

func (r *entityRepository) FindUnique(ctx context.Context, ref models.EntityRef, filter visibility.Filter) (models.Entity, error) {
	entity, err := models.NewEntity(ref.Type)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.TraceRepositoryMethod(ctx, "FindUnique", ref.Type.Table())
	defer span.End()
	defer observability.TrackQuery("find_unique", ref.Type.Table())()

	err = r.withStats(r.db.WithContext(ctx).Model(entity), ref.Type, r.scorer.Since()).
		Scopes(filter.Scope(ref.Type)).
		Preload("Author").
		Preload("Permissions.AllowedUsers").
		Where(ref.Type.Table()+".id = ?", ref.ID).
		Take(entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(titleCase(ref.Type), ref.ID)
		}
		span.RecordError(err)
		return nil, models.NewInternalError(err)
	}

	r.scorer.Decorate(entity.EngagementStats())
	return entity, nil
}

func (r *entityRepository) Create(ctx context.Context, e models.Entity) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the entity, its descendants, and every permission, allowed
// user and interaction attached to them in one transaction.
func (r *entityRepository) Delete(ctx context.Context, ref models.EntityRef) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := collectSubtree(tx, ref)
		if err != nil {
			return err
		}
		if len(ids[ref.Type]) == 0 {
			return models.NewNotFoundError(titleCase(ref.Type), ref.ID)
		}

		// Children first so foreign keys never dangle mid-transaction.
		for _, t := range []models.EntityType{models.EntityPost, models.EntityBranch, models.EntityProject} {
			if len(ids[t]) == 0 {
				continue
			}
			if err := deleteOwned(tx, t, ids[t]); err != nil {
				return err
			}
		}
		return nil
	})

	var appErr *models.AppError
	if err != nil && !errors.As(err, &appErr) {
		return models.NewInternalError(err)
	}
	return err
}

func collectSubtree(tx *gorm.DB, ref models.EntityRef) (map[models.EntityType][]uint, error) {
	ids := map[models.EntityType][]uint{}

	var root []uint
	if err := tx.Table(ref.Type.Table()).Where("id = ?", ref.ID).Pluck("id", &root).Error; err != nil {
		return nil, err
	}
	ids[ref.Type] = root
	if len(root) == 0 {
		return ids, nil
	}

	if ref.Type == models.EntityProject {
		var branchIDs []uint
		if err := tx.Model(&models.Branch{}).Where("project_id IN ?", root).Pluck("id", &branchIDs).Error; err != nil {
			return nil, err
		}
		ids[models.EntityBranch] = branchIDs
	}
	if ref.Type != models.EntityPost && len(ids[models.EntityBranch]) > 0 {
		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("branch_id IN ?", ids[models.EntityBranch]).Pluck("id", &postIDs).Error; err != nil {
			return nil, err
		}
		ids[models.EntityPost] = postIDs
	}
	return ids, nil
}

func deleteOwned(tx *gorm.DB, t models.EntityType, ids []uint) error {
	var permissionIDs []uint
	if err := tx.Model(&models.Permission{}).
		Where("entity_type = ? AND entity_id IN ?", t, ids).
		Pluck("id", &permissionIDs).Error; err != nil {
		return err
	}
	if len(permissionIDs) > 0 {
		if err := tx.Where("permission_id IN ?", permissionIDs).Delete(&models.PermissionAllowedUser{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", permissionIDs).Delete(&models.Permission{}).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("entity_type = ? AND entity_id IN ?", t, ids).Delete(&models.Interaction{}).Error; err != nil {
		return err
	}
	model, err := models.NewEntity(t)
	if err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(model).Error
}

func titleCase(t models.EntityType) string {
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
