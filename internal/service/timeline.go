// Package service contains the application's business logic.
package service

import (
	"context"
	"time"

	"canopy/internal/featureflags"
	"canopy/internal/models"
	"canopy/internal/observability"
	"canopy/internal/repository"
	"canopy/internal/visibility"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// TimelineRequest describes one feed page.
type TimelineRequest struct {
	Kind     models.TimelineKind
	Viewer   *models.Viewer
	Page     int
	PageSize int
}

// TimelineService merges visible projects, branches, posts and followed
// users' interactions into paginated feeds.
type TimelineService struct {
	entities     repository.EntityRepository
	interactions repository.InteractionRepository
	follows      repository.FollowRepository
	flags        *featureflags.Manager
	limits       PageLimits
}

// NewTimelineService returns a new TimelineService.
func NewTimelineService(
	entities repository.EntityRepository,
	interactions repository.InteractionRepository,
	follows repository.FollowRepository,
	flags *featureflags.Manager,
	limits PageLimits,
) *TimelineService {
	return &TimelineService{
		entities:     entities,
		interactions: interactions,
		follows:      follows,
		flags:        flags,
		limits:       limits,
	}
}

// source yields up to limit items sorted in feed order.
type source func(ctx context.Context, limit int) ([]models.TimelineItem, error)

// BuildTimeline returns the requested page. Every source is fetched from its
// head with limit skip+take and the k-way merge discards the first skip
// items, so pages of a fixed dataset neither overlap nor leave gaps.
// HasMore is true when the page is full; the page after an exactly full
// last page is empty.
func (s *TimelineService) BuildTimeline(ctx context.Context, req TimelineRequest) (result *models.TimelinePage, err error) {
	start := time.Now()
	kindLabel := string(req.Kind)
	span, ctx := observability.NewSpan(ctx, "timeline.build",
		attribute.String("timeline.kind", kindLabel),
		attribute.Int("timeline.page", req.Page),
		attribute.Int("timeline.page_size", req.PageSize),
	)
	defer func() {
		span.End(err)
		observability.ObserveTimeline(kindLabel, start, err)
	}()

	kind, err := models.ParseTimelineKind(string(req.Kind))
	if err != nil {
		kindLabel = "invalid"
		return nil, err
	}
	kindLabel = string(kind)
	page, err := NewPage(req.Page, req.PageSize, s.limits)
	if err != nil {
		return nil, err
	}

	var (
		sources []source
		less    itemLess
	)
	switch kind {
	case models.TimelineTrending:
		sources, less = s.trendingSources(req.Viewer), trendingLess
	case models.TimelineForYou:
		sources, err = s.forYouSources(ctx, req.Viewer)
		if err != nil {
			return nil, err
		}
		less = recentLess
	}
	span.AddAttributes(attribute.Int("timeline.sources", len(sources)))

	window := page.Window()
	fetched := make([][]models.TimelineItem, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			items, err := src(gctx, window)
			fetched[i] = items
			return err
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	merged := mergeSources(fetched, less, window)
	items := []models.TimelineItem{}
	if len(merged) > page.Skip() {
		items = merged[page.Skip():]
	}
	return &models.TimelinePage{Items: items, HasMore: len(items) == page.Size}, nil
}

func (s *TimelineService) trendingSources(viewer *models.Viewer) []source {
	filter := visibility.ForViewer(viewer)
	return []source{
		s.entitySource(models.EntityProject, filter, repository.OrderTrending, nil),
		s.entitySource(models.EntityBranch, filter, repository.OrderTrending, nil),
	}
}

// forYouSources covers content authored by followed users and their
// engagement on visible entities. Anonymous viewers and viewers without
// follows get no sources.
func (s *TimelineService) forYouSources(ctx context.Context, viewer *models.Viewer) ([]source, error) {
	if viewer == nil {
		return nil, nil
	}
	followees, err := s.follows.ListFolloweeIDs(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	if len(followees) == 0 {
		return nil, nil
	}

	filter := visibility.ForViewer(viewer)
	sources := []source{
		s.entitySource(models.EntityPost, filter, repository.OrderRecent, followees),
		s.entitySource(models.EntityBranch, filter, repository.OrderRecent, followees),
		s.entitySource(models.EntityProject, filter, repository.OrderRecent, followees),
	}
	if s.flags.Enabled(featureflags.TimelineHideActivity, viewer.ID) {
		return sources, nil
	}
	for _, t := range []models.EntityType{models.EntityPost, models.EntityBranch, models.EntityProject} {
		sources = append(sources, s.activitySource(t, filter, followees))
	}
	return sources, nil
}

func (s *TimelineService) entitySource(t models.EntityType, filter visibility.Filter, order repository.EntityOrder, authors []uint) source {
	return func(ctx context.Context, limit int) ([]models.TimelineItem, error) {
		entities, err := s.entities.FindMany(ctx, repository.FindManyParams{
			Type:      t,
			Filter:    filter,
			Order:     order,
			AuthorIDs: authors,
			Limit:     limit,
		})
		if err != nil {
			return nil, err
		}
		items := make([]models.TimelineItem, len(entities))
		for i, e := range entities {
			items[i] = models.ItemFromEntity(e)
		}
		return items, nil
	}
}

func (s *TimelineService) activitySource(t models.EntityType, filter visibility.Filter, users []uint) source {
	return func(ctx context.Context, limit int) ([]models.TimelineItem, error) {
		interactions, err := s.interactions.ListByUsers(ctx, repository.ActivityQuery{
			UserIDs:    users,
			EntityType: t,
			Filter:     filter,
			Limit:      limit,
		})
		if err != nil {
			return nil, err
		}
		items := make([]models.TimelineItem, len(interactions))
		for i, in := range interactions {
			items[i] = models.ItemFromInteraction(in)
		}
		return items, nil
	}
}
