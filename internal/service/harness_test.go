package service

import (
	"testing"
	"time"

	"canopy/internal/featureflags"
	"canopy/internal/repository"
	"canopy/internal/testutil"
	"canopy/internal/trending"

	"gorm.io/gorm"
)

// harness wires real repositories over an in-memory database.
type harness struct {
	db           *gorm.DB
	f            *testutil.Fixtures
	entities     repository.EntityRepository
	interactions repository.InteractionRepository
	follows      repository.FollowRepository
	users        repository.UserRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.OpenDB(t)
	scorer := trending.NewScorer(trending.DefaultConfig()).WithClock(func() time.Time { return testutil.BaseTime })
	return &harness{
		db:           db,
		f:            testutil.NewFixtures(t, db),
		entities:     repository.NewEntityRepository(db, scorer, nil, 0),
		interactions: repository.NewInteractionRepository(db),
		follows:      repository.NewFollowRepository(db),
		users:        repository.NewUserRepository(db),
	}
}

func (h *harness) timeline(flags string) *TimelineService {
	return NewTimelineService(h.entities, h.interactions, h.follows, featureflags.NewManager(flags), PageLimits{MaxSize: 100, MaxOffset: 1000})
}
