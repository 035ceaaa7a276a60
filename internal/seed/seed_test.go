package seed

import (
	"context"
	"testing"

	"canopy/internal/models"
	"canopy/internal/testutil"
	"canopy/internal/visibility"
)

func smallOptions() Options {
	opts := DefaultOptions()
	opts.Users = 4
	opts.ProjectsPerUser = 1
	opts.BranchesPerProject = 2
	opts.PostsPerBranch = 2
	opts.InteractionsPerUser = 10
	opts.FollowsPerUser = 3
	opts.RandSeed = 42
	opts.SkipBcrypt = true
	return opts
}

func count(t *testing.T, s *Seeder, model any) int64 {
	t.Helper()
	var n int64
	if err := s.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func TestRun_CreatesContentTrees(t *testing.T) {
	db := testutil.OpenDB(t)
	s := NewSeeder(db, smallOptions())

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Users != 4 || summary.Projects != 4 || summary.Branches != 8 || summary.Posts != 16 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if got := count(t, s, &models.User{}); got != 4 {
		t.Fatalf("expected 4 users, got %d", got)
	}
	if got := count(t, s, &models.Post{}); got != 16 {
		t.Fatalf("expected 16 posts, got %d", got)
	}
	// Every entity owns exactly one permission row.
	if got := count(t, s, &models.Permission{}); got != 4+8+16 {
		t.Fatalf("expected 28 permission rows, got %d", got)
	}
	if got := count(t, s, &models.Interaction{}); got != int64(summary.Interactions) {
		t.Fatalf("summary says %d interactions, table has %d", summary.Interactions, got)
	}
	if got := count(t, s, &models.Follow{}); got != int64(summary.Follows) {
		t.Fatalf("summary says %d follows, table has %d", summary.Follows, got)
	}
}

func TestRun_NoSelfFollowsAndTimestampsOrdered(t *testing.T) {
	db := testutil.OpenDB(t)
	s := NewSeeder(db, smallOptions())
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var self int64
	if err := db.Model(&models.Follow{}).Where("follower_id = followee_id").Count(&self).Error; err != nil {
		t.Fatalf("count self follows: %v", err)
	}
	if self != 0 {
		t.Fatalf("expected no self follows, got %d", self)
	}

	var branches []models.Branch
	if err := db.Find(&branches).Error; err != nil {
		t.Fatalf("load branches: %v", err)
	}
	for _, b := range branches {
		var p models.Project
		if err := db.First(&p, b.ProjectID).Error; err != nil {
			t.Fatalf("load project %d: %v", b.ProjectID, err)
		}
		if b.CreatedAt.Before(p.CreatedAt) {
			t.Fatalf("branch %d predates its project", b.ID)
		}
		if b.UpdatedAt.Before(b.CreatedAt) {
			t.Fatalf("branch %d updated before it was created", b.ID)
		}
	}
}

func TestRun_InteractionsOnlyOnVisibleEntities(t *testing.T) {
	db := testutil.OpenDB(t)
	opts := smallOptions()
	opts.PrivateRatio = 1
	s := NewSeeder(db, opts)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var interactions []models.Interaction
	if err := db.Find(&interactions).Error; err != nil {
		t.Fatalf("load interactions: %v", err)
	}
	for _, i := range interactions {
		filter := visibility.ForViewer(models.NewViewer(i.UserID))
		var n int64
		if err := db.Table(i.EntityType.Table()).
			Scopes(filter.Scope(i.EntityType)).
			Where(i.EntityType.Table()+".id = ?", i.EntityID).
			Count(&n).Error; err != nil {
			t.Fatalf("visibility query: %v", err)
		}
		if n != 1 {
			t.Fatalf("interaction %d targets %s it cannot see", i.ID, i.Ref())
		}
	}
}

func TestClearAll(t *testing.T) {
	db := testutil.OpenDB(t)
	s := NewSeeder(db, smallOptions())
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := s.ClearAll(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}

	for _, model := range []any{&models.User{}, &models.Project{}, &models.Permission{}, &models.Interaction{}, &models.Follow{}} {
		var n int64
		if err := db.Unscoped().Model(model).Count(&n).Error; err != nil {
			t.Fatalf("count %T: %v", model, err)
		}
		if n != 0 {
			t.Fatalf("expected %T to be empty, got %d", model, n)
		}
	}
}

func TestRun_RejectsBadOptions(t *testing.T) {
	opts := smallOptions()
	opts.Users = 0
	if _, err := NewSeeder(nil, opts).Run(context.Background()); err == nil {
		t.Fatal("expected error for zero users")
	}

	opts = smallOptions()
	opts.PrivateRatio = 1.5
	if _, err := NewSeeder(nil, opts).Run(context.Background()); err == nil {
		t.Fatal("expected error for private ratio above 1")
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	opts := smallOptions()
	opts.DryRun = true
	summary, err := NewSeeder(nil, opts).Run(context.Background())
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if summary.Users != 4 || summary.Posts != 16 {
		t.Fatalf("unexpected dry-run summary: %+v", summary)
	}
}
