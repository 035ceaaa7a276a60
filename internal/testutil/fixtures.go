// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"canopy/internal/database"
	"canopy/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BaseTime is a fixed reference instant for deterministic fixtures.
var BaseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// OpenDB returns a migrated in-memory SQLite database. Each call is isolated.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Fixtures inserts rows for tests.
type Fixtures struct {
	t  *testing.T
	db *gorm.DB
}

// NewFixtures binds a fixture builder to db.
func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

// Access describes the permission row attached to a fixture entity.
type Access struct {
	Private bool
	Allowed []uint
	// NoPermissions skips the permission row entirely.
	NoPermissions bool
}

// Public is the default fixture access.
var Public = Access{}

// Private restricts an entity to its author and the allowed users.
func Private(allowed ...uint) Access {
	return Access{Private: true, Allowed: allowed}
}

func (a Access) permission() *models.Permission {
	if a.NoPermissions {
		return nil
	}
	p := &models.Permission{Private: a.Private, AllowShare: true, AllowBranch: true}
	for _, id := range a.Allowed {
		p.AllowedUsers = append(p.AllowedUsers, models.PermissionAllowedUser{UserID: id})
	}
	return p
}

// User creates a user named name.
func (f *Fixtures) User(name string) *models.User {
	f.t.Helper()
	u := &models.User{
		Username: name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "x",
	}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

// Project creates a project authored by authorID, last updated at updated.
func (f *Fixtures) Project(authorID uint, updated time.Time, access Access) *models.Project {
	f.t.Helper()
	p := &models.Project{
		AuthorID:    authorID,
		Title:       "project",
		Permissions: access.permission(),
		CreatedAt:   updated,
		UpdatedAt:   updated,
	}
	require.NoError(f.t, f.db.Create(p).Error)
	return p
}

// Branch creates a branch of projectID.
func (f *Fixtures) Branch(projectID, authorID uint, updated time.Time, access Access) *models.Branch {
	f.t.Helper()
	b := &models.Branch{
		ProjectID:   projectID,
		AuthorID:    authorID,
		Title:       "branch",
		Permissions: access.permission(),
		CreatedAt:   updated,
		UpdatedAt:   updated,
	}
	require.NoError(f.t, f.db.Create(b).Error)
	return b
}

// Post creates a post on branchID.
func (f *Fixtures) Post(branchID, authorID uint, updated time.Time, access Access) *models.Post {
	f.t.Helper()
	p := &models.Post{
		BranchID:    branchID,
		AuthorID:    authorID,
		Content:     "post",
		Permissions: access.permission(),
		CreatedAt:   updated,
		UpdatedAt:   updated,
	}
	require.NoError(f.t, f.db.Create(p).Error)
	return p
}

// Interact records an interaction made at the given time.
func (f *Fixtures) Interact(userID uint, ref models.EntityRef, t models.InteractionType, at time.Time) *models.Interaction {
	f.t.Helper()
	i := &models.Interaction{
		EntityType: ref.Type,
		EntityID:   ref.ID,
		UserID:     userID,
		Type:       t,
		CreatedAt:  at,
	}
	require.NoError(f.t, f.db.Create(i).Error)
	return i
}

// Follow makes followerID follow followeeID.
func (f *Fixtures) Follow(followerID, followeeID uint) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error)
}
