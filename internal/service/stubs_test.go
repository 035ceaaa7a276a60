package service

import (
	"context"

	"canopy/internal/models"
	"canopy/internal/notifications"
	"canopy/internal/repository"
	"canopy/internal/visibility"
)

type entityRepoStub struct {
	findManyFn          func(context.Context, repository.FindManyParams) ([]models.Entity, error)
	findUniqueFn        func(context.Context, models.EntityRef, visibility.Filter) (models.Entity, error)
	createFn            func(context.Context, models.Entity) error
	deleteFn            func(context.Context, models.EntityRef) error
}

func (s *entityRepoStub) FindMany(ctx context.Context, p repository.FindManyParams) ([]models.Entity, error) {
	return s.findManyFn(ctx, p)
}
func (s *entityRepoStub) FindUnique(ctx context.Context, ref models.EntityRef, filter visibility.Filter) (models.Entity, error) {
	return s.findUniqueFn(ctx, ref, filter)
}
func (s *entityRepoStub) Create(ctx context.Context, e models.Entity) error {
	return s.createFn(ctx, e)
}
func (s *entityRepoStub) Delete(ctx context.Context, ref models.EntityRef) error {
	return s.deleteFn(ctx, ref)
}

type interactionRepoStub struct {
	toggleFn       func(context.Context, uint, models.EntityRef, models.InteractionType) (*models.ToggleResult, error)
	typesForUserFn func(context.Context, uint, models.EntityRef) ([]models.InteractionType, error)
	listByUsersFn  func(context.Context, repository.ActivityQuery) ([]*models.Interaction, error)
}

func (s *interactionRepoStub) Toggle(ctx context.Context, userID uint, ref models.EntityRef, t models.InteractionType) (*models.ToggleResult, error) {
	return s.toggleFn(ctx, userID, ref, t)
}
func (s *interactionRepoStub) TypesForUser(ctx context.Context, userID uint, ref models.EntityRef) ([]models.InteractionType, error) {
	return s.typesForUserFn(ctx, userID, ref)
}
func (s *interactionRepoStub) ListByUsers(ctx context.Context, q repository.ActivityQuery) ([]*models.Interaction, error) {
	return s.listByUsersFn(ctx, q)
}

type followRepoStub struct {
	followFn          func(context.Context, uint, uint) error
	unfollowFn        func(context.Context, uint, uint) error
	listFolloweeIDsFn func(context.Context, uint) ([]uint, error)
}

func (s *followRepoStub) Follow(ctx context.Context, followerID, followeeID uint) error {
	return s.followFn(ctx, followerID, followeeID)
}
func (s *followRepoStub) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	return s.unfollowFn(ctx, followerID, followeeID)
}
func (s *followRepoStub) ListFolloweeIDs(ctx context.Context, followerID uint) ([]uint, error) {
	return s.listFolloweeIDsFn(ctx, followerID)
}

type userRepoStub struct {
	getByIDFn func(context.Context, uint) (*models.User, error)
	existsFn  func(context.Context, uint) (bool, error)
	createFn  func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

type publisherStub struct {
	events []notifications.ActivityEvent
	err    error
}

func (p *publisherStub) PublishActivity(_ context.Context, event notifications.ActivityEvent) error {
	p.events = append(p.events, event)
	return p.err
}
