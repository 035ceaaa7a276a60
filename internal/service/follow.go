package service

import (
	"context"

	"canopy/internal/models"
	"canopy/internal/repository"
)

// FollowService manages the follower graph behind the For You feed.
type FollowService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
}

// NewFollowService returns a new FollowService.
func NewFollowService(follows repository.FollowRepository, users repository.UserRepository) *FollowService {
	return &FollowService{follows: follows, users: users}
}

// Follow makes the viewer follow userID and returns the followed user.
// Following twice is not an error.
func (s *FollowService) Follow(ctx context.Context, viewer *models.Viewer, userID uint) (*models.User, error) {
	if err := checkFollower(viewer, userID); err != nil {
		return nil, err
	}
	followee, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.follows.Follow(ctx, viewer.ID, userID); err != nil {
		return nil, err
	}
	return followee, nil
}

// Unfollow removes the edge if present.
func (s *FollowService) Unfollow(ctx context.Context, viewer *models.Viewer, userID uint) error {
	if err := checkFollower(viewer, userID); err != nil {
		return err
	}
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("User", userID)
	}
	return s.follows.Unfollow(ctx, viewer.ID, userID)
}

func checkFollower(viewer *models.Viewer, userID uint) error {
	if viewer == nil {
		return models.NewUnauthorizedError("Authentication required")
	}
	if viewer.ID == userID {
		return models.NewValidationError("Cannot follow yourself")
	}
	return nil
}
