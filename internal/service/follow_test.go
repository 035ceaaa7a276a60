package service

import (
	"context"
	"errors"
	"testing"

	"canopy/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowService(t *testing.T) {
	var followed [][2]uint
	follows := &followRepoStub{
		followFn: func(_ context.Context, follower, followee uint) error {
			followed = append(followed, [2]uint{follower, followee})
			return nil
		},
		unfollowFn: func(context.Context, uint, uint) error { return nil },
	}
	users := &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			if id >= 100 {
				return nil, models.NewNotFoundError("User", id)
			}
			return &models.User{ID: id, Username: "target"}, nil
		},
		existsFn: func(_ context.Context, id uint) (bool, error) {
			if id == 500 {
				return false, errors.New("db down")
			}
			return id < 100, nil
		},
	}
	svc := NewFollowService(follows, users)
	ctx := context.Background()

	tests := []struct {
		name   string
		viewer *models.Viewer
		target uint
		code   string
	}{
		{"success", models.NewViewer(1), 2, ""},
		{"anonymous", nil, 2, models.CodeUnauthorized},
		{"self", models.NewViewer(3), 3, models.CodeValidation},
		{"unknown user", models.NewViewer(1), 200, models.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			followee, err := svc.Follow(ctx, tt.viewer, tt.target)
			if tt.code == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.target, followee.ID)
				return
			}
			assert.True(t, models.IsCode(err, tt.code), "got %v", err)
			assert.Nil(t, followee)
		})
	}
	assert.Equal(t, [][2]uint{{1, 2}}, followed)

	assert.NoError(t, svc.Unfollow(ctx, models.NewViewer(1), 2))
	assert.Error(t, svc.Unfollow(ctx, models.NewViewer(1), 500))
	assert.True(t, models.IsCode(svc.Unfollow(ctx, models.NewViewer(1), 200), models.CodeNotFound))
	assert.True(t, models.IsCode(svc.Unfollow(ctx, nil, 2), models.CodeUnauthorized))
}
