package server

import (
	"fmt"
	"net/http"
	"testing"

	"canopy/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowUser(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.f.User("alice")
	bob := env.f.User("bob")

	followees := func() []uint {
		var ids []uint
		require.NoError(t, env.db.Model(&models.Follow{}).
			Where("follower_id = ?", alice.ID).Pluck("followee_id", &ids).Error)
		return ids
	}
	path := fmt.Sprintf("/api/users/%d/follow", bob.ID)

	type followBody struct {
		Following bool `json:"following"`
		User      struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
			Email    string `json:"email"`
		} `json:"user"`
	}
	resp := env.do(http.MethodPost, path, nil, alice.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[followBody](t, resp)
	assert.True(t, body.Following)
	assert.Equal(t, bob.ID, body.User.ID)
	assert.Equal(t, bob.Username, body.User.Username)
	assert.Empty(t, body.User.Email)

	// Following twice is a no-op.
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, path, nil, alice.ID).StatusCode)
	assert.Equal(t, []uint{bob.ID}, followees())

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, nil, alice.ID).StatusCode)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, nil, alice.ID).StatusCode)
	assert.Empty(t, followees())
}

func TestFollowUser_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.f.User("alice")

	tests := []struct {
		name   string
		method string
		path   string
		userID uint
		status int
	}{
		{"anonymous", http.MethodPost, "/api/users/1/follow", 0, http.StatusUnauthorized},
		{"self", http.MethodPost, fmt.Sprintf("/api/users/%d/follow", alice.ID), alice.ID, http.StatusBadRequest},
		{"unknown user", http.MethodPost, "/api/users/999/follow", alice.ID, http.StatusNotFound},
		{"unknown user unfollow", http.MethodDelete, "/api/users/999/follow", alice.ID, http.StatusNotFound},
		{"invalid id", http.MethodPost, "/api/users/bob/follow", alice.ID, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, env.do(tt.method, tt.path, nil, tt.userID).StatusCode)
		})
	}
}
