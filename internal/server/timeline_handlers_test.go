package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"canopy/internal/models"
	"canopy/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timelineBody struct {
	Data []struct {
		Type string `json:"type"`
		ID   uint   `json:"id"`
	} `json:"data"`
	HasMore bool `json:"hasMore"`
}

func (b timelineBody) keys() []string {
	out := make([]string, len(b.Data))
	for i, item := range b.Data {
		out[i] = fmt.Sprintf("%s:%d", item.Type, item.ID)
	}
	return out
}

func key(t models.TimelineItemType, id uint) string {
	return fmt.Sprintf("%s:%d", t, id)
}

func TestGetTimeline_Trending(t *testing.T) {
	env := newTestEnv(t, nil)
	base := testutil.BaseTime
	alice := env.f.User("alice")
	bob := env.f.User("bob")

	hot := env.f.Project(alice.ID, base, testutil.Public)
	cold := env.f.Project(alice.ID, base.Add(time.Hour), testutil.Public)
	hidden := env.f.Project(alice.ID, base, testutil.Private())
	branch := env.f.Branch(hot.ID, bob.ID, base, testutil.Public)

	env.f.Interact(bob.ID, hot.Ref(), models.InteractionLike, base)
	env.f.Interact(bob.ID, hot.Ref(), models.InteractionShare, base)
	env.f.Interact(alice.ID, branch.Ref(), models.InteractionBookmark, base)
	// Reports do not count towards popularity.
	env.f.Interact(bob.ID, cold.Ref(), models.InteractionReport, base)

	t.Run("anonymous", func(t *testing.T) {
		resp := env.do(http.MethodGet, "/api/timeline?kind=trending", nil, 0)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[timelineBody](t, resp)
		assert.Equal(t, []string{
			key(models.ItemProject, hot.ID),
			key(models.ItemBranch, branch.ID),
			key(models.ItemProject, cold.ID),
		}, body.keys())
		assert.False(t, body.HasMore)
	})

	t.Run("author sees own private project", func(t *testing.T) {
		resp := env.do(http.MethodGet, "/api/timeline", nil, alice.ID)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{
			key(models.ItemProject, hot.ID),
			key(models.ItemBranch, branch.ID),
			key(models.ItemProject, cold.ID),
			key(models.ItemProject, hidden.ID),
		}, decodeBody[timelineBody](t, resp).keys())
	})

	t.Run("invalid token is anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/timeline?kind=trending", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotContains(t, decodeBody[timelineBody](t, resp).keys(), key(models.ItemProject, hidden.ID))
	})

	t.Run("paginates", func(t *testing.T) {
		first := decodeBody[timelineBody](t, env.do(http.MethodGet, "/api/timeline?kind=trending&page=1&pageSize=2", nil, 0))
		second := decodeBody[timelineBody](t, env.do(http.MethodGet, "/api/timeline?kind=trending&page=2&pageSize=2", nil, 0))

		assert.Equal(t, []string{key(models.ItemProject, hot.ID), key(models.ItemBranch, branch.ID)}, first.keys())
		assert.True(t, first.HasMore)
		assert.Equal(t, []string{key(models.ItemProject, cold.ID)}, second.keys())
		assert.False(t, second.HasMore)
	})
}

func TestGetTimeline_ForYou(t *testing.T) {
	env := newTestEnv(t, nil)
	base := testutil.BaseTime
	alice := env.f.User("alice")
	bob := env.f.User("bob")
	carol := env.f.User("carol")
	env.f.Follow(carol.ID, alice.ID)

	project := env.f.Project(alice.ID, base, testutil.Public)
	branch := env.f.Branch(project.ID, alice.ID, base.Add(time.Hour), testutil.Public)
	post := env.f.Post(branch.ID, alice.ID, base.Add(2*time.Hour), testutil.Public)
	env.f.Post(branch.ID, alice.ID, base.Add(4*time.Hour), testutil.Private(bob.ID))
	bobs := env.f.Project(bob.ID, base, testutil.Public)
	like := env.f.Interact(alice.ID, bobs.Ref(), models.InteractionLike, base.Add(3*time.Hour))

	want := []string{
		key(models.ItemInteraction, like.ID),
		key(models.ItemPost, post.ID),
		key(models.ItemBranch, branch.ID),
		key(models.ItemProject, project.ID),
	}

	t.Run("merges followed content and activity", func(t *testing.T) {
		resp := env.do(http.MethodGet, "/api/timeline?kind=forYou", nil, carol.ID)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, want, decodeBody[timelineBody](t, resp).keys())
	})

	t.Run("pages do not overlap", func(t *testing.T) {
		var got []string
		for page := 1; page <= 3; page++ {
			path := fmt.Sprintf("/api/timeline?kind=forYou&page=%d&pageSize=2", page)
			body := decodeBody[timelineBody](t, env.do(http.MethodGet, path, nil, carol.ID))
			got = append(got, body.keys()...)
			assert.Equal(t, page < 3, body.HasMore, "page %d", page)
		}
		assert.Equal(t, want, got)
	})

	t.Run("anonymous gets an empty page", func(t *testing.T) {
		resp := env.do(http.MethodGet, "/api/timeline?kind=forYou", nil, 0)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[timelineBody](t, resp)
		assert.Empty(t, body.Data)
		assert.False(t, body.HasMore)
	})

	t.Run("no follows gets an empty page", func(t *testing.T) {
		body := decodeBody[timelineBody](t, env.do(http.MethodGet, "/api/timeline?kind=forYou", nil, bob.ID))
		assert.Empty(t, body.Data)
	})
}

func TestGetTimeline_HideActivityFlag(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags = "timeline_hide_activity=on"
	env := newTestEnvWithConfig(t, cfg, nil)
	alice := env.f.User("alice")
	carol := env.f.User("carol")
	env.f.Follow(carol.ID, alice.ID)
	project := env.f.Project(alice.ID, testutil.BaseTime, testutil.Public)
	env.f.Interact(alice.ID, project.Ref(), models.InteractionLike, testutil.BaseTime.Add(time.Hour))

	body := decodeBody[timelineBody](t, env.do(http.MethodGet, "/api/timeline?kind=forYou", nil, carol.ID))
	assert.Equal(t, []string{key(models.ItemProject, project.ID)}, body.keys())
}

func TestGetTimeline_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name  string
		query string
	}{
		{"unknown kind", "kind=popular"},
		{"page zero", "page=0"},
		{"negative page size", "pageSize=-1"},
		{"page size above maximum", "pageSize=101"},
		{"non-numeric page", "page=two"},
		{"non-numeric page size", "pageSize=ten"},
		{"page beyond max offset", "page=102&pageSize=10"},
		{"huge page", "page=1099511627776&pageSize=50"},
		{"overflowing page", "page=922337203685477580&pageSize=50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(http.MethodGet, "/api/timeline?"+tt.query, nil, 0)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, models.CodeValidation, decodeBody[errorBody](t, resp).Code)
		})
	}
}

func TestGetTimeline_AnonymousTrendingIsCached(t *testing.T) {
	mr, rdb := newMiniredis(t)
	env := newTestEnv(t, rdb)
	alice := env.f.User("alice")
	first := env.f.Project(alice.ID, testutil.BaseTime, testutil.Public)

	body := decodeBody[timelineBody](t, env.do(http.MethodGet, "/api/timeline", nil, 0))
	assert.Equal(t, []string{key(models.ItemProject, first.ID)}, body.keys())

	// A project created after the page was cached stays invisible to
	// anonymous readers until the entry expires.
	second := env.f.Project(alice.ID, testutil.BaseTime.Add(time.Hour), testutil.Public)
	body = decodeBody[timelineBody](t, env.do(http.MethodGet, "/api/timeline", nil, 0))
	assert.Equal(t, []string{key(models.ItemProject, first.ID)}, body.keys())

	// Signed-in viewers bypass the cache.
	body = decodeBody[timelineBody](t, env.do(http.MethodGet, "/api/timeline", nil, alice.ID))
	assert.Equal(t, []string{key(models.ItemProject, second.ID), key(models.ItemProject, first.ID)}, body.keys())

	mr.FastForward(2 * time.Minute)
	body = decodeBody[timelineBody](t, env.do(http.MethodGet, "/api/timeline", nil, 0))
	assert.Equal(t, []string{key(models.ItemProject, second.ID), key(models.ItemProject, first.ID)}, body.keys())
}
