package service

import (
	"context"
	"errors"
	"testing"

	"canopy/internal/featureflags"
	"canopy/internal/models"
	"canopy/internal/notifications"
	"canopy/internal/testutil"
	"canopy/internal/visibility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractionService_ToggleValidation(t *testing.T) {
	entities := &entityRepoStub{
		findUniqueFn: func(context.Context, models.EntityRef, visibility.Filter) (models.Entity, error) {
			t.Fatal("repository must not be reached")
			return nil, nil
		},
	}
	svc := NewInteractionService(entities, &interactionRepoStub{}, nil, nil)
	ctx := context.Background()
	ref := models.EntityRef{Type: models.EntityPost, ID: 1}

	tests := []struct {
		name   string
		viewer *models.Viewer
		ref    models.EntityRef
		typ    models.InteractionType
		code   string
	}{
		{"anonymous", nil, ref, models.InteractionLike, models.CodeUnauthorized},
		{"unknown type", models.NewViewer(1), ref, "LOVE", models.CodeValidation},
		{"unknown entity type", models.NewViewer(1), models.EntityRef{Type: "comment", ID: 1}, models.InteractionLike, models.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Toggle(ctx, tt.viewer, tt.ref, tt.typ)
			assert.True(t, models.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestInteractionService_ToggleNormalisesType(t *testing.T) {
	project := &models.Project{ID: 4, AuthorID: 2, Permissions: &models.Permission{ID: 1}}
	var toggled models.InteractionType
	entities := &entityRepoStub{
		findUniqueFn: func(_ context.Context, _ models.EntityRef, f visibility.Filter) (models.Entity, error) {
			assert.Equal(t, visibility.PrivateAllowed, f.Kind)
			assert.Equal(t, uint(9), f.ViewerID)
			return project, nil
		},
	}
	interactions := &interactionRepoStub{
		toggleFn: func(_ context.Context, userID uint, _ models.EntityRef, typ models.InteractionType) (*models.ToggleResult, error) {
			toggled = typ
			return &models.ToggleResult{Action: models.ToggleAdded, Interaction: &models.Interaction{Type: typ, UserID: userID}}, nil
		},
	}
	svc := NewInteractionService(entities, interactions, nil, nil)

	res, err := svc.Toggle(context.Background(), models.NewViewer(9), project.Ref(), "bookmark")
	require.NoError(t, err)
	assert.Equal(t, models.InteractionBookmark, toggled)
	assert.Equal(t, models.ToggleAdded, res.Action)
}

func TestInteractionService_PublishesOnlyPublicActivity(t *testing.T) {
	public := &models.Post{ID: 1, AuthorID: 2, Permissions: &models.Permission{ID: 1}}
	private := &models.Post{ID: 2, AuthorID: 2, Permissions: &models.Permission{ID: 2, Private: true}}
	entities := &entityRepoStub{
		findUniqueFn: func(_ context.Context, ref models.EntityRef, _ visibility.Filter) (models.Entity, error) {
			if ref.ID == public.ID {
				return public, nil
			}
			return private, nil
		},
	}
	interactions := &interactionRepoStub{
		toggleFn: func(_ context.Context, _ uint, _ models.EntityRef, typ models.InteractionType) (*models.ToggleResult, error) {
			return &models.ToggleResult{Action: models.ToggleAdded, Interaction: &models.Interaction{Type: typ}}, nil
		},
	}
	ctx := context.Background()
	viewer := models.NewViewer(2)

	t.Run("public and private", func(t *testing.T) {
		pub := &publisherStub{}
		svc := NewInteractionService(entities, interactions, pub, featureflags.NewManager(""))

		_, err := svc.Toggle(ctx, viewer, public.Ref(), models.InteractionLike)
		require.NoError(t, err)
		_, err = svc.Toggle(ctx, viewer, private.Ref(), models.InteractionLike)
		require.NoError(t, err)

		require.Len(t, pub.events, 1)
		assert.Equal(t, notifications.EventInteractionToggled, pub.events[0].Type)
		assert.Equal(t, public.Ref(), pub.events[0].Payload.Entity)
		assert.Equal(t, uint(2), pub.events[0].OwnerID)
	})

	t.Run("reports and hides stay private", func(t *testing.T) {
		pub := &publisherStub{}
		svc := NewInteractionService(entities, interactions, pub, featureflags.NewManager(""))

		for _, typ := range []models.InteractionType{models.InteractionReport, models.InteractionHide} {
			res, err := svc.Toggle(ctx, models.NewViewer(7), public.Ref(), typ)
			require.NoError(t, err)
			assert.Equal(t, models.ToggleAdded, res.Action)
		}
		assert.Empty(t, pub.events)

		_, err := svc.Toggle(ctx, models.NewViewer(7), public.Ref(), models.InteractionBookmark)
		require.NoError(t, err)
		require.Len(t, pub.events, 1)
		assert.Equal(t, models.InteractionBookmark, pub.events[0].Payload.Kind)
	})

	t.Run("disabled by flag", func(t *testing.T) {
		pub := &publisherStub{}
		svc := NewInteractionService(entities, interactions, pub, featureflags.NewManager("realtime_activity=off"))
		_, err := svc.Toggle(ctx, viewer, public.Ref(), models.InteractionLike)
		require.NoError(t, err)
		assert.Empty(t, pub.events)
	})

	t.Run("publish failure does not fail the toggle", func(t *testing.T) {
		pub := &publisherStub{err: errors.New("redis down")}
		svc := NewInteractionService(entities, interactions, pub, nil)
		res, err := svc.Toggle(ctx, viewer, public.Ref(), models.InteractionShare)
		require.NoError(t, err)
		assert.Equal(t, models.ToggleAdded, res.Action)
		assert.Len(t, pub.events, 1)
	})
}

// A post with zero likes: like, like again, and the popularity count is
// back where it started.
func TestInteractionService_ToggleTwiceScenario(t *testing.T) {
	h := newHarness(t)
	svc := NewInteractionService(h.entities, h.interactions, nil, nil)
	ctx := context.Background()

	u1 := h.f.User("u1")
	project := h.f.Project(u1.ID, testutil.BaseTime, testutil.Public)
	branch := h.f.Branch(project.ID, u1.ID, testutil.BaseTime, testutil.Public)
	post := h.f.Post(branch.ID, u1.ID, testutil.BaseTime, testutil.Public)
	viewer := models.NewViewer(u1.ID)

	popularity := func() int64 {
		e, err := h.entities.FindUnique(ctx, post.Ref(), visibility.ForViewer(viewer))
		require.NoError(t, err)
		return e.EngagementStats().PopularityCount
	}
	before := popularity()
	assert.Equal(t, int64(0), before)

	first, err := svc.Toggle(ctx, viewer, post.Ref(), models.InteractionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ToggleAdded, first.Action)
	assert.Equal(t, int64(1), popularity())

	second, err := svc.Toggle(ctx, viewer, post.Ref(), models.InteractionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ToggleRemoved, second.Action)
	assert.Equal(t, before, popularity())
}

func TestInteractionService_RechecksVisibility(t *testing.T) {
	h := newHarness(t)
	svc := NewInteractionService(h.entities, h.interactions, nil, nil)
	ctx := context.Background()

	owner, outsider := h.f.User("owner"), h.f.User("outsider")
	project := h.f.Project(owner.ID, testutil.BaseTime, testutil.Public)

	_, err := svc.Toggle(ctx, models.NewViewer(outsider.ID), project.Ref(), models.InteractionLike)
	require.NoError(t, err)

	// The project turns private after the outsider first saw it.
	require.NoError(t, h.db.Model(&models.Permission{}).
		Where("entity_type = ? AND entity_id = ?", models.EntityProject, project.ID).
		Update("private", true).Error)

	_, err = svc.Toggle(ctx, models.NewViewer(outsider.ID), project.Ref(), models.InteractionLike)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = svc.Toggle(ctx, models.NewViewer(owner.ID), project.Ref(), models.InteractionLike)
	assert.NoError(t, err)

	_, err = svc.Toggle(ctx, models.NewViewer(owner.ID), models.EntityRef{Type: models.EntityProject, ID: 404}, models.InteractionLike)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
