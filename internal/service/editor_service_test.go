package service

import (
	"context"
	"testing"

	"dreamio/internal/models"
	"dreamio/internal/repository"
	"dreamio/internal/timeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEditorService(t *testing.T) *EditorService {
	t.Helper()
	return NewEditorService(repository.NewEditorSessionStore(nil, 0), newTestEnforcer(t))
}

func TestEditorService_SessionLifecycle(t *testing.T) {
	svc := newEditorService(t)
	ctx := context.Background()
	owner := Actor{ID: 1, Role: models.RoleDesigner}
	stranger := Actor{ID: 2, Role: models.RoleUser}

	session, err := svc.CreateSession(ctx, owner, 0)
	require.NoError(t, err)
	assert.Equal(t, timeline.DefaultDuration, session.State.Duration)
	assert.Equal(t, 1, session.Version)

	_, err = svc.GetSession(ctx, stranger, session.ID)
	assertCode(t, err, models.CodeForbidden)

	res, err := svc.Apply(ctx, owner, session.ID, timeline.Operation{Op: timeline.OpSeek, Time: 500}, 0)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 2, res.Session.Version)
	assert.Equal(t, timeline.DefaultDuration, res.Session.State.CurrentTime)

	res, err = svc.Apply(ctx, owner, session.ID, timeline.Operation{Op: timeline.OpCut, ClipID: "nope", Time: 3}, 2)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, 3, res.Session.Version)

	got, err := svc.GetSession(ctx, owner, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)

	assertCode(t, svc.DeleteSession(ctx, stranger, session.ID), models.CodeForbidden)
	require.NoError(t, svc.DeleteSession(ctx, owner, session.ID))
	_, err = svc.GetSession(ctx, owner, session.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestEditorService_ApplyErrors(t *testing.T) {
	svc := newEditorService(t)
	ctx := context.Background()
	owner := Actor{ID: 1, Role: models.RoleUser}

	session, err := svc.CreateSession(ctx, owner, 60)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, owner, session.ID, timeline.Operation{Op: "explode"}, 0)
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Apply(ctx, owner, session.ID, timeline.Operation{Op: timeline.OpDragTrim, Edge: "middle"}, 0)
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Apply(ctx, owner, session.ID, timeline.Operation{Op: timeline.OpPlay}, 7)
	assertCode(t, err, models.CodePreconditionFailed)

	_, err = svc.Apply(ctx, Actor{ID: 9, Role: models.RoleUser}, session.ID, timeline.Operation{Op: timeline.OpPlay}, 0)
	assertCode(t, err, models.CodeForbidden)

	_, err = svc.Apply(ctx, owner, "missing", timeline.Operation{Op: timeline.OpPlay}, 0)
	assertCode(t, err, models.CodeNotFound)

	got, err := svc.GetSession(ctx, owner, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version, "rejected operations do not bump the version")
	assert.False(t, got.State.Playing)
}

func TestEditorService_CreateLimits(t *testing.T) {
	svc := newEditorService(t)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, Actor{ID: 1, Role: models.RoleUser}, MaxTimelineDuration+1)
	assertCode(t, err, models.CodeValidation)

	_, err = svc.CreateSession(ctx, Actor{ID: 1}, 30)
	assertCode(t, err, models.CodeForbidden)
}
