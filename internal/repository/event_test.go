package repository

import (
	"context"
	"regexp"
	"testing"

	"dreamio/internal/cache"
	"dreamio/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(owner uint, title string, d int) *models.Event {
	return &models.Event{
		Title:       title,
		Description: "Live set",
		Date:        day(d),
		Location:    "Lisbon",
		CreatedBy:   owner,
		CoverImage:  "/uploads/images/cover.jpg",
	}
}

func TestEventRepository_CreateAndList(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "owner@example.com")

	require.NoError(t, repo.Create(ctx, newEvent(owner.ID, "early", 1)))
	require.NoError(t, repo.Create(ctx, newEvent(owner.ID, "late", 20)))
	require.NoError(t, repo.Create(ctx, newEvent(owner.ID, "middle", 10)))

	events, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"late", "middle", "early"}, []string{events[0].Title, events[1].Title, events[2].Title})
	require.NotNil(t, events[0].Creator)
	assert.Equal(t, "owner@example.com", events[0].Creator.Email)
	assert.Equal(t, 1, events[0].Version)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestEventRepository_ListCacheInvalidatedOnWrite(t *testing.T) {
	db := setupSQLiteDB(t)
	mr, rdb := setupRedis(t)
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	repo := NewEventRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "cache@example.com")

	require.NoError(t, repo.Create(ctx, newEvent(owner.ID, "first", 1)))
	events, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.True(t, mr.Exists(cache.EventListKey))

	require.NoError(t, repo.Create(ctx, newEvent(owner.ID, "second", 2)))
	assert.False(t, mr.Exists(cache.EventListKey))

	events, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestEventRepository_UpdateVersioned(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "v@example.com")

	ev := newEvent(owner.ID, "draft", 3)
	require.NoError(t, repo.Create(ctx, ev))

	ev.Title = "published"
	require.NoError(t, repo.Update(ctx, ev, 1))
	assert.Equal(t, 2, ev.Version)

	stale := *ev
	stale.Title = "stale write"
	err := repo.Update(ctx, &stale, 1)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodePreconditionFailed, appErr.Code)
	assert.Contains(t, appErr.Message, "current version 2")
	assert.Equal(t, 2, stale.Version, "version restored after a rejected write")

	// no precondition: last write wins and still bumps the version
	stale.Title = "forced"
	require.NoError(t, repo.Update(ctx, &stale, 0))
	assert.Equal(t, 3, stale.Version)

	got, err := repo.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "forced", got.Title)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, ev.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestEventRepository_UpdateMissing(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewEventRepository(db)

	ev := newEvent(1, "ghost", 1)
	ev.ID = 404
	ev.Version = 1
	err := repo.Update(context.Background(), ev, 1)
	assert.Equal(t, 404, models.StatusForError(err))
}

func TestEventRepository_Delete(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	ev := newEvent(1, "bye", 1)
	require.NoError(t, repo.Create(ctx, ev))
	require.NoError(t, repo.Delete(ctx, ev.ID))

	_, err := repo.GetByID(ctx, ev.ID)
	assert.Equal(t, 404, models.StatusForError(err))
	assert.Equal(t, 404, models.StatusForError(repo.Delete(ctx, ev.ID)))
}

func TestEventRepository_GetByID_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "events" WHERE "events"."id" = $1 ORDER BY "events"."id" LIMIT $2`)).
		WithArgs(5, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "created_by", "version"}).AddRow(5, "Gig", 9, 4))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "users" WHERE "users"."id" = $1 AND "users"."deleted_at" IS NULL`)).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(9, "Ada"))

	ev, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 4, ev.Version)
	require.NotNil(t, ev.Creator)
	assert.Equal(t, "Ada", ev.Creator.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
