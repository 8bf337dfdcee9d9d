package repository

import (
	"context"
	"testing"
	"time"

	"dreamio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStream(owner uint, title string, public bool) *models.LiveStream {
	return &models.LiveStream{
		Title:       title,
		StreamerID:  owner,
		Platform:    models.PlatformTwitch,
		StreamKey:   "live_abc",
		IsPublic:    public,
		ChatEnabled: true,
		Tags:        []string{"music", "live"},
	}
}

func TestLiveStreamRepository_Lists(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewLiveStreamRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "streamer@example.com")
	other := seedUser(t, db, "other@example.com")

	public := newStream(owner.ID, "public", true)
	private := newStream(owner.ID, "private", false)
	elsewhere := newStream(other.ID, "elsewhere", true)
	for _, s := range []*models.LiveStream{public, private, elsewhere} {
		require.NoError(t, repo.Create(ctx, s))
	}

	got, err := repo.ListPublic(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, s := range got {
		assert.True(t, s.IsPublic)
		require.NotNil(t, s.Streamer)
	}

	mine, err := repo.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	public.Start(time.Now())
	require.NoError(t, repo.Update(ctx, public, 0))
	private.Start(time.Now())
	require.NoError(t, repo.Update(ctx, private, 0))

	current, err := repo.ListCurrent(ctx)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "public", current[0].Title)
	assert.Equal(t, []string{"music", "live"}, current[0].Tags)
}

func TestLiveStreamRepository_CreateKeepsFalseFlags(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewLiveStreamRepository(db)
	ctx := context.Background()

	s := newStream(1, "quiet", false)
	s.ChatEnabled = false
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPublic)
	assert.False(t, got.ChatEnabled)
	assert.Equal(t, models.StreamScheduled, got.Status)
	assert.Equal(t, 1, got.Version)
}

func TestLiveStreamRepository_ViewerCounters(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewLiveStreamRepository(db)
	ctx := context.Background()

	s := newStream(1, "counted", true)
	require.NoError(t, repo.Create(ctx, s))

	n, err := repo.IncrementViewerCount(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.IncrementViewerCount(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for i := 0; i < 3; i++ {
		n, err = repo.DecrementViewerCount(ctx, s.ID)
		require.NoError(t, err)
	}
	assert.Zero(t, n, "viewer count never drops below zero")

	updated, err := repo.SetViewerCount(ctx, s.ID, -5)
	require.NoError(t, err)
	assert.Zero(t, updated.ViewerCount)

	updated, err = repo.SetLikeCount(ctx, s.ID, 17)
	require.NoError(t, err)
	assert.Equal(t, 17, updated.LikeCount)

	_, err = repo.SetLikeCount(ctx, 999, 1)
	assert.Equal(t, 404, models.StatusForError(err))
	_, err = repo.IncrementViewerCount(ctx, 999)
	assert.Equal(t, 404, models.StatusForError(err))
}

func TestLiveStreamRepository_UpdateKeepsCounters(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewLiveStreamRepository(db)
	ctx := context.Background()

	s := newStream(1, "busy", true)
	require.NoError(t, repo.Create(ctx, s))

	loaded, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)

	_, err = repo.IncrementViewerCount(ctx, s.ID)
	require.NoError(t, err)
	_, err = repo.IncrementViewerCount(ctx, s.ID)
	require.NoError(t, err)
	_, err = repo.SetLikeCount(ctx, s.ID, 5)
	require.NoError(t, err)

	loaded.Start(time.Now())
	loaded.Title = "busy (live)"
	require.NoError(t, repo.Update(ctx, loaded, 0))
	assert.Equal(t, 2, loaded.ViewerCount)
	assert.Equal(t, 5, loaded.LikeCount)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.IsLive)
	assert.Equal(t, "busy (live)", got.Title)
	assert.Equal(t, 2, got.ViewerCount)
	assert.Equal(t, 5, got.LikeCount)
	assert.Equal(t, 2, got.Version)
}

func TestLiveStreamRepository_StopAndCountByStatus(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewLiveStreamRepository(db)
	ctx := context.Background()

	a := newStream(1, "a", true)
	b := newStream(1, "b", true)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	start := time.Now().Add(-90 * time.Second)
	a.Start(start)
	require.NoError(t, repo.Update(ctx, a, 1))
	a.Stop(start.Add(90500 * time.Millisecond))
	require.NoError(t, repo.Update(ctx, a, 2))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StreamEnded, got.Status)
	assert.False(t, got.IsLive)
	assert.Equal(t, 90, got.Duration)
	assert.Equal(t, 3, got.Version)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.StreamEnded])
	assert.Equal(t, int64(1), counts[models.StreamScheduled])
	assert.Equal(t, int64(0), counts[models.StreamLive])
}

func TestLiveStreamRepository_Delete(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewLiveStreamRepository(db)
	ctx := context.Background()

	s := newStream(1, "gone", true)
	require.NoError(t, repo.Create(ctx, s))
	require.NoError(t, repo.Delete(ctx, s.ID))
	assert.Equal(t, 404, models.StatusForError(repo.Delete(ctx, s.ID)))
}
