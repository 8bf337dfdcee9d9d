package service

import (
	"context"
	"testing"

	"dreamio/internal/models"
	"dreamio/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_UpdateUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db), newTestMedia(t))
	ctx := context.Background()

	ada := createUser(t, db, "ada@example.com", models.RoleUser)
	createUser(t, db, "taken@example.com", models.RoleUser)

	updated, err := svc.UpdateUser(ctx, ada.ID, UpdateUserInput{Name: "Ada L.", Role: "designer"})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.Equal(t, models.RoleDesigner, updated.Role)
	assert.Equal(t, "ada@example.com", updated.Email)

	_, err = svc.UpdateUser(ctx, ada.ID, UpdateUserInput{Email: "Taken@example.com"})
	assertCode(t, err, models.CodeConflict)

	_, err = svc.UpdateUser(ctx, ada.ID, UpdateUserInput{Role: "superuser"})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.UpdateUser(ctx, 999, UpdateUserInput{Name: "Ghost"})
	assertCode(t, err, models.CodeNotFound)

	var stored models.User
	require.NoError(t, db.First(&stored, ada.ID).Error)
	assert.Equal(t, "hash", stored.Password, "admin edits never touch the password hash")
}

func TestUserService_DeleteUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db), newTestMedia(t))
	ctx := context.Background()

	u := createUser(t, db, "gone@example.com", models.RoleUser)
	require.NoError(t, svc.DeleteUser(ctx, u.ID))
	assertCode(t, svc.DeleteUser(ctx, u.ID), models.CodeNotFound)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserService_UploadProfileImage(t *testing.T) {
	db := setupTestDB(t)
	media := newTestMedia(t)
	svc := NewUserService(repository.NewUserRepository(db), media)
	ctx := context.Background()
	u := createUser(t, db, "pic@example.com", models.RoleUser)

	first, err := svc.UploadProfileImage(ctx, u.ID, fileHeader(t, "profileImage", "a.png", pngBytes(t, 16, 16)))
	require.NoError(t, err)
	assertStored(t, media, first)

	second, err := svc.UploadProfileImage(ctx, u.ID, fileHeader(t, "profileImage", "b.png", pngBytes(t, 16, 16)))
	require.NoError(t, err)
	assertStored(t, media, second)
	assertRemoved(t, media, first)

	got, err := svc.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, second, got.ProfileImage)

	_, err = svc.UploadProfileImage(ctx, u.ID, fileHeader(t, "profileImage", "doc.png", []byte("%PDF-1.4 not an image")))
	assertCode(t, err, models.CodeValidation)
}

func TestStatsService_Collect(t *testing.T) {
	db := setupTestDB(t)
	users := repository.NewUserRepository(db)
	events := repository.NewEventRepository(db)
	streams := repository.NewLiveStreamRepository(db)
	ctx := context.Background()

	createUser(t, db, "a@example.com", models.RoleUser)
	createUser(t, db, "b@example.com", models.RoleAdmin)
	s := &models.LiveStream{Title: "x", StreamerID: 1, Platform: models.PlatformYouTube, StreamKey: "k", IsPublic: true}
	require.NoError(t, streams.Create(ctx, s))

	stats, err := NewStatsService(users, events, streams).Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.UsersByRole[models.RoleAdmin])
	assert.Zero(t, stats.TotalEvents)
	assert.Equal(t, int64(1), stats.LiveStreamsByStatus[models.StreamScheduled])
}
