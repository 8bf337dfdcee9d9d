package server

import (
	"net/http"
	"testing"
	"time"

	"dreamio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventFields(title string) map[string]string {
	return map[string]string{
		"title":       title,
		"description": "Launch party",
		"date":        "2026-11-05",
		"location":    "Berlin",
	}
}

func (e *testEnv) createEvent(t *testing.T, token, title string, withVideo bool) models.Event {
	t.Helper()
	files := map[string]formFile{"coverImage": {name: "cover.png", data: pngBytes(t, 32, 20)}}
	if withVideo {
		files["videoFile"] = formFile{name: "clip.mp4", data: mp4Bytes(4096)}
	}
	resp := e.doMultipart(t, http.MethodPost, "/api/events", token, eventFields(title), files)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var event models.Event
	decodeJSON(t, resp, &event)
	return event
}

func TestCreateEvent(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.registerAndLogin(t, "host@example.com", "")

	event := env.createEvent(t, token, "Release", true)
	assert.Equal(t, userID, event.CreatedBy)
	assert.Equal(t, 1, event.Version)
	assert.Regexp(t, `^/uploads/images/[0-9a-f-]+\.png$`, event.CoverImage)
	assert.Regexp(t, `^/uploads/videos/[0-9a-f-]+\.mp4$`, event.VideoFile)
	assert.True(t, env.uploadExists(t, event.CoverImage))
	assert.True(t, env.uploadExists(t, event.VideoFile))
	served := env.doJSON(t, http.MethodGet, event.CoverImage, "", nil)
	assert.Equal(t, http.StatusOK, served.StatusCode)
	if event.CoverThumbnail != "" {
		assert.True(t, env.uploadExists(t, event.CoverThumbnail))
	}

	// The /create alias behaves the same.
	resp := env.doMultipart(t, http.MethodPost, "/api/events/create", token, eventFields("Alias"),
		map[string]formFile{"coverImage": {name: "cover.png", data: pngBytes(t, 8, 8)}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var raw map[string]any
	decodeJSON(t, resp, &raw)
	assert.NotContains(t, raw, "videoFile", "cover-only events carry no video field")
}

func TestCreateEvent_Validation(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerAndLogin(t, "host@example.com", "")
	cover := map[string]formFile{"coverImage": {name: "cover.png", data: pngBytes(t, 8, 8)}}

	resp := env.doMultipart(t, http.MethodPost, "/api/events", token, eventFields("No cover"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	fields := eventFields("Missing location")
	delete(fields, "location")
	resp = env.doMultipart(t, http.MethodPost, "/api/events", token, fields, cover)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	fields = eventFields("Bad date")
	fields["date"] = "next tuesday"
	resp = env.doMultipart(t, http.MethodPost, "/api/events", token, fields, cover)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.doMultipart(t, http.MethodPost, "/api/events", "", eventFields("Anon"), cover)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var count int64
	require.NoError(t, env.db.Model(&models.Event{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetEvents(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerAndLogin(t, "host@example.com", "")

	older := env.createEvent(t, token, "Older", false)
	require.NoError(t, env.db.Model(&models.Event{}).Where("id = ?", older.ID).
		Update("date", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)).Error)
	newer := env.createEvent(t, token, "Newer", false)

	resp := env.doJSON(t, http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []models.Event
	decodeJSON(t, resp, &events)
	require.Len(t, events, 2)
	assert.Equal(t, newer.ID, events[0].ID)
	assert.Equal(t, older.ID, events[1].ID)

	resp = env.doJSON(t, http.MethodGet, idPath("/api/events", newer.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `W/"1"`, resp.Header.Get("ETag"))

	resp = env.doJSON(t, http.MethodGet, "/api/events/999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.doJSON(t, http.MethodGet, "/api/events/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateEvent(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.registerAndLogin(t, "owner@example.com", "")
	other, _ := env.registerAndLogin(t, "other@example.com", "")
	event := env.createEvent(t, owner, "Draft", false)
	path := idPath("/api/events", event.ID)

	resp := env.doMultipart(t, http.MethodPut, path, other, map[string]string{"title": "Hijack"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.doMultipart(t, http.MethodPut, path, owner, map[string]string{"title": "Final"},
		map[string]formFile{"coverImage": {name: "new.png", data: pngBytes(t, 16, 16)}},
		"If-Match", `W/"1"`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `W/"2"`, resp.Header.Get("ETag"))
	var updated models.Event
	decodeJSON(t, resp, &updated)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, "Launch party", updated.Description)
	assert.NotEqual(t, event.CoverImage, updated.CoverImage)
	assert.False(t, env.uploadExists(t, event.CoverImage), "replaced cover should be removed")
	assert.True(t, env.uploadExists(t, updated.CoverImage))

	// A writer holding the old version loses.
	resp = env.doMultipart(t, http.MethodPut, path, owner, map[string]string{"title": "Stale"}, nil,
		"If-Match", `W/"1"`)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	var errBody models.ErrorResponse
	decodeJSON(t, resp, &errBody)
	assert.Equal(t, models.CodePreconditionFailed, errBody.Code)

	// Without If-Match the last write wins.
	resp = env.doMultipart(t, http.MethodPut, path, owner, map[string]string{"location": "Paris"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `W/"3"`, resp.Header.Get("ETag"))

	resp = env.doMultipart(t, http.MethodPut, path, owner, map[string]string{"title": "x"}, nil,
		"If-Match", "banana")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteEvent(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.registerAndLogin(t, "owner@example.com", "")
	other, _ := env.registerAndLogin(t, "other@example.com", "")
	admin, _ := env.registerAndLogin(t, "admin@example.com", "Admin")

	mine := env.createEvent(t, owner, "Mine", true)
	resp := env.doJSON(t, http.MethodDelete, idPath("/api/events", mine.ID), other, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.doJSON(t, http.MethodDelete, idPath("/api/events", mine.ID), owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeJSON(t, resp, &body)
	assert.True(t, body.Success)
	assert.False(t, env.uploadExists(t, mine.CoverImage))
	assert.False(t, env.uploadExists(t, mine.VideoFile))

	resp = env.doJSON(t, http.MethodDelete, idPath("/api/events", mine.ID), owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	theirs := env.createEvent(t, other, "Theirs", false)
	resp = env.doJSON(t, http.MethodDelete, idPath("/api/events", theirs.ID), admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
