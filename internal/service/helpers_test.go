package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dreamio/internal/authz"
	"dreamio/internal/cache"
	"dreamio/internal/config"
	"dreamio/internal/database"
	"dreamio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	cache.SetClient(nil)
	return db
}

func newTestEnforcer(t *testing.T) *authz.Enforcer {
	t.Helper()
	e, err := authz.NewEnforcer()
	require.NoError(t, err)
	return e
}

func newTestMedia(t *testing.T) *MediaService {
	t.Helper()
	m := NewMediaService(&config.Config{UploadDir: t.TempDir()})
	require.NoError(t, m.EnsureDirs())
	return m
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// mp4Bytes returns an ISO base media header followed by padding.
func mp4Bytes(size int) []byte {
	header := []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2")
	if size < len(header) {
		size = len(header)
	}
	out := make([]byte, size)
	copy(out, header)
	return out
}

func fileHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Name: strings.Split(email, "@")[0], Email: email, Password: "hash", Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func actorFor(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, code, appErr.Code, appErr.Message)
	}
}

func assertStored(t *testing.T, m *MediaService, publicPath string) {
	t.Helper()
	disk, ok := m.diskPath(publicPath)
	require.True(t, ok, publicPath)
	_, err := os.Stat(disk)
	assert.NoError(t, err, "expected %s on disk", publicPath)
}

func assertRemoved(t *testing.T, m *MediaService, publicPath string) {
	t.Helper()
	disk, ok := m.diskPath(publicPath)
	require.True(t, ok, publicPath)
	_, err := os.Stat(disk)
	assert.True(t, os.IsNotExist(err), "expected %s to be removed", publicPath)
}

func countFiles(t *testing.T, m *MediaService, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(m.Root(), dir))
	require.NoError(t, err)
	return len(entries)
}
