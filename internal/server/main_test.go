package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dreamio/internal/config"
	"dreamio/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-with-at-least-32-characters"

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

type testOption func(*config.Config)

func withAdminSignupDisabled(cfg *config.Config) { cfg.AllowAdminSignup = false }

func setupSQLiteDB(t *testing.T) *gorm.DB {
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
	return db
}

func newTestEnvWithRedis(t *testing.T, rdb *redis.Client, opts ...testOption) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	cfg := &config.Config{
		Port:                 "0",
		Env:                  "test",
		JWTSecret:            testSecret,
		AllowedOrigins:       "http://localhost:5173",
		UploadDir:            t.TempDir(),
		EventMaxUploadSizeMB: 10,
		AllowAdminSignup:     true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	db := setupSQLiteDB(t)
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	require.NoError(t, srv.media.EnsureDirs())

	app := NewApp()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)
	srv.app = app

	return &testEnv{srv: srv, app: app, db: db, cfg: cfg}
}

func newTestEnv(t *testing.T, opts ...testOption) *testEnv {
	return newTestEnvWithRedis(t, nil, opts...)
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// do sends req through the app without a timeout; bcrypt is slow under -race.
func (e *testEnv) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return e.do(t, req)
}

type formFile struct {
	name string
	data []byte
}

func (e *testEnv) doMultipart(t *testing.T, method, path, token string, fields map[string]string, files map[string]formFile, headers ...string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, f := range files {
		part, err := w.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return e.do(t, req)
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// registerAndLogin creates an account over HTTP and returns its token and id.
func (e *testEnv) registerAndLogin(t *testing.T, email, role string) (string, uint) {
	t.Helper()
	resp := e.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     strings.Split(email, "@")[0],
		"email":    email,
		"password": "password123",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	decodeJSON(t, resp, &body)
	require.NotEmpty(t, body.Token)
	return body.Token, body.User.ID
}

func (e *testEnv) uploadExists(t *testing.T, publicPath string) bool {
	t.Helper()
	rel := strings.TrimPrefix(publicPath, "/uploads/")
	_, err := os.Stat(filepath.Join(e.cfg.UploadDir, filepath.FromSlash(rel)))
	return err == nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
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

func idPath(prefix string, id uint, suffix ...string) string {
	return fmt.Sprintf("%s/%d%s", prefix, id, strings.Join(suffix, ""))
}
