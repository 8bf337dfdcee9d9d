package seed

import (
	"os"
	"path/filepath"
	"testing"

	"dreamio/internal/database"
	"dreamio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func TestBuildLiveStream_RespectsPlatformRule(t *testing.T) {
	f, err := NewFactory(nil, Options{DryRun: true, FastHash: true})
	require.NoError(t, err)
	user := &models.User{ID: 1}

	for i := 0; i < 200; i++ {
		stream := f.BuildLiveStream(user)
		require.NoError(t, stream.CheckPlatform())
		if stream.Status == models.StreamEnded {
			assert.False(t, stream.IsLive)
			assert.NotNil(t, stream.EndTime)
		}
		if stream.Status == models.StreamLive {
			assert.True(t, stream.IsLive)
		}
	}
}

func TestFactory_DryRunAssignsIDs(t *testing.T) {
	f, err := NewFactory(nil, Options{DryRun: true, FastHash: true, MaxDays: 10})
	require.NoError(t, err)

	user, err := f.CreateUser()
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Contains(t, user.Email, "@example.com")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(DefaultPassword)))

	event, err := f.CreateEvent(user)
	require.NoError(t, err)
	assert.Greater(t, event.ID, user.ID)
	assert.Equal(t, user.ID, event.CreatedBy)
	assert.NotEmpty(t, event.CoverImage)
}

func TestSeeder_Run(t *testing.T) {
	db := setupDB(t)
	s := NewSeeder(db)

	summary, err := s.Run(Options{Users: 4, Events: 6, Streams: 5, FastHash: true},
		Account{Name: "Root", Email: "Admin@Dreamio.dev", Role: "admin"})
	require.NoError(t, err)
	assert.Len(t, summary.Users, 5)
	assert.Equal(t, 6, summary.Events)
	assert.Equal(t, 5, summary.Streams)

	var admin models.User
	require.NoError(t, db.Where("email = ?", "admin@dreamio.dev").First(&admin).Error)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "Root", admin.Name)

	var events, streams int64
	require.NoError(t, db.Model(&models.Event{}).Count(&events).Error)
	require.NoError(t, db.Model(&models.LiveStream{}).Count(&streams).Error)
	assert.Equal(t, int64(6), events)
	assert.Equal(t, int64(5), streams)

	// A clean run replaces the previous data.
	_, err = s.Run(Options{Users: 1, Clean: true, FastHash: true})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Event{}).Count(&events).Error)
	assert.Zero(t, events)
}

func TestSeeder_RunNeedsUsers(t *testing.T) {
	_, err := NewSeeder(setupDB(t)).Run(Options{Events: 1, FastHash: true})
	assert.Error(t, err)
}

func TestLoadPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: demo
users: 3
events: 2
streams: 1
maxDays: 7
clean: false
accounts:
  - name: Ada
    email: ada@example.com
    role: Designer
`), 0o600))

	p, err := LoadPreset(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", p.Name)
	require.Len(t, p.Accounts, 1)
	assert.Equal(t, "Designer", p.Accounts[0].Role)

	opts := p.Options(Options{Clean: true, MaxDays: 90})
	assert.Equal(t, Options{Users: 3, Events: 2, Streams: 1, MaxDays: 7, Clean: false}, opts)

	summary, err := NewSeeder(setupDB(t)).ApplyPreset(p, Options{FastHash: true})
	require.NoError(t, err)
	assert.Len(t, summary.Users, 4)
}

func TestParsePreset_Rejects(t *testing.T) {
	tests := map[string]string{
		"bad yaml":       "users: [",
		"negative count": "users: -1",
		"missing email":  "accounts:\n  - name: x\n",
		"unknown role":   "accounts:\n  - email: a@b.c\n    role: root\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePreset([]byte(doc))
			assert.Error(t, err)
		})
	}
}
