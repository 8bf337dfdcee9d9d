// Package seed creates demo data for local development and manual testing.
package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"dreamio/internal/middleware"
	"dreamio/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options tunes a seeding run.
type Options struct {
	Users   int
	Events  int
	Streams int
	Clean   bool
	// DryRun builds entities with synthetic ids and writes nothing.
	DryRun bool
	// FastHash hashes passwords at bcrypt.MinCost.
	FastHash bool
	// MaxDays spreads event dates and stream schedules around now.
	MaxDays int
}

var externalPlatforms = []models.Platform{
	models.PlatformYouTube,
	models.PlatformFacebook,
	models.PlatformTwitch,
	models.PlatformCustom,
}

var streamCategories = []string{"Music", "Gaming", "Talk", "Education", "Sports", "Art"}

// sampleVideos are public clips used for internal streams and event videos.
var sampleVideos = []string{
	"https://storage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4",
	"https://storage.googleapis.com/gtv-videos-bucket/sample/ElephantsDream.mp4",
	"https://storage.googleapis.com/gtv-videos-bucket/sample/Sintel.mp4",
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	opts   Options
	rng    *rand.Rand
	hash   string
	nextID uint
}

// NewFactory creates a Factory bound to db. db may be nil in dry-run mode.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	cost := bcrypt.DefaultCost
	if opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}

	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	// #nosec G404: acceptable for seeding
	rng := rand.New(rand.NewSource(seed))
	return &Factory{db: db, opts: opts, rng: rng, hash: string(hash), nextID: 1000}, nil
}

func (f *Factory) persist(value any, id *uint, kind string) error {
	if f.opts.DryRun {
		f.nextID++
		*id = f.nextID
		middleware.Logger.Debug("dry-run create", slog.String("kind", kind), slog.Uint64("id", uint64(*id)))
		return nil
	}
	return f.db.Create(value).Error
}

// spread returns a time up to MaxDays before or after now.
func (f *Factory) spread() time.Time {
	offset := time.Duration(f.rng.Intn(2*f.opts.MaxDays*24)-f.opts.MaxDays*24) * time.Hour
	return time.Now().UTC().Add(offset).Truncate(time.Minute)
}

// CreateUser constructs and persists a sample user. Overrides run before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	person := gofakeit.Person()
	user := &models.User{
		Name:         person.FirstName + " " + person.LastName,
		Email:        models.NormalizeEmail(fmt.Sprintf("%s.%s%d@example.com", person.FirstName, person.LastName, gofakeit.Number(100, 999))),
		Password:     f.hash,
		Role:         models.RoleUser,
		ProfileImage: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}
	if f.rng.Intn(5) == 0 {
		user.Role = models.RoleDesigner
	}

	for _, override := range overrides {
		override(user)
	}
	if err := f.persist(user, &user.ID, "user"); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildEvent returns an unsaved event created by user.
func (f *Factory) BuildEvent(user *models.User, overrides ...func(*models.Event)) *models.Event {
	event := &models.Event{
		Title:       strings.TrimSuffix(gofakeit.Sentence(4), "."),
		Description: gofakeit.Paragraph(1, 3, 12, "\n"),
		Date:        f.spread(),
		Location:    gofakeit.City() + ", " + gofakeit.Country(),
		CreatedBy:   user.ID,
		CoverImage:  fmt.Sprintf("https://picsum.photos/seed/%s/1200/675", gofakeit.UUID()),
		Version:     1,
	}
	if f.rng.Intn(3) == 0 {
		event.VideoFile = sampleVideos[f.rng.Intn(len(sampleVideos))]
	}
	for _, override := range overrides {
		override(event)
	}
	return event
}

// CreateEvent builds and persists an event created by user.
func (f *Factory) CreateEvent(user *models.User, overrides ...func(*models.Event)) (*models.Event, error) {
	event := f.BuildEvent(user, overrides...)
	if err := f.persist(event, &event.ID, "event"); err != nil {
		return nil, err
	}
	return event, nil
}

// BuildLiveStream returns an unsaved stream owned by user that satisfies the
// platform rule. Roughly one in four streams is internal.
func (f *Factory) BuildLiveStream(user *models.User, overrides ...func(*models.LiveStream)) *models.LiveStream {
	stream := &models.LiveStream{
		Title:            strings.TrimSuffix(gofakeit.Sentence(3), "."),
		Description:      gofakeit.Sentence(12),
		StreamerID:       user.ID,
		Status:           models.StreamScheduled,
		Category:         streamCategories[f.rng.Intn(len(streamCategories))],
		Tags:             []string{gofakeit.Word(), gofakeit.Word()},
		IsPublic:         f.rng.Intn(10) > 0,
		ChatEnabled:      true,
		RecordingEnabled: f.rng.Intn(2) == 0,
		Thumbnail:        fmt.Sprintf("https://picsum.photos/seed/%s/640/360", gofakeit.UUID()),
		Version:          1,
	}
	if f.rng.Intn(4) == 0 {
		stream.Platform = models.PlatformInternal
		stream.VideoFile = sampleVideos[f.rng.Intn(len(sampleVideos))]
	} else {
		stream.Platform = externalPlatforms[f.rng.Intn(len(externalPlatforms))]
		stream.StreamKey = gofakeit.UUID()
	}

	at := f.spread()
	switch {
	case at.After(time.Now()):
		stream.ScheduledFor = &at
	case f.rng.Intn(4) == 0:
		stream.Start(at)
		stream.ViewerCount = f.rng.Intn(500)
		stream.LikeCount = f.rng.Intn(200)
	default:
		stream.Start(at)
		stream.Stop(at.Add(time.Duration(15+f.rng.Intn(120)) * time.Minute))
		stream.LikeCount = f.rng.Intn(200)
	}

	for _, override := range overrides {
		override(stream)
	}
	return stream
}

// CreateLiveStream builds and persists a stream owned by user.
func (f *Factory) CreateLiveStream(user *models.User, overrides ...func(*models.LiveStream)) (*models.LiveStream, error) {
	stream := f.BuildLiveStream(user, overrides...)
	if err := stream.CheckPlatform(); err != nil {
		return nil, err
	}
	if err := f.persist(stream, &stream.ID, "live stream"); err != nil {
		return nil, err
	}
	return stream, nil
}
