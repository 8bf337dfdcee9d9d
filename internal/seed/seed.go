package seed

import (
	"fmt"
	"log/slog"
	"os"

	"dreamio/internal/middleware"
	"dreamio/internal/models"
	"dreamio/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Account is a fixed login created by a preset, e.g. a known admin.
type Account struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// Preset describes a reusable seeding scenario loaded from YAML.
type Preset struct {
	Name     string    `yaml:"name"`
	Users    int       `yaml:"users"`
	Events   int       `yaml:"events"`
	Streams  int       `yaml:"streams"`
	MaxDays  int       `yaml:"maxDays"`
	Clean    *bool     `yaml:"clean"`
	Accounts []Account `yaml:"accounts"`
}

// ParsePreset decodes and checks a YAML preset.
func ParsePreset(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	if p.Users < 0 || p.Events < 0 || p.Streams < 0 {
		return nil, fmt.Errorf("preset %q: counts must not be negative", p.Name)
	}
	for i, a := range p.Accounts {
		if err := validation.ValidateEmail(a.Email); err != nil {
			return nil, fmt.Errorf("preset %q: account %d: %w", p.Name, i, err)
		}
		if a.Name != "" {
			if err := validation.ValidateName(a.Name); err != nil {
				return nil, fmt.Errorf("preset %q: account %s: %w", p.Name, a.Email, err)
			}
		}
		if _, ok := models.ParseRole(a.Role); !ok {
			return nil, fmt.Errorf("preset %q: account %s has unknown role %q", p.Name, a.Email, a.Role)
		}
	}
	return &p, nil
}

// LoadPreset reads a preset file from disk.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path) // #nosec G304: operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	return ParsePreset(data)
}

// Options applies the preset over base.
func (p *Preset) Options(base Options) Options {
	base.Users = p.Users
	base.Events = p.Events
	base.Streams = p.Streams
	if p.MaxDays > 0 {
		base.MaxDays = p.MaxDays
	}
	if p.Clean != nil {
		base.Clean = *p.Clean
	}
	return base
}

// Summary counts what a run created.
type Summary struct {
	Users   []*models.User
	Events  int
	Streams int
}

// Seeder fills the database with generated users, events and live streams.
type Seeder struct {
	db *gorm.DB
}

func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll removes every row the seeder can create, children first.
func (s *Seeder) ClearAll() error {
	middleware.Logger.Info("Clearing existing data")
	for _, table := range []string{"live_streams", "events", "users"} {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// Run seeds according to opts. Events and streams are spread round-robin
// across the users created in this run.
func (s *Seeder) Run(opts Options, accounts ...Account) (*Summary, error) {
	if opts.Clean && !opts.DryRun {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}

	f, err := NewFactory(s.db, opts)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, a := range accounts {
		role, _ := models.ParseRole(a.Role)
		name := a.Name
		user, err := f.CreateUser(func(u *models.User) {
			u.Email = models.NormalizeEmail(a.Email)
			u.Role = role
			if name != "" {
				u.Name = name
			}
		})
		if err != nil {
			return nil, fmt.Errorf("create account %s: %w", a.Email, err)
		}
		summary.Users = append(summary.Users, user)
	}

	for i := 0; i < opts.Users; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		summary.Users = append(summary.Users, user)
	}
	middleware.Logger.Info("Seeded users", slog.Int("count", len(summary.Users)))

	if len(summary.Users) == 0 && (opts.Events > 0 || opts.Streams > 0) {
		return nil, fmt.Errorf("events and streams need at least one user")
	}

	for i := 0; i < opts.Events; i++ {
		if _, err := f.CreateEvent(summary.Users[i%len(summary.Users)]); err != nil {
			return nil, fmt.Errorf("create event: %w", err)
		}
		summary.Events++
	}
	middleware.Logger.Info("Seeded events", slog.Int("count", summary.Events))

	for i := 0; i < opts.Streams; i++ {
		if _, err := f.CreateLiveStream(summary.Users[i%len(summary.Users)]); err != nil {
			return nil, fmt.Errorf("create live stream: %w", err)
		}
		summary.Streams++
	}
	middleware.Logger.Info("Seeded live streams", slog.Int("count", summary.Streams))

	return summary, nil
}

// ApplyPreset runs p with base as the starting options.
func (s *Seeder) ApplyPreset(p *Preset, base Options) (*Summary, error) {
	middleware.Logger.Info("Applying preset", slog.String("name", p.Name))
	return s.Run(p.Options(base), p.Accounts...)
}
