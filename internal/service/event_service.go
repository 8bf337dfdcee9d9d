package service

import (
	"context"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"dreamio/internal/authz"
	"dreamio/internal/middleware"
	"dreamio/internal/models"
	"dreamio/internal/observability"
	"dreamio/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Date layouts accepted for an event date.
var eventDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// ParseEventDate accepts RFC3339, datetime-local or a bare date.
func ParseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, models.NewValidationError("Invalid date; use YYYY-MM-DD or RFC3339")
}

// EventInput carries the multipart event form. On update empty fields and
// nil files are left unchanged.
type EventInput struct {
	Title       string
	Description string
	Date        string
	Location    string
	Cover       *multipart.FileHeader
	Video       *multipart.FileHeader
}

type EventService struct {
	eventRepo repository.EventRepository
	media     *MediaService
	enforcer  *authz.Enforcer
}

func NewEventService(eventRepo repository.EventRepository, media *MediaService, enforcer *authz.Enforcer) *EventService {
	return &EventService{eventRepo: eventRepo, media: media, enforcer: enforcer}
}

func (s *EventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.eventRepo.List(ctx)
}

func (s *EventService) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

func (s *EventService) CreateEvent(ctx context.Context, actor Actor, in EventInput) (created *models.Event, err error) {
	ctx, span := observability.StartSpan(ctx, "events.create", attribute.Bool("event.has_video", in.Video != nil))
	defer func() { observability.EndSpan(span, err) }()

	if !s.enforcer.Can(actor.Role, authz.ObjEvents, authz.ActCreate) {
		return nil, models.NewForbiddenError("Not allowed to create events")
	}
	if in.Cover == nil {
		return nil, models.NewValidationError("Cover image is required")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	if in.Title == "" || in.Description == "" || in.Date == "" || in.Location == "" {
		return nil, models.NewValidationError("Title, description, date and location are required")
	}
	date, err := ParseEventDate(in.Date)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		Title:       in.Title,
		Description: in.Description,
		Date:        date,
		Location:    in.Location,
		CreatedBy:   actor.ID,
	}

	if event.CoverImage, err = s.media.Save(ctx, KindCoverImage, in.Cover); err != nil {
		return nil, err
	}
	if in.Video != nil {
		if event.VideoFile, err = s.media.Save(ctx, KindEventVideo, in.Video); err != nil {
			s.media.Remove(ctx, event.CoverImage)
			return nil, err
		}
	}
	event.CoverThumbnail = s.thumbnail(ctx, event.CoverImage)

	if err := s.eventRepo.Create(ctx, event); err != nil {
		s.media.Remove(ctx, event.StoredFiles()...)
		return nil, err
	}
	return event, nil
}

// UpdateEvent applies in to an event owned by actor, or any event for
// moderators. A positive ifMatch makes the write conditional on that version.
func (s *EventService) UpdateEvent(ctx context.Context, actor Actor, id uint, in EventInput, ifMatch int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canManage(actor, event) {
		return nil, models.NewForbiddenError("Not authorized to update this event")
	}

	if v := strings.TrimSpace(in.Title); v != "" {
		event.Title = v
	}
	if v := strings.TrimSpace(in.Description); v != "" {
		event.Description = v
	}
	if v := strings.TrimSpace(in.Location); v != "" {
		event.Location = v
	}
	if strings.TrimSpace(in.Date) != "" {
		if event.Date, err = ParseEventDate(in.Date); err != nil {
			return nil, err
		}
	}

	var added, replaced []string
	if in.Cover != nil {
		cover, err := s.media.Save(ctx, KindCoverImage, in.Cover)
		if err != nil {
			return nil, err
		}
		added = append(added, cover)
		replaced = append(replaced, event.CoverImage, event.CoverThumbnail)
		event.CoverImage = cover
		event.CoverThumbnail = s.thumbnail(ctx, cover)
		if event.CoverThumbnail != "" {
			added = append(added, event.CoverThumbnail)
		}
	}
	if in.Video != nil {
		video, err := s.media.Save(ctx, KindEventVideo, in.Video)
		if err != nil {
			s.media.Remove(ctx, added...)
			return nil, err
		}
		added = append(added, video)
		replaced = append(replaced, event.VideoFile)
		event.VideoFile = video
	}

	if err := s.eventRepo.Update(ctx, event, ifMatch); err != nil {
		s.media.Remove(ctx, added...)
		return nil, err
	}
	s.media.Remove(ctx, replaced...)
	return event, nil
}

// DeleteEvent removes the stored files, then the row.
func (s *EventService) DeleteEvent(ctx context.Context, actor Actor, id uint) error {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.canManage(actor, event) {
		return models.NewForbiddenError("Not authorized to delete this event")
	}

	s.media.Remove(ctx, event.StoredFiles()...)
	return s.eventRepo.Delete(ctx, id)
}

func (s *EventService) canManage(actor Actor, event *models.Event) bool {
	return event.CreatedBy == actor.ID || canModerate(s.enforcer, actor, authz.ObjEvents)
}

// thumbnail renders the cover preview; failures only cost the thumbnail.
func (s *EventService) thumbnail(ctx context.Context, cover string) string {
	thumb, err := s.media.CoverThumbnail(ctx, cover)
	if err != nil {
		middleware.Logger.DebugContext(ctx, "cover thumbnail skipped",
			slog.String("cover", cover), slog.String("error", err.Error()))
		return ""
	}
	return thumb
}
