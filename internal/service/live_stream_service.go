package service

import (
	"context"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"dreamio/internal/authz"
	"dreamio/internal/models"
	"dreamio/internal/observability"
	"dreamio/internal/repository"
	"dreamio/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// CreateLiveStreamInput carries the multipart live-stream form. Flags are
// nil when the field was not sent.
type CreateLiveStreamInput struct {
	Title            string `validate:"required,max=255"`
	Description      string
	Platform         string
	StreamKey        string
	ScheduledFor     string
	Tags             string
	Category         string `validate:"max=100"`
	IsPublic         *bool
	ChatEnabled      *bool
	RecordingEnabled *bool
	Video            *multipart.FileHeader
}

// UpdateLiveStreamInput is a partial JSON update; nil fields are kept.
type UpdateLiveStreamInput struct {
	Title            *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description      *string    `json:"description"`
	Platform         *string    `json:"platform" validate:"omitempty,platform"`
	StreamKey        *string    `json:"streamKey"`
	ScheduledFor     *time.Time `json:"scheduledFor"`
	Tags             []string   `json:"tags"`
	Category         *string    `json:"category" validate:"omitempty,max=100"`
	Thumbnail        *string    `json:"thumbnail"`
	Status           *string    `json:"status" validate:"omitempty,streamstatus"`
	IsPublic         *bool      `json:"isPublic"`
	ChatEnabled      *bool      `json:"chatEnabled"`
	RecordingEnabled *bool      `json:"recordingEnabled"`
	StreamURL        *string    `json:"streamUrl"`
	RecordingURL     *string    `json:"recordingUrl"`
}

// ParseFormBool reads an HTML form flag; empty means unset.
func ParseFormBool(s string) (*bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, models.NewValidationError("Boolean fields must be \"true\" or \"false\"")
	}
	return &b, nil
}

// SplitTags turns a comma list into trimmed, non-empty tags.
func SplitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

type LiveStreamService struct {
	streamRepo repository.LiveStreamRepository
	media      *MediaService
	enforcer   *authz.Enforcer
	now        func() time.Time
}

func NewLiveStreamService(streamRepo repository.LiveStreamRepository, media *MediaService, enforcer *authz.Enforcer) *LiveStreamService {
	return &LiveStreamService{streamRepo: streamRepo, media: media, enforcer: enforcer, now: time.Now}
}

func (s *LiveStreamService) ListPublic(ctx context.Context) ([]models.LiveStream, error) {
	return s.streamRepo.ListPublic(ctx)
}

func (s *LiveStreamService) ListCurrent(ctx context.Context) ([]models.LiveStream, error) {
	return s.streamRepo.ListCurrent(ctx)
}

func (s *LiveStreamService) ListByUser(ctx context.Context, userID uint) ([]models.LiveStream, error) {
	return s.streamRepo.ListByUser(ctx, userID)
}

func (s *LiveStreamService) Get(ctx context.Context, id uint) (*models.LiveStream, error) {
	return s.streamRepo.GetByID(ctx, id)
}

func (s *LiveStreamService) Create(ctx context.Context, actor Actor, in CreateLiveStreamInput) (created *models.LiveStream, err error) {
	ctx, span := observability.StartSpan(ctx, "live_streams.create", attribute.String("stream.platform", in.Platform))
	defer func() { observability.EndSpan(span, err) }()

	if !s.enforcer.Can(actor.Role, authz.ObjLiveStreams, authz.ActCreate) {
		return nil, models.NewForbiddenError("Not allowed to create live streams")
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}

	platform := models.Platform(strings.ToLower(strings.TrimSpace(in.Platform)))
	if platform == "" {
		platform = models.PlatformInternal
	}

	stream := &models.LiveStream{
		Title:            in.Title,
		Description:      strings.TrimSpace(in.Description),
		StreamerID:       actor.ID,
		Platform:         platform,
		StreamKey:        strings.TrimSpace(in.StreamKey),
		Status:           models.StreamScheduled,
		Tags:             SplitTags(in.Tags),
		Category:         strings.TrimSpace(in.Category),
		IsPublic:         boolOr(in.IsPublic, true),
		ChatEnabled:      boolOr(in.ChatEnabled, true),
		RecordingEnabled: boolOr(in.RecordingEnabled, false),
	}
	if strings.TrimSpace(in.ScheduledFor) != "" {
		at, err := ParseEventDate(in.ScheduledFor)
		if err != nil {
			return nil, models.NewValidationError("Invalid scheduledFor date")
		}
		stream.ScheduledFor = &at
	}

	// Check the platform rule before writing anything to disk.
	if in.Video != nil {
		stream.VideoFile = in.Video.Filename
		if stream.VideoFile == "" {
			stream.VideoFile = "upload"
		}
	}
	if err := stream.CheckPlatform(); err != nil {
		return nil, err
	}

	if in.Video != nil {
		video, err := s.media.Save(ctx, KindStreamVideo, in.Video)
		if err != nil {
			return nil, err
		}
		stream.VideoFile = video
	}

	if err := s.streamRepo.Create(ctx, stream); err != nil {
		s.media.Remove(ctx, stream.VideoFile)
		return nil, err
	}
	return stream, nil
}

func (s *LiveStreamService) owned(ctx context.Context, actor Actor, id uint, action string) (*models.LiveStream, error) {
	stream, err := s.streamRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stream.StreamerID != actor.ID {
		return nil, models.NewForbiddenError("Not authorized to " + action + " this stream")
	}
	return stream, nil
}

func (s *LiveStreamService) Start(ctx context.Context, actor Actor, id uint) (*models.LiveStream, error) {
	stream, err := s.owned(ctx, actor, id, "start")
	if err != nil {
		return nil, err
	}
	stream.Start(s.now().UTC())
	if err := s.streamRepo.Update(ctx, stream, 0); err != nil {
		return nil, err
	}
	return stream, nil
}

func (s *LiveStreamService) Stop(ctx context.Context, actor Actor, id uint) (*models.LiveStream, error) {
	stream, err := s.owned(ctx, actor, id, "stop")
	if err != nil {
		return nil, err
	}
	stream.Stop(s.now().UTC())
	if err := s.streamRepo.Update(ctx, stream, 0); err != nil {
		return nil, err
	}
	return stream, nil
}

func (s *LiveStreamService) SetViewerCount(ctx context.Context, id uint, count int) (*models.LiveStream, error) {
	if count < 0 {
		return nil, models.NewValidationError("viewerCount must be zero or greater")
	}
	return s.streamRepo.SetViewerCount(ctx, id, count)
}

func (s *LiveStreamService) SetLikeCount(ctx context.Context, id uint, count int) (*models.LiveStream, error) {
	if count < 0 {
		return nil, models.NewValidationError("likeCount must be zero or greater")
	}
	return s.streamRepo.SetLikeCount(ctx, id, count)
}

// Update applies a partial metadata update and re-checks the platform rule.
// Moving an uploaded stream to an external platform discards its video.
// Moving an external stream to dreamio fails, since a video can only be
// attached at creation.
func (s *LiveStreamService) Update(ctx context.Context, actor Actor, id uint, in UpdateLiveStreamInput, ifMatch int) (*models.LiveStream, error) {
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}
	stream, err := s.owned(ctx, actor, id, "update")
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		stream.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		stream.Description = *in.Description
	}
	var droppedVideo string
	if in.Platform != nil {
		stream.Platform = models.Platform(*in.Platform)
		if stream.Platform != models.PlatformInternal && stream.VideoFile != "" {
			droppedVideo, stream.VideoFile = stream.VideoFile, ""
		}
	}
	if in.StreamKey != nil {
		stream.StreamKey = strings.TrimSpace(*in.StreamKey)
	}
	if in.ScheduledFor != nil {
		at := in.ScheduledFor.UTC()
		stream.ScheduledFor = &at
	}
	if in.Tags != nil {
		stream.Tags = SplitTags(strings.Join(in.Tags, ","))
	}
	if in.Category != nil {
		stream.Category = strings.TrimSpace(*in.Category)
	}
	if in.Thumbnail != nil {
		stream.Thumbnail = *in.Thumbnail
	}
	if in.Status != nil {
		stream.Status = models.StreamStatus(*in.Status)
	}
	if in.IsPublic != nil {
		stream.IsPublic = *in.IsPublic
	}
	if in.ChatEnabled != nil {
		stream.ChatEnabled = *in.ChatEnabled
	}
	if in.RecordingEnabled != nil {
		stream.RecordingEnabled = *in.RecordingEnabled
	}
	if in.StreamURL != nil {
		stream.StreamURL = *in.StreamURL
	}
	if in.RecordingURL != nil {
		stream.RecordingURL = *in.RecordingURL
	}

	if err := stream.CheckPlatform(); err != nil {
		return nil, err
	}
	if err := s.streamRepo.Update(ctx, stream, ifMatch); err != nil {
		return nil, err
	}
	s.media.Remove(ctx, droppedVideo)
	return stream, nil
}

func (s *LiveStreamService) Delete(ctx context.Context, actor Actor, id uint) error {
	stream, err := s.owned(ctx, actor, id, "delete")
	if err != nil {
		return err
	}
	if err := s.streamRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.media.Remove(ctx, stream.VideoFile)
	return nil
}
