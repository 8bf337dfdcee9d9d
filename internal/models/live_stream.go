package models

import (
	"time"
)

// Platform identifies where a live stream is broadcast.
type Platform string

const (
	// PlatformInternal streams an uploaded video inside the app.
	PlatformInternal Platform = "dreamio"
	PlatformYouTube  Platform = "youtube"
	PlatformFacebook Platform = "facebook"
	PlatformTwitch   Platform = "twitch"
	PlatformCustom   Platform = "custom"
)

// ValidPlatform reports whether p is a known platform.
func ValidPlatform(p Platform) bool {
	switch p {
	case PlatformInternal, PlatformYouTube, PlatformFacebook, PlatformTwitch, PlatformCustom:
		return true
	}
	return false
}

// StreamStatus is the lifecycle state of a live stream.
type StreamStatus string

const (
	StreamScheduled StreamStatus = "scheduled"
	StreamLive      StreamStatus = "live"
	StreamEnded     StreamStatus = "ended"
	StreamCancelled StreamStatus = "cancelled"
)

// ValidStreamStatus reports whether s is a known status.
func ValidStreamStatus(s StreamStatus) bool {
	switch s {
	case StreamScheduled, StreamLive, StreamEnded, StreamCancelled:
		return true
	}
	return false
}

// LiveStream is the metadata record of a simulated broadcast.
type LiveStream struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	Title            string       `gorm:"size:255;not null" json:"title"`
	Description      string       `gorm:"type:text" json:"description"`
	StreamerID       uint         `gorm:"not null;index" json:"streamerId"`
	Streamer         *User        `gorm:"foreignKey:StreamerID" json:"streamer,omitempty"`
	Platform         Platform     `gorm:"size:20;not null;default:dreamio" json:"platform"`
	StreamKey        string       `gorm:"size:255" json:"streamKey,omitempty"`
	VideoFile        string       `gorm:"size:500" json:"videoFile,omitempty"`
	IsLive           bool         `gorm:"not null;default:false;index" json:"isLive"`
	ViewerCount      int          `gorm:"not null;default:0" json:"viewerCount"`
	LikeCount        int          `gorm:"not null;default:0" json:"likeCount"`
	StartTime        *time.Time   `json:"startTime,omitempty"`
	EndTime          *time.Time   `json:"endTime,omitempty"`
	Duration         int          `gorm:"not null;default:0" json:"duration"`
	Thumbnail        string       `gorm:"size:500" json:"thumbnail,omitempty"`
	Status           StreamStatus `gorm:"size:20;not null;default:scheduled;index" json:"status"`
	ScheduledFor     *time.Time   `json:"scheduledFor,omitempty"`
	Tags             []string     `gorm:"serializer:json" json:"tags"`
	Category         string       `gorm:"size:100;index" json:"category,omitempty"`
	IsPublic         bool         `gorm:"not null;index" json:"isPublic"`
	StreamURL        string       `gorm:"size:500" json:"streamUrl,omitempty"`
	ChatEnabled      bool         `gorm:"not null" json:"chatEnabled"`
	RecordingEnabled bool         `gorm:"not null;default:false" json:"recordingEnabled"`
	RecordingURL     string       `gorm:"size:500" json:"recordingUrl,omitempty"`
	Version          int          `gorm:"not null;default:1" json:"version"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// CheckPlatform enforces that internal streams carry an uploaded video and
// no stream key, while external platforms carry a stream key and no video.
func (s *LiveStream) CheckPlatform() error {
	if !ValidPlatform(s.Platform) {
		return NewValidationError("Invalid platform")
	}
	if s.Platform == PlatformInternal {
		if s.VideoFile == "" {
			return NewValidationError("Video file is required for dreamio streams")
		}
		if s.StreamKey != "" {
			return NewValidationError("Stream key is only used for external platforms")
		}
		return nil
	}
	if s.StreamKey == "" {
		return NewValidationError("Stream key is required for external platforms")
	}
	if s.VideoFile != "" {
		return NewValidationError("Video upload is only used for dreamio streams")
	}
	return nil
}

// Start marks the stream as broadcasting from now.
func (s *LiveStream) Start(now time.Time) {
	s.IsLive = true
	s.Status = StreamLive
	s.StartTime = &now
	s.EndTime = nil
}

// Stop ends the broadcast and records its whole-second duration.
func (s *LiveStream) Stop(now time.Time) {
	s.IsLive = false
	s.Status = StreamEnded
	s.EndTime = &now
	if s.StartTime != nil {
		d := now.Sub(*s.StartTime)
		if d < 0 {
			d = 0
		}
		s.Duration = int(d / time.Second)
	}
}
