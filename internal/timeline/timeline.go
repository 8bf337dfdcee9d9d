// Package timeline models the state of the non-linear video editor: media
// items, clips on parallel tracks, a trim region, overlays and the playhead.
//
// Every numeric input is clamped into range instead of rejected. Operations
// on unknown clip or overlay ids leave the state unchanged and report false.
// Clips may overlap on a track; the editor treats stacked clips as layers.
package timeline

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultDuration is the timeline length before any media reports its own.
	DefaultDuration = 120.0
	// DefaultClipDuration is the length of a clip added from the media library.
	DefaultClipDuration = 30.0
	// ImportedVideoDuration is the length of the clip created when a video is imported.
	ImportedVideoDuration = 120.0
	// MinSpan is the smallest clip length and the smallest trim region.
	MinSpan = 1.0
)

// Track is one of the parallel timeline lanes.
type Track string

const (
	TrackVideo    Track = "video"
	TrackAudio    Track = "audio"
	TrackGraphics Track = "graphics"
)

// Edge selects which side of a trim region or clip is being dragged.
type Edge string

const (
	EdgeStart Edge = "start"
	EdgeEnd   Edge = "end"
)

// newID is swapped in tests that need stable identifiers.
var newID = uuid.NewString

// MediaItem is an imported file available to the editor.
type MediaItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Track returns the lane a clip of this media belongs on; ok is false for
// media that cannot be placed as a clip (images are preview-only).
func (m MediaItem) Track() (Track, bool) {
	switch {
	case strings.HasPrefix(m.Type, "video/"):
		return TrackVideo, true
	case strings.HasPrefix(m.Type, "audio/"):
		return TrackAudio, true
	default:
		return "", false
	}
}

// Clip is a placed reference to a media item.
type Clip struct {
	ID        string  `json:"id"`
	MediaID   string  `json:"mediaId"`
	Name      string  `json:"name"`
	Track     Track   `json:"track"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
	URL       string  `json:"url,omitempty"`
}

// End is the timeline position where the clip stops.
func (c Clip) End() float64 {
	return c.StartTime + c.Duration
}

// State is the complete editor state.
type State struct {
	Duration       float64     `json:"duration"`
	CurrentTime    float64     `json:"currentTime"`
	TrimStart      float64     `json:"trimStart"`
	TrimEnd        float64     `json:"trimEnd"`
	Playing        bool        `json:"isPlaying"`
	SelectedClipID string      `json:"selectedClipId,omitempty"`
	Clips          []Clip      `json:"clips"`
	MediaItems     []MediaItem `json:"mediaItems"`
	Overlays       []Overlay   `json:"overlays"`
}

// New returns an empty timeline of the given length; a non-positive
// duration falls back to DefaultDuration.
func New(duration float64) *State {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &State{
		Duration:   duration,
		TrimEnd:    duration,
		Clips:      []Clip{},
		MediaItems: []MediaItem{},
		Overlays:   []Overlay{},
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LoadMedia adopts the natural length of the loaded media and pulls the
// playhead and trim region back inside it.
func (s *State) LoadMedia(duration float64) {
	if duration <= 0 {
		return
	}
	full := s.TrimStart == 0 && s.TrimEnd == s.Duration
	s.Duration = duration
	s.CurrentTime = clamp(s.CurrentTime, 0, duration)

	if full || s.TrimEnd > duration {
		s.TrimEnd = duration
	}
	if s.TrimStart > s.TrimEnd-MinSpan {
		s.TrimStart = clamp(s.TrimEnd-MinSpan, 0, duration)
	}
}

// Seek moves the playhead; playback state is unchanged.
func (s *State) Seek(t float64) {
	s.CurrentTime = clamp(t, 0, s.Duration)
}

// DragTrim moves one edge of the trim region, keeping at least MinSpan
// between the edges.
func (s *State) DragTrim(edge Edge, t float64) {
	switch edge {
	case EdgeStart:
		s.TrimStart = clamp(min(t, s.TrimEnd-MinSpan), 0, s.Duration)
	case EdgeEnd:
		s.TrimEnd = clamp(max(t, s.TrimStart+MinSpan), 0, s.Duration)
	}
}

func (s *State) clipIndex(id string) int {
	for i := range s.Clips {
		if s.Clips[i].ID == id {
			return i
		}
	}
	return -1
}

// Clip returns a copy of the clip with the given id.
func (s *State) Clip(id string) (Clip, bool) {
	i := s.clipIndex(id)
	if i < 0 {
		return Clip{}, false
	}
	return s.Clips[i], true
}

// MoveClip repositions a clip so it stays within [0, Duration].
func (s *State) MoveClip(id string, newStart float64) bool {
	i := s.clipIndex(id)
	if i < 0 {
		return false
	}
	c := &s.Clips[i]
	c.StartTime = clamp(newStart, 0, s.Duration-c.Duration)
	return true
}

// ResizeClip drags one edge of a clip. Dragging the start edge keeps the
// end fixed; dragging the end edge changes only the duration.
func (s *State) ResizeClip(id string, edge Edge, pos float64) bool {
	i := s.clipIndex(id)
	if i < 0 {
		return false
	}
	c := &s.Clips[i]
	switch edge {
	case EdgeStart:
		end := c.End()
		newStart := max(0, min(end-MinSpan, pos))
		c.Duration = end - newStart
		c.StartTime = newStart
	case EdgeEnd:
		c.Duration = max(MinSpan, min(s.Duration-c.StartTime, pos-c.StartTime))
	default:
		return false
	}
	return true
}

// Cut splits a clip at t when t lies strictly inside it. The second half
// gets a fresh id and the selection is cleared.
func (s *State) Cut(id string, t float64) bool {
	i := s.clipIndex(id)
	if i < 0 {
		return false
	}
	first := s.Clips[i]
	if t <= first.StartTime || t >= first.End() {
		return false
	}

	second := first
	second.ID = newID()
	second.StartTime = t
	second.Duration = first.End() - t
	first.Duration = t - first.StartTime

	clips := make([]Clip, 0, len(s.Clips)+1)
	clips = append(clips, s.Clips[:i]...)
	clips = append(clips, first, second)
	clips = append(clips, s.Clips[i+1:]...)
	s.Clips = clips
	s.SelectedClipID = ""
	return true
}

// ApplyTrim fits a video clip to the current trim region.
func (s *State) ApplyTrim(id string) bool {
	i := s.clipIndex(id)
	if i < 0 || s.Clips[i].Track != TrackVideo {
		return false
	}
	s.Clips[i].StartTime = s.TrimStart
	s.Clips[i].Duration = s.TrimEnd - s.TrimStart
	return true
}

// RemoveClip deletes a clip and drops it from the selection.
func (s *State) RemoveClip(id string) bool {
	i := s.clipIndex(id)
	if i < 0 {
		return false
	}
	s.Clips = append(s.Clips[:i], s.Clips[i+1:]...)
	if s.SelectedClipID == id {
		s.SelectedClipID = ""
	}
	return true
}

// SelectClip selects a clip; an empty id clears the selection.
func (s *State) SelectClip(id string) bool {
	if id == "" {
		s.SelectedClipID = ""
		return true
	}
	if s.clipIndex(id) < 0 {
		return false
	}
	s.SelectedClipID = id
	return true
}
