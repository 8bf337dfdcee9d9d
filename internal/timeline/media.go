package timeline

func (s *State) mediaIndex(id string) int {
	for i := range s.MediaItems {
		if s.MediaItems[i].ID == id {
			return i
		}
	}
	return -1
}

// ImportMedia registers an uploaded file. Videos are also placed on the
// video track as a clip of ImportedVideoDuration.
func (s *State) ImportMedia(name, mimeType, url string) MediaItem {
	item := MediaItem{ID: newID(), Name: name, Type: mimeType, URL: url}
	s.MediaItems = append(s.MediaItems, item)

	if track, ok := item.Track(); ok && track == TrackVideo {
		s.placeClip(item, track, ImportedVideoDuration)
	}
	return item
}

// AddClip places a library item on its track at the start of the timeline.
// Images are preview-only and yield ok=false.
func (s *State) AddClip(mediaID string) (Clip, bool) {
	i := s.mediaIndex(mediaID)
	if i < 0 {
		return Clip{}, false
	}
	item := s.MediaItems[i]
	track, ok := item.Track()
	if !ok {
		return Clip{}, false
	}
	return s.placeClip(item, track, DefaultClipDuration), true
}

func (s *State) placeClip(item MediaItem, track Track, duration float64) Clip {
	c := Clip{
		ID:       newID(),
		MediaID:  item.ID,
		Name:     item.Name,
		Track:    track,
		Duration: clamp(duration, MinSpan, max(MinSpan, s.Duration)),
		URL:      item.URL,
	}
	s.Clips = append(s.Clips, c)
	return c
}
