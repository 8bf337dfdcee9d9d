package timeline

// Play starts playback.
func (s *State) Play() {
	s.Playing = true
}

// Pause stops playback and keeps the playhead.
func (s *State) Pause() {
	s.Playing = false
}

// TogglePlay flips between playing and paused.
func (s *State) TogglePlay() {
	s.Playing = !s.Playing
}

// Tick follows the media element's playback clock.
func (s *State) Tick(t float64) {
	s.CurrentTime = clamp(t, 0, s.Duration)
}

// Ended stops playback and rewinds to the start.
func (s *State) Ended() {
	s.Playing = false
	s.CurrentTime = 0
}
