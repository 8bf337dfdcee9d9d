package timeline

// OverlayKind is the visual type of an overlay layer.
type OverlayKind string

const (
	OverlayImage OverlayKind = "image"
	OverlayText  OverlayKind = "text"
	OverlayModel OverlayKind = "3d-model"
)

// Overlay is a positioned layer composited over the preview.
type Overlay struct {
	ID        string      `json:"id"`
	Kind      OverlayKind `json:"type"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Width     float64     `json:"width"`
	Height    float64     `json:"height"`
	Color     string      `json:"color,omitempty"`
	Text      string      `json:"text,omitempty"`
	FontSize  int         `json:"fontSize,omitempty"`
	ModelType string      `json:"modelType,omitempty"`
	ImageURL  string      `json:"imageUrl,omitempty"`
}

// OverlayPatch carries the fields to change on an overlay; nil fields are kept.
type OverlayPatch struct {
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Width     *float64 `json:"width,omitempty"`
	Height    *float64 `json:"height,omitempty"`
	Color     *string  `json:"color,omitempty"`
	Text      *string  `json:"text,omitempty"`
	FontSize  *int     `json:"fontSize,omitempty"`
	ModelType *string  `json:"modelType,omitempty"`
}

const (
	defaultOverlaySize  = 100.0
	defaultOverlayColor = "#ffffff"
	defaultFontSize     = 24
	defaultModelType    = "cube"
	defaultOverlayText  = "Text"
)

// ValidOverlayKind reports whether k is a known overlay type.
func ValidOverlayKind(k OverlayKind) bool {
	switch k {
	case OverlayImage, OverlayText, OverlayModel:
		return true
	}
	return false
}

// AddOverlay appends an overlay with a fresh id, filling per-kind defaults.
// Unknown kinds yield ok=false.
func (s *State) AddOverlay(o Overlay) (Overlay, bool) {
	if !ValidOverlayKind(o.Kind) {
		return Overlay{}, false
	}
	o.ID = newID()
	if o.Width <= 0 {
		o.Width = defaultOverlaySize
	}
	if o.Height <= 0 {
		o.Height = defaultOverlaySize
	}
	switch o.Kind {
	case OverlayText:
		if o.Text == "" {
			o.Text = defaultOverlayText
		}
		if o.Color == "" {
			o.Color = defaultOverlayColor
		}
		if o.FontSize <= 0 {
			o.FontSize = defaultFontSize
		}
	case OverlayModel:
		if o.Color == "" {
			o.Color = defaultOverlayColor
		}
		if o.ModelType == "" {
			o.ModelType = defaultModelType
		}
	}
	s.Overlays = append(s.Overlays, o)
	return o, true
}

func (s *State) overlayIndex(id string) int {
	for i := range s.Overlays {
		if s.Overlays[i].ID == id {
			return i
		}
	}
	return -1
}

// UpdateOverlay applies a patch; sizes below 1 and font sizes below 1 are clamped.
func (s *State) UpdateOverlay(id string, p OverlayPatch) bool {
	i := s.overlayIndex(id)
	if i < 0 {
		return false
	}
	o := &s.Overlays[i]
	if p.X != nil {
		o.X = *p.X
	}
	if p.Y != nil {
		o.Y = *p.Y
	}
	if p.Width != nil {
		o.Width = max(1, *p.Width)
	}
	if p.Height != nil {
		o.Height = max(1, *p.Height)
	}
	if p.Color != nil {
		o.Color = *p.Color
	}
	if p.Text != nil {
		o.Text = *p.Text
	}
	if p.FontSize != nil {
		o.FontSize = max(1, *p.FontSize)
	}
	if p.ModelType != nil {
		o.ModelType = *p.ModelType
	}
	return true
}

// RemoveOverlay deletes an overlay.
func (s *State) RemoveOverlay(id string) bool {
	i := s.overlayIndex(id)
	if i < 0 {
		return false
	}
	s.Overlays = append(s.Overlays[:i], s.Overlays[i+1:]...)
	return true
}
