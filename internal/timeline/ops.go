package timeline

import (
	"errors"
	"fmt"
)

// Operation names accepted by Apply.
const (
	OpLoadMedia     = "load-media"
	OpSeek          = "seek"
	OpDragTrim      = "drag-trim"
	OpMoveClip      = "move-clip"
	OpResizeClip    = "resize-clip"
	OpCut           = "cut"
	OpApplyTrim     = "apply-trim"
	OpAddClip       = "add-clip"
	OpImportMedia   = "import-media"
	OpRemoveClip    = "remove-clip"
	OpSelectClip    = "select-clip"
	OpPlay          = "play"
	OpPause         = "pause"
	OpTogglePlay    = "toggle-play"
	OpTick          = "tick"
	OpEnded         = "ended"
	OpAddOverlay    = "add-overlay"
	OpUpdateOverlay = "update-overlay"
	OpRemoveOverlay = "remove-overlay"
)

var (
	ErrUnknownOp    = errors.New("unknown timeline operation")
	ErrInvalidEdge  = errors.New("edge must be \"start\" or \"end\"")
	ErrMissingField = errors.New("missing required field")
)

// Operation is a serialized editor action.
type Operation struct {
	Op        string        `json:"op"`
	ClipID    string        `json:"clipId,omitempty"`
	MediaID   string        `json:"mediaId,omitempty"`
	OverlayID string        `json:"overlayId,omitempty"`
	Edge      Edge          `json:"edge,omitempty"`
	Time      float64       `json:"time,omitempty"`
	Start     float64       `json:"start,omitempty"`
	Position  float64       `json:"position,omitempty"`
	Duration  float64       `json:"duration,omitempty"`
	Name      string        `json:"name,omitempty"`
	Type      string        `json:"type,omitempty"`
	URL       string        `json:"url,omitempty"`
	Overlay   *Overlay      `json:"overlay,omitempty"`
	Patch     *OverlayPatch `json:"patch,omitempty"`
}

func requireField(name, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return nil
}

func checkEdge(e Edge) error {
	if e != EdgeStart && e != EdgeEnd {
		return ErrInvalidEdge
	}
	return nil
}

// Apply runs op against s. applied is false when op referenced an unknown
// clip, media item or overlay; err is set only for malformed operations.
func (s *State) Apply(op Operation) (applied bool, err error) {
	switch op.Op {
	case OpLoadMedia:
		s.LoadMedia(op.Duration)
		return op.Duration > 0, nil
	case OpSeek:
		s.Seek(op.Time)
		return true, nil
	case OpDragTrim:
		if err := checkEdge(op.Edge); err != nil {
			return false, err
		}
		s.DragTrim(op.Edge, op.Time)
		return true, nil
	case OpMoveClip:
		if err := requireField("clipId", op.ClipID); err != nil {
			return false, err
		}
		return s.MoveClip(op.ClipID, op.Start), nil
	case OpResizeClip:
		if err := requireField("clipId", op.ClipID); err != nil {
			return false, err
		}
		if err := checkEdge(op.Edge); err != nil {
			return false, err
		}
		return s.ResizeClip(op.ClipID, op.Edge, op.Position), nil
	case OpCut:
		if err := requireField("clipId", op.ClipID); err != nil {
			return false, err
		}
		return s.Cut(op.ClipID, op.Time), nil
	case OpApplyTrim:
		if err := requireField("clipId", op.ClipID); err != nil {
			return false, err
		}
		return s.ApplyTrim(op.ClipID), nil
	case OpAddClip:
		if err := requireField("mediaId", op.MediaID); err != nil {
			return false, err
		}
		_, ok := s.AddClip(op.MediaID)
		return ok, nil
	case OpImportMedia:
		if err := requireField("name", op.Name); err != nil {
			return false, err
		}
		if err := requireField("type", op.Type); err != nil {
			return false, err
		}
		s.ImportMedia(op.Name, op.Type, op.URL)
		return true, nil
	case OpRemoveClip:
		if err := requireField("clipId", op.ClipID); err != nil {
			return false, err
		}
		return s.RemoveClip(op.ClipID), nil
	case OpSelectClip:
		return s.SelectClip(op.ClipID), nil
	case OpPlay:
		s.Play()
		return true, nil
	case OpPause:
		s.Pause()
		return true, nil
	case OpTogglePlay:
		s.TogglePlay()
		return true, nil
	case OpTick:
		s.Tick(op.Time)
		return true, nil
	case OpEnded:
		s.Ended()
		return true, nil
	case OpAddOverlay:
		if op.Overlay == nil {
			return false, fmt.Errorf("%w: overlay", ErrMissingField)
		}
		_, ok := s.AddOverlay(*op.Overlay)
		return ok, nil
	case OpUpdateOverlay:
		if err := requireField("overlayId", op.OverlayID); err != nil {
			return false, err
		}
		if op.Patch == nil {
			return false, fmt.Errorf("%w: patch", ErrMissingField)
		}
		return s.UpdateOverlay(op.OverlayID, *op.Patch), nil
	case OpRemoveOverlay:
		if err := requireField("overlayId", op.OverlayID); err != nil {
			return false, err
		}
		return s.RemoveOverlay(op.OverlayID), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOp, op.Op)
	}
}
