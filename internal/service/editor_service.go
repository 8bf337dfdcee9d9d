package service

import (
	"context"
	"errors"
	"time"

	"dreamio/internal/authz"
	"dreamio/internal/middleware"
	"dreamio/internal/models"
	"dreamio/internal/repository"
	"dreamio/internal/timeline"

	"github.com/google/uuid"
)

// MaxTimelineDuration caps the length of a new editor timeline (4 hours).
const MaxTimelineDuration = 4 * 60 * 60.0

// EditorService manages per-user editor sessions driving a timeline.
type EditorService struct {
	store    repository.EditorSessionStore
	enforcer *authz.Enforcer
	now      func() time.Time
}

func NewEditorService(store repository.EditorSessionStore, enforcer *authz.Enforcer) *EditorService {
	return &EditorService{store: store, enforcer: enforcer, now: time.Now}
}

// CreateSession starts an empty timeline; a non-positive duration uses the default.
func (s *EditorService) CreateSession(ctx context.Context, actor Actor, duration float64) (*models.EditorSession, error) {
	if !s.enforcer.Can(actor.Role, authz.ObjEditor, authz.ActUse) {
		return nil, models.NewForbiddenError("Not allowed to use the editor")
	}
	if duration > MaxTimelineDuration {
		return nil, models.NewValidationError("duration must not exceed 4 hours")
	}

	now := s.now().UTC()
	session := &models.EditorSession{
		ID:        uuid.NewString(),
		OwnerID:   actor.ID,
		Version:   1,
		State:     timeline.New(duration),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func checkSessionOwner(actor Actor, session *models.EditorSession) error {
	if session.OwnerID != actor.ID {
		return models.NewForbiddenError("Not authorized to access this editor session")
	}
	return nil
}

func (s *EditorService) GetSession(ctx context.Context, actor Actor, id string) (*models.EditorSession, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkSessionOwner(actor, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ApplyResult is the outcome of one editor operation.
type ApplyResult struct {
	Session *models.EditorSession `json:"session"`
	Applied bool                  `json:"applied"`
}

// Apply runs op against the session timeline and bumps the version. A
// positive ifMatch must equal the current version.
func (s *EditorService) Apply(ctx context.Context, actor Actor, id string, op timeline.Operation, ifMatch int) (*ApplyResult, error) {
	var applied bool
	session, err := s.store.Update(ctx, id, func(session *models.EditorSession) error {
		if err := checkSessionOwner(actor, session); err != nil {
			return err
		}
		if ifMatch > 0 && ifMatch != session.Version {
			return models.NewPreconditionFailedError("Editor session", session.Version)
		}
		if session.State == nil {
			session.State = timeline.New(0)
		}

		ok, err := session.State.Apply(op)
		if err != nil {
			if errors.Is(err, timeline.ErrUnknownOp) || errors.Is(err, timeline.ErrInvalidEdge) || errors.Is(err, timeline.ErrMissingField) {
				return models.NewValidationError(err.Error())
			}
			return models.NewInternalError(err)
		}
		applied = ok
		session.Version++
		session.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.EditorOperations.WithLabelValues(op.Op).Inc()
	return &ApplyResult{Session: session, Applied: applied}, nil
}

func (s *EditorService) DeleteSession(ctx context.Context, actor Actor, id string) error {
	if _, err := s.GetSession(ctx, actor, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}
