package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"dreamio/internal/cache"
	"dreamio/internal/models"

	"github.com/redis/go-redis/v9"
)

const maxSessionUpdateRetries = 5

// EditorSessionStore keeps editor sessions for a bounded time.
type EditorSessionStore interface {
	Get(ctx context.Context, id string) (*models.EditorSession, error)
	Create(ctx context.Context, session *models.EditorSession) error
	// Update loads the session, runs fn on it and stores the result
	// atomically. Errors returned by fn abort the write.
	Update(ctx context.Context, id string, fn func(*models.EditorSession) error) (*models.EditorSession, error)
	Delete(ctx context.Context, id string) error
}

// NewEditorSessionStore returns a Redis-backed store, or an in-process one
// when rdb is nil.
func NewEditorSessionStore(rdb *redis.Client, ttl time.Duration) EditorSessionStore {
	if ttl <= 0 {
		ttl = cache.EditorSessionTTL
	}
	if rdb == nil {
		return &memorySessionStore{ttl: ttl, now: time.Now, sessions: make(map[string]*models.EditorSession)}
	}
	return &redisSessionStore{rdb: rdb, ttl: ttl}
}

func sessionNotFound(id string) error {
	return models.NewNotFoundError("Editor session", id)
}

type redisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (*models.EditorSession, error) {
	raw, err := s.rdb.Get(ctx, cache.EditorSessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sessionNotFound(id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	var session models.EditorSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, models.NewInternalError(fmt.Errorf("decode editor session %s: %w", id, err))
	}
	return &session, nil
}

func (s *redisSessionStore) Create(ctx context.Context, session *models.EditorSession) error {
	session.ExpiresAt = session.UpdatedAt.Add(s.ttl)
	b, err := json.Marshal(session)
	if err != nil {
		return models.NewInternalError(err)
	}
	ok, err := s.rdb.SetNX(ctx, cache.EditorSessionKey(session.ID), b, s.ttl).Result()
	if err != nil {
		return models.NewInternalError(err)
	}
	if !ok {
		return models.NewConflictError("Editor session already exists")
	}
	return nil
}

func (s *redisSessionStore) Update(ctx context.Context, id string, fn func(*models.EditorSession) error) (*models.EditorSession, error) {
	key := cache.EditorSessionKey(id)
	var result *models.EditorSession

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sessionNotFound(id)
		}
		if err != nil {
			return models.NewInternalError(err)
		}
		var session models.EditorSession
		if err := json.Unmarshal(raw, &session); err != nil {
			return models.NewInternalError(fmt.Errorf("decode editor session %s: %w", id, err))
		}
		if err := fn(&session); err != nil {
			return err
		}
		session.ExpiresAt = session.UpdatedAt.Add(s.ttl)
		b, err := json.Marshal(&session)
		if err != nil {
			return models.NewInternalError(err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = &session
		return nil
	}

	for i := 0; i < maxSessionUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}
	return nil, models.NewConflictError("Editor session is being modified concurrently")
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	n, err := s.rdb.Del(ctx, cache.EditorSessionKey(id)).Result()
	if err != nil {
		return models.NewInternalError(err)
	}
	if n == 0 {
		return sessionNotFound(id)
	}
	return nil
}

type memorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*models.EditorSession
}

// lookup returns a live session; expired entries are dropped. Callers hold mu.
func (s *memorySessionStore) lookup(id string) (*models.EditorSession, bool) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, id)
		return nil, false
	}
	return session, true
}

// clone deep-copies through JSON so callers never share timeline slices.
func clone(session *models.EditorSession) (*models.EditorSession, error) {
	b, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	var out models.EditorSession
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *memorySessionStore) Get(_ context.Context, id string) (*models.EditorSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.lookup(id)
	if !ok {
		return nil, sessionNotFound(id)
	}
	out, err := clone(session)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (s *memorySessionStore) Create(_ context.Context, session *models.EditorSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(session.ID); ok {
		return models.NewConflictError("Editor session already exists")
	}
	session.ExpiresAt = s.now().Add(s.ttl)
	stored, err := clone(session)
	if err != nil {
		return models.NewInternalError(err)
	}
	s.sessions[session.ID] = stored
	s.prune()
	return nil
}

func (s *memorySessionStore) Update(_ context.Context, id string, fn func(*models.EditorSession) error) (*models.EditorSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.lookup(id)
	if !ok {
		return nil, sessionNotFound(id)
	}
	working, err := clone(current)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ExpiresAt = s.now().Add(s.ttl)
	stored, err := clone(working)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	s.sessions[id] = stored
	return working, nil
}

func (s *memorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(id); !ok {
		return sessionNotFound(id)
	}
	delete(s.sessions, id)
	return nil
}

func (s *memorySessionStore) prune() {
	now := s.now()
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}
