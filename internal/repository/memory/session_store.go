// Package memory is an in-process SessionStore for tests and the ask CLI.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"municipal-assistant-be/internal/entity"
	"municipal-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var _ contract.SessionStore = (*SessionStore)(nil)

type SessionStore struct {
	mu    sync.Mutex
	cache *cache.Cache
	now   func() time.Time
}

type record struct {
	session  entity.ChatSession
	messages []*entity.ChatMessage
}

// NewSessionStore keeps sessions for ttl after their last write. A ttl of
// zero keeps them forever.
func NewSessionStore(ttl time.Duration) *SessionStore {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl / 6
	}
	return &SessionStore{
		cache: cache.New(expiration, cleanup),
		now:   time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

func (s *SessionStore) CreateSession(ctx context.Context, title string) (*entity.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &record{session: entity.ChatSession{Id: uuid.New(), Title: title, CreatedAt: s.now()}}
	s.cache.Set(rec.session.Id.String(), rec, cache.DefaultExpiration)
	session := rec.session
	return &session, nil
}

func (s *SessionStore) GetSession(ctx context.Context, id uuid.UUID) (*entity.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.get(id)
	if !ok {
		return nil, nil
	}
	session := rec.session
	return &session, nil
}

func (s *SessionStore) GetHistory(ctx context.Context, sessionId uuid.UUID, limit int) ([]*entity.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.get(sessionId)
	if !ok {
		return []*entity.ChatMessage{}, nil
	}
	messages := rec.messages
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return copyMessages(messages), nil
}

func (s *SessionStore) MessagesSince(ctx context.Context, sessionId uuid.UUID, since time.Time) ([]*entity.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.get(sessionId)
	if !ok {
		return []*entity.ChatMessage{}, nil
	}
	var out []*entity.ChatMessage
	for _, m := range rec.messages {
		if !m.CreatedAt.Before(since) {
			out = append(out, m)
		}
	}
	return copyMessages(out), nil
}

func (s *SessionStore) AppendMessage(ctx context.Context, message *entity.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.get(message.ChatSessionId)
	if !ok {
		return fmt.Errorf("session %s not found", message.ChatSessionId)
	}
	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}
	stored := *message
	rec.messages = append(rec.messages, &stored)
	now := s.now()
	rec.session.UpdatedAt = &now
	s.cache.Set(message.ChatSessionId.String(), rec, cache.DefaultExpiration)
	return nil
}

func (s *SessionStore) SetTitle(ctx context.Context, sessionId uuid.UUID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.get(sessionId)
	if !ok {
		return fmt.Errorf("session %s not found", sessionId)
	}
	rec.session.Title = title
	return nil
}

func (s *SessionStore) get(id uuid.UUID) (*record, bool) {
	if x, found := s.cache.Get(id.String()); found {
		return x.(*record), true
	}
	return nil, false
}

func copyMessages(in []*entity.ChatMessage) []*entity.ChatMessage {
	out := make([]*entity.ChatMessage, 0, len(in))
	for _, m := range in {
		c := *m
		out = append(out, &c)
	}
	return out
}
