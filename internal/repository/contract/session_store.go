package contract

import (
	"context"
	"time"

	"municipal-assistant-be/internal/entity"

	"github.com/google/uuid"
)

// SessionStore is the conversation persistence the orchestrator depends on.
type SessionStore interface {
	CreateSession(ctx context.Context, title string) (*entity.ChatSession, error)
	// GetSession returns nil, nil when the session does not exist.
	GetSession(ctx context.Context, id uuid.UUID) (*entity.ChatSession, error)
	// GetHistory returns up to limit most recent messages, oldest first.
	// A limit <= 0 returns the whole conversation.
	GetHistory(ctx context.Context, sessionId uuid.UUID, limit int) ([]*entity.ChatMessage, error)
	// MessagesSince returns messages created at or after since, oldest first.
	MessagesSince(ctx context.Context, sessionId uuid.UUID, since time.Time) ([]*entity.ChatMessage, error)
	AppendMessage(ctx context.Context, message *entity.ChatMessage) error
	SetTitle(ctx context.Context, sessionId uuid.UUID, title string) error
}
