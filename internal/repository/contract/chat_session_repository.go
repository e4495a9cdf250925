package contract

import (
	"context"
	"time"

	"municipal-assistant-be/internal/entity"
	"municipal-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	// SetTitle and Touch report whether the session exists.
	SetTitle(ctx context.Context, id uuid.UUID, title string) (bool, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}
