package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id        uuid.UUID
	Title     string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// HasTitle reports whether the session title was already set from a
// question.
func (s *ChatSession) HasTitle() bool {
	return s.Title != ""
}
