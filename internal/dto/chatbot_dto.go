package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageHintsDTO narrows a question to a town or board.
type MessageHintsDTO struct {
	Jurisdiction string `json:"jurisdiction,omitempty" validate:"omitempty,max=80"`
	Board        string `json:"board,omitempty" validate:"omitempty,max=80"`
}

type SendMessageRequest struct {
	Content  string           `json:"content" validate:"required,max=4000"`
	Metadata *MessageHintsDTO `json:"metadata,omitempty"`

	// Attachment is the extracted text of an uploaded document. It is only
	// set from multipart requests.
	Attachment     string `json:"-"`
	AttachmentName string `json:"-"`
}

type MessageDTO struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type ScopeNoticeDTO struct {
	Type         string  `json:"type"`
	Jurisdiction *string `json:"jurisdiction"`
	Text         string  `json:"text"`
}

type AnswerMetaDTO struct {
	Outcome               string          `json:"outcome"`
	Complexity            string          `json:"complexity"`
	RequiresClarification bool            `json:"requiresClarification"`
	CriticScore           *float64        `json:"criticScore"`
	LimitationsNote       string          `json:"limitationsNote,omitempty"`
	ScopeNotice           *ScopeNoticeDTO `json:"scopeNotice,omitempty"`
	Replayed              bool            `json:"replayed,omitempty"`
}

type SourceDTO struct {
	Id    string `json:"id"`
	Title string `json:"title,omitempty"`
	Uri   string `json:"uri,omitempty"`
}

type SendMessageResponse struct {
	Message            MessageDTO    `json:"message"`
	AnswerMeta         AnswerMetaDTO `json:"answerMeta"`
	Sources            []SourceDTO   `json:"sources"`
	SuggestedFollowUps []string      `json:"suggestedFollowUps"`
}

// ChatHistoryItemDTO is one persisted turn. Assistant turns carry their
// answer metadata.
type ChatHistoryItemDTO struct {
	MessageDTO
	AnswerMeta         *AnswerMetaDTO `json:"answerMeta,omitempty"`
	Sources            []SourceDTO    `json:"sources,omitempty"`
	SuggestedFollowUps []string       `json:"suggestedFollowUps,omitempty"`
}
