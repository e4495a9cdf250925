package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string
	Content       string
	// Metadata is set on assistant turns only.
	Metadata  *MessageMetadata
	CreatedAt time.Time
}

// Outcome records how an assistant turn was produced.
type Outcome string

const (
	OutcomeAnswered      Outcome = "answered"
	OutcomeClarification Outcome = "clarification"
	OutcomeNoMaterial    Outcome = "no_material"
	OutcomeUnavailable   Outcome = "unavailable"
	OutcomeSaturated     Outcome = "saturated"
	OutcomeFailed        Outcome = "failed"
)

// MessageMetadata is the opaque answer annotation stored with an assistant
// turn and replayed verbatim for duplicate submissions.
type MessageMetadata struct {
	Outcome               Outcome      `json:"outcome"`
	Complexity            string       `json:"complexity,omitempty"`
	Domains               []string     `json:"domains,omitempty"`
	ScopeHint             string       `json:"scopeHint,omitempty"`
	RouteBypassed         bool         `json:"routeBypassed,omitempty"`
	RequiresClarification bool         `json:"requiresClarification"`
	CriticScore           *float64     `json:"criticScore,omitempty"`
	LimitationsNote       string       `json:"limitationsNote,omitempty"`
	Repaired              bool         `json:"repaired,omitempty"`
	ScopeNotice           *ScopeNotice `json:"scopeNotice,omitempty"`
	Sources               []SourceRef  `json:"sources"`
	RetrievalCount        int          `json:"retrievalCount"`
	FollowUps             []string     `json:"followUps"`
	Jurisdiction          string       `json:"jurisdiction,omitempty"`
	Board                 string       `json:"board,omitempty"`
	PromptVersion         string       `json:"promptVersion,omitempty"`
}

type ScopeNotice struct {
	Type         string  `json:"type"`
	Jurisdiction *string `json:"jurisdiction"`
	Text         string  `json:"text"`
}

type SourceRef struct {
	Id    string `json:"id"`
	Title string `json:"title,omitempty"`
	Uri   string `json:"uri,omitempty"`
}
