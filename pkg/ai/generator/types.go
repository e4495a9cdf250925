// Package generator produces grounded answers: a single-pass generator for
// simple questions and a multi-lane retrieve-then-synthesize generator for
// complex ones.
package generator

import (
	"strings"

	"municipal-assistant-be/pkg/llm"
)

// Snippet is the text one retrieval lane brought back.
type Snippet struct {
	SourceLabel string
	Text        string
	SourceIDs   []string
}

// Result is the contract shared by both generators.
type Result struct {
	Text string
	// References are the distinct grounded documents, first-seen order.
	References     []llm.Reference
	RetrievalCount int
	// StatewideFallback marks a general-knowledge answer produced after
	// retrieval found nothing for a statutory question.
	StatewideFallback bool
	// Degraded marks a fixed fallback message instead of a model answer.
	Degraded bool
	// NoMaterial marks the fixed no-material reply.
	NoMaterial bool
	// Synthesized is true when Text came from a synthesis call and may be
	// repaired with the same snippets.
	Synthesized bool
	Snippets    []Snippet
}

// SourceIDs returns the distinct reference identifiers.
func (r *Result) SourceIDs() []string {
	return llm.ReferenceIDs(r.References)
}

// GroundedText concatenates everything retrieval returned, for auditing.
func (r *Result) GroundedText() string {
	var sb strings.Builder
	for _, s := range r.Snippets {
		sb.WriteString(s.Text)
		sb.WriteString("\n")
	}
	for _, ref := range r.References {
		sb.WriteString(ref.ID)
		sb.WriteString("\n")
		sb.WriteString(ref.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

func unavailable() *Result {
	return &Result{Text: UnavailableMessage, Degraded: true, References: []llm.Reference{}}
}
