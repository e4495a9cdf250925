package generator

import (
	"context"

	"municipal-assistant-be/internal/pkg/logger"
	"municipal-assistant-be/pkg/ai/question"
	"municipal-assistant-be/pkg/llm"
)

const module = "GENERATOR"

// StatutoryMatcher reports whether a question is about state law.
type StatutoryMatcher interface {
	IsStatutoryQuestion(q string) bool
}

// SimpleGenerator answers with one grounding call, falling back to one
// general-knowledge call for statutory questions that retrieve nothing.
type SimpleGenerator struct {
	grounding llm.GroundingProvider
	text      llm.LLMProvider
	statutory StatutoryMatcher
	prompts   Prompts
	logger    logger.ILogger
}

func NewSimpleGenerator(grounding llm.GroundingProvider, text llm.LLMProvider, statutory StatutoryMatcher, prompts Prompts, log logger.ILogger) *SimpleGenerator {
	return &SimpleGenerator{
		grounding: grounding,
		text:      text,
		statutory: statutory,
		prompts:   prompts,
		logger:    log,
	}
}

// Generate returns ErrQuotaExceeded unchanged. Any other upstream failure
// yields the fixed unavailable answer.
func (g *SimpleGenerator) Generate(ctx context.Context, q question.Question, history []llm.Message, corpus llm.Corpus) (*Result, error) {
	resp, err := g.grounding.GenerateGrounded(ctx, g.prompts.groundedPrompt(q), history, corpus, g.prompts.GroundedInstruction)
	if err != nil {
		if llm.IsQuotaExceeded(err) {
			return nil, err
		}
		g.logger.Error(module, "Grounded call failed", map[string]interface{}{"error": err.Error()})
		return unavailable(), nil
	}

	refs := llm.DistinctReferences(resp.References)
	if len(refs) == 0 && g.statutory.IsStatutoryQuestion(q.Text) {
		g.logger.Info(module, "No documents for statutory question, answering from general knowledge", nil)

		text, err := g.text.Generate(ctx, g.prompts.generalPrompt(q), llm.WithSystemInstruction(g.prompts.GeneralInstruction))
		if err != nil {
			if llm.IsQuotaExceeded(err) {
				return nil, err
			}
			g.logger.Error(module, "General-knowledge call failed", map[string]interface{}{"error": err.Error()})
			return unavailable(), nil
		}
		return &Result{Text: text, References: []llm.Reference{}, StatewideFallback: true}, nil
	}

	snippets := []Snippet{}
	if len(refs) > 0 {
		snippets = append(snippets, Snippet{SourceLabel: "corpus", Text: resp.Text, SourceIDs: llm.ReferenceIDs(refs)})
	}
	return &Result{
		Text:           resp.Text,
		References:     refs,
		RetrievalCount: len(refs),
		Snippets:       snippets,
	}, nil
}
