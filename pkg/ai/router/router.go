// Package router decides how much work a question needs before retrieval.
package router

import (
	"context"
	"fmt"
	"strings"

	"municipal-assistant-be/internal/pkg/logger"
	"municipal-assistant-be/pkg/ai/question"
	"municipal-assistant-be/pkg/llm"
)

const module = "ROUTER"

type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// Output is the routing decision for one question.
type Output struct {
	Complexity             Complexity `json:"complexity"`
	Domains                []string   `json:"domains"`
	ScopeHint              string     `json:"scopeHint"`
	RequiresClarification  bool       `json:"requiresClarification"`
	ClarificationQuestions []string   `json:"clarificationQuestions"`
	RewrittenQuestion      string     `json:"rewrittenQuestion"`
}

// DefaultOutput is used whenever the routing call cannot be parsed.
func DefaultOutput() Output {
	return Output{
		Complexity:             ComplexitySimple,
		Domains:                []string{},
		ClarificationQuestions: []string{},
	}
}

// ClarificationText joins the clarification questions into one reply.
func (o Output) ClarificationText() string {
	if len(o.ClarificationQuestions) == 0 {
		return "Could you tell me more about what you are looking for, such as the town, board or time period?"
	}
	if len(o.ClarificationQuestions) == 1 {
		return o.ClarificationQuestions[0]
	}
	var sb strings.Builder
	sb.WriteString("To answer accurately I need a bit more detail:\n")
	for _, q := range o.ClarificationQuestions {
		sb.WriteString("- ")
		sb.WriteString(q)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

type Router struct {
	llm    llm.LLMProvider
	logger logger.ILogger
}

func NewRouter(provider llm.LLMProvider, log logger.ILogger) *Router {
	return &Router{llm: provider, logger: log}
}

// Route classifies q. When prior is set, the last history turn is from the
// assistant and q is a bare deictic follow-up, the prior route is reused
// without a model call and bypassed is true.
//
// Only ErrQuotaExceeded is returned as an error. Every other failure falls
// back to DefaultOutput.
func (r *Router) Route(ctx context.Context, q question.Question, history []llm.Message, prior *Output) (out Output, bypassed bool, err error) {
	if prior != nil && lastIsAssistant(history) && IsDeicticFollowUp(q.Text) {
		reused := *prior
		reused.RequiresClarification = false
		reused.ClarificationQuestions = []string{}
		reused.RewrittenQuestion = ""
		r.logger.Debug(module, "Deictic follow-up, reusing prior route", map[string]interface{}{
			"complexity": reused.Complexity,
		})
		return reused, true, nil
	}

	raw, err := r.llm.Generate(ctx, buildPrompt(q, history),
		llm.WithSystemInstruction(Instruction),
		llm.WithJSON(),
		llm.WithTemperature(0),
	)
	if err != nil {
		if llm.IsQuotaExceeded(err) {
			return Output{}, false, err
		}
		r.logger.Warn(module, "Routing call failed, using default route", map[string]interface{}{"error": err.Error()})
		return DefaultOutput(), false, nil
	}

	out, ok := Parse(raw)
	if !ok {
		r.logger.Warn(module, "Unparseable routing output, using default route", map[string]interface{}{"raw": truncate(raw, 200)})
	}
	return out, false, nil
}

// Parse decodes a routing response. ok is false when the default was used.
func Parse(raw string) (Output, bool) {
	var out Output
	if err := llm.DecodeJSON(raw, &out); err != nil {
		return DefaultOutput(), false
	}

	switch Complexity(strings.ToLower(string(out.Complexity))) {
	case ComplexityComplex:
		out.Complexity = ComplexityComplex
	default:
		out.Complexity = ComplexitySimple
	}
	if out.Domains == nil {
		out.Domains = []string{}
	}
	if out.ClarificationQuestions == nil {
		out.ClarificationQuestions = []string{}
	}
	out.ScopeHint = strings.TrimSpace(out.ScopeHint)
	out.RewrittenQuestion = strings.TrimSpace(out.RewrittenQuestion)
	return out, true
}

func buildPrompt(q question.Question, history []llm.Message) string {
	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString("<conversation>\n")
		for _, m := range history {
			sb.WriteString(fmt.Sprintf("%s: %s\n", m.Role, truncate(m.Content, 400)))
		}
		sb.WriteString("</conversation>\n\n")
	}
	if hints := q.Hints(); hints != "" {
		sb.WriteString(fmt.Sprintf("<hints>%s</hints>\n", hints))
	}
	sb.WriteString(fmt.Sprintf("<question>%s</question>\n", q.WithContext()))
	return sb.String()
}

func lastIsAssistant(history []llm.Message) bool {
	if len(history) == 0 {
		return false
	}
	role := history[len(history)-1].Role
	return role == "assistant" || role == "model"
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
