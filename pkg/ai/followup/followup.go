// Package followup suggests next questions after an answer.
package followup

import (
	"context"
	"fmt"
	"strings"

	"municipal-assistant-be/internal/pkg/logger"
	"municipal-assistant-be/pkg/llm"
)

const module = "FOLLOWUP"

const instruction = `You suggest follow-up questions a New Hampshire municipal official might ask next.
Reply with JSON only: {"followUps": [string]}
- At most three questions, each under 120 characters.
- Each must be answerable from town records or state guidance.
- Do not repeat the original question.`

// Input is what the suggestion call sees.
type Input struct {
	Question     string
	Answer       string
	Jurisdiction string
	Domains      []string
}

type Generator struct {
	llm    llm.LLMProvider
	max    int
	logger logger.ILogger
}

func NewGenerator(provider llm.LLMProvider, max int, log logger.ILogger) *Generator {
	if max < 1 {
		max = 3
	}
	return &Generator{llm: provider, max: max, logger: log}
}

// Suggest never fails; any error yields an empty list.
func (g *Generator) Suggest(ctx context.Context, in Input) []string {
	raw, err := g.llm.Generate(ctx, buildPrompt(in),
		llm.WithSystemInstruction(instruction),
		llm.WithJSON(),
		llm.WithTemperature(0.7),
	)
	if err != nil {
		g.logger.Warn(module, "Follow-up call failed", map[string]interface{}{"error": err.Error()})
		return []string{}
	}
	return g.parse(raw, in.Question)
}

func (g *Generator) parse(raw, original string) []string {
	var payload struct {
		FollowUps []string `json:"followUps"`
	}
	candidates := splitLines(raw)
	if err := llm.DecodeJSON(raw, &payload); err == nil {
		candidates = payload.FollowUps
	}

	seen := map[string]bool{strings.ToLower(strings.TrimSpace(original)): true}
	out := make([]string, 0, g.max)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
		if len(out) == g.max {
			break
		}
	}
	return out
}

// splitLines accepts a plain list when the model ignores the JSON format.
func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		if strings.HasSuffix(line, "?") {
			out = append(out, line)
		}
	}
	return out
}

func buildPrompt(in Input) string {
	var sb strings.Builder
	if in.Jurisdiction != "" {
		sb.WriteString(fmt.Sprintf("<jurisdiction>%s</jurisdiction>\n", in.Jurisdiction))
	}
	if len(in.Domains) > 0 {
		sb.WriteString(fmt.Sprintf("<domains>%s</domains>\n", strings.Join(in.Domains, ", ")))
	}
	sb.WriteString(fmt.Sprintf("<question>%s</question>\n", in.Question))
	sb.WriteString(fmt.Sprintf("<answer>\n%s\n</answer>\n", in.Answer))
	return sb.String()
}
