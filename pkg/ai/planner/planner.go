// Package planner turns a complex question into a retrieval plan.
package planner

import (
	"context"
	"fmt"
	"strings"

	"municipal-assistant-be/internal/pkg/logger"
	"municipal-assistant-be/pkg/ai/question"
	"municipal-assistant-be/pkg/ai/router"
	"municipal-assistant-be/pkg/llm"
)

const module = "PLANNER"

// Categories is the fixed document taxonomy of the corpus.
var Categories = []string{
	"budget", "minutes", "ordinance", "zoning", "warrant", "statute",
	"personnel", "procurement", "elections", "public_works", "assessing",
	"policy", "contracts", "reports",
}

// Boards are the municipal bodies the planner may target.
var Boards = []string{
	"Select Board", "Planning Board", "Zoning Board of Adjustment",
	"Budget Committee", "Conservation Commission", "School Board",
	"Board of Assessors", "Library Trustees", "Town Meeting",
}

// Plan describes which retrieval passes to run.
type Plan struct {
	JurisdictionFilter     string   `json:"jurisdictionFilter"`
	AllowedCategories      []string `json:"allowedCategories"`
	CandidateBoards        []string `json:"candidateBoards"`
	StatuteHints           []string `json:"statuteHints"`
	AllowStatewideFallback bool     `json:"allowStatewideFallback"`
	InformationNeeds       []string `json:"informationNeeds"`
}

// DefaultPlan is used when planning fails: statewide fallback allowed,
// categories taken from the route, no filters.
func DefaultPlan(route router.Output) Plan {
	return Plan{
		AllowedCategories:      filterKnown(route.Domains, Categories),
		CandidateBoards:        []string{},
		StatuteHints:           []string{},
		AllowStatewideFallback: true,
		InformationNeeds:       []string{},
	}
}

type Planner struct {
	llm    llm.LLMProvider
	logger logger.ILogger
}

func NewPlanner(provider llm.LLMProvider, log logger.ILogger) *Planner {
	return &Planner{llm: provider, logger: log}
}

// Plan never fails except on quota exhaustion. The client's jurisdiction and
// board hints override whatever the model proposes.
func (p *Planner) Plan(ctx context.Context, q question.Question, route router.Output) (Plan, error) {
	raw, err := p.llm.Generate(ctx, buildPrompt(q, route),
		llm.WithSystemInstruction(Instruction),
		llm.WithJSON(),
		llm.WithTemperature(0),
	)
	if err != nil {
		if llm.IsQuotaExceeded(err) {
			return Plan{}, err
		}
		p.logger.Warn(module, "Planning call failed, using default plan", map[string]interface{}{"error": err.Error()})
		return applyHints(DefaultPlan(route), q), nil
	}

	plan, ok := Parse(raw, route)
	if !ok {
		p.logger.Warn(module, "Unparseable plan, using default plan", nil)
	}
	return applyHints(plan, q), nil
}

// Parse decodes a plan and drops categories and boards outside the
// taxonomy. ok is false when the default plan was used.
func Parse(raw string, route router.Output) (Plan, bool) {
	var plan Plan
	if err := llm.DecodeJSON(raw, &plan); err != nil {
		return DefaultPlan(route), false
	}

	plan.JurisdictionFilter = strings.TrimSpace(plan.JurisdictionFilter)
	plan.AllowedCategories = filterKnown(plan.AllowedCategories, Categories)
	plan.CandidateBoards = filterKnown(plan.CandidateBoards, Boards)
	plan.StatuteHints = compact(plan.StatuteHints)
	plan.InformationNeeds = compact(plan.InformationNeeds)
	return plan, true
}

func applyHints(plan Plan, q question.Question) Plan {
	if j := strings.TrimSpace(q.Jurisdiction); j != "" {
		plan.JurisdictionFilter = j
	}
	if b := strings.TrimSpace(q.Board); b != "" {
		if known := filterKnown([]string{b}, Boards); len(known) > 0 {
			b = known[0]
		}
		plan.CandidateBoards = append([]string{b}, removeFold(plan.CandidateBoards, b)...)
	}
	return plan
}

func buildPrompt(q question.Question, route router.Output) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<categories>%s</categories>\n", strings.Join(Categories, ", ")))
	sb.WriteString(fmt.Sprintf("<boards>%s</boards>\n", strings.Join(Boards, ", ")))
	if len(route.Domains) > 0 {
		sb.WriteString(fmt.Sprintf("<router_domains>%s</router_domains>\n", strings.Join(route.Domains, ", ")))
	}
	if route.ScopeHint != "" {
		sb.WriteString(fmt.Sprintf("<scope_hint>%s</scope_hint>\n", route.ScopeHint))
	}
	if hints := q.Hints(); hints != "" {
		sb.WriteString(fmt.Sprintf("<hints>%s</hints>\n", hints))
	}
	text := q.WithContext()
	if route.RewrittenQuestion != "" {
		text = route.RewrittenQuestion
	}
	sb.WriteString(fmt.Sprintf("<question>%s</question>\n", text))
	return sb.String()
}

// filterKnown keeps values found in allowed (case-insensitive), returning the
// canonical spelling, de-duplicated.
func filterKnown(values, allowed []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, v := range values {
		v = strings.TrimSpace(v)
		for _, a := range allowed {
			if strings.EqualFold(v, a) && !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

func compact(values []string) []string {
	out := []string{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func removeFold(values []string, drop string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !strings.EqualFold(v, drop) {
			out = append(out, v)
		}
	}
	return out
}
