package generator

import (
	"context"
	"fmt"
	"strings"

	"municipal-assistant-be/internal/pkg/logger"
	"municipal-assistant-be/pkg/ai/planner"
	"municipal-assistant-be/pkg/ai/question"
	"municipal-assistant-be/pkg/llm"

	"golang.org/x/sync/errgroup"
)

type LaneKind string

const (
	LaneJurisdiction LaneKind = "jurisdiction"
	LaneCorpus       LaneKind = "corpus"
	LaneStatewide    LaneKind = "statewide"
	LanePrecedent    LaneKind = "precedent"
)

// Lane is one focused retrieval pass.
type Lane struct {
	Kind   LaneKind
	Label  string
	Prompt string
}

// BuildLanes derives at most max lanes from the plan, in priority order:
// local records, state law, then precedent.
func BuildLanes(q question.Question, plan planner.Plan, max int) []Lane {
	if max < 1 {
		max = 1
	}
	text := q.WithContext()
	lanes := make([]Lane, 0, 3)

	var local strings.Builder
	label := "municipal records"
	kind := LaneCorpus
	if plan.JurisdictionFilter != "" {
		label = plan.JurisdictionFilter + " records"
		kind = LaneJurisdiction
		local.WriteString(fmt.Sprintf("Search only documents from %s.\n", plan.JurisdictionFilter))
	}
	if len(plan.CandidateBoards) > 0 {
		local.WriteString(fmt.Sprintf("Prefer records of: %s.\n", strings.Join(plan.CandidateBoards, ", ")))
	}
	if len(plan.AllowedCategories) > 0 {
		local.WriteString(fmt.Sprintf("Document types: %s.\n", strings.Join(plan.AllowedCategories, ", ")))
	}
	if len(plan.InformationNeeds) > 0 {
		local.WriteString(fmt.Sprintf("Find: %s.\n", strings.Join(plan.InformationNeeds, "; ")))
	}
	local.WriteString(fmt.Sprintf("<question>%s</question>\n", text))
	lanes = append(lanes, Lane{Kind: kind, Label: label, Prompt: local.String()})

	if plan.AllowStatewideFallback || len(plan.StatuteHints) > 0 {
		var sb strings.Builder
		sb.WriteString("Search New Hampshire statutes, administrative rules and state guidance that apply to the question.\n")
		if len(plan.StatuteHints) > 0 {
			sb.WriteString(fmt.Sprintf("Start with: %s.\n", strings.Join(plan.StatuteHints, ", ")))
		}
		sb.WriteString(fmt.Sprintf("<question>%s</question>\n", text))
		lanes = append(lanes, Lane{Kind: LaneStatewide, Label: "state law and guidance", Prompt: sb.String()})
	}

	var sb strings.Builder
	sb.WriteString("Search earlier minutes, votes, warrant articles and decisions showing how similar matters were handled")
	if plan.JurisdictionFilter != "" {
		sb.WriteString(" in " + plan.JurisdictionFilter)
	}
	sb.WriteString(".\n")
	sb.WriteString(fmt.Sprintf("<question>%s</question>\n", text))
	lanes = append(lanes, Lane{Kind: LanePrecedent, Label: "prior actions", Prompt: sb.String()})

	if len(lanes) > max {
		lanes = lanes[:max]
	}
	return lanes
}

// ComplexGenerator runs several retrieval lanes and synthesizes their
// snippets in one non-grounded call.
type ComplexGenerator struct {
	grounding  llm.GroundingProvider
	text       llm.LLMProvider
	maxLanes   int
	concurrent bool
	minSnippet int
	prompts    Prompts
	logger     logger.ILogger
}

type ComplexOptions struct {
	MaxLanes         int
	Concurrent       bool
	MinSnippetLength int
}

func NewComplexGenerator(grounding llm.GroundingProvider, text llm.LLMProvider, opts ComplexOptions, prompts Prompts, log logger.ILogger) *ComplexGenerator {
	if opts.MaxLanes < 1 {
		opts.MaxLanes = 3
	}
	if opts.MinSnippetLength < 1 {
		opts.MinSnippetLength = 80
	}
	return &ComplexGenerator{
		grounding:  grounding,
		text:       text,
		maxLanes:   opts.MaxLanes,
		concurrent: opts.Concurrent,
		minSnippet: opts.MinSnippetLength,
		prompts:    prompts,
		logger:     log,
	}
}

type laneResult struct {
	lane Lane
	resp *llm.GroundedResponse
}

// Generate returns ErrQuotaExceeded when any lane or the synthesis call hits
// quota. A failed lane is otherwise skipped, and when every lane fails the
// answer is unavailable rather than empty.
func (g *ComplexGenerator) Generate(ctx context.Context, q question.Question, plan planner.Plan, history []llm.Message, corpus llm.Corpus) (*Result, error) {
	lanes := BuildLanes(q, plan, g.maxLanes)

	results, err := g.retrieve(ctx, lanes, history, corpus)
	if err != nil {
		return nil, err
	}

	var all, used []llm.Reference
	snippets := []Snippet{}
	failed := 0
	for _, r := range results {
		if r == nil {
			failed++
			continue
		}
		refs := llm.DistinctReferences(r.resp.References)
		all = append(all, refs...)
		if len(strings.TrimSpace(r.resp.Text)) < g.minSnippet {
			continue
		}
		used = append(used, refs...)
		snippets = append(snippets, Snippet{
			SourceLabel: r.lane.Label,
			Text:        r.resp.Text,
			SourceIDs:   llm.ReferenceIDs(refs),
		})
	}
	retrieved := len(llm.DistinctReferences(all))

	if failed == len(lanes) {
		g.logger.Error(module, "Every retrieval lane failed", map[string]interface{}{"lanes": len(lanes)})
		return unavailable(), nil
	}

	if len(snippets) == 0 {
		g.logger.Info(module, "No usable snippet from any lane", map[string]interface{}{
			"lanes":     len(lanes),
			"retrieved": retrieved,
		})
		return &Result{
			Text:           NoMaterialMessage,
			References:     []llm.Reference{},
			RetrievalCount: retrieved,
			NoMaterial:     true,
		}, nil
	}

	text, err := g.synthesize(ctx, q, snippets, history, "")
	if err != nil {
		if llm.IsQuotaExceeded(err) {
			return nil, err
		}
		g.logger.Error(module, "Synthesis failed", map[string]interface{}{"error": err.Error()})
		return unavailable(), nil
	}

	return &Result{
		Text:           text,
		References:     llm.DistinctReferences(used),
		RetrievalCount: retrieved,
		Synthesized:    true,
		Snippets:       snippets,
	}, nil
}

// Repair re-synthesizes prev from the same snippets with a revision hint.
// A non-quota failure keeps the previous draft.
func (g *ComplexGenerator) Repair(ctx context.Context, q question.Question, prev *Result, history []llm.Message, hint string) (*Result, error) {
	if prev == nil || !prev.Synthesized {
		return prev, nil
	}
	text, err := g.synthesize(ctx, q, prev.Snippets, history, hint)
	if err != nil {
		if llm.IsQuotaExceeded(err) {
			return nil, err
		}
		g.logger.Warn(module, "Repair synthesis failed, keeping draft", map[string]interface{}{"error": err.Error()})
		return prev, nil
	}
	repaired := *prev
	repaired.Text = text
	return &repaired, nil
}

// retrieve leaves a nil slot for each lane that failed.
func (g *ComplexGenerator) retrieve(ctx context.Context, lanes []Lane, history []llm.Message, corpus llm.Corpus) ([]*laneResult, error) {
	results := make([]*laneResult, len(lanes))

	run := func(ctx context.Context, i int) error {
		lane := lanes[i]
		resp, err := g.grounding.GenerateGrounded(ctx, lane.Prompt, history, corpus, g.prompts.GroundedInstruction)
		if err != nil {
			if llm.IsQuotaExceeded(err) {
				return err
			}
			g.logger.Warn(module, "Lane failed", map[string]interface{}{
				"lane":  string(lane.Kind),
				"error": err.Error(),
			})
			return nil
		}
		results[i] = &laneResult{lane: lane, resp: resp}
		return nil
	}

	if !g.concurrent {
		for i := range lanes {
			if err := run(ctx, i); err != nil {
				return nil, err
			}
		}
		return results, nil
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(len(lanes))
	for i := range lanes {
		eg.Go(func() error {
			return run(gctx, i)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (g *ComplexGenerator) synthesize(ctx context.Context, q question.Question, snippets []Snippet, history []llm.Message, hint string) (string, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: g.prompts.synthesisPrompt(q, snippets, hint)})

	text, err := g.text.Chat(ctx, messages,
		llm.WithSystemInstruction(g.prompts.SynthesisInstruction),
		llm.WithTemperature(0.2),
	)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty synthesis response")
	}
	return text, nil
}
