// Package pipeline sequences routing, planning, generation, audit, scope
// classification and follow-up suggestion for one question.
package pipeline

import (
	"context"

	"municipal-assistant-be/internal/pkg/logger"
	"municipal-assistant-be/pkg/ai/audit"
	"municipal-assistant-be/pkg/ai/followup"
	"municipal-assistant-be/pkg/ai/generator"
	"municipal-assistant-be/pkg/ai/planner"
	"municipal-assistant-be/pkg/ai/question"
	"municipal-assistant-be/pkg/ai/router"
	"municipal-assistant-be/pkg/ai/scope"
	"municipal-assistant-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const module = "PIPELINE"

var tracer = otel.Tracer("municipal-assistant.pipeline")

// Request is one question with its conversational context.
type Request struct {
	Question question.Question
	// History is the full prior conversation, oldest first. It is trimmed
	// to the configured window before any stage sees it.
	History []llm.Message
	Corpus  llm.Corpus
	// SituationTitle is what the conversation is about, used by the
	// entity-drift check.
	SituationTitle string
	// PriorRoute is the route of the previous assistant turn, if known.
	PriorRoute *router.Output
}

// Answer is everything the orchestrator persists and returns.
type Answer struct {
	Text           string
	Route          router.Output
	RouteBypassed  bool
	Plan           *planner.Plan
	Sources        []llm.Reference
	RetrievalCount int
	Classification *scope.Classification
	Notice         *scope.Notice
	Audit          *audit.Result
	Repaired       bool
	// CriticScore is nil when no audit ran.
	CriticScore     *float64
	LimitationsNote string
	FollowUps       []string
	Clarification   bool
	Degraded        bool
	NoMaterial      bool
}

// SourceIDs returns the identifiers of the grounded sources.
func (a *Answer) SourceIDs() []string {
	return llm.ReferenceIDs(a.Sources)
}

type Pipeline struct {
	stages       Stages
	historyTurns int
	logger       logger.ILogger
}

func NewPipeline(stages Stages, historyTurns int, log logger.ILogger) *Pipeline {
	if historyTurns < 1 {
		historyTurns = 6
	}
	return &Pipeline{stages: stages, historyTurns: historyTurns, logger: log}
}

// Answer runs the pipeline. The only error it returns wraps
// llm.ErrQuotaExceeded; every other upstream failure degrades the stage it
// happened in.
func (p *Pipeline) Answer(ctx context.Context, req Request) (*Answer, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Answer",
		trace.WithAttributes(
			attribute.Int("pipeline.history_len", len(req.History)),
			attribute.Bool("pipeline.has_corpus", !req.Corpus.IsZero()),
		),
	)
	defer span.End()

	history := TrimHistory(req.History, p.historyTurns)
	q := req.Question

	route, bypassed, err := p.route(ctx, q, history, req.PriorRoute)
	if err != nil {
		return nil, p.fail(span, err)
	}
	span.SetAttributes(
		attribute.String("pipeline.complexity", string(route.Complexity)),
		attribute.Bool("pipeline.route_bypassed", bypassed),
	)

	if route.RequiresClarification {
		return &Answer{
			Text:          route.ClarificationText(),
			Route:         route,
			RouteBypassed: bypassed,
			Sources:       []llm.Reference{},
			FollowUps:     []string{},
			Clarification: true,
		}, nil
	}

	effective := q
	if route.RewrittenQuestion != "" {
		effective.Text = route.RewrittenQuestion
	}

	ans := &Answer{Route: route, RouteBypassed: bypassed, FollowUps: []string{}}

	var res *generator.Result
	if route.Complexity == router.ComplexityComplex {
		res, err = p.answerComplex(ctx, effective, route, history, req, ans)
	} else {
		res, err = p.answerSimple(ctx, effective, history, req, ans)
	}
	if err != nil {
		return nil, p.fail(span, err)
	}

	ans.Text = res.Text
	ans.Sources = res.References
	if ans.Sources == nil {
		ans.Sources = []llm.Reference{}
	}
	ans.RetrievalCount = res.RetrievalCount
	ans.Degraded = res.Degraded
	ans.NoMaterial = res.NoMaterial

	if res.Degraded {
		return ans, nil
	}

	var cls scope.Classification
	switch {
	case res.NoMaterial:
		cls = scope.Classification{Type: scope.SourceNone}
	case res.StatewideFallback:
		cls = scope.StatewideFallback()
	default:
		cls = p.stages.Scope.Classify(ans.SourceIDs(), effective.Text, q.Jurisdiction)
	}
	ans.Classification = &cls
	ans.Notice = scope.NoticeFor(cls, len(ans.Sources))
	span.SetAttributes(
		attribute.String("pipeline.scope", string(ans.Notice.Type)),
		attribute.Int("pipeline.sources", len(ans.Sources)),
	)

	if !res.NoMaterial {
		ans.FollowUps = p.followUps(ctx, q, ans)
	}
	return ans, nil
}

func (p *Pipeline) route(ctx context.Context, q question.Question, history []llm.Message, prior *router.Output) (router.Output, bool, error) {
	ctx, span := tracer.Start(ctx, "pipeline.route")
	defer span.End()

	route, bypassed, err := p.stages.Router.Route(ctx, q, history, prior)
	if err != nil {
		return router.Output{}, false, p.fail(span, err)
	}
	return route, bypassed, nil
}

func (p *Pipeline) answerSimple(ctx context.Context, q question.Question, history []llm.Message, req Request, ans *Answer) (*generator.Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline.generate.simple")
	defer span.End()

	res, err := p.stages.Simple.Generate(ctx, q, history, req.Corpus)
	if err != nil {
		return nil, p.fail(span, err)
	}

	// Simple answers are scored but never repaired.
	if !res.Degraded && !res.NoMaterial {
		result := p.stages.Auditor.Audit(audit.Input{
			Draft:          res.Text,
			GroundedText:   res.GroundedText(),
			SituationTitle: req.SituationTitle,
			Repaired:       true,
		})
		p.applyAudit(ans, result)
	}
	return res, nil
}

func (p *Pipeline) answerComplex(ctx context.Context, q question.Question, route router.Output, history []llm.Message, req Request, ans *Answer) (*generator.Result, error) {
	planCtx, planSpan := tracer.Start(ctx, "pipeline.plan")
	plan, err := p.stages.Planner.Plan(planCtx, q, route)
	if err != nil {
		p.fail(planSpan, err)
		planSpan.End()
		return nil, err
	}
	planSpan.End()
	ans.Plan = &plan

	genCtx, genSpan := tracer.Start(ctx, "pipeline.generate.complex")
	res, err := p.stages.Complex.Generate(genCtx, q, plan, history, req.Corpus)
	if err != nil {
		p.fail(genSpan, err)
		genSpan.End()
		return nil, err
	}
	genSpan.SetAttributes(attribute.Int("pipeline.snippets", len(res.Snippets)))
	genSpan.End()

	if !res.Synthesized {
		return res, nil
	}

	result := p.stages.Auditor.Audit(audit.Input{
		Draft:          res.Text,
		GroundedText:   res.GroundedText(),
		SituationTitle: req.SituationTitle,
	})
	if result.ShouldRepair {
		repairCtx, repairSpan := tracer.Start(ctx, "pipeline.repair",
			trace.WithAttributes(attribute.Int("audit.violations", len(result.Violations))),
		)
		p.logger.Info(module, "Audit requested a repair pass", map[string]interface{}{
			"violations": len(result.Violations),
		})
		repaired, err := p.stages.Complex.Repair(repairCtx, q, res, history, result.RepairHint)
		if err != nil {
			p.fail(repairSpan, err)
			repairSpan.End()
			return nil, err
		}
		repairSpan.End()

		// A failed repair hands back the draft; only a rewrite counts.
		if repaired != nil && repaired != res && repaired.Text != res.Text {
			res = repaired
			ans.Repaired = true
			result = p.stages.Auditor.Audit(audit.Input{
				Draft:          res.Text,
				GroundedText:   res.GroundedText(),
				SituationTitle: req.SituationTitle,
				Repaired:       true,
			})
		}
	}
	p.applyAudit(ans, result)
	return res, nil
}

func (p *Pipeline) applyAudit(ans *Answer, result audit.Result) {
	// Accepted results are final.
	result.ShouldRepair = false
	result.RepairHint = ""

	score := audit.CriticScore(result)
	ans.Audit = &result
	ans.CriticScore = &score
	ans.LimitationsNote = audit.LimitationsNote(result)
}

func (p *Pipeline) followUps(ctx context.Context, q question.Question, ans *Answer) []string {
	ctx, span := tracer.Start(ctx, "pipeline.followups")
	defer span.End()

	jurisdiction := q.Jurisdiction
	if ans.Classification != nil && ans.Classification.Jurisdiction != nil {
		jurisdiction = *ans.Classification.Jurisdiction
	}
	out := p.stages.FollowUps.Suggest(ctx, followup.Input{
		Question:     q.Text,
		Answer:       ans.Text,
		Jurisdiction: jurisdiction,
		Domains:      ans.Route.Domains,
	})
	if out == nil {
		return []string{}
	}
	return out
}

func (p *Pipeline) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// TrimHistory keeps the most recent turns messages.
func TrimHistory(history []llm.Message, turns int) []llm.Message {
	if turns < 1 || len(history) <= turns {
		return history
	}
	return history[len(history)-turns:]
}
