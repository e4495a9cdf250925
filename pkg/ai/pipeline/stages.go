package pipeline

import (
	"context"

	"municipal-assistant-be/pkg/ai/audit"
	"municipal-assistant-be/pkg/ai/followup"
	"municipal-assistant-be/pkg/ai/generator"
	"municipal-assistant-be/pkg/ai/planner"
	"municipal-assistant-be/pkg/ai/question"
	"municipal-assistant-be/pkg/ai/router"
	"municipal-assistant-be/pkg/ai/scope"
	"municipal-assistant-be/pkg/llm"
)

// Stage contracts. The concrete implementations live in the sibling
// packages; tests substitute their own.

type Router interface {
	Route(ctx context.Context, q question.Question, history []llm.Message, prior *router.Output) (router.Output, bool, error)
}

type Planner interface {
	Plan(ctx context.Context, q question.Question, route router.Output) (planner.Plan, error)
}

type SimpleGenerator interface {
	Generate(ctx context.Context, q question.Question, history []llm.Message, corpus llm.Corpus) (*generator.Result, error)
}

type ComplexGenerator interface {
	Generate(ctx context.Context, q question.Question, plan planner.Plan, history []llm.Message, corpus llm.Corpus) (*generator.Result, error)
	Repair(ctx context.Context, q question.Question, prev *generator.Result, history []llm.Message, hint string) (*generator.Result, error)
}

type Auditor interface {
	Audit(in audit.Input) audit.Result
}

type ScopeClassifier interface {
	Classify(sourceIDs []string, question, hint string) scope.Classification
}

type FollowUpSuggester interface {
	Suggest(ctx context.Context, in followup.Input) []string
}

// Stages bundles the collaborators of a Pipeline.
type Stages struct {
	Router    Router
	Planner   Planner
	Simple    SimpleGenerator
	Complex   ComplexGenerator
	Auditor   Auditor
	Scope     ScopeClassifier
	FollowUps FollowUpSuggester
}
