// Package metrics holds the Prometheus collectors for answered questions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "municipal_assistant"

var (
	// AnswersTotal counts handled questions.
	// Labels: outcome (answered, clarification, no_material, unavailable, saturated, failed), complexity
	AnswersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "answers_total",
		Help:      "Total questions handled by outcome",
	}, []string{"outcome", "complexity"})

	// AnswerLatency measures end-to-end handling time, replays included.
	AnswerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "latency_seconds",
		Help:      "Question handling latency in seconds",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
	}, []string{"complexity"})

	// ScopeNotices counts provenance notices by type.
	ScopeNotices = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scope",
		Name:      "notices_total",
		Help:      "Scope notices attached to answers by type",
	}, []string{"type"})

	// SourcesPerAnswer tracks how many distinct documents ground an answer.
	SourcesPerAnswer = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scope",
		Name:      "sources_per_answer",
		Help:      "Distinct grounded sources per answer",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
	})

	// CriticScores tracks the audit score distribution.
	CriticScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "critic_score",
		Help:      "Distribution of audit critic scores",
		Buckets:   []float64{0, 0.25, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	// Repairs counts answers that went through the repair pass.
	Repairs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "repairs_total",
		Help:      "Answers regenerated after a failed audit",
	})

	// DuplicateReplays counts duplicate submissions answered from history.
	DuplicateReplays = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dedup",
		Name:      "replays_total",
		Help:      "Duplicate submissions replayed from a persisted answer",
	})
)
