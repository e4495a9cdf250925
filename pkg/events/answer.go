package events

import "time"

const TypeAnswerCompleted = "ANSWER_COMPLETED"

// AnswerCompleted is emitted once per handled question, including replays
// and degraded outcomes.
type AnswerCompleted struct {
	SessionId   string    `json:"sessionId"`
	MessageId   string    `json:"messageId"`
	Outcome     string    `json:"outcome"`
	Complexity  string    `json:"complexity"`
	Scope       string    `json:"scope"`
	SourceCount int       `json:"sourceCount"`
	Repaired    bool      `json:"repaired"`
	CriticScore *float64  `json:"criticScore,omitempty"`
	Replayed    bool      `json:"replayed"`
	LatencyMs   int64     `json:"latencyMs"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func (e AnswerCompleted) EventType() string {
	return TypeAnswerCompleted
}

func (e AnswerCompleted) Payload() map[string]interface{} {
	data := map[string]interface{}{
		"sessionId":   e.SessionId,
		"messageId":   e.MessageId,
		"outcome":     e.Outcome,
		"complexity":  e.Complexity,
		"scope":       e.Scope,
		"sourceCount": e.SourceCount,
		"repaired":    e.Repaired,
		"replayed":    e.Replayed,
		"latencyMs":   e.LatencyMs,
		"occurredAt":  e.OccurredAt.Format(time.RFC3339Nano),
	}
	if e.CriticScore != nil {
		data["criticScore"] = *e.CriticScore
	}
	return data
}

func (e AnswerCompleted) Timestamp() time.Time {
	return e.OccurredAt
}
