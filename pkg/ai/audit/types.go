// Package audit runs pattern checks over a drafted answer to catch
// unsupported legal claims and drift away from the question's subject.
package audit

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type ViolationKind string

const (
	KindUnmarkedCitation    ViolationKind = "unmarked_statutory_citation"
	KindAbsoluteAssertion   ViolationKind = "absolute_legal_assertion"
	KindUngroundedProcedure ViolationKind = "ungrounded_procedure"
	KindEntityDrift         ViolationKind = "entity_drift"
)

type Violation struct {
	Kind     ViolationKind `json:"kind"`
	Evidence string        `json:"evidence"`
	Severity Severity      `json:"severity"`
}

// Result is the outcome of one audit pass.
type Result struct {
	Passed       bool        `json:"passed"`
	Violations   []Violation `json:"violations"`
	ShouldRepair bool        `json:"shouldRepair"`
	RepairHint   string      `json:"repairHint,omitempty"`
}

// Input is everything a check may look at.
type Input struct {
	Draft string
	// GroundedText is the retrieved evidence the draft was written from.
	GroundedText string
	// SituationTitle names what the conversation is about, e.g. the
	// session title plus the jurisdiction hint.
	SituationTitle string
	// Repaired is true when Draft is already the output of a repair pass.
	Repaired bool
}

// Check is one pattern rule. Detect returns the offending spans.
type Check struct {
	Kind     ViolationKind
	Severity Severity
	Detect   func(in Input) []string
	Hint     string
}

func (r Result) Count(sev Severity) int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == sev {
			n++
		}
	}
	return n
}
