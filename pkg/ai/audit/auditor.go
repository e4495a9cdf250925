package audit

import (
	"fmt"
	"strings"
)

// Auditor runs a fixed list of checks. It has no state and is safe for
// concurrent use.
type Auditor struct {
	checks []Check
}

// NewAuditor returns an auditor over checks, or DefaultChecks when none are
// given.
func NewAuditor(checks ...Check) *Auditor {
	if len(checks) == 0 {
		checks = DefaultChecks()
	}
	return &Auditor{checks: checks}
}

// Audit evaluates the draft. A result with any error-severity violation does
// not pass, and asks for a repair only when the draft has not been repaired
// already.
func (a *Auditor) Audit(in Input) Result {
	res := Result{Violations: []Violation{}}
	var hints []string

	for _, check := range a.checks {
		evidence := check.Detect(in)
		if len(evidence) == 0 {
			continue
		}
		for _, e := range evidence {
			res.Violations = append(res.Violations, Violation{Kind: check.Kind, Evidence: e, Severity: check.Severity})
		}
		if check.Severity == SeverityError && check.Hint != "" {
			hints = append(hints, fmt.Sprintf("- %s (found: %s)", check.Hint, strings.Join(evidence, "; ")))
		}
	}

	res.Passed = res.Count(SeverityError) == 0
	if !res.Passed && !in.Repaired {
		res.ShouldRepair = true
		res.RepairHint = "Revise the answer to fix these problems:\n" + strings.Join(hints, "\n")
	}
	return res
}

// CriticScore maps a result to [0,1]: each error costs 0.25, each warning
// 0.1.
func CriticScore(r Result) float64 {
	score := 1.0 - 0.25*float64(r.Count(SeverityError)) - 0.1*float64(r.Count(SeverityWarning))
	if score < 0 {
		return 0
	}
	return score
}

// LimitationsNote summarizes violations that remain in an accepted answer,
// or returns "" for a clean result.
func LimitationsNote(r Result) string {
	if len(r.Violations) == 0 {
		return ""
	}

	kinds := make([]string, 0, len(r.Violations))
	seen := make(map[ViolationKind]bool)
	for _, v := range r.Violations {
		if seen[v.Kind] {
			continue
		}
		seen[v.Kind] = true
		kinds = append(kinds, describe(v.Kind))
	}
	return "Review before relying on this answer: it may contain " + strings.Join(kinds, ", ") + "."
}

func describe(k ViolationKind) string {
	switch k {
	case KindUnmarkedCitation:
		return "statutory citations not found in the retrieved documents"
	case KindAbsoluteAssertion:
		return "overly absolute legal statements"
	case KindUngroundedProcedure:
		return "procedural requirements not supported by the retrieved documents"
	case KindEntityDrift:
		return "references to other municipalities or boards"
	default:
		return string(k)
	}
}
