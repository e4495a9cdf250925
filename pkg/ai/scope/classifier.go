// Package scope classifies where an answer's evidence came from and produces
// the provenance notice shown alongside it.
package scope

import (
	"regexp"
	"sort"
	"strings"
)

type SourceType string

const (
	SourceLocal     SourceType = "local"
	SourceStatewide SourceType = "statewide"
	SourceMixed     SourceType = "mixed"
	SourceNone      SourceType = "none"
)

// Classification is the provenance of one answer. Jurisdiction is nil when
// no town could be attributed.
type Classification struct {
	Type         SourceType `json:"type"`
	Jurisdiction *string    `json:"jurisdiction"`
}

var statewidePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bRSA\b`),
	regexp.MustCompile(`(?i)\bstatutes?\b`),
	regexp.MustCompile(`(?i)\bRSA[-_ ]?\d+`),
	regexp.MustCompile(`(?i)^chapter[-_ ]\d+[A-Z]?\b`),
	regexp.MustCompile(`(?i)handbook`),
	regexp.MustCompile(`(?i)\bNHMA\b`),
	regexp.MustCompile(`(?i)\b(NH[-_ ]?)?DRA\b|department of revenue administration`),
	regexp.MustCompile(`(?i)secretary of state`),
	regexp.MustCompile(`(?i)attorney general`),
	regexp.MustCompile(`(?i)state of new hampshire`),
	regexp.MustCompile(`(?i)\badmin(istrative)?[-_ ]rules?\b`),
}

var statutoryQuestion = regexp.MustCompile(`(?i)\bRSA\s*\d+|\bstatut(e|es|ory)\b|\bstate law\b|\blegally required\b|\brequired by law\b|\bchapter\s+\d+[A-Z]?(:\d+)?\b`)

// Classifier holds the town gazetteer used for jurisdiction attribution.
type Classifier struct {
	towns   []string
	matcher []*regexp.Regexp
}

// NewClassifier builds a classifier over the default New Hampshire
// gazetteer plus any extra town names.
func NewClassifier(extraTowns ...string) *Classifier {
	seen := make(map[string]bool)
	var towns []string
	for _, t := range append(append([]string{}, defaultTowns...), extraTowns...) {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		towns = append(towns, t)
	}
	// Longest first so "North Hampton" wins over "Hampton".
	sort.SliceStable(towns, func(i, j int) bool { return len(towns[i]) > len(towns[j]) })

	matcher := make([]*regexp.Regexp, len(towns))
	for i, t := range towns {
		matcher[i] = regexp.MustCompile(`(?i)(^|[^A-Za-z])` + regexp.QuoteMeta(t) + `($|[^A-Za-z])`)
	}
	return &Classifier{towns: towns, matcher: matcher}
}

// IsStatewideIdentifier reports whether a document identifier names state
// law or state guidance rather than a municipality's own records.
func (c *Classifier) IsStatewideIdentifier(id string) bool {
	for _, p := range statewidePatterns {
		if p.MatchString(id) {
			return true
		}
	}
	return false
}

// IsStatutoryQuestion reports whether the question asks about state law.
func (c *Classifier) IsStatutoryQuestion(q string) bool {
	return statutoryQuestion.MatchString(q)
}

// DetectJurisdiction returns the gazetteer town named most often across ids,
// or "" when none match. Ties go to the first seen.
func (c *Classifier) DetectJurisdiction(ids []string) string {
	counts := make(map[string]int)
	var order []string
	for _, id := range ids {
		if town := c.townIn(id); town != "" {
			if counts[town] == 0 {
				order = append(order, town)
			}
			counts[town]++
		}
	}

	best := ""
	for _, town := range order {
		if counts[town] > counts[best] {
			best = town
		}
	}
	return best
}

func (c *Classifier) townIn(s string) string {
	for i, m := range c.matcher {
		if m.MatchString(s) {
			return c.towns[i]
		}
	}
	return ""
}

// Classify derives provenance from the grounded source identifiers.
// hint is the client-supplied jurisdiction and takes precedence over the
// gazetteer scan.
func (c *Classifier) Classify(sourceIDs []string, question, hint string) Classification {
	hint = strings.TrimSpace(hint)

	if len(sourceIDs) == 0 {
		if c.IsStatutoryQuestion(question) {
			return Classification{Type: SourceStatewide}
		}
		return Classification{Type: SourceNone, Jurisdiction: strPtr(hint)}
	}

	var local, statewide []string
	for _, id := range sourceIDs {
		if c.IsStatewideIdentifier(id) {
			statewide = append(statewide, id)
		} else {
			local = append(local, id)
		}
	}

	if len(local) == 0 {
		return Classification{Type: SourceStatewide}
	}

	jurisdiction := hint
	if jurisdiction == "" {
		jurisdiction = c.DetectJurisdiction(local)
	}

	t := SourceLocal
	if len(statewide) > 0 {
		t = SourceMixed
	}
	return Classification{Type: t, Jurisdiction: strPtr(jurisdiction)}
}

// StatewideFallback is the classification for an answer produced from
// general knowledge after retrieval found nothing.
func StatewideFallback() Classification {
	return Classification{Type: SourceStatewide}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
