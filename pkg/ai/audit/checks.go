package audit

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	statuteCitation = regexp.MustCompile(`\bRSA\s*\d+[A-Z]?(?:-[A-Z])?(?::\d+[a-z]?(?:-[a-z])?)?`)
	citationMarker  = regexp.MustCompile(`(?i)\[\d+(?:\s*,\s*\d+)*\]|\[source[^\]]*\]|\(source[^)]*\)|\(see [^)]*\)`)
	trailingMarker  = regexp.MustCompile(`(?i)^[ \t]*(?:\[\d+(?:\s*,\s*\d+)*\]|\[source[^\]]*\])[.!?]?`)

	absolutePhrases = []string{
		"always required",
		"never allowed",
		"never permitted",
		"must always",
		"under no circumstances",
		"in all cases",
		"without exception",
		"is illegal",
		"it is unlawful",
		"is guaranteed",
		"there is no way",
		"strictly prohibited",
	}

	procedureClaim = regexp.MustCompile(`(?i)\b(must|shall|is required to|are required to|has to|have to|needs to|need to)\b(?:[^.!?]|[.!?]\S){0,80}?\b(public hearing|special town meeting|warrant article|petition|ballot vote|official ballot|posted notice|two-thirds vote|supermajority|deliberative session|budget hearing)s?\b`)

	entityMention = regexp.MustCompile(`\b(?:Town|City|Village) of ([A-Z][a-zA-Z]+)|\b([A-Z][a-zA-Z]+) (?:Select Board|Board of Selectmen|Planning Board|Zoning Board|School Board|Budget Committee|Town Meeting|City Council)`)

	entityStopwords = map[string]bool{
		"The": true, "A": true, "An": true, "This": true, "That": true, "Each": true,
		"Every": true, "Your": true, "Our": true, "Their": true, "Any": true, "Local": true,
		"State": true, "Municipal": true, "Annual": true, "Special": true,
	}
)

// DefaultChecks is the standard rule set in evaluation order.
func DefaultChecks() []Check {
	return []Check{
		{
			Kind:     KindUnmarkedCitation,
			Severity: SeverityError,
			Detect:   detectUnmarkedCitations,
			Hint:     "Only cite a statute if it appears in the provided evidence, and mark every statutory citation with its evidence number, e.g. [1].",
		},
		{
			Kind:     KindAbsoluteAssertion,
			Severity: SeverityWarning,
			Detect:   detectAbsoluteAssertions,
			Hint:     "Avoid absolute legal statements; qualify them and point to the governing document.",
		},
		{
			Kind:     KindUngroundedProcedure,
			Severity: SeverityError,
			Detect:   detectUngroundedProcedures,
			Hint:     "Do not state that a procedure is required unless the evidence says so; cite the document that requires it.",
		},
		{
			Kind:     KindEntityDrift,
			Severity: SeverityWarning,
			Detect:   detectEntityDrift,
			Hint:     "Stay on the municipality and board the question is about; do not introduce other towns or bodies.",
		},
	}
}

// detectUnmarkedCitations flags statute citations that have no citation
// marker in the same sentence and do not appear in the grounded text.
func detectUnmarkedCitations(in Input) []string {
	grounded := normalize(in.GroundedText)
	var out []string
	for _, sentence := range sentences(in.Draft) {
		if citationMarker.MatchString(sentence) {
			continue
		}
		for _, cite := range statuteCitation.FindAllString(sentence, -1) {
			if !strings.Contains(grounded, normalize(cite)) {
				out = append(out, cite)
			}
		}
	}
	return out
}

func detectAbsoluteAssertions(in Input) []string {
	lower := strings.ToLower(in.Draft)
	var out []string
	for _, phrase := range absolutePhrases {
		if strings.Contains(lower, phrase) {
			out = append(out, phrase)
		}
	}
	return out
}

// detectUngroundedProcedures flags "must hold a public hearing" style claims
// when the sentence carries no citation and the procedure is absent from the
// grounded text.
func detectUngroundedProcedures(in Input) []string {
	grounded := strings.ToLower(in.GroundedText)
	var out []string
	for _, sentence := range sentences(in.Draft) {
		if citationMarker.MatchString(sentence) || statuteCitation.MatchString(sentence) {
			continue
		}
		for _, m := range procedureClaim.FindAllStringSubmatch(sentence, -1) {
			procedure := strings.ToLower(m[2])
			if !strings.Contains(grounded, procedure) {
				out = append(out, strings.TrimSpace(m[0]))
			}
		}
	}
	return out
}

// detectEntityDrift flags municipalities or boards named in the draft that
// do not appear in the situation title.
func detectEntityDrift(in Input) []string {
	title := strings.ToLower(in.SituationTitle)
	if strings.TrimSpace(title) == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, m := range entityMention.FindAllStringSubmatch(in.Draft, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name == "" || entityStopwords[name] || seen[name] {
			continue
		}
		seen[name] = true
		if strings.Contains(title, strings.ToLower(name)) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// sentences splits at line breaks and at terminal punctuation followed by
// whitespace and a capital letter or the end of the text. A citation marker
// right after the punctuation, as in "RSA 32:5. [1]", stays with the
// sentence it cites.
func sentences(text string) []string {
	var out []string
	start := 0
	emit := func(end int) {
		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, s)
		}
	}

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			emit(i)
			start = i + 1
			continue
		case '.', '!', '?':
		default:
			continue
		}

		end := i + 1
		if loc := trailingMarker.FindStringIndex(text[end:]); loc != nil {
			end += loc[1]
		}
		rest := text[end:]
		next := strings.TrimLeft(rest, " \t\r")
		switch {
		case next == "" || next[0] == '\n':
		case len(next) < len(rest) && startsUpper(next):
		default:
			continue
		}
		emit(end)
		start = end
		i = end - 1
	}
	emit(len(text))
	return out
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func normalize(s string) string {
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), "")
}
