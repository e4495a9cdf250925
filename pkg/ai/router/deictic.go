package router

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[A-Za-z0-9']+`)

var deicticWords = map[string]bool{
	"that": true, "it": true, "this": true, "those": true, "these": true, "them": true,
}

// Words that carry no new subject matter in a follow-up.
var followUpFiller = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true, "to": true,
	"is": true, "was": true, "are": true, "be": true, "in": true, "on": true, "for": true,
	"me": true, "you": true, "can": true, "could": true, "would": true, "please": true,
	"what": true, "why": true, "how": true, "does": true, "do": true, "did": true,
	"about": true, "more": true, "tell": true, "explain": true, "elaborate": true,
	"mean": true, "means": true, "clarify": true, "expand": true, "detail": true,
	"details": true, "again": true, "example": true, "examples": true, "summarize": true,
	"simplify": true, "say": true, "so": true, "ok": true, "okay": true, "thanks": true,
	"further": true, "go": true, "really": true, "sure": true, "with": true,
}

const maxDeicticWords = 8

// IsDeicticFollowUp reports whether text is a short follow-up that points
// back at the previous answer ("explain that", "why is it?") without adding
// a new subject.
func IsDeicticFollowUp(text string) bool {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 || len(words) > maxDeicticWords {
		return false
	}

	hasDeictic := false
	for _, w := range words {
		switch {
		case deicticWords[w]:
			hasDeictic = true
		case followUpFiller[w]:
		default:
			return false
		}
	}
	return hasDeictic
}
