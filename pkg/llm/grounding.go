package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrQuotaExceeded is returned by every provider when the upstream reports
// rate limiting or exhausted quota. Callers match it with errors.Is.
var ErrQuotaExceeded = errors.New("llm: upstream quota exceeded")

// IsQuotaExceeded reports whether err is, or wraps, ErrQuotaExceeded.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// Corpus identifies the indexed document store a grounded call searches.
type Corpus struct {
	Handle string
}

func (c Corpus) IsZero() bool {
	return strings.TrimSpace(c.Handle) == ""
}

// Reference is one retrieved document chunk backing a grounded answer.
// ID is the document identifier (file name or statute label) used for
// provenance classification.
type Reference struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	URI   string `json:"uri,omitempty"`
	Text  string `json:"-"`
}

// GroundedResponse is the answer text plus the documents it drew on.
type GroundedResponse struct {
	Text       string
	References []Reference
}

// GroundingProvider answers a prompt using retrieval over a corpus.
type GroundingProvider interface {
	GenerateGrounded(ctx context.Context, prompt string, history []Message, corpus Corpus, instruction string) (*GroundedResponse, error)
}

// DistinctReferences removes references whose ID was already seen, keeping
// first-seen order.
func DistinctReferences(refs []Reference) []Reference {
	seen := make(map[string]bool, len(refs))
	out := make([]Reference, 0, len(refs))
	for _, r := range refs {
		key := strings.TrimSpace(r.ID)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// ReferenceIDs returns the IDs of refs in order.
func ReferenceIDs(refs []Reference) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return ids
}
