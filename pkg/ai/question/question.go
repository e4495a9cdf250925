// Package question holds the immutable input shared by every pipeline stage.
package question

import "strings"

// Question is what an official asked, plus optional hints from the client.
type Question struct {
	Text         string
	Jurisdiction string
	Board        string
	// Attachment is extracted text from an uploaded document, if any.
	Attachment string
}

// AttachmentPreviewLimit caps how much attachment text is added to prompts.
const AttachmentPreviewLimit = 4000

// WithContext returns the question text with the attachment preview
// appended, as sent to the model.
func (q Question) WithContext() string {
	att := strings.TrimSpace(q.Attachment)
	if att == "" {
		return q.Text
	}
	if r := []rune(att); len(r) > AttachmentPreviewLimit {
		att = string(r[:AttachmentPreviewLimit]) + "..."
	}
	return q.Text + "\n\nAttached document (excerpt):\n" + att
}

// Hints renders the client-provided hints as a short clause, or "".
func (q Question) Hints() string {
	var parts []string
	if q.Jurisdiction != "" {
		parts = append(parts, "jurisdiction: "+q.Jurisdiction)
	}
	if q.Board != "" {
		parts = append(parts, "board: "+q.Board)
	}
	return strings.Join(parts, "; ")
}
