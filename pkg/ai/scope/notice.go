package scope

import "fmt"

// Notice is the fixed provenance statement attached to an answer.
type Notice struct {
	Type         SourceType `json:"type"`
	Jurisdiction *string    `json:"jurisdiction"`
	Text         string     `json:"text"`
}

// NoticeFor maps a classification to its notice. When the answer has any
// grounded sources the notice is never statewide-only or none: a
// statewide-only classification with documents is reported as a corpus
// (local) notice without a town.
func NoticeFor(cls Classification, sourceCount int) *Notice {
	t := cls.Type
	jurisdiction := cls.Jurisdiction

	if sourceCount > 0 && (t == SourceStatewide || t == SourceNone) {
		t = SourceLocal
	}
	if t == SourceStatewide {
		jurisdiction = nil
	}

	return &Notice{
		Type:         t,
		Jurisdiction: jurisdiction,
		Text:         noticeText(t, jurisdiction),
	}
}

func noticeText(t SourceType, jurisdiction *string) string {
	town := ""
	if jurisdiction != nil {
		town = *jurisdiction
	}

	switch t {
	case SourceLocal:
		if town == "" {
			return "This answer is based on documents in the indexed municipal corpus."
		}
		return fmt.Sprintf("This answer is based on %s documents in the indexed municipal corpus.", town)
	case SourceMixed:
		if town == "" {
			return "This answer combines municipal documents with New Hampshire state law and guidance."
		}
		return fmt.Sprintf("This answer combines %s documents with New Hampshire state law and guidance.", town)
	case SourceStatewide:
		return "No local documents addressed this question. This answer reflects general New Hampshire state law and guidance, not your municipality's own records."
	default:
		return "No documents in the corpus addressed this question. Verify this answer against your municipality's records."
	}
}
