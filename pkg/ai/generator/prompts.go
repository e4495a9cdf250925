package generator

import (
	"fmt"
	"strings"

	"municipal-assistant-be/pkg/ai/question"
)

// Fixed replies for degraded outcomes.
const (
	UnavailableMessage = "I'm temporarily unable to search the document library. Please try again in a few minutes."
	NoMaterialMessage  = "I couldn't find material in the indexed documents that addresses this question. Try naming the town, board, document type or year."
)

// Prompts holds one version of the generation wording. v1 is the original
// terse wording; v2 adds explicit citation and figure rules.
type Prompts struct {
	Version              string
	GroundedInstruction  string
	GeneralInstruction   string
	SynthesisInstruction string
}

func NewPrompts(version string) Prompts {
	if version == "v1" {
		return Prompts{
			Version:              "v1",
			GroundedInstruction:  "Answer the municipal official's question using only the retrieved documents. Say so plainly if the documents do not answer it.",
			GeneralInstruction:   "Answer from general knowledge of New Hampshire state law. Be brief and name the statute when you know it.",
			SynthesisInstruction: "Combine the evidence into one answer for a municipal official. Use only the evidence.",
		}
	}
	return Prompts{
		Version: "v2",
		GroundedInstruction: `You answer questions from New Hampshire municipal officials using only the retrieved documents.
- Quote figures, dates and vote counts exactly as they appear.
- Name the document each fact comes from.
- If the documents do not answer the question, say so plainly instead of guessing.
- Do not cite a statute unless it appears in the documents.`,
		GeneralInstruction: `No local documents were found. Answer from general knowledge of New Hampshire state law and state guidance.
- Keep it short and practical.
- Name the RSA chapter or section when you are confident of it.
- Say that the town's own records were not consulted.`,
		SynthesisInstruction: `You write answers for New Hampshire municipal officials from numbered evidence.
- Use only the evidence. Never add statutes, figures or procedures that are not in it.
- Cite evidence by number in square brackets, e.g. [2], after each claim.
- Avoid absolute statements such as "always" or "never" unless the evidence uses them.`,
	}
}

// groundedPrompt is the user turn for a grounding call.
func (p Prompts) groundedPrompt(q question.Question) string {
	var sb strings.Builder
	if hints := q.Hints(); hints != "" {
		sb.WriteString(fmt.Sprintf("<hints>%s</hints>\n", hints))
	}
	sb.WriteString(fmt.Sprintf("<question>%s</question>\n", q.WithContext()))
	return sb.String()
}

func (p Prompts) generalPrompt(q question.Question) string {
	return fmt.Sprintf("<question>%s</question>\n", q.WithContext())
}

// synthesisPrompt renders the fixed synthesis template: brief summary, key
// figures when present, then a narrative citing specific items.
func (p Prompts) synthesisPrompt(q question.Question, snippets []Snippet, repairHint string) string {
	var sb strings.Builder
	sb.WriteString("<evidence>\n")
	for i, s := range snippets {
		sb.WriteString(fmt.Sprintf("[%d] (%s", i+1, s.SourceLabel))
		if len(s.SourceIDs) > 0 {
			sb.WriteString("; " + strings.Join(s.SourceIDs, ", "))
		}
		sb.WriteString(")\n")
		sb.WriteString(strings.TrimSpace(s.Text))
		sb.WriteString("\n\n")
	}
	sb.WriteString("</evidence>\n\n")

	if hints := q.Hints(); hints != "" {
		sb.WriteString(fmt.Sprintf("<hints>%s</hints>\n", hints))
	}
	sb.WriteString(fmt.Sprintf("<question>%s</question>\n\n", q.WithContext()))

	sb.WriteString("<format>\n")
	sb.WriteString("1. Summary: two or three sentences answering the question directly.\n")
	sb.WriteString("2. Key figures: a short list of amounts, dates or vote counts, only if the evidence contains them.\n")
	sb.WriteString("3. Details: a narrative that cites specific documents, articles or meetings by evidence number.\n")
	sb.WriteString("</format>\n")

	if repairHint != "" {
		sb.WriteString(fmt.Sprintf("\n<revision>\n%s\n</revision>\n", repairHint))
	}
	return sb.String()
}
