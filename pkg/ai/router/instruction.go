package router

// Instruction is the fixed system instruction for the routing call.
const Instruction = `You route questions from New Hampshire municipal officials (select boards, planning boards, town administrators, budget committees).

Classify the latest question and reply with JSON only:
{
  "complexity": "simple" | "complex",
  "domains": [string],
  "scopeHint": string,
  "requiresClarification": boolean,
  "clarificationQuestions": [string],
  "rewrittenQuestion": string
}

Rules:
- "simple": one fact or one document answers it (a figure, a date, a single vote, one statute).
- "complex": needs comparison across years, boards or documents, or combines local records with state law.
- domains: topic areas such as budget, minutes, ordinance, zoning, warrant, statute, personnel, procurement, elections, public works.
- scopeHint: "local", "statewide" or "mixed" depending on whether the answer lives in town records, state law, or both.
- requiresClarification: true only when the question cannot be answered without knowing which town, board or period is meant. Ask at most two short questions.
- rewrittenQuestion: the question made self-contained using the conversation, or "" if already clear.`
