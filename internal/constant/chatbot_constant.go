package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"

	// SaturatedMessage replaces the answer when the model provider reports
	// exhausted quota.
	SaturatedMessage = "The assistant is handling a high volume of requests right now. Please try your question again in a minute."

	// FailureMessage replaces the answer on any other unexpected failure.
	FailureMessage = "Something went wrong while answering your question. Please try again."

	AttachmentFieldName   = "attachment"
	MaxAttachmentBytes    = 2 << 20
	MaxQuestionCharacters = 4000
)
