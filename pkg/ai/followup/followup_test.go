package followup

import (
	"context"
	"errors"
	"testing"

	"municipal-assistant-be/internal/pkg/logger"
	"municipal-assistant-be/pkg/llm"

	"github.com/stretchr/testify/assert"
)

type stubLLM struct {
	reply  string
	err    error
	prompt string
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return s.reply, s.err
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func TestSuggest_JSON(t *testing.T) {
	stub := &stubLLM{reply: "```json\n{\"followUps\": [\"What did FY24 spend on paving?\", \"  \", \"what is the road budget?\", \"Who approved it?\", \"When is the next hearing?\"]}\n```"}
	g := NewGenerator(stub, 3, logger.NewNopLogger())

	got := g.Suggest(context.Background(), Input{Question: "What is the road budget?", Answer: "It is $1.2M.", Jurisdiction: "Anytown", Domains: []string{"budget"}})

	assert.Equal(t, []string{"What did FY24 spend on paving?", "Who approved it?", "When is the next hearing?"}, got)
	assert.Contains(t, stub.prompt, "<jurisdiction>Anytown</jurisdiction>")
	assert.Contains(t, stub.prompt, "<domains>budget</domains>")
}

func TestSuggest_PlainListFallback(t *testing.T) {
	stub := &stubLLM{reply: "Here are some ideas:\n1. Who sets the tax rate?\n- Can the select board change it?"}
	got := NewGenerator(stub, 3, logger.NewNopLogger()).Suggest(context.Background(), Input{Question: "q"})
	assert.Equal(t, []string{"Who sets the tax rate?", "Can the select board change it?"}, got)
}

func TestSuggest_FailureIsEmpty(t *testing.T) {
	for _, err := range []error{errors.New("timeout"), llm.ErrQuotaExceeded} {
		got := NewGenerator(&stubLLM{err: err}, 3, logger.NewNopLogger()).Suggest(context.Background(), Input{Question: "q"})
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}
