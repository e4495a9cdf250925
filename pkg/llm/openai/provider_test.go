package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"municipal-assistant-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := goopenai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewProviderWithConfig(cfg, "gpt-test")
}

func TestChat_SendsSystemInstructionAndMapsRoles(t *testing.T) {
	var captured goopenai.ChatCompletionRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"answer"},"finish_reason":"stop"}]}`))
	})

	out, err := p.Chat(context.Background(),
		[]llm.Message{{Role: "user", Content: "q1"}, {Role: "model", Content: "a1"}},
		llm.WithSystemInstruction("sys"), llm.WithJSON())
	require.NoError(t, err)
	assert.Equal(t, "answer", out)

	require.Len(t, captured.Messages, 3)
	assert.Equal(t, goopenai.ChatMessageRoleSystem, captured.Messages[0].Role)
	assert.Equal(t, goopenai.ChatMessageRoleAssistant, captured.Messages[2].Role)
	assert.Equal(t, "gpt-test", captured.Model)
	require.NotNil(t, captured.ResponseFormat)
}

func TestChat_RateLimitIsQuota(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
	})

	_, err := p.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, llm.IsQuotaExceeded(err))
}

func TestChat_ServerErrorIsNotQuota(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad","type":"invalid_request_error"}}`))
	})

	_, err := p.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.False(t, llm.IsQuotaExceeded(err))
}
