package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"municipal-assistant-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

// Provider is the OpenAI-compatible text backend. It does not support
// grounded generation.
type Provider struct {
	client    *goopenai.Client
	ModelName string
}

var _ llm.LLMProvider = &Provider{}

func NewProvider(apiKey, modelName string) *Provider {
	return NewProviderWithConfig(goopenai.DefaultConfig(apiKey), modelName)
}

// NewProviderWithConfig allows pointing the client at a compatible endpoint.
func NewProviderWithConfig(cfg goopenai.ClientConfig, modelName string) *Provider {
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	return &Provider{
		client:    goopenai.NewClientWithConfig(cfg),
		ModelName: modelName,
	}
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.3}, opts...)

	messages := make([]goopenai.ChatCompletionMessage, 0, len(history)+1)
	if options.SystemInstruction != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: options.SystemInstruction,
		})
	}
	for _, msg := range history {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    mapRole(msg.Role),
			Content: msg.Content,
		})
	}

	model := p.ModelName
	if options.Model != "" {
		model = options.Model
	}

	req := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(options.Temperature),
	}
	if options.MaxTokens > 0 {
		req.MaxCompletionTokens = options.MaxTokens
	}
	if options.JSON {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func classifyError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("openai: %s: %w", apiErr.Message, llm.ErrQuotaExceeded)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("openai: %w", llm.ErrQuotaExceeded)
	}
	return fmt.Errorf("openai API call failed: %w", err)
}

func mapRole(role string) string {
	switch role {
	case "model", "assistant":
		return goopenai.ChatMessageRoleAssistant
	case "system":
		return goopenai.ChatMessageRoleSystem
	default:
		return goopenai.ChatMessageRoleUser
	}
}
