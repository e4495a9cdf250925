package factory

import (
	"fmt"

	"municipal-assistant-be/pkg/llm"
	"municipal-assistant-be/pkg/llm/gemini"
	"municipal-assistant-be/pkg/llm/ollama"
	"municipal-assistant-be/pkg/llm/openai"
)

type Config struct {
	Provider      string // "gemini", "openai" or "ollama"
	Model         string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OllamaBaseURL string
}

// NewLLMProvider builds the backend used for non-grounded calls (routing,
// planning, synthesis, follow-ups).
func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "", "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		model := cfg.Model
		if model == "" {
			model = cfg.GeminiModel
		}
		return gemini.NewProvider(cfg.GeminiAPIKey, model), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return openai.NewProvider(cfg.OpenAIAPIKey, cfg.Model), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// NewGroundingProvider builds the retrieval-backed provider. Only Gemini
// file search is supported.
func NewGroundingProvider(cfg Config) (llm.GroundingProvider, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("grounding provider requires a Gemini API key")
	}
	return gemini.NewProvider(cfg.GeminiAPIKey, cfg.GeminiModel), nil
}
