package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"municipal-assistant-be/pkg/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Provider talks to the Gemini generateContent endpoint. It serves both
// plain generation and grounded generation over a file search store.
type Provider struct {
	BaseURL   string
	APIKey    string
	ModelName string
	Client    *http.Client
}

var (
	_ llm.LLMProvider       = &Provider{}
	_ llm.GroundingProvider = &Provider{}
)

func NewProvider(apiKey, modelName string) *Provider {
	return &Provider{
		BaseURL:   defaultBaseURL,
		APIKey:    apiKey,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type fileSearch struct {
	FileSearchStoreNames []string `json:"fileSearchStoreNames"`
}

type tool struct {
	FileSearch *fileSearch `json:"fileSearch,omitempty"`
}

type generationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Tools             []tool            `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type retrievedContext struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type groundingChunk struct {
	RetrievedContext *retrievedContext `json:"retrievedContext"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks"`
}

type candidate struct {
	Content           *content           `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// --- Interface Implementation ---

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.3}, opts...)

	req := generateRequest{
		Contents:         toContents(history),
		GenerationConfig: buildGenerationConfig(options),
	}
	if options.SystemInstruction != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: options.SystemInstruction}}}
	}

	res, err := p.do(ctx, options.Model, req)
	if err != nil {
		return "", err
	}
	return res.text(), nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// GenerateGrounded runs prompt with the file search tool bound to corpus.
// An empty corpus handle degrades to an ungrounded call with no references.
func (p *Provider) GenerateGrounded(ctx context.Context, prompt string, history []llm.Message, corpus llm.Corpus, instruction string) (*llm.GroundedResponse, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: prompt})

	req := generateRequest{
		Contents:         toContents(messages),
		GenerationConfig: buildGenerationConfig(llm.Options{Temperature: 0.2}),
	}
	if instruction != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: instruction}}}
	}
	if !corpus.IsZero() {
		req.Tools = []tool{{FileSearch: &fileSearch{FileSearchStoreNames: []string{corpus.Handle}}}}
	}

	res, err := p.do(ctx, "", req)
	if err != nil {
		return nil, err
	}

	return &llm.GroundedResponse{
		Text:       res.text(),
		References: res.references(),
	}, nil
}

func (p *Provider) do(ctx context.Context, model string, payload generateRequest) (*generateResponse, error) {
	if model == "" {
		model = p.ModelName
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(p.BaseURL, "/"), model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", p.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	resBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyError(resp.StatusCode, resBody)
	}

	var out generateResponse
	if err := json.Unmarshal(resBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}
	return &out, nil
}

func classifyError(status int, body []byte) error {
	var er errorResponse
	_ = json.Unmarshal(body, &er)

	if status == http.StatusTooManyRequests || er.Error.Status == "RESOURCE_EXHAUSTED" {
		return fmt.Errorf("gemini status %d: %s: %w", status, er.Error.Message, llm.ErrQuotaExceeded)
	}
	return fmt.Errorf("gemini error: status %d, body: %s", status, string(body))
}

func (r *generateResponse) text() string {
	c := r.Candidates[0].Content
	if c == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range c.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func (r *generateResponse) references() []llm.Reference {
	meta := r.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	refs := make([]llm.Reference, 0, len(meta.GroundingChunks))
	for _, chunk := range meta.GroundingChunks {
		rc := chunk.RetrievedContext
		if rc == nil {
			continue
		}
		id := rc.Title
		if id == "" {
			id = rc.URI
		}
		refs = append(refs, llm.Reference{ID: id, Title: rc.Title, URI: rc.URI, Text: rc.Text})
	}
	return refs
}

func toContents(history []llm.Message) []content {
	out := make([]content, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == "assistant" || msg.Role == "model" {
			role = "model"
		}
		if msg.Role == "system" {
			continue
		}
		out = append(out, content{Role: role, Parts: []part{{Text: msg.Content}}})
	}
	return out
}

func buildGenerationConfig(o llm.Options) *generationConfig {
	temp := o.Temperature
	cfg := &generationConfig{Temperature: &temp, MaxOutputTokens: o.MaxTokens}
	if o.JSON {
		cfg.ResponseMimeType = "application/json"
	}
	return cfg
}
