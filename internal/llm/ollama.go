package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaRefiner refines paragraphs with a local Ollama model
type OllamaRefiner struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaRefiner creates a new Ollama refiner
func NewOllamaRefiner(config Config) (*OllamaRefiner, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, qwen2.5)")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaRefiner{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config, 60*time.Second), // Local models are slower
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *OllamaRefiner) Name() string {
	return "ollama"
}

// IsAvailable checks that the Ollama daemon answers
func (p *OllamaRefiner) IsAvailable(ctx context.Context) bool {
	return probe(ctx, p.httpClient, p.baseURL+"/api/tags", nil)
}

// Refine rewrites a paragraph using the generate endpoint
func (p *OllamaRefiner) Refine(ctx context.Context, req RefineRequest) (*RefineResponse, error) {
	prompt := BuildPrompt(req)
	apiReq := ollamaRequest{
		Model:  p.config.Model,
		Prompt: prompt,
		Stream: false,
		System: systemPrompt,
		Options: ollamaOptions{
			Temperature: p.config.Temperature,
			NumPredict:  p.config.maxTokens(),
		},
	}

	var resp ollamaResponse
	err := postJSON(ctx, p.httpClient, p.baseURL+"/api/generate", nil, apiReq, &resp, func(body []byte) string {
		var apiErr ollamaError
		if json.Unmarshal(body, &apiErr) == nil {
			return apiErr.Error
		}
		return ""
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}

	text, err := cleanResponse(resp.Response)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}

	// Some models report no counts
	tokensUsed := resp.PromptEvalCount + resp.EvalCount
	if tokensUsed == 0 {
		tokensUsed = estimateTokens(prompt, text)
	}

	return &RefineResponse{
		Text:       text,
		Model:      resp.Model,
		TokensUsed: tokensUsed,
	}, nil
}
