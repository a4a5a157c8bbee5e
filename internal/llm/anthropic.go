package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const anthropicVersion = "2023-06-01"

// AnthropicRefiner refines paragraphs with Anthropic's Messages API
type AnthropicRefiner struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicRefiner creates a new Anthropic refiner
func NewAnthropicRefiner(config Config) (*AnthropicRefiner, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	return &AnthropicRefiner{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config, 30*time.Second),
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicRefiner) Name() string {
	return "anthropic"
}

// IsAvailable checks that the key can list models
func (p *AnthropicRefiner) IsAvailable(ctx context.Context) bool {
	return probe(ctx, p.httpClient, p.baseURL+"/v1/models", p.headers())
}

// Refine rewrites a paragraph using the Messages API
func (p *AnthropicRefiner) Refine(ctx context.Context, req RefineRequest) (*RefineResponse, error) {
	model := p.config.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	prompt := BuildPrompt(req)

	apiReq := anthropicRequest{
		Model:       model,
		MaxTokens:   p.config.maxTokens(),
		System:      systemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		Temperature: p.config.Temperature,
	}

	var resp anthropicResponse
	err := postJSON(ctx, p.httpClient, p.baseURL+"/v1/messages", p.headers(), apiReq, &resp, func(body []byte) string {
		var apiErr anthropicError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return apiErr.Error.Type + " - " + apiErr.Error.Message
		}
		return ""
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var raw strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			raw.WriteString(c.Text)
		}
	}
	text, err := cleanResponse(raw.String())
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	return &RefineResponse{
		Text:       text,
		Model:      resp.Model,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

func (p *AnthropicRefiner) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}
}
