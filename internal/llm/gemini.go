package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GeminiRefiner refines paragraphs with the Gemini generateContent API
type GeminiRefiner struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopK            int     `json:"topK,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGeminiRefiner creates a new Gemini refiner
func NewGeminiRefiner(config Config) (*GeminiRefiner, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	return &GeminiRefiner{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config, 30*time.Second),
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *GeminiRefiner) Name() string {
	return "gemini"
}

// IsAvailable checks that the key can list models
func (p *GeminiRefiner) IsAvailable(ctx context.Context) bool {
	return probe(ctx, p.httpClient, p.baseURL+"/v1beta/models", p.headers())
}

// Refine rewrites a paragraph using generateContent
func (p *GeminiRefiner) Refine(ctx context.Context, req RefineRequest) (*RefineResponse, error) {
	model := p.config.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	prompt := BuildPrompt(req)

	apiReq := geminiRequest{
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     p.config.Temperature,
			MaxOutputTokens: p.config.maxTokens(),
			TopK:            40,
			TopP:            0.95,
		},
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, url.PathEscape(model))
	var resp geminiResponse
	err := postJSON(ctx, p.httpClient, endpoint, p.headers(), apiReq, &resp, func(body []byte) string {
		var apiErr geminiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return apiErr.Error.Status + " - " + apiErr.Error.Message
		}
		return ""
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: %w", malformed("no candidates"))
	}
	var raw strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		raw.WriteString(part.Text)
	}
	text, err := cleanResponse(raw.String())
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	tokensUsed := resp.UsageMetadata.TotalTokenCount
	if tokensUsed == 0 {
		tokensUsed = estimateTokens(prompt, text)
	}
	modelName := resp.ModelVersion
	if modelName == "" {
		modelName = model
	}

	return &RefineResponse{
		Text:       text,
		Model:      modelName,
		TokensUsed: tokensUsed,
	}, nil
}

func (p *GeminiRefiner) headers() map[string]string {
	return map[string]string{"x-goog-api-key": p.apiKey}
}
