package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIRefiner refines paragraphs with OpenAI chat completions
type OpenAIRefiner struct {
	client *openai.Client
	config Config
}

// NewOpenAIRefiner creates a new OpenAI refiner
func NewOpenAIRefiner(config Config) (*OpenAIRefiner, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(config, 30*time.Second)

	return &OpenAIRefiner{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIRefiner) Name() string {
	return "openai"
}

// IsAvailable checks that the key can list models
func (p *OpenAIRefiner) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Refine rewrites a paragraph using the Chat Completions API
func (p *OpenAIRefiner) Refine(ctx context.Context, req RefineRequest) (*RefineResponse, error) {
	model := p.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	prompt := BuildPrompt(req)

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   p.config.maxTokens(),
		Temperature: float32(p.config.Temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", classifyOpenAIError(err))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: %w", malformed("no choices"))
	}

	text, err := cleanResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	tokensUsed := resp.Usage.TotalTokens
	if tokensUsed == 0 {
		tokensUsed = estimateTokens(prompt, text)
	}

	return &RefineResponse{
		Text:       text,
		Model:      resp.Model,
		TokensUsed: tokensUsed,
	}, nil
}

// classifyOpenAIError maps client errors onto the refiner taxonomy
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return statusError(reqErr.HTTPStatusCode, reqErr.Error())
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return unavailable(true, "%v", err)
	}
	return malformed("%v", err)
}
