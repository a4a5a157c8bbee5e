// Package llm adapts external language models into paragraph refiners.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ppiankov/parafrasa/internal/model"
)

var (
	// ErrUnavailable indicates the refiner could not be reached or refused the request
	ErrUnavailable = errors.New("refiner unavailable")
	// ErrMalformedResponse indicates the refiner answered with nothing usable
	ErrMalformedResponse = errors.New("malformed refiner response")
)

// Refiner rewrites one paragraph
type Refiner interface {
	// Name returns the provider name
	Name() string

	// Refine returns a rewritten paragraph for req
	Refine(ctx context.Context, req RefineRequest) (*RefineResponse, error)
}

// Prober is implemented by refiners that can cheaply check their endpoint
type Prober interface {
	IsAvailable(ctx context.Context) bool
}

// RefinementContext tells the refiner what the rewrite should achieve.
// Adapters turn it into their own prompt.
type RefinementContext struct {
	Mode            model.Mode
	RiskCategories  []string
	TargetReduction float64 // Percent
	QualityIssues   []string
}

// RefineRequest is the input for one refinement
type RefineRequest struct {
	Text    string
	Context RefinementContext
}

// RefineResponse is a cleaned refinement
type RefineResponse struct {
	Text       string
	Model      string
	TokensUsed int // 0 when the provider reports nothing
}

// Config holds refiner configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	Temperature float64
	MaxTokens   int

	// Timeout bounds a single HTTP exchange
	Timeout time.Duration

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
		HTTPProxy:   c.HTTPProxy,
		HTTPSProxy:  c.HTTPSProxy,
	}
}

func (c Config) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1024
}

func (c Config) timeout(fallback time.Duration) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return fallback
}
