package llm

import (
	"fmt"
	"strings"
)

// NewRefiner creates a refiner from configuration.
// An empty provider disables refinement and returns nil.
func NewRefiner(config Config) (Refiner, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIRefiner(config)

	case "anthropic", "claude":
		return NewAnthropicRefiner(config)

	case "ollama":
		return NewOllamaRefiner(config)

	case "gemini", "google":
		return NewGeminiRefiner(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama, gemini)", config.Provider)
	}
}
