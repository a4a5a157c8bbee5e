package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ppiankov/parafrasa/internal/model"
)

func testRequest() RefineRequest {
	return RefineRequest{
		Text: "Penelitian ini bertujuan untuk mengembangkan sistem informasi.",
		Context: RefinementContext{
			Mode:            model.ModeTurnitinSafe,
			RiskCategories:  []string{"academic_templates"},
			TargetReduction: 35,
		},
	}
}

func TestAnthropicRefiner_Refine_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key header test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("Expected anthropic-version header %s, got %s", anthropicVersion, r.Header.Get("anthropic-version"))
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.System != systemPrompt {
			t.Errorf("Expected system prompt to be set")
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "PARAGRAF_1: Penelitian ini") {
			t.Errorf("Unexpected messages: %+v", req.Messages)
		}

		resp := anthropicResponse{
			ID:      "msg_123",
			Type:    "message",
			Role:    "assistant",
			Content: []anthropicContent{{Type: "text", Text: `"Studi ini dimaksudkan untuk membangun sebuah sistem informasi."`}},
			Model:   "claude-3-5-haiku-latest",
			Usage:   anthropicUsage{InputTokens: 50, OutputTokens: 50},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	refiner, err := NewAnthropicRefiner(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create refiner: %v", err)
	}

	resp, err := refiner.Refine(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}

	if resp.Text != "Studi ini dimaksudkan untuk membangun sebuah sistem informasi." {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Unexpected token usage: %d", resp.TokensUsed)
	}
}

func TestAnthropicRefiner_Refine_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	refiner, err := NewAnthropicRefiner(Config{APIKey: "bad-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create refiner: %v", err)
	}

	_, err = refiner.Refine(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid x-api-key") {
		t.Errorf("Expected API message in error, got %v", err)
	}

	var retryable *RetryableError
	if !errors.As(err, &retryable) || retryable.Retryable {
		t.Errorf("Expected auth failure to be permanent, got %v", err)
	}
}

func TestAnthropicRefiner_Refine_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"Rate limit exceeded"}}`))
	}))
	defer server.Close()

	refiner, err := NewAnthropicRefiner(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create refiner: %v", err)
	}

	_, err = refiner.Refine(context.Background(), testRequest())
	var retryable *RetryableError
	if !errors.As(err, &retryable) || !retryable.Retryable {
		t.Errorf("Expected rate limit to be retryable, got %v", err)
	}
}

func TestAnthropicRefiner_Refine_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{malformed json`))
	}))
	defer server.Close()

	refiner, err := NewAnthropicRefiner(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create refiner: %v", err)
	}

	_, err = refiner.Refine(context.Background(), testRequest())
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestAnthropicRefiner_Refine_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(anthropicResponse{Content: []anthropicContent{{Type: "text", Text: `  ""  `}}})
	}))
	defer server.Close()

	refiner, err := NewAnthropicRefiner(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create refiner: %v", err)
	}

	_, err = refiner.Refine(context.Background(), testRequest())
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestAnthropicRefiner_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/models" && r.Header.Get("x-api-key") == "test-key" {
			_, _ = w.Write([]byte(`{"data": []}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	refiner, _ := NewAnthropicRefiner(Config{APIKey: "test-key", BaseURL: server.URL})
	if !refiner.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	bad, _ := NewAnthropicRefiner(Config{APIKey: "other", BaseURL: server.URL})
	if bad.IsAvailable(context.Background()) {
		t.Error("Expected available to be false for rejected key")
	}
}

func TestNewAnthropicRefiner_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicRefiner(Config{}); err == nil {
		t.Error("Expected error without API key")
	}
}
