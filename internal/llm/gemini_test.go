package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiRefiner_Refine_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("Expected x-goog-api-key header, got %q", r.Header.Get("x-goog-api-key"))
		}
		if r.URL.Query().Get("key") != "" {
			t.Error("API key must not be sent in the query string")
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != systemPrompt {
			t.Error("Expected system instruction")
		}
		if !strings.Contains(req.Contents[0].Parts[0].Text, "academic_templates") {
			t.Error("Expected risk categories in prompt")
		}

		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Studi ini dimaksudkan "}, {"text": "untuk membangun sistem informasi."}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 40, "candidatesTokenCount": 20, "totalTokenCount": 60},
			"modelVersion": "gemini-1.5-flash-002"
		}`))
	}))
	defer server.Close()

	refiner, err := NewGeminiRefiner(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create refiner: %v", err)
	}

	resp, err := refiner.Refine(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}

	if resp.Text != "Studi ini dimaksudkan untuk membangun sistem informasi." {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.TokensUsed != 60 {
		t.Errorf("Unexpected token usage: %d", resp.TokensUsed)
	}
	if resp.Model != "gemini-1.5-flash-002" {
		t.Errorf("Unexpected model: %s", resp.Model)
	}
}

func TestGeminiRefiner_Refine_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	refiner, _ := NewGeminiRefiner(Config{APIKey: "test-key", BaseURL: server.URL})

	_, err := refiner.Refine(context.Background(), testRequest())
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestGeminiRefiner_Refine_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"code": 503, "message": "The model is overloaded.", "status": "UNAVAILABLE"}}`))
	}))
	defer server.Close()

	refiner, _ := NewGeminiRefiner(Config{APIKey: "test-key", BaseURL: server.URL})

	_, err := refiner.Refine(context.Background(), testRequest())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "UNAVAILABLE - The model is overloaded.") {
		t.Errorf("Expected API message in error, got %v", err)
	}
}

func TestNewGeminiRefiner_RequiresKey(t *testing.T) {
	if _, err := NewGeminiRefiner(Config{}); err == nil {
		t.Error("Expected error without API key")
	}
}
