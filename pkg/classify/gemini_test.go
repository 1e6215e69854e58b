package classify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func geminiAnswer(text string) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]interface{}{{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	_, err := NewGemini()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestGeminiClassify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.0-flash:generateContent" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if key := r.URL.Query().Get("key"); key != "test-key" {
			t.Errorf("Expected key=test-key, got %q", key)
		}

		var payload struct {
			Contents []struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData struct {
						MimeType string `json:"mime_type"`
						Data     string `json:"data"`
					} `json:"inline_data"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("Decode payload: %v", err)
		}
		parts := payload.Contents[0].Parts
		if parts[0].Text != PromptWord {
			t.Errorf("Expected word prompt, got %q", parts[0].Text)
		}
		if parts[1].InlineData.MimeType != "image/jpeg" || parts[1].InlineData.Data == "" {
			t.Errorf("Expected inline jpeg data, got %+v", parts[1].InlineData)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiAnswer("wood"))
	}))
	defer server.Close()

	g, err := NewGemini(WithAPIKey("test-key"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}
	defer g.Close()

	answer, err := g.Classify(context.Background(), []byte("jpeg"), PromptWord)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if answer != "wood" {
		t.Errorf("Expected wood, got %q", answer)
	}
}

func TestGeminiClassify_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"message": "Resource exhausted", "code": 429},
		})
	}))
	defer server.Close()

	g, _ := NewGemini(WithAPIKey("test-key"), WithBaseURL(server.URL))
	defer g.Close()

	_, err := g.Classify(context.Background(), []byte("jpeg"), "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T", err)
	}
	if !apiErr.IsRateLimited() || !apiErr.IsRetryable() {
		t.Errorf("Expected retryable rate limit, got %+v", apiErr)
	}
	if apiErr.Message != "Resource exhausted" {
		t.Errorf("Expected parsed message, got %q", apiErr.Message)
	}
}

func TestGeminiClassify_NoOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
	}))
	defer server.Close()

	g, _ := NewGemini(WithAPIKey("test-key"), WithBaseURL(server.URL))
	defer g.Close()

	_, err := g.Classify(context.Background(), []byte("jpeg"), "")
	if !errors.Is(err, ErrNoOutput) {
		t.Errorf("Expected ErrNoOutput, got %v", err)
	}
}
