package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func cloudVisionServer(t *testing.T, response map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "images:annotate") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}

		var payload struct {
			Requests []struct {
				Image struct {
					Content string `json:"content"`
				} `json:"image"`
				Features []struct {
					Type       string `json:"type"`
					MaxResults int    `json:"maxResults"`
				} `json:"features"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("Decode payload: %v", err)
		}
		if len(payload.Requests) != 1 || payload.Requests[0].Image.Content == "" {
			t.Error("Expected one request with image content")
		}
		if payload.Requests[0].Features[0].Type != "LABEL_DETECTION" {
			t.Errorf("Expected LABEL_DETECTION, got %s", payload.Requests[0].Features[0].Type)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
}

func TestCloudVisionClassify(t *testing.T) {
	server := cloudVisionServer(t, map[string]interface{}{
		"responses": []map[string]interface{}{
			{
				"labelAnnotations": []map[string]interface{}{
					{"description": "Tree", "score": 0.97},
					{"description": "Plant", "score": 0.91},
					{"description": "Twig", "score": 0.40},
				},
			},
		},
	})
	defer server.Close()

	cv, err := NewCloudVision(context.Background(), WithAPIKey("test-key"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewCloudVision: %v", err)
	}

	answer, err := cv.Classify(context.Background(), []byte("jpeg"), "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	// Low-score labels are dropped
	if answer != "Tree, Plant" {
		t.Errorf("Expected %q, got %q", "Tree, Plant", answer)
	}
}

func TestCloudVisionClassify_NoConfidentLabels(t *testing.T) {
	server := cloudVisionServer(t, map[string]interface{}{
		"responses": []map[string]interface{}{
			{
				"labelAnnotations": []map[string]interface{}{
					{"description": "Blur", "score": 0.2},
				},
			},
		},
	})
	defer server.Close()

	cv, err := NewCloudVision(context.Background(), WithAPIKey("test-key"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewCloudVision: %v", err)
	}

	answer, err := cv.Classify(context.Background(), []byte("jpeg"), "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if answer != "uncertain" {
		t.Errorf("Expected uncertain, got %q", answer)
	}
}

func TestCloudVisionClassify_AnnotateError(t *testing.T) {
	server := cloudVisionServer(t, map[string]interface{}{
		"responses": []map[string]interface{}{
			{
				"error": map[string]interface{}{"code": 3, "message": "Bad image data"},
			},
		},
	})
	defer server.Close()

	cv, err := NewCloudVision(context.Background(), WithAPIKey("test-key"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewCloudVision: %v", err)
	}

	_, err = cv.Classify(context.Background(), []byte("jpeg"), "")
	if err == nil || !strings.Contains(err.Error(), "Bad image data") {
		t.Errorf("Expected annotate error surfaced, got %v", err)
	}
}
