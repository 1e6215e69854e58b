package classify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-fortuna/internal/httpc"
)

const backendOpenAI = "openai"

// OpenAI classifies frames through any OpenAI-compatible chat completions
// API (OpenAI, Ollama, vLLM, Together, Groq, etc.).
type OpenAI struct {
	baseURL string
	apiKey  string
	config  *Config
	http    *http.Client
	logger  *slog.Logger
}

// NewOpenAI creates an OpenAI-compatible backend. An API key is optional
// for local servers.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &OpenAI{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		config:  cfg,
		http:    httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "classify.openai"),
	}, nil
}

// Name identifies the backend.
func (o *OpenAI) Name() string { return backendOpenAI }

// Classify sends the frame and prompt as a single vision message and
// returns the model's text answer.
func (o *OpenAI) Classify(ctx context.Context, image []byte, prompt string) (string, error) {
	start := time.Now()

	content := []map[string]interface{}{
		{"type": "text", "text": promptOrDefault(prompt)},
		{
			"type": "image_url",
			"image_url": map[string]string{
				"url": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
			},
		},
	}

	payload := map[string]interface{}{
		"model": o.config.Model,
		"messages": []map[string]interface{}{{
			"role":    "user",
			"content": content,
		}},
		"max_tokens": o.config.MaxTokens,
	}
	if o.config.Temperature > 0 {
		payload["temperature"] = o.config.Temperature
	}

	resp, err := o.post(ctx, "/chat/completions", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", o.parseError(resp)
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", WrapError(backendOpenAI, fmt.Errorf("decode response: %w", err))
	}
	if len(result.Choices) == 0 {
		return "", WrapError(backendOpenAI, ErrNoOutput)
	}

	answer := strings.TrimSpace(result.Choices[0].Message.Content)
	if answer == "" {
		return "", WrapError(backendOpenAI, ErrNoOutput)
	}

	o.logger.Debug("classification answer",
		"model", o.config.Model,
		"latency_ms", time.Since(start).Milliseconds(),
		"answer", answer)
	return answer, nil
}

// Close releases idle connections.
func (o *OpenAI) Close() error {
	o.http.CloseIdleConnections()
	return nil
}

// post makes a POST request with retries.
func (o *OpenAI) post(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(backendOpenAI, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(backendOpenAI, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	return o.doWithRetry(ctx, req, body)
}

// doWithRetry performs the request, retrying rate limits and server errors.
func (o *OpenAI) doWithRetry(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= o.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.config.RetryDelay * time.Duration(attempt)):
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := o.http.Do(req)
		if err != nil {
			lastErr = WrapError(backendOpenAI, err)
			o.logger.Warn("request failed, retrying", "attempt", attempt+1, "error", err)
			continue
		}

		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			lastErr = o.parseError(resp)
			resp.Body.Close()
			o.logger.Warn("retrying request", "attempt", attempt+1, "status", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError reads and parses an error response.
func (o *OpenAI) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	message := string(body)
	code := ""
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
		code = errResp.Error.Code
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Backend:    backendOpenAI,
	}
}

// chatCompletionResponse is the OpenAI chat completions response shape.
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Verify OpenAI implements Classifier at compile time.
var _ Classifier = (*OpenAI)(nil)
