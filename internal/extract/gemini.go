package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// GeminiClient calls the Gemini generateContent API. It retries transient
// failures internally with jittered backoff and records call latencies.
type GeminiClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
	stats      *LLMStats
}

func NewGeminiClient(apiKey, model string, stats *LLMStats) *GeminiClient {
	if stats == nil {
		stats = NewLLMStats(time.Hour)
	}
	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		maxRetries: 3,
		stats:      stats,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one prompt and returns the model's text response.
func (c *GeminiClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff(attempt - 1)):
			}
		}

		start := time.Now()
		text, err := c.generateOnce(ctx, system, prompt)
		c.stats.Record(time.Since(start).Milliseconds(), err == nil)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var retryErr *RetryableError
		if !errors.As(err, &retryErr) {
			return "", err
		}
	}
	return "", fmt.Errorf("gemini retries exhausted: %w", lastErr)
}

func (c *GeminiClient) generateOnce(ctx context.Context, system, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:     0.1,
			MaxOutputTokens: 8192,
		},
	}
	if system != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf(geminiEndpoint, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini api status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("gemini error %s: %s", apiResp.Error.Status, apiResp.Error.Message)
	}
	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	return apiResp.Candidates[0].Content.Parts[0].Text, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Stats exposes the latency tracker for reporting endpoints.
func (c *GeminiClient) Stats() *LLMStats {
	return c.stats
}

// Close releases resources.
func (c *GeminiClient) Close() {
	c.httpClient.CloseIdleConnections()
}

// backoff returns a duration for attempt n (0-indexed) with jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	msg := e.Message
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, msg)
}
