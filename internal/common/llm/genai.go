// internal/common/llm/genai.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apphttp "leadbot/internal/common/http"
)

// GenAIProvider calls the in-house generation gateway.
type GenAIProvider struct {
	baseURL    string
	apiKey     string
	maxRetries int
	http       *apphttp.Client
}

func NewGenAIProvider(baseURL, apiKey string, maxRetries int) *GenAIProvider {
	return &GenAIProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		maxRetries: maxRetries,
		http:       apphttp.NewClient(0),
	}
}

// WithHTTPClient swaps the transport, e.g. for httptest.
func (p *GenAIProvider) WithHTTPClient(c *http.Client) *GenAIProvider {
	p.http = apphttp.NewClientFrom(c)
	return p
}

func (p *GenAIProvider) Name() string { return "genai" }

// Complete posts to /api/ai/generate, retrying 5xx and 429 responses with
// exponential backoff until ctx expires.
func (p *GenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	body := map[string]interface{}{
		"prompt":      req.Prompt,
		"system":      req.System,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
	if req.JSONMode {
		body["response_format"] = "json"
	}
	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrLLMTimeout
			}
		}

		var resp struct {
			Text string `json:"text"`
		}
		err := p.http.DoJSON(ctx, http.MethodPost, p.baseURL+"/api/ai/generate", headers, body, &resp)
		if err == nil {
			return resp.Text, nil
		}
		if ctx.Err() != nil {
			return "", ErrLLMTimeout
		}
		lastErr = err

		var statusErr *apphttp.StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", ErrLLMRequestFailed, lastErr)
}
