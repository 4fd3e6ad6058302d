// Package llm hides the language-model backend behind one small contract
// shared by the classifier, extractor and transliteration adapters.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLLMTimeout       = errors.New("LLM_TIMEOUT")
	ErrLLMRequestFailed = errors.New("LLM_REQUEST_FAILED")
	ErrUnknownProvider  = errors.New("UNKNOWN_LLM_PROVIDER")
)

// Request is one single-turn completion.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// Provider completes prompts.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// Options carries what the factory needs for either backend.
type Options struct {
	Provider      string
	GenAIBaseURL  string
	GenAIAPIKey   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	MaxRetries    int
}

// New builds the provider named by opts.Provider.
func New(opts Options) (Provider, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "genai":
		return NewGenAIProvider(opts.GenAIBaseURL, opts.GenAIAPIKey, opts.MaxRetries), nil
	case "openai":
		return NewOpenAIProvider(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, opts.Provider)
	}
}

// StripFences removes a surrounding markdown code fence, which models add
// around JSON even when told not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
