// internal/workers/ai-conversation/transliterate-name/handler.go
package transliteratename

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/redis/go-redis/v9"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/llm"
	"leadbot/internal/common/logger"
	"leadbot/internal/common/metrics"
)

const TaskType = "transliterate-name"

var (
	ErrTransliterationFailed = errors.New("TRANSLITERATION_FAILED")
	ErrEmptyTransliteration  = errors.New("TRANSLITERATION_EMPTY")
)

type Handler struct {
	config   *Config
	provider llm.Provider
	redis    redis.Cmdable
	logger   logger.Logger
}

// NewHandler builds the converter. rdb may be nil, which disables the memo.
func NewHandler(config *Config, provider llm.Provider, rdb redis.Cmdable, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		provider: provider,
		redis:    rdb,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return &Output{}, nil
	}
	if latin, ok := h.lookup(ctx, text); ok {
		return &Output{Latin: latin, Cached: true}, nil
	}
	latin, err := h.ask(ctx, text)
	if err != nil {
		return nil, err
	}
	h.store(ctx, text, latin)
	return &Output{Latin: latin}, nil
}

// Convert returns the Latin spelling of a phonetically written Arabic name.
func (h *Handler) Convert(ctx context.Context, text string) (string, error) {
	out, err := h.Execute(ctx, &Input{Text: text})
	if err != nil {
		return "", err
	}
	return out.Latin, nil
}

func (h *Handler) ask(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := h.provider.Complete(ctx, llm.Request{
		Prompt:      buildPrompt(text),
		MaxTokens:   16,
		Temperature: 0.1,
	})
	if err != nil {
		metrics.ExternalCallDuration.WithLabelValues("transliteration", "error").Observe(time.Since(start).Seconds())
		return "", fmt.Errorf("%w: %w: %v", apperrors.ErrExternalServiceUnavailable, ErrTransliterationFailed, err)
	}
	metrics.ExternalCallDuration.WithLabelValues("transliteration", "ok").Observe(time.Since(start).Seconds())

	latin := firstWord(raw)
	if latin == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyTransliteration, raw)
	}
	h.logger.Info("name transliterated", map[string]interface{}{
		"input":  text,
		"output": latin,
	})
	return latin, nil
}

func (h *Handler) lookup(ctx context.Context, text string) (string, bool) {
	if h.redis == nil {
		return "", false
	}
	latin, err := h.redis.Get(ctx, h.config.KeyPrefix+text).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("transliteration cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return "", false
	}
	return latin, true
}

func (h *Handler) store(ctx context.Context, text, latin string) {
	if h.redis == nil {
		return
	}
	if err := h.redis.Set(ctx, h.config.KeyPrefix+text, latin, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("transliteration cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

func firstWord(raw string) string {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func buildPrompt(text string) string {
	return fmt.Sprintf(`Convert this Arabic phonetic name to English letters.

Arabic name: %s

Rules:
1. This is a real estate project or area name written phonetically in Arabic
2. Return ONLY the English spelling, nothing else
3. Use lowercase letters
4. No explanations, just the name

English name:`, text)
}
