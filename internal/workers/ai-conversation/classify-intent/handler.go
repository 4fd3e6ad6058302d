// internal/workers/ai-conversation/classify-intent/handler.go
package classifyintent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/llm"
	"leadbot/internal/common/logger"
	"leadbot/internal/common/metrics"
	"leadbot/internal/models"
)

const (
	TaskType = "classify-intent"

	systemPrompt = "أنت محلل نوايا. أجب بكلمة واحدة فقط."
)

var (
	ErrClassificationFailed = errors.New("INTENT_CLASSIFICATION_FAILED")
)

type Handler struct {
	config   *Config
	provider llm.Provider
	logger   logger.Logger
}

func NewHandler(config *Config, provider llm.Provider, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		provider: provider,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	intent, err := h.Classify(ctx, h.BuildPrompt(input))
	if err != nil {
		return nil, err
	}
	return &Output{Intent: intent}, nil
}

// Classify sends a rendered prompt and maps the reply onto the intent set.
// Replies outside the set become unknown; only transport failures error.
func (h *Handler) Classify(ctx context.Context, prompt string) (models.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := h.provider.Complete(ctx, llm.Request{
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: h.config.MaxTokens,
	})
	if err != nil {
		metrics.ExternalCallDuration.WithLabelValues("classifier", "error").Observe(time.Since(start).Seconds())
		return "", fmt.Errorf("%w: %w: %v", apperrors.ErrExternalServiceUnavailable, ErrClassificationFailed, err)
	}
	metrics.ExternalCallDuration.WithLabelValues("classifier", "ok").Observe(time.Since(start).Seconds())

	intent := parseLabel(raw)
	h.logger.Debug("intent classified", map[string]interface{}{
		"raw":    raw,
		"intent": intent,
	})
	return intent, nil
}

// parseLabel accepts a bare label, a quoted or punctuated one, or a JSON
// object with an "intent" field.
func parseLabel(raw string) models.Intent {
	s := llm.StripFences(raw)
	if strings.HasPrefix(s, "{") {
		var obj struct {
			Intent string `json:"intent"`
		}
		if err := json.Unmarshal([]byte(s), &obj); err == nil {
			return models.ParseIntent(obj.Intent)
		}
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return models.IntentUnknown
	}
	label := strings.TrimFunc(fields[0], func(r rune) bool {
		return unicode.IsPunct(r) && r != '_'
	})
	return models.ParseIntent(label)
}

// BuildPrompt renders the classification prompt with the workflow hint and
// the last few turns.
func (h *Handler) BuildPrompt(input *Input) string {
	history := input.History
	if n := h.config.HistoryContext; len(history) > n {
		history = history[len(history)-n:]
	}
	var ctxLines []string
	for _, t := range history {
		ctxLines = append(ctxLines, t.Role+": "+t.Text)
	}

	var b strings.Builder
	b.WriteString("حلل الرسالة التالية وحدد نية المستخدم.\n\n")
	fmt.Fprintf(&b, "الرسالة: %s\n", input.Message)
	if input.Hint != "" {
		b.WriteString(input.Hint)
		b.WriteString("\n")
	}
	b.WriteString("سياق المحادثة السابقة:\n")
	b.WriteString(strings.Join(ctxLines, "\n"))
	b.WriteString(`

الأنواع المتاحة:
- new_search: يبحث عن وحدة عقارية جديدة (ويذكر مواصفات أو يطلب البدء)
- update_requirements: يريد تعديل متطلباته المسجلة
- inquiry: يسأل عن معلومات (مشاريع، أسعار، مناطق، مقارنة)
- follow_up: متابعة لطلب سابق (بدون طلب معلومات جديدة)
- greeting: تحية فقط
- confirm: تأكيد البيانات أو الموافقة
- edit: يريد تعديل أثناء مرحلة التأكيد
- correction: يصحح اسم منطقة/مشروع/نوع وحدة
- cancel: يريد إلغاء الطلب أو البدء من جديد
- unknown: غير واضح

قواعد صارمة:
1. إذا سأل المستخدم عن "مشاريع"، "أسعار"، "تفاصيل"، "مناطق" -> النية هي 'inquiry' فوراً.
2. لا تختر 'follow_up' إذا كان هناك سؤال عن معلومات.
3. أجب بنوع النية فقط (كلمة واحدة).`)
	return b.String()
}
