// internal/workers/ai-conversation/extract-requirements/handler.go
package extractrequirements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/llm"
	"leadbot/internal/common/logger"
	"leadbot/internal/common/metrics"
	"leadbot/internal/common/validation"
	"leadbot/internal/models"
)

const (
	TaskType = "extract-requirements"

	systemPrompt = "أنت محلل بيانات عقارية. أرجع JSON صالح فقط."
)

var (
	ErrExtractionFailed = errors.New("REQUIREMENT_EXTRACTION_FAILED")
)

var schema = validation.MustCompile(extractionSchema)

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
	ext, err := h.Extract(ctx, input.Message, input.Context)
	if err != nil {
		return nil, err
	}
	return &Output{Extraction: ext}, nil
}

// Extract asks the model for the requirements stated in message. Transport
// failures wrap ErrExternalServiceUnavailable; a reply that is not JSON or
// does not fit the schema wraps ErrMalformedExtraction.
func (h *Handler) Extract(ctx context.Context, message string, turns []string) (*models.Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := h.provider.Complete(ctx, llm.Request{
		System:    systemPrompt,
		Prompt:    h.buildPrompt(message, turns),
		MaxTokens: h.config.MaxTokens,
		JSONMode:  true,
	})
	if err != nil {
		metrics.ExternalCallDuration.WithLabelValues("extractor", "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %w: %v", apperrors.ErrExternalServiceUnavailable, ErrExtractionFailed, err)
	}
	metrics.ExternalCallDuration.WithLabelValues("extractor", "ok").Observe(time.Since(start).Seconds())

	ext, err := parse(raw)
	if err != nil {
		h.logger.Warn("discarding malformed extraction", map[string]interface{}{
			"error": err.Error(),
			"raw":   raw,
		})
		return nil, err
	}
	h.logger.Debug("requirements extracted", map[string]interface{}{"fields": len(ext.Values())})
	return ext, nil
}

func parse(raw string) (*models.Extraction, error) {
	doc := []byte(llm.StripFences(raw))
	res, err := schema.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedExtraction, err)
	}
	if !res.Valid {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrMalformedExtraction, res.Error())
	}

	var ext models.Extraction
	if err := json.Unmarshal(doc, &ext); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedExtraction, err)
	}
	for _, p := range []**string{&ext.CustomerName, &ext.Phone, &ext.Email, &ext.Area, &ext.Project, &ext.UnitType, &ext.Notes} {
		if *p != nil && isNullWord(**p) {
			*p = nil
		}
	}
	return &ext, nil
}

// isNullWord catches models that write null as a string.
func isNullWord(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "n/a", "unknown":
		return true
	}
	return false
}

func (h *Handler) buildPrompt(message string, turns []string) string {
	if n := h.config.ContextTurns; len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	var b strings.Builder
	b.WriteString("استخرج متطلبات العميل العقارية من الرسالة التالية.\n\n")
	fmt.Fprintf(&b, "الرسالة: %s\n\n", message)
	if len(turns) > 0 {
		b.WriteString("سياق سابق:\n")
		b.WriteString(strings.Join(turns, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString(`أرجع JSON بالحقول التالية (ضع null للقيم غير الموجودة):
{
  "customerName": "اسم العميل لو ذكره",
  "phone": "رقم التليفون لو ذكره",
  "email": "البريد الإلكتروني لو ذكره",
  "area": "اسم المنطقة كما كتبه العميل",
  "project": "اسم المشروع كما كتبه العميل",
  "unitType": "نوع الوحدة كما كتبه العميل",
  "budgetMin": رقم,
  "budgetMax": رقم,
  "sizeMin": رقم بالمتر المربع,
  "sizeMax": رقم بالمتر المربع,
  "bedrooms": عدد صحيح,
  "bathrooms": عدد صحيح,
  "notes": "أي ملاحظات إضافية"
}

قواعد مهمة:
1. استخرج المنطقة والمشروع حتى لو كانت الرسالة سؤال.
2. لا تترجم أسماء الأماكن، اكتبها كما وردت.
3. "5 مليون" = 5000000، "مليون ونص" = 1500000.
4. لو الرسالة ميزانية واحدة بدون "من" أو "لحد"، اعتبرها budgetMax.

أرجع JSON فقط.`)
	return b.String()
}
