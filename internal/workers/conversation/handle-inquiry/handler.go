// internal/workers/conversation/handle-inquiry/handler.go
package handleinquiry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/logger"
	"leadbot/internal/common/metrics"
	"leadbot/internal/common/textnorm"
	"leadbot/internal/models"
	"leadbot/pkg/registry"
)

const (
	TaskType = "handle-inquiry"
)

const generalText = `أنا هنا لمساعدتك في العثور على أنسب وحدة عقارية لك.

وعشان أقدر أخدمك بشكل أفضل، محتاج أعرف شوية تفاصيل:
1. المنطقة اللي بتفضلها؟
2. الميزانية التقريبية؟
3. نوع الوحدة (شقة، فيلا، إلخ)؟

بمجرد ما تديني التفاصيل دي، هسجل طلبك وأخلي حد من الفريق يتواصل معاك فوراً.`

var printer = message.NewPrinter(language.English)

// Handler answers factual questions from catalog data without touching the
// collected requirements.
type Handler struct {
	config  *Config
	catalog CatalogClient
	logger  logger.Logger
}

func NewHandler(config *Config, catalog CatalogClient, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		catalog: catalog,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.Answer(ctx, input.Session, input.Message)
}

// Classify routes a message to an inquiry kind by keyword, in
// registry.InquiryOrder precedence.
func (h *Handler) Classify(msg string) string {
	words := textnorm.Words(msg)
	for _, kind := range registry.InquiryOrder {
		for _, tok := range h.config.Tables.Inquiry[kind] {
			if textnorm.ContainsToken(words, tok) {
				return kind
			}
		}
	}
	return registry.InquiryGeneral
}

// Answer classifies msg and builds the reply from catalog data scoped by the
// session's resolved area, project and unit type.
func (h *Handler) Answer(ctx context.Context, s *models.ConversationSession, msg string) (*Output, error) {
	kind := h.Classify(msg)
	cctx, cancel := context.WithTimeout(ctx, h.config.CatalogTimeout)
	defer cancel()

	start := time.Now()
	var (
		out *Output
		err error
	)
	switch kind {
	case registry.InquiryPrice:
		out, err = h.price(cctx, s)
	case registry.InquiryAvailability:
		out, err = h.availability(cctx, s)
	case registry.InquiryLocation:
		out, err = h.location(cctx, s)
	default:
		out = &Output{Text: generalText}
	}
	if err != nil {
		metrics.ExternalCallDuration.WithLabelValues("inquiry_"+kind, "error").Observe(time.Since(start).Seconds())
		h.logger.Error("inquiry lookup failed", map[string]interface{}{
			"sessionKey": s.SessionKey,
			"kind":       kind,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("%w: inquiry %s: %v", apperrors.ErrExternalServiceUnavailable, kind, err)
	}
	metrics.ExternalCallDuration.WithLabelValues("inquiry_"+kind, "ok").Observe(time.Since(start).Seconds())

	out.Kind = kind
	h.logger.Info("inquiry answered", map[string]interface{}{
		"sessionKey": s.SessionKey,
		"kind":       kind,
	})
	return out, nil
}

func (h *Handler) price(ctx context.Context, s *models.ConversationSession) (*Output, error) {
	pr, err := h.catalog.PriceRange(ctx, models.UnitCriteriaFromSlots(s.Slots))
	if err != nil {
		return nil, err
	}
	scope := scopeName(s)
	if pr.Count == 0 {
		return &Output{Text: fmt.Sprintf("لا توجد معلومات أسعار متاحة حالياً %s. ممكن أسجل طلبك وفريق المبيعات يبعت لك الأسعار.", scope)}, nil
	}
	return &Output{Text: printer.Sprintf("الأسعار %s بتبدأ من %d لحد %d جنيه (%d وحدة متاحة).",
		scope, int64(pr.Min), int64(pr.Max), pr.Count)}, nil
}

func (h *Handler) availability(ctx context.Context, s *models.ConversationSession) (*Output, error) {
	if s.Slots.ID(models.SlotProject) != "" {
		criteria := models.UnitCriteriaFromSlots(s.Slots)
		n, err := h.catalog.CountMatchingUnits(ctx, criteria)
		if err != nil {
			return nil, err
		}
		project := s.Slots.Value(models.SlotProject)
		if n == 0 {
			return &Output{Text: fmt.Sprintf("لا توجد وحدات متاحة حالياً في %s بالمواصفات دي.", project)}, nil
		}
		return &Output{Text: fmt.Sprintf("في %s عندنا %d وحدة متاحة بالمواصفات دي.", project, n)}, nil
	}

	if areaID := s.Slots.ID(models.SlotArea); areaID != "" {
		projects, err := h.catalog.ListProjects(ctx, areaID)
		if err != nil {
			return nil, err
		}
		area := s.Slots.Value(models.SlotArea)
		if len(projects) == 0 {
			return &Output{Text: fmt.Sprintf("لا توجد مشاريع متاحة في %s حالياً.", area)}, nil
		}
		total := len(projects)
		projects = h.limit(projects)
		return &Output{
			Text:    fmt.Sprintf("المشاريع المتاحة في %s (%d):", area, total) + bullets(projects),
			Actions: actions("project", projects),
		}, nil
	}

	return h.areaList(ctx, "قولي المنطقة اللي بتدور فيها وأقولك المتاح. المناطق اللي بنغطيها:")
}

func (h *Handler) location(ctx context.Context, s *models.ConversationSession) (*Output, error) {
	if area := s.Slots.Value(models.SlotArea); area != "" {
		return &Output{Text: fmt.Sprintf("منطقة %s من المناطق اللي بنغطيها. تحب أعرض لك المشاريع المتاحة فيها؟", area)}, nil
	}
	return h.areaList(ctx, "المناطق المتاحة حالياً هي:")
}

func (h *Handler) areaList(ctx context.Context, intro string) (*Output, error) {
	areas, err := h.catalog.ListAreas(ctx)
	if err != nil {
		return nil, err
	}
	areas = h.limit(areas)
	return &Output{Text: intro + bullets(areas), Actions: actions("area", areas)}, nil
}

func (h *Handler) limit(entries []models.CatalogEntry) []models.CatalogEntry {
	if len(entries) > h.config.ListLimit {
		return entries[:h.config.ListLimit]
	}
	return entries
}

func scopeName(s *models.ConversationSession) string {
	var parts []string
	if v := s.Slots.Value(models.SlotUnitType); v != "" {
		parts = append(parts, "لـ"+v)
	}
	switch {
	case s.Slots.Value(models.SlotProject) != "":
		parts = append(parts, "في "+s.Slots.Value(models.SlotProject))
	case s.Slots.Value(models.SlotArea) != "":
		parts = append(parts, "في "+s.Slots.Value(models.SlotArea))
	default:
		parts = append(parts, "في كل المشاريع")
	}
	return strings.Join(parts, " ")
}

func bullets(entries []models.CatalogEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString("\n• ")
		b.WriteString(e.PrimaryName)
	}
	return b.String()
}

func actions(prefix string, entries []models.CatalogEntry) []models.SuggestedAction {
	out := make([]models.SuggestedAction, 0, len(entries))
	for _, e := range entries {
		label := e.PrimaryName
		if e.SecondaryName != "" {
			label = e.SecondaryName
		}
		out = append(out, models.SuggestedAction{ID: prefix + ":" + e.ID, Label: label})
	}
	return out
}
