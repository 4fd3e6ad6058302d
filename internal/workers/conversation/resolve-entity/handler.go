// internal/workers/conversation/resolve-entity/handler.go
package resolveentity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/logger"
	"leadbot/internal/common/metrics"
	"leadbot/internal/common/textnorm"
	"leadbot/internal/models"
)

const (
	TaskType = "resolve-entity"

	phoneticConfidence = 0.95
	memoLimit          = 4096
)

var (
	ErrUnknownKind = errors.New("UNKNOWN_ENTITY_KIND")
)

// Handler resolves free-text mentions to catalog entries through the exact,
// phonetic, fuzzy and semantic tiers.
type Handler struct {
	config   *Config
	catalog  CatalogClient
	translit Transliterator
	search   SemanticSearcher
	logger   logger.Logger

	mu   sync.Mutex
	memo map[string]string
}

// NewHandler wires the resolver. translit and search may be nil, which
// disables the phonetic service call and the semantic tier.
func NewHandler(config *Config, catalog CatalogClient, translit Transliterator, search SemanticSearcher, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		catalog:  catalog,
		translit: translit,
		search:   search,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
		memo:     make(map[string]string),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.Resolve(ctx, input.Kind, input.Mention, input.ParentID)
	if err != nil {
		return nil, err
	}
	return &Output{Result: res}, nil
}

// Resolve dispatches on kind. parentID narrows project alternatives.
func (h *Handler) Resolve(ctx context.Context, kind models.EntityKind, mention, parentID string) (models.MatchResult, error) {
	switch kind {
	case models.KindArea:
		return h.ResolveArea(ctx, mention)
	case models.KindProject:
		return h.ResolveProject(ctx, mention, parentID)
	case models.KindUnitType:
		return h.ResolveUnitType(ctx, mention)
	default:
		return models.MatchResult{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func (h *Handler) ResolveArea(ctx context.Context, mention string) (models.MatchResult, error) {
	entries, err := h.catalog.ListAreas(ctx)
	if err != nil {
		return models.MatchResult{}, err
	}
	return h.match(ctx, models.KindArea, mention, entries)
}

func (h *Handler) ResolveUnitType(ctx context.Context, mention string) (models.MatchResult, error) {
	entries, err := h.catalog.ListUnitTypes(ctx)
	if err != nil {
		return models.MatchResult{}, err
	}
	return h.match(ctx, models.KindUnitType, mention, entries)
}

// ResolveProject matches against every project, then narrows the
// alternatives to the projects of areaID when that changes the set.
func (h *Handler) ResolveProject(ctx context.Context, mention, areaID string) (models.MatchResult, error) {
	entries, err := h.catalog.ListProjects(ctx, "")
	if err != nil {
		return models.MatchResult{}, err
	}
	res, err := h.match(ctx, models.KindProject, mention, entries)
	if err != nil || areaID == "" || res.Matched || len(res.Alternatives) == 0 {
		return res, err
	}

	inArea := make(map[string]bool)
	for _, e := range entries {
		if e.ParentID == areaID {
			inArea[e.PrimaryName] = true
		}
	}
	filtered := make([]string, 0, len(res.Alternatives))
	for _, alt := range res.Alternatives {
		if inArea[alt] {
			filtered = append(filtered, alt)
		}
	}
	if len(filtered) > 0 && len(filtered) != len(res.Alternatives) {
		res.Alternatives = filtered
		res.ParentFiltered = true
		if res.Value != "" && !inArea[res.Value] {
			res.Value = filtered[0]
		}
	}
	return res, nil
}

type scored struct {
	entry models.CatalogEntry
	score float64
}

func (h *Handler) match(ctx context.Context, kind models.EntityKind, mention string, entries []models.CatalogEntry) (models.MatchResult, error) {
	res := models.MatchResult{
		LanguageDetected: textnorm.DetectLanguage(mention),
		Alternatives:     []string{},
	}
	input := textnorm.Normalize(mention)

	if input == "" || len(entries) == 0 {
		res.Alternatives = h.fallbackNames(entries)
		res.Tier = models.TierEmpty
		return h.record(kind, res), nil
	}

	if e, ok := exactMatch(input, entries); ok {
		res.Matched, res.Value, res.ID, res.Confidence = true, e.PrimaryName, e.ID, 1.0
		res.Tier = models.TierExact
		return h.record(kind, res), nil
	}

	guess := ""
	if res.LanguageDetected == models.LanguageArabic && textnorm.IsPhoneticCandidate(mention, h.config.PhoneticMaxRunes) {
		guess = h.transliterate(ctx, input)
		if e, ok := exactMatch(guess, entries); ok && guess != "" {
			res.Matched, res.Value, res.ID, res.Confidence = true, e.PrimaryName, e.ID, phoneticConfidence
			res.Tier = models.TierPhonetic
			return h.record(kind, res), nil
		}
	}

	ranked := rank(input, guess, entries)
	if top := ranked[0]; top.score >= h.config.ExactThreshold {
		res.Matched, res.Value, res.ID, res.Confidence = true, top.entry.PrimaryName, top.entry.ID, top.score
		res.Tier = models.TierFuzzy
		return h.record(kind, res), nil
	} else if top.score >= h.config.SuggestThreshold {
		res.Value, res.Confidence = top.entry.PrimaryName, top.score
		for i := 0; i < len(ranked) && i < h.config.SuggestCount; i++ {
			res.Alternatives = append(res.Alternatives, ranked[i].entry.PrimaryName)
		}
		res.Tier = models.TierSuggest
		return h.record(kind, res), nil
	}

	if h.search != nil {
		hits, err := h.semantic(ctx, kind, mention, entries)
		if err != nil {
			return models.MatchResult{}, err
		}
		if len(hits) > 0 {
			res.Value, res.Confidence = hits[0].Name, hits[0].Score
			for i := 0; i < len(hits) && i < models.MaxAlternatives; i++ {
				res.Alternatives = append(res.Alternatives, hits[i].Name)
			}
			res.Tier = models.TierSemantic
			return h.record(kind, res), nil
		}
	}

	res.Alternatives = h.fallbackNames(entries)
	res.Tier = models.TierFallback
	return h.record(kind, res), nil
}

func exactMatch(input string, entries []models.CatalogEntry) (models.CatalogEntry, bool) {
	if input == "" {
		return models.CatalogEntry{}, false
	}
	for _, e := range entries {
		if textnorm.Normalize(e.PrimaryName) == input {
			return e, true
		}
		if e.SecondaryName != "" && textnorm.Normalize(e.SecondaryName) == input {
			return e, true
		}
	}
	return models.CatalogEntry{}, false
}

// rank scores every entry and sorts best first; ties keep catalog order.
func rank(input, guess string, entries []models.CatalogEntry) []scored {
	out := make([]scored, 0, len(entries))
	for _, e := range entries {
		names := []string{textnorm.Normalize(e.PrimaryName)}
		if e.SecondaryName != "" {
			names = append(names, textnorm.Normalize(e.SecondaryName))
		}
		best := 0.0
		for _, n := range names {
			if s := Similarity(input, n); s > best {
				best = s
			}
			if guess != "" {
				if s := Similarity(guess, n); s > best {
					best = s
				}
			}
		}
		out = append(out, scored{entry: e, score: best})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// transliterate calls the external service once per distinct input and
// remembers the answer, falling back to the offline letter map.
func (h *Handler) transliterate(ctx context.Context, input string) string {
	h.mu.Lock()
	if g, ok := h.memo[input]; ok {
		h.mu.Unlock()
		return g
	}
	h.mu.Unlock()

	guess := ""
	if h.translit != nil {
		cctx, cancel := context.WithTimeout(ctx, h.config.TransliterationTimeout)
		start := time.Now()
		out, err := h.translit.Convert(cctx, input)
		cancel()
		if err != nil {
			metrics.ExternalCallDuration.WithLabelValues("transliteration", "error").Observe(time.Since(start).Seconds())
			h.logger.Warn("transliteration failed, using letter map", map[string]interface{}{
				"input": input,
				"error": err,
			})
		} else {
			metrics.ExternalCallDuration.WithLabelValues("transliteration", "ok").Observe(time.Since(start).Seconds())
			guess = textnorm.Normalize(out)
		}
	}
	if guess == "" {
		guess = textnorm.Transliterate(input)
	}

	h.mu.Lock()
	if len(h.memo) >= memoLimit {
		h.memo = make(map[string]string)
	}
	h.memo[input] = guess
	h.mu.Unlock()
	return guess
}

// semantic keeps only hits that belong to the entry set being resolved.
func (h *Handler) semantic(ctx context.Context, kind models.EntityKind, mention string, entries []models.CatalogEntry) ([]models.SearchHit, error) {
	cctx, cancel := context.WithTimeout(ctx, h.config.SearchTimeout)
	defer cancel()

	start := time.Now()
	hits, err := h.search.Search(cctx, mention, kind, h.config.SemanticTopK, h.config.SemanticThreshold)
	if err != nil {
		metrics.ExternalCallDuration.WithLabelValues("semantic_search", "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, apperrors.ErrExternalServiceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: semantic search: %v", apperrors.ErrExternalServiceUnavailable, err)
	}
	metrics.ExternalCallDuration.WithLabelValues("semantic_search", "ok").Observe(time.Since(start).Seconds())

	byID := make(map[string]models.CatalogEntry, len(entries))
	byName := make(map[string]models.CatalogEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
		byName[textnorm.Normalize(e.PrimaryName)] = e
	}

	seen := make(map[string]bool)
	out := make([]models.SearchHit, 0, len(hits))
	for _, hit := range hits {
		if hit.Kind != "" && hit.Kind != kind {
			continue
		}
		e, ok := byID[hit.ID]
		if !ok {
			e, ok = byName[textnorm.Normalize(hit.Name)]
		}
		if !ok || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, models.SearchHit{Kind: kind, ID: e.ID, Name: e.PrimaryName, Score: hit.Score})
	}
	return out, nil
}

func (h *Handler) fallbackNames(entries []models.CatalogEntry) []string {
	names := make([]string, 0, h.config.FallbackCount)
	for _, e := range entries {
		if len(names) == h.config.FallbackCount {
			break
		}
		if e.PrimaryName != "" {
			names = append(names, e.PrimaryName)
		}
	}
	return names
}

func (h *Handler) record(kind models.EntityKind, res models.MatchResult) models.MatchResult {
	metrics.EntityResolutions.WithLabelValues(string(kind), string(res.Tier)).Inc()
	h.logger.Debug("entity resolved", map[string]interface{}{
		"kind":       kind,
		"tier":       res.Tier,
		"matched":    res.Matched,
		"value":      res.Value,
		"confidence": res.Confidence,
	})
	return res
}
