// internal/workers/data-access/search-catalog/handler.go
package searchcatalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/logger"
	"leadbot/internal/models"
)

const (
	TaskType = "search-catalog"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout     = errors.New("SEARCH_TIMEOUT")
	ErrIndexingFailed    = errors.New("CATALOG_INDEXING_FAILED")
)

type Handler struct {
	config  *Config
	backend Backend
	logger  logger.Logger
}

func NewHandler(config *Config, backend Backend, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		backend: backend,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType, "backend": backend.Name()}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	topK := input.TopK
	if topK <= 0 {
		topK = h.config.DefaultTopK
	}
	threshold := input.Threshold
	if threshold <= 0 {
		threshold = h.config.DefaultThreshold
	}
	hits, err := h.Search(ctx, input.Query, input.Kind, topK, threshold)
	if err != nil {
		return nil, err
	}
	return &Output{Hits: hits, Backend: h.backend.Name()}, nil
}

// Search returns up to topK hits of kind scoring at least threshold, best
// first. An empty kind searches every kind.
func (h *Handler) Search(ctx context.Context, query string, kind models.EntityKind, topK int, threshold float64) ([]models.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" || topK <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	hits, err := h.backend.Search(ctx, query, kind, topK, threshold)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrExternalServiceUnavailable, ErrSearchTimeout)
		}
		return nil, fmt.Errorf("%w: %w: %v", apperrors.ErrExternalServiceUnavailable, ErrSearchQueryFailed, err)
	}
	h.logger.Debug("catalog search", map[string]interface{}{
		"query": query,
		"kind":  string(kind),
		"hits":  len(hits),
	})
	return hits, nil
}

// IndexCatalog pushes every area, project and unit type to the backend.
func (h *Handler) IndexCatalog(ctx context.Context, catalog CatalogLister) (int, error) {
	docs, err := CatalogDocuments(ctx, catalog)
	if err != nil {
		return 0, err
	}
	if err := h.backend.Index(ctx, docs); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}
	h.logger.Info("catalog indexed", map[string]interface{}{"documents": len(docs)})
	return len(docs), nil
}

// CatalogDocuments flattens the three catalog lists into documents.
func CatalogDocuments(ctx context.Context, catalog CatalogLister) ([]Document, error) {
	areas, err := catalog.ListAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	projects, err := catalog.ListProjects(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	unitTypes, err := catalog.ListUnitTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unit types: %w", err)
	}

	docs := make([]Document, 0, len(areas)+len(projects)+len(unitTypes))
	add := func(kind models.EntityKind, entries []models.CatalogEntry) {
		for _, e := range entries {
			docs = append(docs, Document{
				Kind:          kind,
				ID:            e.ID,
				Name:          e.PrimaryName,
				SecondaryName: e.SecondaryName,
				ParentID:      e.ParentID,
			})
		}
	}
	add(models.KindArea, areas)
	add(models.KindProject, projects)
	add(models.KindUnitType, unitTypes)
	return docs, nil
}
