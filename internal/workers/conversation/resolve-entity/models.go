// internal/workers/conversation/resolve-entity/models.go
package resolveentity

import (
	"context"

	"leadbot/internal/models"
)

// CatalogClient lists the canonical entities mentions are resolved against.
type CatalogClient interface {
	ListAreas(ctx context.Context) ([]models.CatalogEntry, error)
	ListProjects(ctx context.Context, areaID string) ([]models.CatalogEntry, error)
	ListUnitTypes(ctx context.Context) ([]models.CatalogEntry, error)
}

// Transliterator turns a phonetic Arabic spelling into a Latin guess.
type Transliterator interface {
	Convert(ctx context.Context, text string) (string, error)
}

// SemanticSearcher ranks catalog entries by embedding similarity.
type SemanticSearcher interface {
	Search(ctx context.Context, query string, kind models.EntityKind, topK int, threshold float64) ([]models.SearchHit, error)
}

type Input struct {
	Kind     models.EntityKind `json:"kind"`
	Mention  string            `json:"mention"`
	ParentID string            `json:"parentId,omitempty"`
}

type Output struct {
	Result models.MatchResult `json:"result"`
}
