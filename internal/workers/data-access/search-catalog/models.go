// internal/workers/data-access/search-catalog/models.go
package searchcatalog

import (
	"context"

	"leadbot/internal/models"
)

// Document is one catalog entry as stored by a search backend.
type Document struct {
	Kind          models.EntityKind `json:"kind"`
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	SecondaryName string            `json:"name_ar,omitempty"`
	ParentID      string            `json:"parent_id,omitempty"`
}

// Key is unique across kinds.
func (d Document) Key() string {
	return string(d.Kind) + ":" + d.ID
}

// Backend stores catalog documents and ranks them against a query. Scores
// are in [0,1]. A non-empty kind restricts ranking to documents of that
// kind, so topK counts only those.
type Backend interface {
	Index(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query string, kind models.EntityKind, topK int, threshold float64) ([]models.SearchHit, error)
	Name() string
}

// CatalogLister is the read side of the catalog used to build the index.
type CatalogLister interface {
	ListAreas(ctx context.Context) ([]models.CatalogEntry, error)
	ListProjects(ctx context.Context, areaID string) ([]models.CatalogEntry, error)
	ListUnitTypes(ctx context.Context) ([]models.CatalogEntry, error)
}

type Input struct {
	Query     string            `json:"query"`
	Kind      models.EntityKind `json:"kind,omitempty"`
	TopK      int               `json:"topK,omitempty"`
	Threshold float64           `json:"threshold,omitempty"`
}

type Output struct {
	Hits    []models.SearchHit `json:"hits"`
	Backend string             `json:"backend"`
}
