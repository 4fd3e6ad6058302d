// internal/workers/conversation/handle-inquiry/models.go
package handleinquiry

import (
	"context"

	"leadbot/internal/models"
)

// CatalogClient answers inquiry lookups.
type CatalogClient interface {
	ListAreas(ctx context.Context) ([]models.CatalogEntry, error)
	ListProjects(ctx context.Context, areaID string) ([]models.CatalogEntry, error)
	CountMatchingUnits(ctx context.Context, criteria models.UnitCriteria) (int, error)
	PriceRange(ctx context.Context, criteria models.UnitCriteria) (models.PriceRange, error)
}

type Input struct {
	Session *models.ConversationSession `json:"session"`
	Message string                      `json:"message"`
}

type Output struct {
	Kind    string                   `json:"kind"`
	Text    string                   `json:"text"`
	Actions []models.SuggestedAction `json:"actions,omitempty"`
}
