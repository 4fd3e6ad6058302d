// internal/workers/conversation/merge-slots/models.go
package mergeslots

import (
	"context"

	"leadbot/internal/models"
)

// EntityResolver maps a mention to a catalog entry.
type EntityResolver interface {
	Resolve(ctx context.Context, kind models.EntityKind, mention, parentID string) (models.MatchResult, error)
}

// CatalogClient lists catalog entries for prompts and project suggestions.
type CatalogClient interface {
	ListAreas(ctx context.Context) ([]models.CatalogEntry, error)
	ListProjects(ctx context.Context, areaID string) ([]models.CatalogEntry, error)
	ListUnitTypes(ctx context.Context) ([]models.CatalogEntry, error)
}

// Mentions are entity values extracted this turn that still need resolving.
type Mentions map[models.SlotName]string

// Missing-field markers, in the order they are reported.
const (
	MissingArea         = "area"
	MissingRequirements = "requirements"
)

// Step is the planner's decision for the turn.
type Step string

const (
	StepClarify        Step = "clarify"
	StepSuggestProject Step = "suggest_project"
	StepComplete       Step = "complete"
)

// Plan is what the completeness planner wants said next.
type Plan struct {
	Step    Step                     `json:"step"`
	Missing []string                 `json:"missing"`
	Prompt  string                   `json:"prompt,omitempty"`
	Actions []models.SuggestedAction `json:"actions,omitempty"`
}

type Input struct {
	Session    *models.ConversationSession `json:"session"`
	Extraction *models.Extraction          `json:"extraction"`
	Intent     models.Intent               `json:"intent"`
	Message    string                      `json:"message"`
}

type Output struct {
	Merged   models.SessionDelta `json:"merged"`
	Resolved models.SessionDelta `json:"resolved"`
	Mentions Mentions            `json:"mentions"`
}
