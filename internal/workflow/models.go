package workflow

import (
	"context"

	"leadbot/internal/models"
	classifyintent "leadbot/internal/workers/ai-conversation/classify-intent"
	mergeslots "leadbot/internal/workers/conversation/merge-slots"
)

// SessionStore loads and saves conversation state. Load returns a fresh
// session for unknown keys.
type SessionStore interface {
	Load(ctx context.Context, key string) (*models.ConversationSession, error)
	Save(ctx context.Context, s *models.ConversationSession) error
}

// PendingSet tracks keys whose lead must be retried out of band.
type PendingSet interface {
	MarkPending(ctx context.Context, key string) error
	ClearPending(ctx context.Context, key string) error
	PendingKeys(ctx context.Context) ([]string, error)
}

// TurnLog keeps the full message log.
type TurnLog interface {
	Append(ctx context.Context, key string, turns ...models.Turn) error
	Recent(ctx context.Context, key string, n int) ([]models.Turn, error)
}

// Classifier labels a message. BuildPrompt renders the phase hint and
// recent history into the classifier prompt.
type Classifier interface {
	BuildPrompt(input *classifyintent.Input) string
	Classify(ctx context.Context, prompt string) (models.Intent, error)
}

// Extractor pulls requirement fields out of a message.
type Extractor interface {
	Extract(ctx context.Context, message string, turns []string) (*models.Extraction, error)
}

// AreaLister lists areas for the greeting and area-not-found replies.
type AreaLister interface {
	ListAreas(ctx context.Context) ([]models.CatalogEntry, error)
}

// LeadSink records a confirmed request. On a duplicate it returns the
// existing id together with an error wrapping ErrDuplicateLead.
type LeadSink interface {
	CreateLead(ctx context.Context, req models.LeadRequest) (string, error)
}

// turn carries the facts a single HandleMessage call accumulates.
type turn struct {
	key     string
	message string

	intent     models.Intent
	history    []models.Turn
	extraction *models.Extraction
	mentions   mergeslots.Mentions

	areaResolved bool
	submitLead   bool
	leadCreated  bool

	text    string
	actions []models.SuggestedAction
	done    bool

	// fatal aborts planning; errorCode is reported either way.
	fatal     error
	errorCode string
}
