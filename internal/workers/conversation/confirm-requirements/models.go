// internal/workers/conversation/confirm-requirements/models.go
package confirmrequirements

import (
	"context"

	"leadbot/internal/models"
)

// UnitCounter reports how many catalog units match the collected criteria.
type UnitCounter interface {
	CountMatchingUnits(ctx context.Context, criteria models.UnitCriteria) (int, error)
}

// Outcome is what the confirmation step decided for the turn.
type Outcome string

const (
	OutcomeAskContact       Outcome = "ask_contact"
	OutcomeSummary          Outcome = "summary"
	OutcomeConfirmed        Outcome = "confirmed"
	OutcomeEdit             Outcome = "edit"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomeRestarted        Outcome = "restarted"
	OutcomeAlreadyConfirmed Outcome = "already_confirmed"
)

// Quick-reply ids offered with every summary.
const (
	ActionConfirm = "confirm"
	ActionEdit    = "edit"
)

type Input struct {
	Session *models.ConversationSession `json:"session"`
	Intent  models.Intent               `json:"intent"`
}

type Output struct {
	Delta   models.SessionDelta      `json:"delta"`
	Outcome Outcome                  `json:"outcome"`
	Prompt  string                   `json:"prompt,omitempty"`
	Actions []models.SuggestedAction `json:"actions,omitempty"`
}
