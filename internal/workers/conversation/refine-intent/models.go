// internal/workers/conversation/refine-intent/models.go
package refineintent

import "leadbot/internal/models"

// Phase carries the workflow flags that switch refinement rules on.
type Phase struct {
	Confirmation   bool
	NameCorrection bool
}

// PhaseOf derives the refinement phase from a session.
func PhaseOf(s *models.ConversationSession) Phase {
	return Phase{
		Confirmation:   s.InConfirmationPhase(),
		NameCorrection: s.AwaitingNameCorrection,
	}
}

type Input struct {
	RawIntent models.Intent `json:"rawIntent"`
	Phase     Phase         `json:"phase"`
	Message   string        `json:"message"`
}

type Output struct {
	Intent models.Intent `json:"intent"`
	Rule   Rule          `json:"rule"`
}

// Rule names the refinement rule that decided an intent.
type Rule string

const (
	RuleNone             Rule = "none"
	RuleCancel           Rule = "cancel_token"
	RuleReject           Rule = "reject_token"
	RuleShortConfirm     Rule = "short_confirm"
	RuleData             Rule = "data_message"
	RuleLongConfirm      Rule = "long_confirm"
	RuleConfirmToken     Rule = "confirm_token"
	RuleAcceptSuggestion Rule = "accept_suggestion"
	RuleShortCorrection  Rule = "short_correction"
)
