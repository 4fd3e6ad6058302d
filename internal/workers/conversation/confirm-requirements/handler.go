// internal/workers/conversation/confirm-requirements/handler.go
package confirmrequirements

import (
	"context"
	"time"

	"leadbot/internal/common/logger"
	"leadbot/internal/common/metrics"
	"leadbot/internal/common/textnorm"
	"leadbot/internal/models"
)

const (
	TaskType = "confirm-requirements"
)

// contactSlots survive a restart after a lead was recorded.
var contactSlots = []models.SlotName{models.SlotCustomerName, models.SlotPhone, models.SlotEmail}

// Handler runs the summarize, confirm, edit and cancel sub-dialogue for a
// complete request.
type Handler struct {
	config  *Config
	counter UnitCounter
	logger  logger.Logger
}

// NewHandler builds the confirmation manager. counter may be nil, in which
// case the no-match wording is never used.
func NewHandler(config *Config, counter UnitCounter, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		counter: counter,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.Run(ctx, input.Session, input.Intent), nil
}

// Run advances the confirmation state machine by one turn. It must only be
// called once the planner reports the request complete.
func (h *Handler) Run(ctx context.Context, s *models.ConversationSession, intent models.Intent) *Output {
	if s.Confirmed {
		return &Output{Outcome: OutcomeAlreadyConfirmed}
	}

	switch intent {
	case models.IntentCancel:
		delta, prompt := Cancel(s)
		return &Output{Delta: delta, Outcome: OutcomeCancelled, Prompt: prompt}
	case models.IntentEdit:
		h.logger.Info("user wants to edit", map[string]interface{}{"sessionKey": s.SessionKey})
		return &Output{
			Delta:   models.SessionDelta{AwaitingConfirmation: models.Bool(false)},
			Outcome: OutcomeEdit,
			Prompt:  editPrompt,
		}
	}

	if !HasContact(s) {
		delta := models.SessionDelta{
			IsComplete:           models.Bool(true),
			AwaitingConfirmation: models.Bool(true),
		}
		if intent == models.IntentConfirm {
			delta.ConfirmPendingContact = models.Bool(true)
		}
		h.logger.Info("asking for contact details", map[string]interface{}{
			"sessionKey":   s.SessionKey,
			"confirmAsked": intent == models.IntentConfirm,
		})
		return &Output{Delta: delta, Outcome: OutcomeAskContact, Prompt: contactPrompt}
	}

	if intent == models.IntentConfirm || s.ConfirmPendingContact {
		h.logger.Info("requirements confirmed", map[string]interface{}{
			"sessionKey": s.SessionKey,
			"attempt":    s.ConfirmationAttempt,
			"auto":       intent != models.IntentConfirm,
		})
		return &Output{
			Delta: models.SessionDelta{
				IsComplete:            models.Bool(true),
				Confirmed:             models.Bool(true),
				AwaitingConfirmation:  models.Bool(false),
				ConfirmPendingContact: models.Bool(false),
			},
			Outcome: OutcomeConfirmed,
		}
	}

	attempt := s.ConfirmationAttempt
	noMatch := h.noMatchingUnits(ctx, s)
	h.logger.Info("asking for confirmation", map[string]interface{}{
		"sessionKey": s.SessionKey,
		"attempt":    attempt + 1,
		"noMatch":    noMatch,
	})
	return &Output{
		Delta: models.SessionDelta{
			IsComplete:           models.Bool(true),
			AwaitingConfirmation: models.Bool(true),
			ConfirmationAttempt:  models.Int(attempt + 1),
		},
		Outcome: OutcomeSummary,
		Prompt:  h.SummaryPrompt(s, attempt, noMatch),
		Actions: ConfirmActions(),
	}
}

// noMatchingUnits is true only when the catalog positively reports zero
// matching units; a failed count keeps the standard wording.
func (h *Handler) noMatchingUnits(ctx context.Context, s *models.ConversationSession) bool {
	if h.counter == nil {
		return false
	}
	cctx, cancel := context.WithTimeout(ctx, h.config.CountTimeout)
	defer cancel()

	start := time.Now()
	n, err := h.counter.CountMatchingUnits(cctx, models.UnitCriteriaFromSlots(s.Slots))
	if err != nil {
		metrics.ExternalCallDuration.WithLabelValues("count_units", "error").Observe(time.Since(start).Seconds())
		h.logger.Warn("unit count failed, using standard summary", map[string]interface{}{
			"sessionKey": s.SessionKey,
			"error":      err.Error(),
		})
		return false
	}
	metrics.ExternalCallDuration.WithLabelValues("count_units", "ok").Observe(time.Since(start).Seconds())
	return n == 0
}

// HasContact reports whether a lead can be attributed: a customer name plus
// a phone number, which a phone-like session key also provides.
func HasContact(s *models.ConversationSession) bool {
	return s.Slots.Has(models.SlotCustomerName) && ContactPhone(s) != ""
}

// ContactPhone returns the phone slot, falling back to a phone-like session key.
func ContactPhone(s *models.ConversationSession) string {
	if p := s.Slots.Value(models.SlotPhone); p != "" {
		return p
	}
	if textnorm.IsPhoneLike(s.SessionKey) {
		return s.SessionKey
	}
	return ""
}

// Cancel resets the request and opens a new lead epoch so a later request
// never collides with an earlier one.
func Cancel(s *models.ConversationSession) (models.SessionDelta, string) {
	delta := resetFlags(s)
	delta.ResetSlots = true
	return delta, cancelPrompt
}

// Restart starts a fresh request after a lead was recorded. Contact details
// are kept so the customer is not asked again.
func Restart(s *models.ConversationSession) models.SessionDelta {
	delta := resetFlags(s)
	delta.ResetSlots = true
	delta.Slots = models.Slots{}
	for _, name := range contactSlots {
		if s.Slots.Has(name) {
			delta.Slots[name] = s.Slots[name]
		}
	}
	return delta
}

func resetFlags(s *models.ConversationSession) models.SessionDelta {
	return models.SessionDelta{
		IsComplete:             models.Bool(false),
		Confirmed:              models.Bool(false),
		AwaitingConfirmation:   models.Bool(false),
		ConfirmationAttempt:    models.Int(0),
		ConfirmPendingContact:  models.Bool(false),
		AwaitingNameCorrection: models.Bool(false),
		ProjectSuggested:       models.Bool(false),
		ClearPendingCorrection: true,
		MissingFields:          models.Fields(),
		LeadID:                 models.String(""),
		LeadStatus:             models.Status(models.LeadStatusNone),
		LeadEpoch:              models.Int(s.LeadEpoch + 1),
	}
}

// ConfirmActions are the quick replies offered with a summary.
func ConfirmActions() []models.SuggestedAction {
	return []models.SuggestedAction{
		{ID: ActionConfirm, Label: "تأكيد ✅"},
		{ID: ActionEdit, Label: "تعديل 📝"},
	}
}
