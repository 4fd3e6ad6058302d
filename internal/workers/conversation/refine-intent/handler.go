// internal/workers/conversation/refine-intent/handler.go
package refineintent

import (
	"context"
	"strings"

	"leadbot/internal/common/logger"
	"leadbot/internal/common/textnorm"
	"leadbot/internal/models"
)

const (
	TaskType = "refine-intent"
)

// Handler overrides classifier labels with deterministic lexical rules.
type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	if config.Tables == nil {
		config.Tables = LoadConfig().Tables
	}
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	intent, rule := h.refine(input.RawIntent, input.Phase, input.Message)
	if intent != input.RawIntent {
		h.logger.Debug("intent overridden", map[string]interface{}{
			"raw":     input.RawIntent,
			"refined": intent,
			"rule":    rule,
		})
	}
	return &Output{Intent: intent, Rule: rule}, nil
}

// Refine applies the phase rules to a raw classifier label.
func (h *Handler) Refine(raw models.Intent, phase Phase, message string) models.Intent {
	intent, _ := h.refine(raw, phase, message)
	return intent
}

func (h *Handler) refine(raw models.Intent, phase Phase, message string) (models.Intent, Rule) {
	words := textnorm.Words(message)
	t := h.config.Tables

	if phase.Confirmation {
		if containsAny(words, t.Cancel) {
			return models.IntentCancel, RuleCancel
		}
		if containsAny(words, t.Reject) {
			return raw, RuleReject
		}

		hasConfirm := containsAny(words, t.Confirm)
		openLabel := raw != models.IntentInquiry && raw != models.IntentNewSearch
		if len(words) <= h.config.ShortConfirmMaxWords {
			if hasConfirm && openLabel {
				return models.IntentConfirm, RuleShortConfirm
			}
		} else {
			if nonConfirmWords(words, t.Confirm) >= h.config.DataMinNonConfirmWords {
				return models.IntentUpdateRequirements, RuleData
			}
			if hasConfirm && openLabel {
				return models.IntentConfirm, RuleLongConfirm
			}
		}

		switch raw {
		case models.IntentFollowUp, models.IntentUnknown, models.IntentGreeting:
			if hasConfirm {
				return models.IntentConfirm, RuleConfirmToken
			}
		}
	}

	if phase.NameCorrection {
		if isSuggestionAccepted(words, t.CorrectionConfirm) {
			return models.IntentConfirm, RuleAcceptSuggestion
		}
		if raw == models.IntentUnknown && len(words) <= h.config.CorrectionMaxWords {
			return models.IntentCorrection, RuleShortCorrection
		}
	}

	return raw, RuleNone
}

func containsAny(words []string, tokens []string) bool {
	for _, tok := range tokens {
		if textnorm.ContainsToken(words, tok) {
			return true
		}
	}
	return false
}

// nonConfirmWords counts the words not covered by any confirm token.
func nonConfirmWords(words []string, confirm []string) int {
	covered := make([]bool, len(words))
	for _, tok := range confirm {
		tw := textnorm.Words(tok)
		if len(tw) == 0 {
			continue
		}
		for i := 0; i+len(tw) <= len(words); i++ {
			if textnorm.ContainsToken(words[i:i+len(tw)], tok) {
				for j := i; j < i+len(tw); j++ {
					covered[j] = true
				}
			}
		}
	}
	n := 0
	for _, c := range covered {
		if !c {
			n++
		}
	}
	return n
}

func isSuggestionAccepted(words []string, phrases []string) bool {
	joined := joinWords(words)
	for _, p := range phrases {
		if joined == joinWords(textnorm.Words(p)) {
			return true
		}
	}
	return containsAny(words, phrases)
}

func joinWords(words []string) string {
	return strings.Join(words, " ")
}
