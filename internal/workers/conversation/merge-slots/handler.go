// internal/workers/conversation/merge-slots/handler.go
package mergeslots

import (
	"context"
	"strconv"
	"strings"

	"leadbot/internal/common/logger"
	"leadbot/internal/common/textnorm"
	"leadbot/internal/models"
)

const (
	TaskType = "merge-slots"
)

// Handler merges extractions into the session, resolves entity mentions and
// plans the next question.
type Handler struct {
	config   *Config
	resolver EntityResolver
	catalog  CatalogClient
	logger   logger.Logger
}

func NewHandler(config *Config, resolver EntityResolver, catalog CatalogClient, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		resolver: resolver,
		catalog:  catalog,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute merges and resolves in one step against input.Session. The two
// deltas must be applied in order.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	merged, mentions := h.Merge(input.Session, input.Extraction)
	mentions = ApplyCorrection(input.Session, input.Intent, input.Message, mentions)

	work := input.Session.Clone()
	merged.Apply(work)
	resolved, err := h.ResolvePending(ctx, work, mentions)
	if err != nil {
		return nil, err
	}
	return &Output{Merged: merged, Resolved: resolved, Mentions: mentions}, nil
}

// Merge overlays non-null extraction fields. Plain slots are stored as
// validated values; entity fields come back as mentions and are never
// written before they resolve.
func (h *Handler) Merge(s *models.ConversationSession, ext *models.Extraction) (models.SessionDelta, Mentions) {
	delta := models.SessionDelta{Slots: models.Slots{}}
	mentions := Mentions{}

	values := ext.Values()
	for _, name := range models.SlotNames {
		v, ok := values[name]
		if !ok {
			continue
		}
		if name.IsEntity() {
			if sameAsStored(s.Slots[name], v) {
				continue
			}
			mentions[name] = v
			continue
		}
		delta.Slots[name] = models.SlotValue{Raw: v, Canonical: v, Validated: true}
	}

	if len(delta.Slots) > 0 || len(mentions) > 0 {
		h.logger.Debug("extraction merged", map[string]interface{}{
			"sessionKey": s.SessionKey,
			"slots":      len(delta.Slots),
			"mentions":   len(mentions),
		})
	}
	return delta, mentions
}

func sameAsStored(stored models.SlotValue, mention string) bool {
	if !stored.Validated {
		return false
	}
	m := textnorm.Normalize(mention)
	return m == textnorm.Normalize(stored.Raw) || m == textnorm.Normalize(stored.Canonical)
}

// ApplyCorrection adds the answer to an open name correction to mentions:
// the suggestion on confirm, a numbered pick from the alternatives, or the
// bare reply when it was read as a correction.
func ApplyCorrection(s *models.ConversationSession, intent models.Intent, message string, mentions Mentions) Mentions {
	pc := s.PendingCorrection
	if !s.AwaitingNameCorrection || pc == nil {
		return mentions
	}
	if _, ok := mentions[pc.Field]; ok {
		return mentions
	}

	out := make(Mentions, len(mentions)+1)
	for k, v := range mentions {
		out[k] = v
	}

	switch {
	case intent == models.IntentConfirm && pc.Suggested != "":
		out[pc.Field] = pc.Suggested
	case pickAlternative(message, pc.Alternatives) != "":
		out[pc.Field] = pickAlternative(message, pc.Alternatives)
	case intent == models.IntentCorrection && strings.TrimSpace(message) != "":
		out[pc.Field] = strings.TrimSpace(message)
	}
	return out
}

// pickAlternative reads a numbered choice such as "2", "2." or "رقم 2".
// Only short replies count, so figures inside a longer sentence are not
// taken as a pick.
func pickAlternative(message string, alternatives []string) string {
	d := textnorm.Normalize(message)
	if len(strings.Fields(d)) > 3 {
		return ""
	}
	start := strings.IndexFunc(d, isASCIIDigit)
	if start < 0 {
		return ""
	}
	end := start + 1
	for end < len(d) && isASCIIDigit(rune(d[end])) {
		end++
	}
	n, err := strconv.Atoi(d[start:end])
	if err != nil || n < 1 || n > len(alternatives) {
		return ""
	}
	return alternatives[n-1]
}

func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

// ResolvePending resolves mentions in area, project, unit type order. The
// first ambiguous mention becomes the pending correction and later ones are
// dropped for this turn.
func (h *Handler) ResolvePending(ctx context.Context, s *models.ConversationSession, mentions Mentions) (models.SessionDelta, error) {
	delta := models.SessionDelta{Slots: models.Slots{}}
	if len(mentions) == 0 {
		return delta, nil
	}

	if pc := s.PendingCorrection; pc != nil {
		if _, ok := mentions[pc.Field]; ok {
			delta.ClearPendingCorrection = true
			delta.AwaitingNameCorrection = models.Bool(false)
		}
	}

	areaID := s.Slots.ID(models.SlotArea)
	for _, slot := range models.EntitySlots {
		mention, ok := mentions[slot]
		if !ok {
			continue
		}

		parent := ""
		if slot == models.SlotProject {
			parent = areaID
		}
		res, err := h.resolver.Resolve(ctx, models.KindFor(slot), mention, parent)
		if err != nil {
			return models.SessionDelta{}, err
		}

		if res.Matched {
			delta.Slots[slot] = models.SlotValue{
				Raw:        mention,
				Canonical:  res.Value,
				ExternalID: res.ID,
				Validated:  true,
			}
			if slot == models.SlotArea {
				areaID = res.ID
			}
			continue
		}

		delta.PendingCorrection = &models.PendingCorrection{
			Field:          slot,
			Original:       mention,
			Suggested:      res.Value,
			Alternatives:   append([]string(nil), res.Alternatives...),
			Confidence:     res.Confidence,
			ParentFiltered: res.ParentFiltered,
		}
		delta.AwaitingNameCorrection = models.Bool(true)
		h.logger.Info("entity needs correction", map[string]interface{}{
			"sessionKey":   s.SessionKey,
			"field":        slot,
			"mention":      mention,
			"suggested":    res.Value,
			"confidence":   res.Confidence,
			"alternatives": len(res.Alternatives),
		})
		break
	}
	return delta, nil
}
