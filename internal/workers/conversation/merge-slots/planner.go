// internal/workers/conversation/merge-slots/planner.go
package mergeslots

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"leadbot/internal/models"
)

// DefaultUnitTypes are offered when the catalog has no unit types.
var DefaultUnitTypes = []models.CatalogEntry{
	{ID: "apartment", PrimaryName: "Apartment", SecondaryName: "شقة"},
	{ID: "villa", PrimaryName: "Villa", SecondaryName: "فيلا"},
	{ID: "townhouse", PrimaryName: "Townhouse", SecondaryName: "تاون هاوس"},
	{ID: "duplex", PrimaryName: "Duplex", SecondaryName: "دوبلكس"},
}

// MissingFields lists "area" when no area is set, then "requirements" when
// none of unit type, maximum budget or minimum size is set.
func MissingFields(slots models.Slots) []string {
	missing := []string{}
	if !slots.Has(models.SlotArea) {
		missing = append(missing, MissingArea)
	}
	if !slots.Has(models.SlotUnitType) && !slots.Has(models.SlotBudgetMax) && !slots.Has(models.SlotSizeMin) {
		missing = append(missing, MissingRequirements)
	}
	return missing
}

// Plan decides whether the request is complete. A resolved area without a
// project triggers a one-time project suggestion, which holds completion
// back for that turn.
func (h *Handler) Plan(ctx context.Context, s *models.ConversationSession) (models.SessionDelta, *Plan, error) {
	missing := MissingFields(s.Slots)
	delta := models.SessionDelta{MissingFields: models.Fields(missing...)}

	areaID := s.Slots.ID(models.SlotArea)
	if areaID != "" && !s.Slots.Has(models.SlotProject) && !s.ProjectSuggested && !s.Confirmed {
		projects, err := h.catalog.ListProjects(ctx, areaID)
		if err != nil {
			return models.SessionDelta{}, nil, err
		}
		if len(projects) > 0 {
			delta.ProjectSuggested = models.Bool(true)
			delta.IsComplete = models.Bool(false)
			prompt, actions := h.suggestionPrompt(s.Slots.Value(models.SlotArea), projects)
			h.logger.Info("suggesting projects", map[string]interface{}{
				"sessionKey": s.SessionKey,
				"areaId":     areaID,
				"projects":   len(projects),
			})
			return delta, &Plan{Step: StepSuggestProject, Missing: missing, Prompt: prompt, Actions: actions}, nil
		}
	}

	if len(missing) == 0 || s.Confirmed {
		delta.IsComplete = models.Bool(true)
		return delta, &Plan{Step: StepComplete, Missing: missing}, nil
	}

	delta.IsComplete = models.Bool(false)
	plan := &Plan{Step: StepClarify, Missing: missing}
	var err error
	if missing[0] == MissingArea {
		plan.Prompt, plan.Actions, err = h.areaPrompt(ctx)
	} else {
		plan.Prompt, plan.Actions, err = h.unitTypePrompt(ctx, s.Slots.Value(models.SlotProject))
	}
	if err != nil {
		return models.SessionDelta{}, nil, err
	}
	return delta, plan, nil
}

func (h *Handler) areaPrompt(ctx context.Context) (string, []models.SuggestedAction, error) {
	areas, err := h.catalog.ListAreas(ctx)
	if err != nil {
		return "", nil, err
	}
	if len(areas) > h.config.AreaListLimit {
		areas = areas[:h.config.AreaListLimit]
	}
	var b strings.Builder
	b.WriteString("ممكن تحدد لي المنطقة اللي بتدور عليها؟")
	if len(areas) > 0 {
		b.WriteString("\n\nالمناطق المتاحة حالياً:")
		writeBullets(&b, names(areas))
	}
	return b.String(), entryActions("area", areas), nil
}

func (h *Handler) unitTypePrompt(ctx context.Context, project string) (string, []models.SuggestedAction, error) {
	types, err := h.catalog.ListUnitTypes(ctx)
	if err != nil {
		return "", nil, err
	}
	if len(types) == 0 {
		types = DefaultUnitTypes
	}

	var b strings.Builder
	if project != "" {
		fmt.Fprintf(&b, "في %s، ايه نوع الوحدة المناسب ليك؟", project)
	} else {
		b.WriteString("ايه نوع الوحدة اللي بتدور عليها؟")
	}
	b.WriteString("\n\nالأنواع الشائعة:")
	labels := make([]string, 0, len(types))
	for _, t := range types {
		labels = append(labels, displayName(t))
	}
	writeBullets(&b, labels)
	b.WriteString("\n\nوممكن كمان تقولي الميزانية أو المساحة اللي محتاجها.")
	return b.String(), entryActions("unitType", types), nil
}

func (h *Handler) suggestionPrompt(area string, projects []models.CatalogEntry) (string, []models.SuggestedAction) {
	if len(projects) > h.config.ProjectSuggestLimit {
		projects = projects[:h.config.ProjectSuggestLimit]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ممتاز! في %s عندنا مشاريع مميزة:", area)
	writeBullets(&b, names(projects))
	b.WriteString("\n\nتحب تحدد مشروع معين ولا ندور في المنطقة كلها؟")
	return b.String(), entryActions("project", projects)
}

// CorrectionPrompt asks the user to settle a pending correction. Numbered
// options match the numbers ApplyCorrection accepts.
func (h *Handler) CorrectionPrompt(s *models.ConversationSession) (string, []models.SuggestedAction) {
	pc := s.PendingCorrection
	if pc == nil {
		return "", nil
	}

	limit := h.config.CorrectionListLimit
	if pc.Field == models.SlotProject {
		limit = models.MaxAlternatives
	}
	alts := pc.Alternatives
	if len(alts) > limit {
		alts = alts[:limit]
	}

	var b strings.Builder
	if pc.Suggested != "" {
		switch pc.Field {
		case models.SlotArea:
			fmt.Fprintf(&b, "حضرتك تقصد منطقة **%s** صح؟", pc.Suggested)
			if len(alts) > 0 {
				b.WriteString("\n\nلو تقصد منطقة تانية، ممكن تختار:")
			}
		case models.SlotProject:
			fmt.Fprintf(&b, "حضرتك تقصد مشروع **%s** صح؟", pc.Suggested)
			if area := s.Slots.Value(models.SlotArea); pc.ParentFiltered && area != "" {
				fmt.Fprintf(&b, "\n\nمشاريع %s:", area)
			} else if len(alts) > 0 {
				b.WriteString("\n\nمشاريع مشابهة:")
			}
		default:
			fmt.Fprintf(&b, "حضرتك تقصد **%s** صح؟", pc.Suggested)
			if len(alts) > 0 {
				b.WriteString("\n\nالأنواع المتاحة:")
			}
		}
	} else {
		fmt.Fprintf(&b, "مش لاقي %s بالاسم \"%s\" 🤔", fieldLabel(pc.Field), pc.Original)
		if len(alts) > 0 {
			b.WriteString("\n\nممكن تختار من:")
		}
	}

	actions := make([]models.SuggestedAction, 0, len(alts))
	for i, alt := range alts {
		fmt.Fprintf(&b, "\n%d. %s", i+1, alt)
		actions = append(actions, models.SuggestedAction{ID: strconv.Itoa(i + 1), Label: alt})
	}
	if pc.Field == models.SlotProject && pc.Suggested != "" && pc.ParentFiltered {
		b.WriteString("\n\nممكن تختار الاسم بالظبط ✨")
	}
	return b.String(), actions
}

func fieldLabel(field models.SlotName) string {
	switch field {
	case models.SlotArea:
		return "منطقة"
	case models.SlotProject:
		return "مشروع"
	default:
		return "نوع وحدة"
	}
}

func displayName(e models.CatalogEntry) string {
	if e.SecondaryName != "" {
		return e.SecondaryName
	}
	return e.PrimaryName
}

func names(entries []models.CatalogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.PrimaryName)
	}
	return out
}

func writeBullets(b *strings.Builder, items []string) {
	for _, it := range items {
		b.WriteString("\n• ")
		b.WriteString(it)
	}
}

func entryActions(prefix string, entries []models.CatalogEntry) []models.SuggestedAction {
	actions := make([]models.SuggestedAction, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, models.SuggestedAction{ID: prefix + ":" + e.ID, Label: displayName(e)})
	}
	return actions
}
