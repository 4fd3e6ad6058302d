package models

import (
	"strconv"
	"strings"
)

// SlotName is one of the fixed requirement keys.
type SlotName string

const (
	SlotArea         SlotName = "area"
	SlotProject      SlotName = "project"
	SlotUnitType     SlotName = "unitType"
	SlotBudgetMin    SlotName = "budgetMin"
	SlotBudgetMax    SlotName = "budgetMax"
	SlotSizeMin      SlotName = "sizeMin"
	SlotSizeMax      SlotName = "sizeMax"
	SlotBedrooms     SlotName = "bedrooms"
	SlotBathrooms    SlotName = "bathrooms"
	SlotCustomerName SlotName = "customerName"
	SlotPhone        SlotName = "phone"
	SlotEmail        SlotName = "email"
	SlotNotes        SlotName = "notes"
)

// SlotNames is the canonical slot order used for summaries.
var SlotNames = []SlotName{
	SlotArea, SlotProject, SlotUnitType,
	SlotBudgetMin, SlotBudgetMax, SlotSizeMin, SlotSizeMax,
	SlotBedrooms, SlotBathrooms,
	SlotCustomerName, SlotPhone, SlotEmail, SlotNotes,
}

// EntitySlots are resolved against the catalog, in resolution order.
var EntitySlots = []SlotName{SlotArea, SlotProject, SlotUnitType}

// IsEntity reports whether name is resolved against the catalog.
func (n SlotName) IsEntity() bool {
	return n == SlotArea || n == SlotProject || n == SlotUnitType
}

// SlotValue is a captured requirement. Entity slots carry the catalog's
// canonical name and id once Validated.
type SlotValue struct {
	Raw        string `json:"raw"`
	Canonical  string `json:"canonical"`
	ExternalID string `json:"externalId,omitempty"`
	Validated  bool   `json:"validated"`
}

// Display prefers the canonical form.
func (v SlotValue) Display() string {
	if v.Canonical != "" {
		return v.Canonical
	}
	return v.Raw
}

// Slots maps slot names to values; absence means unknown.
type Slots map[SlotName]SlotValue

// Has reports whether a non-empty value is stored for name.
func (s Slots) Has(name SlotName) bool {
	v, ok := s[name]
	return ok && strings.TrimSpace(v.Display()) != ""
}

// Value returns the display value for name, or "".
func (s Slots) Value(name SlotName) string {
	if !s.Has(name) {
		return ""
	}
	return s[name].Display()
}

// ID returns the catalog id stored for name, or "".
func (s Slots) ID(name SlotName) string {
	return s[name].ExternalID
}

// Float parses a numeric slot.
func (s Slots) Float(name SlotName) (float64, bool) {
	if !s.Has(name) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[name].Canonical, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Clone returns an independent copy.
func (s Slots) Clone() Slots {
	out := make(Slots, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Canonical flattens the slots to display strings.
func (s Slots) Canonical() map[string]string {
	out := make(map[string]string, len(s))
	for k, v := range s {
		if d := v.Display(); d != "" {
			out[string(k)] = d
		}
	}
	return out
}
