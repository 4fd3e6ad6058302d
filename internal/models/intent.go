package models

import "strings"

// Intent is the label attached to a user turn.
type Intent string

const (
	IntentGreeting           Intent = "greeting"
	IntentNewSearch          Intent = "new_search"
	IntentUpdateRequirements Intent = "update_requirements"
	IntentInquiry            Intent = "inquiry"
	IntentFollowUp           Intent = "follow_up"
	IntentConfirm            Intent = "confirm"
	IntentEdit               Intent = "edit"
	IntentCorrection         Intent = "correction"
	IntentCancel             Intent = "cancel"
	IntentUnknown            Intent = "unknown"
)

// AllIntents lists every label the classifier may return.
var AllIntents = []Intent{
	IntentGreeting,
	IntentNewSearch,
	IntentUpdateRequirements,
	IntentInquiry,
	IntentFollowUp,
	IntentConfirm,
	IntentEdit,
	IntentCorrection,
	IntentCancel,
	IntentUnknown,
}

// ParseIntent maps a classifier label onto an Intent. Anything outside the
// enumeration becomes IntentUnknown.
func ParseIntent(label string) Intent {
	l := Intent(strings.ToLower(strings.TrimSpace(label)))
	for _, known := range AllIntents {
		if l == known {
			return known
		}
	}
	return IntentUnknown
}
