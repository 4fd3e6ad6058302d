package models

// SessionDelta is a partial update produced by one pipeline stage. Nil
// pointers and empty collections leave the session untouched.
type SessionDelta struct {
	ResetSlots bool
	ClearSlots []SlotName
	Slots      Slots

	IsComplete             *bool
	Confirmed              *bool
	AwaitingConfirmation   *bool
	ConfirmationAttempt    *int
	ConfirmPendingContact  *bool
	AwaitingNameCorrection *bool
	ProjectSuggested       *bool
	LastIntent             *Intent

	ClearPendingCorrection bool
	PendingCorrection      *PendingCorrection

	MissingFields *[]string

	LeadID     *string
	LeadStatus *LeadStatus
	LeadEpoch  *int
}

// Apply merges d into s in a fixed order: slot resets, slot clears, slot
// overlay, then scalar fields.
func (d SessionDelta) Apply(s *ConversationSession) {
	if d.ResetSlots {
		s.Slots = Slots{}
	}
	if s.Slots == nil {
		s.Slots = Slots{}
	}
	for _, name := range d.ClearSlots {
		delete(s.Slots, name)
	}
	for name, v := range d.Slots {
		s.Slots[name] = v
	}

	setBool(&s.IsComplete, d.IsComplete)
	setBool(&s.Confirmed, d.Confirmed)
	setBool(&s.AwaitingConfirmation, d.AwaitingConfirmation)
	setBool(&s.ConfirmPendingContact, d.ConfirmPendingContact)
	setBool(&s.AwaitingNameCorrection, d.AwaitingNameCorrection)
	setBool(&s.ProjectSuggested, d.ProjectSuggested)
	if d.ConfirmationAttempt != nil {
		s.ConfirmationAttempt = *d.ConfirmationAttempt
	}
	if d.LastIntent != nil {
		s.LastIntent = *d.LastIntent
	}

	if d.ClearPendingCorrection {
		s.PendingCorrection = nil
	}
	if d.PendingCorrection != nil {
		pc := *d.PendingCorrection
		s.PendingCorrection = &pc
	}

	if d.MissingFields != nil {
		s.MissingFields = append([]string{}, (*d.MissingFields)...)
	}

	if d.LeadID != nil {
		s.LeadID = *d.LeadID
	}
	if d.LeadStatus != nil {
		s.LeadStatus = *d.LeadStatus
	}
	if d.LeadEpoch != nil {
		s.LeadEpoch = *d.LeadEpoch
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Bool returns a pointer to b, for building deltas.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i, for building deltas.
func Int(i int) *int { return &i }

// String returns a pointer to s, for building deltas.
func String(s string) *string { return &s }

// IntentPtr returns a pointer to i, for building deltas.
func IntentPtr(i Intent) *Intent { return &i }

// Status returns a pointer to st, for building deltas.
func Status(st LeadStatus) *LeadStatus { return &st }

// Fields returns a pointer to a copy of f, for building deltas.
func Fields(f ...string) *[]string {
	out := append([]string{}, f...)
	return &out
}
