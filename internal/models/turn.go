package models

// SuggestedAction is a quick-reply button.
type SuggestedAction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// TurnResponse is returned to the channel after every message.
type TurnResponse struct {
	ResponseText     string            `json:"responseText"`
	Intent           Intent            `json:"intent"`
	Slots            map[string]string `json:"slots"`
	IsComplete       bool              `json:"isComplete"`
	SuggestedActions []SuggestedAction `json:"suggestedActions"`
	LeadID           string            `json:"leadId,omitempty"`
	ErrorCode        string            `json:"errorCode,omitempty"`
}
