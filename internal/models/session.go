package models

import (
	"fmt"
	"time"
)

// LeadStatus tracks what happened to the lead of the current request.
type LeadStatus string

const (
	LeadStatusNone         LeadStatus = ""
	LeadStatusCreated      LeadStatus = "created"
	LeadStatusPendingRetry LeadStatus = "pending_retry"
	LeadStatusAreaNotFound LeadStatus = "area_not_found"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of the conversation.
type Turn struct {
	Role   string    `json:"role"`
	Text   string    `json:"text"`
	Intent Intent    `json:"intent,omitempty"`
	At     time.Time `json:"at"`
}

// PendingCorrection is an ambiguous entity mention awaiting the user's pick.
type PendingCorrection struct {
	Field          SlotName `json:"field"`
	Original       string   `json:"original"`
	Suggested      string   `json:"suggested,omitempty"`
	Alternatives   []string `json:"alternatives"`
	Confidence     float64  `json:"confidence"`
	ParentFiltered bool     `json:"parentFiltered"`
}

// ConversationSession is the persisted state of one conversation.
type ConversationSession struct {
	SessionKey             string             `json:"sessionKey"`
	Slots                  Slots              `json:"slots"`
	IsComplete             bool               `json:"isComplete"`
	Confirmed              bool               `json:"confirmed"`
	AwaitingConfirmation   bool               `json:"awaitingConfirmation"`
	ConfirmationAttempt    int                `json:"confirmationAttempt"`
	ConfirmPendingContact  bool               `json:"confirmPendingContact"`
	AwaitingNameCorrection bool               `json:"awaitingNameCorrection"`
	PendingCorrection      *PendingCorrection `json:"pendingCorrection,omitempty"`
	ProjectSuggested       bool               `json:"projectSuggested"`
	LastIntent             Intent             `json:"lastIntent,omitempty"`
	MissingFields          []string           `json:"missingFields"`
	History                []Turn             `json:"history"`
	LeadID                 string             `json:"leadId,omitempty"`
	LeadStatus             LeadStatus         `json:"leadStatus,omitempty"`
	LeadEpoch              int                `json:"leadEpoch"`
	Version                int64              `json:"version"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

// NewSession returns the default state for a key never seen before.
func NewSession(key string, now time.Time) *ConversationSession {
	return &ConversationSession{
		SessionKey:    key,
		Slots:         Slots{},
		MissingFields: []string{},
		History:       []Turn{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// InConfirmationPhase is true while a complete request awaits the user's yes.
func (s *ConversationSession) InConfirmationPhase() bool {
	return s.AwaitingConfirmation || (s.IsComplete && !s.Confirmed)
}

// IdempotencyKey identifies the request the next lead belongs to.
func (s *ConversationSession) IdempotencyKey() string {
	return fmt.Sprintf("%s:%d", s.SessionKey, s.LeadEpoch)
}

// AppendTurns adds turns and keeps only the newest limit entries.
func (s *ConversationSession) AppendTurns(limit int, turns ...Turn) {
	s.History = append(s.History, turns...)
	if limit > 0 && len(s.History) > limit {
		s.History = append([]Turn(nil), s.History[len(s.History)-limit:]...)
	}
}

// Clone deep-copies the session so stages can work on a private copy.
func (s *ConversationSession) Clone() *ConversationSession {
	c := *s
	c.Slots = s.Slots.Clone()
	if c.Slots == nil {
		c.Slots = Slots{}
	}
	c.MissingFields = append([]string{}, s.MissingFields...)
	c.History = append([]Turn{}, s.History...)
	if s.PendingCorrection != nil {
		pc := *s.PendingCorrection
		pc.Alternatives = append([]string(nil), s.PendingCorrection.Alternatives...)
		c.PendingCorrection = &pc
	}
	return &c
}
