package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	assert.Equal(t, IntentConfirm, ParseIntent(" Confirm "))
	assert.Equal(t, IntentNewSearch, ParseIntent("new_search"))
	assert.Equal(t, IntentUnknown, ParseIntent("buy_now"))
	assert.Equal(t, IntentUnknown, ParseIntent(""))
}

func TestSessionDelta_ApplyOrder(t *testing.T) {
	s := NewSession("201000000000", time.Unix(0, 0))
	s.Slots[SlotArea] = SlotValue{Raw: "zayed", Canonical: "Sheikh Zayed", ExternalID: "a1", Validated: true}
	s.Slots[SlotBudgetMax] = SlotValue{Raw: "5000000", Canonical: "5000000", Validated: true}

	d := SessionDelta{
		ClearSlots: []SlotName{SlotBudgetMax},
		Slots: Slots{
			SlotUnitType: {Raw: "شقة", Canonical: "Apartment", ExternalID: "u1", Validated: true},
		},
		IsComplete:          Bool(true),
		ConfirmationAttempt: Int(2),
		PendingCorrection:   &PendingCorrection{Field: SlotProject, Alternatives: []string{"Palm Hills"}},
		MissingFields:       Fields(),
		LeadStatus:          Status(LeadStatusPendingRetry),
	}
	d.Apply(s)

	assert.True(t, s.Slots.Has(SlotArea))
	assert.False(t, s.Slots.Has(SlotBudgetMax))
	assert.Equal(t, "Apartment", s.Slots.Value(SlotUnitType))
	assert.True(t, s.IsComplete)
	assert.Equal(t, 2, s.ConfirmationAttempt)
	require.NotNil(t, s.PendingCorrection)
	assert.Equal(t, SlotProject, s.PendingCorrection.Field)
	assert.Empty(t, s.MissingFields)
	assert.Equal(t, LeadStatusPendingRetry, s.LeadStatus)

	SessionDelta{ResetSlots: true, ClearPendingCorrection: true}.Apply(s)
	assert.Empty(t, s.Slots)
	assert.Nil(t, s.PendingCorrection)
	assert.True(t, s.IsComplete, "untouched fields keep their value")
}

func TestSession_CloneIsIndependent(t *testing.T) {
	s := NewSession("k", time.Now())
	s.Slots[SlotArea] = SlotValue{Raw: "x", Canonical: "X"}
	s.PendingCorrection = &PendingCorrection{Alternatives: []string{"a"}}
	s.History = []Turn{{Role: RoleUser, Text: "hi"}}

	c := s.Clone()
	c.Slots[SlotProject] = SlotValue{Raw: "p"}
	c.PendingCorrection.Alternatives[0] = "b"
	c.History[0].Text = "changed"

	assert.False(t, s.Slots.Has(SlotProject))
	assert.Equal(t, "a", s.PendingCorrection.Alternatives[0])
	assert.Equal(t, "hi", s.History[0].Text)
}

func TestSession_AppendTurnsKeepsNewest(t *testing.T) {
	s := NewSession("k", time.Now())
	for i := 0; i < 6; i++ {
		s.AppendTurns(4, Turn{Role: RoleUser, Text: string(rune('a' + i))})
	}
	require.Len(t, s.History, 4)
	assert.Equal(t, "c", s.History[0].Text)
	assert.Equal(t, "f", s.History[3].Text)
}

func TestSession_Phases(t *testing.T) {
	s := NewSession("k", time.Now())
	assert.False(t, s.InConfirmationPhase())
	s.IsComplete = true
	assert.True(t, s.InConfirmationPhase())
	s.Confirmed = true
	assert.False(t, s.InConfirmationPhase())

	s.LeadEpoch = 3
	assert.Equal(t, "k:3", s.IdempotencyKey())
}

func TestExtractionValues(t *testing.T) {
	area := " Zayed "
	budget := 5000000.0
	beds := 0
	e := &Extraction{Area: &area, BudgetMax: &budget, Bedrooms: &beds}

	v := e.Values()
	assert.Equal(t, "Zayed", v[SlotArea])
	assert.Equal(t, "5000000", v[SlotBudgetMax])
	_, ok := v[SlotBedrooms]
	assert.False(t, ok)
	assert.Empty(t, (*Extraction)(nil).Values())
}

func TestLeadRequestFromSession(t *testing.T) {
	s := NewSession("201000000000", time.Now())
	s.LeadEpoch = 1
	s.Slots[SlotCustomerName] = SlotValue{Raw: "Omar", Canonical: "Omar", Validated: true}
	s.Slots[SlotArea] = SlotValue{Raw: "zayed", Canonical: "Sheikh Zayed", ExternalID: "a1", Validated: true}
	s.Slots[SlotBedrooms] = SlotValue{Raw: "3", Canonical: "3", Validated: true}

	req := LeadRequestFromSession(s, "201000000000")
	assert.Equal(t, "201000000000:1", req.IdempotencyKey)
	assert.Equal(t, "a1", req.AreaID)
	assert.Equal(t, "Sheikh Zayed", req.AreaName)
	assert.Equal(t, 3, req.Bedrooms)

	c := UnitCriteriaFromSlots(s.Slots)
	assert.Equal(t, "a1", c.AreaID)
	assert.Equal(t, 3, c.Bedrooms)
}
