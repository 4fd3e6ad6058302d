package models

// LeadRequest is the record handed to the lead sink once a request is
// confirmed.
type LeadRequest struct {
	IdempotencyKey string  `json:"idempotencyKey"`
	SessionKey     string  `json:"sessionKey"`
	CustomerName   string  `json:"customerName"`
	Phone          string  `json:"phone"`
	Email          string  `json:"email,omitempty"`
	AreaID         string  `json:"areaId"`
	AreaName       string  `json:"areaName"`
	ProjectID      string  `json:"projectId,omitempty"`
	ProjectName    string  `json:"projectName,omitempty"`
	UnitTypeID     string  `json:"unitTypeId,omitempty"`
	UnitTypeName   string  `json:"unitTypeName,omitempty"`
	BudgetMin      float64 `json:"budgetMin,omitempty"`
	BudgetMax      float64 `json:"budgetMax,omitempty"`
	SizeMin        float64 `json:"sizeMin,omitempty"`
	SizeMax        float64 `json:"sizeMax,omitempty"`
	Bedrooms       int     `json:"bedrooms,omitempty"`
	Bathrooms      int     `json:"bathrooms,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

// LeadRequestFromSession snapshots the confirmed requirements. phone is the
// resolved contact number, which may come from the session key.
func LeadRequestFromSession(s *ConversationSession, phone string) LeadRequest {
	req := LeadRequest{
		IdempotencyKey: s.IdempotencyKey(),
		SessionKey:     s.SessionKey,
		CustomerName:   s.Slots.Value(SlotCustomerName),
		Phone:          phone,
		Email:          s.Slots.Value(SlotEmail),
		AreaID:         s.Slots.ID(SlotArea),
		AreaName:       s.Slots.Value(SlotArea),
		ProjectID:      s.Slots.ID(SlotProject),
		ProjectName:    s.Slots.Value(SlotProject),
		UnitTypeID:     s.Slots.ID(SlotUnitType),
		UnitTypeName:   s.Slots.Value(SlotUnitType),
		Notes:          s.Slots.Value(SlotNotes),
	}
	req.BudgetMin, _ = s.Slots.Float(SlotBudgetMin)
	req.BudgetMax, _ = s.Slots.Float(SlotBudgetMax)
	req.SizeMin, _ = s.Slots.Float(SlotSizeMin)
	req.SizeMax, _ = s.Slots.Float(SlotSizeMax)
	if v, ok := s.Slots.Float(SlotBedrooms); ok {
		req.Bedrooms = int(v)
	}
	if v, ok := s.Slots.Float(SlotBathrooms); ok {
		req.Bathrooms = int(v)
	}
	return req
}

// FollowUpVariables seed the lead follow-up process.
type FollowUpVariables struct {
	LeadID       string  `json:"leadId"`
	CustomerName string  `json:"customerName"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email,omitempty"`
	AreaName     string  `json:"areaName"`
	ProjectName  string  `json:"projectName,omitempty"`
	UnitTypeName string  `json:"unitTypeName,omitempty"`
	BudgetMax    float64 `json:"budgetMax,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

func NewFollowUpVariables(leadID string, req LeadRequest) FollowUpVariables {
	return FollowUpVariables{
		LeadID:       leadID,
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Email:        req.Email,
		AreaName:     req.AreaName,
		ProjectName:  req.ProjectName,
		UnitTypeName: req.UnitTypeName,
		BudgetMax:    req.BudgetMax,
		Notes:        req.Notes,
	}
}
