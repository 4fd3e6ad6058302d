// internal/models/notification.go
package models

// LeadNotification is the payload of the sales-team alert sent for a new lead.
type LeadNotification struct {
	LeadID       string `json:"leadId"`
	CustomerName string `json:"customerName"`
	Phone        string `json:"phone"`
	Area         string `json:"area"`
	Project      string `json:"project,omitempty"`
	UnitType     string `json:"unitType,omitempty"`
	BudgetMax    int64  `json:"budgetMax,omitempty"`
	Channel      string `json:"channel"` // "email", "sms"
	Status       string `json:"status"`  // "sent", "failed", "disabled"
	SentAt       string `json:"sentAt"`
}
