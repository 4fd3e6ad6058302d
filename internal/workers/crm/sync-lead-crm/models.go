package syncleadcrm

import (
	"context"

	"leadbot/internal/common/zoho"
	"leadbot/internal/models"
)

// LeadUpserter is the part of the Zoho client the sync needs.
type LeadUpserter interface {
	UpsertLead(ctx context.Context, lead *zoho.Lead) (string, error)
}

type Input = models.FollowUpVariables

type Output struct {
	Synced      bool   `json:"crmSynced"`
	CRMLeadID   string `json:"crmLeadId,omitempty"`
	CRMProvider string `json:"crmProvider"`
	Message     string `json:"crmMessage,omitempty"`
}
