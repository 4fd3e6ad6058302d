// internal/workers/application/create-lead-record/models.go
package createleadrecord

import (
	"context"

	"leadbot/internal/models"
)

// ProcessStarter starts a BPMN process instance.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

type Input struct {
	Lead models.LeadRequest `json:"lead"`
}

type Output struct {
	LeadID    string `json:"leadId"`
	Duplicate bool   `json:"duplicate"`
	CreatedAt string `json:"createdAt,omitempty"`
}
