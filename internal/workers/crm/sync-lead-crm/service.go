package syncleadcrm

import (
	"context"
	"math"
	"strings"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/logger"
	"leadbot/internal/common/zoho"
)

const providerZoho = "zoho"

type Service struct {
	config *Config
	crm    LeadUpserter
	logger logger.Logger
}

// NewService builds the sync service. A nil crm leaves the sync disabled.
func NewService(config *Config, crm LeadUpserter, log logger.Logger) *Service {
	return &Service{config: config, crm: crm, logger: log}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	if s.crm == nil {
		return &Output{
			CRMProvider: providerZoho,
			Message:     "CRM client not configured",
		}, nil
	}

	lead := toZohoLead(input, s.config.LeadSource)
	id, err := s.crm.UpsertLead(ctx, lead)
	if err != nil {
		s.logger.Error("CRM upsert failed", map[string]interface{}{
			"leadId": input.LeadID,
			"error":  err.Error(),
		})
		return nil, apperrors.NewCRMSyncFailedError(err)
	}

	s.logger.Info("lead synced to CRM", map[string]interface{}{
		"leadId":    input.LeadID,
		"crmLeadId": id,
	})
	return &Output{
		Synced:      true,
		CRMLeadID:   id,
		CRMProvider: providerZoho,
	}, nil
}

// toZohoLead maps a confirmed lead onto the Zoho Leads module. Zoho requires
// Last_Name, so a single-word name goes there.
func toZohoLead(in *Input, source string) *zoho.Lead {
	lead := &zoho.Lead{
		Phone:       in.Phone,
		Email:       in.Email,
		LeadSource:  source,
		Description: in.Notes,
		Area:        in.AreaName,
		Project:     in.ProjectName,
		UnitType:    in.UnitTypeName,
		Budget:      int64(math.Round(in.BudgetMax)),
		ExternalRef: in.LeadID,
	}

	parts := strings.Fields(in.CustomerName)
	switch len(parts) {
	case 0:
		lead.LastName = in.Phone
	case 1:
		lead.LastName = parts[0]
	default:
		lead.FirstName = parts[0]
		lead.LastName = strings.Join(parts[1:], " ")
	}
	return lead
}
