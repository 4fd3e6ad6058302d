// internal/workers/application/send-notification/handler.go
package sendnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/logger"
	"leadbot/internal/models"
)

const (
	TaskType = "send-notification"

	emailSubject = "New lead: {{customerName}} ({{areaName}})"
	emailBody    = `A new lead was confirmed by the chatbot.

Lead:      {{leadId}}
Name:      {{customerName}}
Phone:     {{phone}}
Email:     {{email}}
Area:      {{areaName}}
Project:   {{projectName}}
Unit type: {{unitTypeName}}
Budget:    {{budgetMax}}
Notes:     {{notes}}
`
	smsBody = "New lead {{customerName}} {{phone}} - {{areaName}} {{projectName}}"
)

type Handler struct {
	config *Config
	email  EmailSender
	sms    SMSSender
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

// NewHandler wires the notifier. Either sender may be nil, which disables
// that channel.
func NewHandler(config *Config, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		email:  email,
		sms:    sms,
		errors: apperrors.NewErrorHandler(l),
		logger: l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(context.Background(), client, job, apperrors.NewInvalidLeadPayloadError(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}
	h.completeJob(client, job, output)
}

// Execute alerts the sales team about a new lead on every enabled channel.
// A channel failure fails the whole job so the broker retries it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.LeadID == "" {
		return nil, apperrors.NewInvalidLeadPayloadError("leadId is required")
	}

	data := templateData(input)
	out := &Output{Status: StatusDisabled}
	record := func(channel, status string) {
		out.Notifications = append(out.Notifications, models.LeadNotification{
			LeadID:       input.LeadID,
			CustomerName: input.CustomerName,
			Phone:        input.Phone,
			Area:         input.AreaName,
			Project:      input.ProjectName,
			UnitType:     input.UnitTypeName,
			BudgetMax:    int64(math.Round(input.BudgetMax)),
			Channel:      channel,
			Status:       status,
			SentAt:       time.Now().UTC().Format(time.RFC3339),
		})
		if status == StatusSent {
			out.Status = StatusSent
		}
	}

	if h.config.EmailEnabled && h.email != nil && len(h.config.SalesEmails) > 0 {
		subject := renderTemplate(emailSubject, data)
		body := renderTemplate(emailBody, data)
		if _, err := h.email.SendText(ctx, h.config.SalesEmails, subject, body); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"error":  err.Error(),
				"leadId": input.LeadID,
			})
			return nil, apperrors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		record(ChannelEmail, StatusSent)
	} else {
		record(ChannelEmail, StatusDisabled)
	}

	if h.config.SMSEnabled && h.sms != nil && h.config.SalesPhone != "" {
		if _, err := h.sms.SendSMS(ctx, h.config.SalesPhone, renderTemplate(smsBody, data)); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"error":  err.Error(),
				"leadId": input.LeadID,
			})
			return nil, apperrors.NewNotificationSendFailedError(ChannelSMS, err)
		}
		record(ChannelSMS, StatusSent)
	} else {
		record(ChannelSMS, StatusDisabled)
	}

	h.logger.Info("lead notification processed", map[string]interface{}{
		"leadId": input.LeadID,
		"status": out.Status,
	})
	return out, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func templateData(in *Input) map[string]string {
	budget := ""
	if in.BudgetMax > 0 {
		budget = fmt.Sprintf("%.0f", in.BudgetMax)
	}
	return map[string]string{
		"leadId":       in.LeadID,
		"customerName": in.CustomerName,
		"phone":        in.Phone,
		"email":        in.Email,
		"areaName":     in.AreaName,
		"projectName":  in.ProjectName,
		"unitTypeName": in.UnitTypeName,
		"budgetMax":    budget,
		"notes":        in.Notes,
	}
}

// renderTemplate substitutes {{key}} placeholders and drops unknown ones.
func renderTemplate(tmpl string, data map[string]string) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return strings.TrimSpace(result)
}
