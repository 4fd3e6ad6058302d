// internal/workers/application/create-lead-record/handler.go
package createleadrecord

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"leadbot/internal/common/database"
	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/logger"
	"leadbot/internal/common/metrics"
	"leadbot/internal/models"
)

const (
	TaskType = "create-lead-record"

	uniqueViolation = "23505"
)

var (
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
)

type Handler struct {
	config  *Config
	db      *sql.DB
	starter ProcessStarter
	errors  *apperrors.ErrorHandler
	logger  logger.Logger
}

// NewHandler wires the lead sink. starter may be nil, which disables the
// follow-up process.
func NewHandler(config *Config, db *sql.DB, starter ProcessStarter, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		db:      db,
		starter: starter,
		errors:  apperrors.NewErrorHandler(l),
		logger:  l,
	}
}

// Handle lets a BPMN process record a lead directly.
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}
	id, err := h.CreateLead(ctx, input.Lead)
	if errors.Is(err, apperrors.ErrDuplicateLead) {
		return &Output{LeadID: id, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Output{LeadID: id, CreatedAt: time.Now().UTC().Format(time.RFC3339)}, nil
}

// CreateLead records req exactly once per idempotency key. A repeated key
// returns the existing lead id together with an error wrapping
// ErrDuplicateLead. An unknown area wraps ErrResourceNotFound.
func (h *Handler) CreateLead(ctx context.Context, req models.LeadRequest) (string, error) {
	if err := validate(req); err != nil {
		metrics.LeadsCreated.WithLabelValues("invalid").Inc()
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	var (
		leadID   string
		existing string
	)
	err := database.InTx(ctx, h.db, func(tx *sql.Tx) error {
		id, err := findLead(ctx, tx, req.IdempotencyKey)
		if err != nil {
			return err
		}
		if id != "" {
			existing = id
			return nil
		}

		var areaExists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM areas WHERE id = $1)`, req.AreaID).Scan(&areaExists); err != nil {
			return err
		}
		if !areaExists {
			return fmt.Errorf("%w: area %s", apperrors.ErrResourceNotFound, req.AreaID)
		}

		var customerID string
		err = tx.QueryRowContext(ctx, `
			INSERT INTO customers (id, phone, name, email)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (phone) DO UPDATE
			SET name = EXCLUDED.name, email = COALESCE(EXCLUDED.email, customers.email)
			RETURNING id`,
			uuid.New().String(), req.Phone, req.CustomerName, nullIfEmpty(req.Email),
		).Scan(&customerID)
		if err != nil {
			return err
		}

		requirements, err := json.Marshal(req)
		if err != nil {
			return err
		}
		leadID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO leads (
				id, idempotency_key, customer_id, session_key,
				area_id, project_id, unit_type_id, requirements, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			leadID, req.IdempotencyKey, customerID, req.SessionKey,
			req.AreaID, nullIfEmpty(req.ProjectID), nullIfEmpty(req.UnitTypeID), requirements, "new",
		)
		return err
	})

	switch {
	case err == nil && existing != "":
		return h.duplicate(existing)
	case err == nil:
	case errors.Is(err, apperrors.ErrResourceNotFound):
		metrics.LeadsCreated.WithLabelValues("area_not_found").Inc()
		h.logger.Warn("lead area no longer in catalog", map[string]interface{}{"areaId": req.AreaID})
		return "", err
	case isUniqueViolation(err):
		// A concurrent insert won the race for this key.
		id, ferr := findLead(ctx, h.db, req.IdempotencyKey)
		if ferr == nil && id != "" {
			return h.duplicate(id)
		}
		fallthrough
	default:
		metrics.LeadsCreated.WithLabelValues("failed").Inc()
		h.logger.Error("lead insert failed", map[string]interface{}{
			"idempotencyKey": req.IdempotencyKey,
			"error":          err.Error(),
		})
		return "", fmt.Errorf("%w: %w: %v", apperrors.ErrExternalServiceUnavailable, ErrDatabaseInsertFailed, err)
	}

	metrics.LeadsCreated.WithLabelValues("created").Inc()
	h.audit(ctx, leadID, req)
	h.logger.Info("lead record created", map[string]interface{}{
		"leadId":     leadID,
		"sessionKey": req.SessionKey,
		"areaId":     req.AreaID,
	})
	h.startFollowUp(ctx, leadID, req)
	return leadID, nil
}

func (h *Handler) duplicate(id string) (string, error) {
	metrics.LeadsCreated.WithLabelValues("duplicate").Inc()
	h.logger.Info("lead already recorded", map[string]interface{}{"leadId": id})
	return id, fmt.Errorf("%w: %s", apperrors.ErrDuplicateLead, id)
}

// audit is best effort; the lead row is already committed.
func (h *Handler) audit(ctx context.Context, leadID string, req models.LeadRequest) {
	details, err := json.Marshal(map[string]interface{}{
		"sessionKey":     req.SessionKey,
		"idempotencyKey": req.IdempotencyKey,
		"areaId":         req.AreaID,
	})
	if err != nil {
		details = []byte("{}")
	}
	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, entity_type, entity_id, action, metadata)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), "lead", leadID, "lead_created", details,
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":  err.Error(),
			"leadId": leadID,
		})
	}
}

func (h *Handler) startFollowUp(ctx context.Context, leadID string, req models.LeadRequest) {
	if h.starter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.config.FollowUpTimeout)
	defer cancel()

	key, err := h.starter.StartProcess(ctx, h.config.FollowUpProcessID, models.NewFollowUpVariables(leadID, req))
	if err != nil {
		h.logger.Warn("lead follow-up not started", map[string]interface{}{
			"leadId": leadID,
			"error":  err.Error(),
		})
		return
	}
	h.logger.Debug("lead follow-up started", map[string]interface{}{
		"leadId":             leadID,
		"processInstanceKey": key,
	})
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

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func findLead(ctx context.Context, q queryRower, idempotencyKey string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM leads WHERE idempotency_key = $1`, idempotencyKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func validate(req models.LeadRequest) error {
	var missing []string
	if req.IdempotencyKey == "" {
		missing = append(missing, "idempotencyKey")
	}
	if req.AreaID == "" {
		missing = append(missing, "areaId")
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		missing = append(missing, "customerName")
	}
	if strings.TrimSpace(req.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return apperrors.NewInvalidLeadPayloadError("missing " + strings.Join(missing, ", "))
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
