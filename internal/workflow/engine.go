// Package workflow runs one conversation turn through the dialogue pipeline.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/logger"
	"leadbot/internal/common/metrics"
	"leadbot/internal/common/observability"
	"leadbot/internal/models"
	classifyintent "leadbot/internal/workers/ai-conversation/classify-intent"
	confirmrequirements "leadbot/internal/workers/conversation/confirm-requirements"
	handleinquiry "leadbot/internal/workers/conversation/handle-inquiry"
	mergeslots "leadbot/internal/workers/conversation/merge-slots"
	refineintent "leadbot/internal/workers/conversation/refine-intent"
)

var ErrEmptySessionKey = errors.New("EMPTY_SESSION_KEY")

// Deps are the collaborators of the engine. Pending, Turns and Obs are
// optional.
type Deps struct {
	Store      SessionStore
	Pending    PendingSet
	Turns      TurnLog
	Classifier Classifier
	Extractor  Extractor
	Areas      AreaLister
	Leads      LeadSink

	Refiner *refineintent.Handler
	Slots   *mergeslots.Handler
	Confirm *confirmrequirements.Handler
	Inquiry *handleinquiry.Handler

	Obs *observability.Observability
}

// Engine owns conversation state between turns. Turns for one session key
// run one at a time; different keys run concurrently.
type Engine struct {
	config *Config
	deps   Deps
	locks  *KeyLock
	logger logger.Logger
	now    func() time.Time
}

func NewEngine(config *Config, deps Deps, log logger.Logger) (*Engine, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("workflow: session store is required")
	case deps.Classifier == nil, deps.Extractor == nil:
		return nil, fmt.Errorf("workflow: classifier and extractor are required")
	case deps.Areas == nil, deps.Leads == nil:
		return nil, fmt.Errorf("workflow: catalog and lead sink are required")
	case deps.Refiner == nil, deps.Slots == nil, deps.Confirm == nil, deps.Inquiry == nil:
		return nil, fmt.Errorf("workflow: all conversation handlers are required")
	}
	return &Engine{
		config: config,
		deps:   deps,
		locks:  NewKeyLock(),
		logger: log.WithFields(map[string]interface{}{"component": "workflow"}),
		now:    time.Now,
	}, nil
}

// HandleMessage runs one turn. Only a corrupted session, an empty key, a
// lock timeout or a cancelled ctx return an error; every other failure
// becomes an apology in the response. A cancelled turn saves nothing.
func (e *Engine) HandleMessage(ctx context.Context, key, text string) (*models.TurnResponse, error) {
	start := e.now()
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmptySessionKey
	}
	t := &turn{key: key, message: strings.TrimSpace(text), intent: models.IntentUnknown}

	ctx, span := e.deps.Obs.StartSpan(ctx, "turn", attribute.String("session.key", key))
	defer span.End()

	lockCtx, cancel := context.WithTimeout(ctx, e.config.LockTimeout)
	unlock, err := e.locks.Lock(lockCtx, key)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("acquire session %s: %w", key, err)
	}
	defer unlock()

	stored, err := e.loadSession(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionCorrupted) {
			e.logger.Error("session corrupted", map[string]interface{}{
				"sessionKey": key,
				"error":      err.Error(),
			})
			e.observe(t, start, "corrupted")
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.fail(err)
		resp := e.compose(t, models.NewSession(key, start))
		e.observe(t, start, "error")
		return resp, nil
	}

	work := stored.Clone()
	e.run(ctx, t, work)

	final := work
	if t.fatal != nil {
		// Nothing downstream of a failure may change slots or flags.
		final = stored.Clone()
		e.logger.Warn("turn failed, state kept", map[string]interface{}{
			"sessionKey": key,
			"errorCode":  t.errorCode,
			"error":      t.fatal.Error(),
		})
	}
	resp := e.compose(t, final)

	if err := ctx.Err(); err != nil {
		e.logger.Warn("turn cancelled, session not saved", map[string]interface{}{
			"sessionKey": key,
		})
		return nil, err
	}

	e.commit(ctx, t, final, start)
	e.observe(t, start, outcomeOf(t))
	return resp, nil
}

// run executes the pipeline nodes in order. Each node returns a delta that
// is applied before the next node runs.
func (e *Engine) run(ctx context.Context, t *turn, s *models.ConversationSession) {
	e.stage(ctx, t, s, "retrieveContext", e.retrieveContext)
	e.stage(ctx, t, s, "classifyIntent", e.classifyIntent)
	e.stage(ctx, t, s, "refineIntent", e.refineIntent)
	e.stage(ctx, t, s, "cancel", e.cancel)
	e.stage(ctx, t, s, "restart", e.restart)
	e.stage(ctx, t, s, "extractSlots", e.extractSlots)
	e.stage(ctx, t, s, "mergeSlots", e.mergeSlots)
	e.stage(ctx, t, s, "resolveEntities", e.resolveEntities)

	// branch A
	e.stage(ctx, t, s, "emitCorrectionPrompt", e.correctionPrompt)
	e.stage(ctx, t, s, "handleInquiry", e.handleInquiry)
	e.stage(ctx, t, s, "greeting", e.greeting)
	e.stage(ctx, t, s, "leadStatus", e.leadStatus)

	// branch B
	e.stage(ctx, t, s, "planCompleteness", e.planCompleteness)
	e.stage(ctx, t, s, "runConfirmation", e.runConfirmation)
	e.stage(ctx, t, s, "createLead", e.createLead)
}

type node func(ctx context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error)

func (e *Engine) stage(ctx context.Context, t *turn, s *models.ConversationSession, name string, fn node) {
	if t.fatal != nil || t.done {
		return
	}
	ctx, span := e.deps.Obs.StartSpan(ctx, name)
	defer span.End()

	start := time.Now()
	delta, err := fn(ctx, t, s)
	e.deps.Obs.RecordStage(ctx, name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		t.fail(err)
		return
	}
	delta.Apply(s)
}

func (t *turn) fail(err error) {
	t.fatal = err
	t.errorCode = string(apperrors.CodeOf(err))
}

func (t *turn) respond(text string, actions []models.SuggestedAction) {
	t.text = text
	t.actions = actions
	t.done = true
}

func (e *Engine) loadSession(ctx context.Context, key string) (*models.ConversationSession, error) {
	ctx, span := e.deps.Obs.StartSpan(ctx, "loadSession")
	defer span.End()

	sctx, cancel := context.WithTimeout(ctx, e.config.SessionTimeout)
	defer cancel()
	return e.deps.Store.Load(sctx, key)
}

// ==========================
// Pipeline nodes
// ==========================

func (e *Engine) retrieveContext(ctx context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	t.history = s.History
	if len(t.history) > 0 || e.deps.Turns == nil {
		return models.SessionDelta{}, nil
	}

	lctx, cancel := context.WithTimeout(ctx, e.config.TurnLogTimeout)
	defer cancel()
	turns, err := e.deps.Turns.Recent(lctx, t.key, e.config.ContextTurns)
	if err != nil {
		e.logger.Warn("turn log unavailable, continuing without history", map[string]interface{}{
			"sessionKey": t.key,
			"error":      err.Error(),
		})
		return models.SessionDelta{}, nil
	}
	t.history = turns
	return models.SessionDelta{}, nil
}

func (e *Engine) classifyIntent(ctx context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	prompt := e.deps.Classifier.BuildPrompt(&classifyintent.Input{
		Message: t.message,
		Hint:    refineintent.WorkflowHint(s),
		History: t.history,
	})
	intent, err := e.deps.Classifier.Classify(ctx, prompt)
	if err != nil {
		return models.SessionDelta{}, err
	}
	t.intent = intent
	return models.SessionDelta{}, nil
}

func (e *Engine) refineIntent(_ context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	t.intent = e.deps.Refiner.Refine(t.intent, refineintent.PhaseOf(s), t.message)
	return models.SessionDelta{LastIntent: models.IntentPtr(t.intent)}, nil
}

func (e *Engine) cancel(_ context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	if t.intent != models.IntentCancel {
		return models.SessionDelta{}, nil
	}
	delta, prompt := confirmrequirements.Cancel(s)
	t.respond(prompt, nil)
	e.logger.Info("request cancelled", map[string]interface{}{
		"sessionKey": t.key,
		"leadEpoch":  s.LeadEpoch + 1,
	})
	return delta, nil
}

// restart opens a new request once the previous one produced a lead.
func (e *Engine) restart(_ context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	if s.LeadID == "" {
		return models.SessionDelta{}, nil
	}
	if t.intent != models.IntentNewSearch && t.intent != models.IntentUpdateRequirements {
		return models.SessionDelta{}, nil
	}
	e.logger.Info("starting new request after lead", map[string]interface{}{
		"sessionKey":   t.key,
		"previousLead": s.LeadID,
	})
	return confirmrequirements.Restart(s), nil
}

func (e *Engine) extractSlots(ctx context.Context, t *turn, _ *models.ConversationSession) (models.SessionDelta, error) {
	turns := make([]string, 0, len(t.history))
	for _, h := range t.history {
		turns = append(turns, h.Role+": "+h.Text)
	}

	ext, err := e.deps.Extractor.Extract(ctx, t.message, turns)
	switch {
	case err == nil:
		t.extraction = ext
	case errors.Is(err, apperrors.ErrMalformedExtraction):
		e.logger.Warn("extraction discarded", map[string]interface{}{
			"sessionKey": t.key,
			"error":      err.Error(),
		})
		t.errorCode = string(apperrors.ErrCodeMalformedExtraction)
		t.extraction = &models.Extraction{}
	default:
		return models.SessionDelta{}, err
	}
	return models.SessionDelta{}, nil
}

func (e *Engine) mergeSlots(_ context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	merged, mentions := e.deps.Slots.Merge(s, t.extraction)
	t.mentions = mergeslots.ApplyCorrection(s, t.intent, t.message, mentions)
	return merged, nil
}

func (e *Engine) resolveEntities(ctx context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	resolved, err := e.deps.Slots.ResolvePending(ctx, s, t.mentions)
	if err != nil {
		return models.SessionDelta{}, err
	}
	_, t.areaResolved = resolved.Slots[models.SlotArea]
	return resolved, nil
}

func (e *Engine) correctionPrompt(_ context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	if !s.AwaitingNameCorrection || s.PendingCorrection == nil {
		return models.SessionDelta{}, nil
	}
	prompt, actions := e.deps.Slots.CorrectionPrompt(s)
	t.respond(prompt, actions)
	return models.SessionDelta{}, nil
}

func (e *Engine) handleInquiry(ctx context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	if t.intent != models.IntentInquiry {
		return models.SessionDelta{}, nil
	}
	out, err := e.deps.Inquiry.Answer(ctx, s, t.message)
	if err != nil {
		return models.SessionDelta{}, err
	}
	t.respond(out.Text, out.Actions)
	return models.SessionDelta{}, nil
}

// greeting answers a bare hello with the area list. A greeting sent after
// requirements were collected falls through to planning.
func (e *Engine) greeting(ctx context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	if t.intent != models.IntentGreeting || len(mergeslots.MissingFields(s.Slots)) < 2 {
		return models.SessionDelta{}, nil
	}
	areas, err := e.listAreas(ctx)
	if err != nil {
		return models.SessionDelta{}, err
	}
	if n := e.config.GreetingAreas; n > 0 && len(areas) > n {
		areas = areas[:n]
	}
	t.respond(greeting(areas), areaActions(areas))
	return models.SessionDelta{
		IsComplete:    models.Bool(false),
		MissingFields: models.Fields(mergeslots.MissingFields(s.Slots)...),
	}, nil
}

// leadStatus short-circuits turns for a request whose lead is already
// recorded or queued for retry.
func (e *Engine) leadStatus(_ context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	if !s.Confirmed {
		return models.SessionDelta{}, nil
	}
	switch {
	case s.LeadID != "":
		t.respond(fmt.Sprintf(leadExistsText, s.LeadID), nil)
	case s.LeadStatus == models.LeadStatusPendingRetry:
		t.respond(leadPendingText, nil)
	}
	return models.SessionDelta{}, nil
}

func (e *Engine) planCompleteness(ctx context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	delta, plan, err := e.deps.Slots.Plan(ctx, s)
	if err != nil {
		return models.SessionDelta{}, err
	}
	if plan.Step != mergeslots.StepComplete {
		t.respond(plan.Prompt, plan.Actions)
	}
	return delta, nil
}

func (e *Engine) runConfirmation(ctx context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	out := e.deps.Confirm.Run(ctx, s, t.intent)
	switch out.Outcome {
	case confirmrequirements.OutcomeConfirmed:
		t.submitLead = true
	case confirmrequirements.OutcomeAlreadyConfirmed:
		if s.LeadStatus != models.LeadStatusAreaNotFound {
			t.respond(leadPendingText, nil)
			break
		}
		if t.areaResolved {
			t.submitLead = true
			break
		}
		areas, err := e.listAreas(ctx)
		if err != nil {
			return models.SessionDelta{}, err
		}
		t.respond(areaNotFound(s.Slots.Value(models.SlotArea), areas), areaActions(areas))
	default:
		t.respond(out.Prompt, out.Actions)
	}
	return out.Delta, nil
}

// createLead submits the confirmed request. Its failures are recorded on
// the session instead of aborting the turn so confirmed stays set.
func (e *Engine) createLead(ctx context.Context, t *turn, s *models.ConversationSession) (models.SessionDelta, error) {
	if !t.submitLead {
		return models.SessionDelta{}, nil
	}
	wasPending := s.LeadStatus == models.LeadStatusPendingRetry

	delta, outcome, err := e.submitLead(ctx, s)
	switch outcome {
	case leadCreated:
		t.leadCreated = true
		t.respond(fmt.Sprintf(leadCreatedText, *delta.LeadID), nil)
		if wasPending {
			e.clearPending(ctx, t.key)
		}
	case leadAreaMissing:
		t.errorCode = string(apperrors.ErrCodeResourceNotFound)
		areas, lerr := e.listAreas(ctx)
		if lerr != nil {
			e.logger.Warn("area list unavailable", map[string]interface{}{
				"sessionKey": t.key,
				"error":      lerr.Error(),
			})
		}
		t.respond(areaNotFound(s.Slots.Value(models.SlotArea), areas), areaActions(areas))
	default:
		t.errorCode = string(apperrors.CodeOf(err))
		t.respond(leadPendingText, nil)
		e.markPending(ctx, t.key)
	}
	return delta, nil
}

// ==========================
// Lead submission
// ==========================

type leadOutcome int

const (
	leadCreated leadOutcome = iota
	leadAreaMissing
	leadFailed
)

func (e *Engine) submitLead(ctx context.Context, s *models.ConversationSession) (models.SessionDelta, leadOutcome, error) {
	lctx, cancel := context.WithTimeout(ctx, e.config.LeadTimeout)
	defer cancel()

	req := models.LeadRequestFromSession(s, confirmrequirements.ContactPhone(s))
	id, err := e.deps.Leads.CreateLead(lctx, req)
	switch {
	case err == nil, errors.Is(err, apperrors.ErrDuplicateLead) && id != "":
		e.logger.Info("lead recorded", map[string]interface{}{
			"sessionKey":     s.SessionKey,
			"leadId":         id,
			"idempotencyKey": req.IdempotencyKey,
			"duplicate":      err != nil,
		})
		return models.SessionDelta{
			LeadID:     models.String(id),
			LeadStatus: models.Status(models.LeadStatusCreated),
		}, leadCreated, nil
	case errors.Is(err, apperrors.ErrResourceNotFound):
		e.logger.Warn("lead area no longer in catalog", map[string]interface{}{
			"sessionKey": s.SessionKey,
			"areaId":     req.AreaID,
		})
		return models.SessionDelta{
			LeadStatus: models.Status(models.LeadStatusAreaNotFound),
		}, leadAreaMissing, err
	default:
		e.logger.Error("lead creation failed, queued for retry", map[string]interface{}{
			"sessionKey": s.SessionKey,
			"error":      err.Error(),
		})
		return models.SessionDelta{
			LeadStatus: models.Status(models.LeadStatusPendingRetry),
		}, leadFailed, err
	}
}

func (e *Engine) markPending(ctx context.Context, key string) {
	if e.deps.Pending == nil {
		return
	}
	if err := e.deps.Pending.MarkPending(ctx, key); err != nil {
		e.logger.Error("failed to queue lead retry", map[string]interface{}{
			"sessionKey": key,
			"error":      err.Error(),
		})
	}
}

func (e *Engine) clearPending(ctx context.Context, key string) {
	if e.deps.Pending == nil {
		return
	}
	if err := e.deps.Pending.ClearPending(ctx, key); err != nil {
		e.logger.Warn("failed to clear lead retry", map[string]interface{}{
			"sessionKey": key,
			"error":      err.Error(),
		})
	}
}

func (e *Engine) listAreas(ctx context.Context) ([]models.CatalogEntry, error) {
	cctx, cancel := context.WithTimeout(ctx, e.config.CatalogTimeout)
	defer cancel()
	return e.deps.Areas.ListAreas(cctx)
}

// ==========================
// Compose and commit
// ==========================

func (e *Engine) compose(t *turn, s *models.ConversationSession) *models.TurnResponse {
	text, actions := t.text, t.actions
	if t.fatal != nil || text == "" {
		text, actions = apologyText, nil
	}
	if actions == nil {
		actions = []models.SuggestedAction{}
	}
	return &models.TurnResponse{
		ResponseText:     text,
		Intent:           t.intent,
		Slots:            s.Slots.Canonical(),
		IsComplete:       s.IsComplete,
		SuggestedActions: actions,
		LeadID:           s.LeadID,
		ErrorCode:        t.errorCode,
	}
}

// commit saves the session and appends the exchange to the turn log. A
// failed save is logged; the next turn starts from the last saved state.
func (e *Engine) commit(ctx context.Context, t *turn, s *models.ConversationSession, start time.Time) {
	ctx, span := e.deps.Obs.StartSpan(ctx, "saveSession")
	defer span.End()

	now := e.now()
	reply := t.text
	if t.fatal != nil || reply == "" {
		reply = apologyText
	}
	exchange := []models.Turn{
		{Role: models.RoleUser, Text: t.message, Intent: t.intent, At: start},
		{Role: models.RoleAssistant, Text: reply, At: now},
	}
	s.AppendTurns(e.config.HistoryLimit, exchange...)

	sctx, cancel := context.WithTimeout(ctx, e.config.SessionTimeout)
	defer cancel()
	if err := e.deps.Store.Save(sctx, s); err != nil {
		span.RecordError(err)
		metrics.DialogueTurnErrors.WithLabelValues("SESSION_SAVE_FAILED").Inc()
		e.logger.Error("failed to save session", map[string]interface{}{
			"sessionKey": t.key,
			"error":      err.Error(),
		})
	}

	if e.deps.Turns == nil {
		return
	}
	lctx, lcancel := context.WithTimeout(ctx, e.config.TurnLogTimeout)
	defer lcancel()
	if err := e.deps.Turns.Append(lctx, t.key, exchange...); err != nil {
		e.logger.Warn("failed to persist turns", map[string]interface{}{
			"sessionKey": t.key,
			"error":      err.Error(),
		})
	}
}

func outcomeOf(t *turn) string {
	switch {
	case t.fatal != nil:
		return "error"
	case t.leadCreated:
		return "lead_created"
	default:
		return "ok"
	}
}

func (e *Engine) observe(t *turn, start time.Time, outcome string) {
	metrics.DialogueTurns.WithLabelValues(string(t.intent)).Inc()
	if t.errorCode != "" {
		metrics.DialogueTurnErrors.WithLabelValues(t.errorCode).Inc()
	}
	metrics.DialogueTurnDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
