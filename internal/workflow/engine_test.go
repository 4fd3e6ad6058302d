package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/logger"
	"leadbot/internal/models"
	classifyintent "leadbot/internal/workers/ai-conversation/classify-intent"
	confirmrequirements "leadbot/internal/workers/conversation/confirm-requirements"
	handleinquiry "leadbot/internal/workers/conversation/handle-inquiry"
	mergeslots "leadbot/internal/workers/conversation/merge-slots"
	refineintent "leadbot/internal/workers/conversation/refine-intent"
	resolveentity "leadbot/internal/workers/conversation/resolve-entity"
)

const phoneKey = "201000000000"

// ==========================
// Fakes
// ==========================

type memStore struct {
	mu       sync.Mutex
	sessions map[string]*models.ConversationSession
	loadErr  error
	saveErr  error
	saves    int
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]*models.ConversationSession{}}
}

func (m *memStore) Load(_ context.Context, key string) (*models.ConversationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if s, ok := m.sessions[key]; ok {
		return s.Clone(), nil
	}
	return models.NewSession(key, time.Now()), nil
}

func (m *memStore) Save(_ context.Context, s *models.ConversationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	s.Version++
	m.sessions[s.SessionKey] = s.Clone()
	return nil
}

func (m *memStore) put(s *models.ConversationSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionKey] = s.Clone()
}

func (m *memStore) get(t *testing.T, key string) *models.ConversationSession {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	require.True(t, ok, "session %s not saved", key)
	return s.Clone()
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type memPending struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (p *memPending) MarkPending(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.keys == nil {
		p.keys = map[string]bool{}
	}
	p.keys[key] = true
	return nil
}

func (p *memPending) ClearPending(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.keys, key)
	return nil
}

func (p *memPending) PendingKeys(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.keys))
	for k := range p.keys {
		out = append(out, k)
	}
	return out, nil
}

func (p *memPending) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[key]
}

type fakeClassifier struct {
	ClassifyFunc func(ctx context.Context, message string) (models.Intent, error)
}

func (f *fakeClassifier) BuildPrompt(input *classifyintent.Input) string {
	return input.Message
}

func (f *fakeClassifier) Classify(ctx context.Context, prompt string) (models.Intent, error) {
	return f.ClassifyFunc(ctx, prompt)
}

func classifyAs(intent models.Intent) *fakeClassifier {
	return &fakeClassifier{ClassifyFunc: func(context.Context, string) (models.Intent, error) {
		return intent, nil
	}}
}

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	ext   *models.Extraction
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, _ []string) (*models.Extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.ext == nil {
		return &models.Extraction{}, nil
	}
	return f.ext, nil
}

type fakeCatalog struct {
	mu           sync.Mutex
	areas        []models.CatalogEntry
	projects     map[string][]models.CatalogEntry
	unitTypes    []models.CatalogEntry
	projectCalls int
	units        int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		areas: []models.CatalogEntry{
			{ID: "a1", PrimaryName: "Sheikh Zayed", SecondaryName: "الشيخ زايد"},
			{ID: "a2", PrimaryName: "New Cairo", SecondaryName: "القاهرة الجديدة"},
		},
		projects: map[string][]models.CatalogEntry{},
		units:    3,
	}
}

func (c *fakeCatalog) ListAreas(context.Context) ([]models.CatalogEntry, error) {
	return c.areas, nil
}

func (c *fakeCatalog) ListProjects(_ context.Context, areaID string) ([]models.CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projectCalls++
	return c.projects[areaID], nil
}

func (c *fakeCatalog) ListUnitTypes(context.Context) ([]models.CatalogEntry, error) {
	return c.unitTypes, nil
}

func (c *fakeCatalog) CountMatchingUnits(context.Context, models.UnitCriteria) (int, error) {
	return c.units, nil
}

func (c *fakeCatalog) PriceRange(context.Context, models.UnitCriteria) (models.PriceRange, error) {
	return models.PriceRange{Min: 2000000, Max: 6000000, Count: c.units}, nil
}

type fakeResolver struct {
	ResolveFunc func(kind models.EntityKind, mention, parentID string) (models.MatchResult, error)
}

func (f *fakeResolver) Resolve(_ context.Context, kind models.EntityKind, mention, parentID string) (models.MatchResult, error) {
	return f.ResolveFunc(kind, mention, parentID)
}

func catalogResolver() *fakeResolver {
	known := map[string]models.MatchResult{
		"area|Zayed":             {Matched: true, Value: "Sheikh Zayed", ID: "a1", Confidence: 1},
		"area|New Cairo":         {Matched: true, Value: "New Cairo", ID: "a2", Confidence: 1},
		"project|Zed Towers":     {Matched: true, Value: "Zed Towers", ID: "p1", Confidence: 1},
		"unitType|apartment":     {Matched: true, Value: "Apartment", ID: "u1", Confidence: 1},
		"area|Zayid Hieghts xyz": {Matched: false, Value: "Sheikh Zayed", Confidence: 0.7, Alternatives: []string{"Sheikh Zayed", "New Cairo"}},
	}
	return &fakeResolver{ResolveFunc: func(kind models.EntityKind, mention, _ string) (models.MatchResult, error) {
		if res, ok := known[string(kind)+"|"+mention]; ok {
			return res, nil
		}
		return models.MatchResult{Matched: false}, nil
	}}
}

type leadResult struct {
	id  string
	err error
}

type fakeLeads struct {
	mu       sync.Mutex
	results  []leadResult
	requests []models.LeadRequest
}

func (f *fakeLeads) CreateLead(_ context.Context, req models.LeadRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.results) == 0 {
		return fmt.Sprintf("lead-%d", len(f.requests)), nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.id, r.err
}

func (f *fakeLeads) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// ==========================
// Harness
// ==========================

type harness struct {
	engine     *Engine
	store      *memStore
	pending    *memPending
	classifier *fakeClassifier
	extractor  *fakeExtractor
	catalog    *fakeCatalog
	resolver   *fakeResolver
	leads      *fakeLeads
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarnessParts()
	h.start(t, h.resolver)
	return h
}

// newCatalogHarness resolves entities with the real resolver over the
// in-memory catalog.
func newCatalogHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarnessParts()
	h.catalog.unitTypes = []models.CatalogEntry{
		{ID: "u1", PrimaryName: "Apartment", SecondaryName: "شقة"},
		{ID: "u2", PrimaryName: "Villa", SecondaryName: "فيلا"},
	}
	resolver := resolveentity.NewHandler(resolveentity.LoadConfig(), h.catalog, nil, nil, logger.NewTestLogger(t))
	h.start(t, resolver)
	return h
}

func newHarnessParts() *harness {
	return &harness{
		store:      newMemStore(),
		pending:    &memPending{},
		classifier: classifyAs(models.IntentUnknown),
		extractor:  &fakeExtractor{},
		catalog:    newFakeCatalog(),
		resolver:   catalogResolver(),
		leads:      &fakeLeads{},
	}
}

func (h *harness) start(t *testing.T, resolver mergeslots.EntityResolver) {
	t.Helper()
	log := logger.NewTestLogger(t)
	engine, err := NewEngine(LoadConfig(), Deps{
		Store: h.store,
		// the classifier is looked up through h so tests can swap it
		Classifier: &fakeClassifier{ClassifyFunc: func(ctx context.Context, msg string) (models.Intent, error) {
			return h.classifier.ClassifyFunc(ctx, msg)
		}},
		Pending:   h.pending,
		Extractor: h.extractor,
		Areas:     h.catalog,
		Leads:     h.leads,
		Refiner:   refineintent.NewHandler(refineintent.LoadConfig(), log),
		Slots:     mergeslots.NewHandler(mergeslots.LoadConfig(), resolver, h.catalog, log),
		Confirm:   confirmrequirements.NewHandler(confirmrequirements.LoadConfig(), h.catalog, log),
		Inquiry:   handleinquiry.NewHandler(handleinquiry.LoadConfig(), h.catalog, log),
	}, log)
	require.NoError(t, err)
	h.engine = engine
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func resolved(canonical, id string) models.SlotValue {
	return models.SlotValue{Raw: canonical, Canonical: canonical, ExternalID: id, Validated: true}
}

// confirmableSession is a named, complete request waiting for a yes.
func confirmableSession() *models.ConversationSession {
	s := models.NewSession(phoneKey, time.Now())
	s.Slots[models.SlotArea] = resolved("Sheikh Zayed", "a1")
	s.Slots[models.SlotUnitType] = resolved("Apartment", "u1")
	s.Slots[models.SlotBudgetMax] = models.SlotValue{Raw: "5000000", Canonical: "5000000", Validated: true}
	s.Slots[models.SlotCustomerName] = models.SlotValue{Raw: "Ahmed", Canonical: "Ahmed", Validated: true}
	s.IsComplete = true
	s.AwaitingConfirmation = true
	s.ConfirmationAttempt = 1
	s.ProjectSuggested = true
	return s
}

// ==========================
// Construction
// ==========================

func TestNewEngine_RequiresDeps(t *testing.T) {
	_, err := NewEngine(LoadConfig(), Deps{}, logger.NewTestLogger(t))
	require.Error(t, err)
}

func TestHandleMessage_EmptyKey(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.HandleMessage(context.Background(), "  ", "hello")
	assert.ErrorIs(t, err, ErrEmptySessionKey)
	assert.Zero(t, h.store.saveCount())
}

// ==========================
// Conversation flow
// ==========================

func TestHandleMessage_GreetingListsAreas(t *testing.T) {
	h := newHarness(t)
	h.classifier = classifyAs(models.IntentGreeting)

	resp, err := h.engine.HandleMessage(context.Background(), "k", "مرحبا")
	require.NoError(t, err)

	assert.Equal(t, models.IntentGreeting, resp.Intent)
	assert.Contains(t, resp.ResponseText, "Sheikh Zayed")
	assert.Contains(t, resp.ResponseText, "New Cairo")
	assert.False(t, resp.IsComplete)
	require.Len(t, resp.SuggestedActions, 2)
	assert.Equal(t, "area:a1", resp.SuggestedActions[0].ID)
	assert.Equal(t, "الشيخ زايد", resp.SuggestedActions[0].Label)

	saved := h.store.get(t, "k")
	assert.Len(t, saved.History, 2)
	assert.Equal(t, []string{mergeslots.MissingArea, mergeslots.MissingRequirements}, saved.MissingFields)
}

func TestHandleMessage_SingleMessageCaptureAsksForContact(t *testing.T) {
	h := newHarness(t)
	h.classifier = classifyAs(models.IntentNewSearch)
	h.extractor.ext = &models.Extraction{
		Area:      strPtr("Zayed"),
		Project:   strPtr("Zed Towers"),
		UnitType:  strPtr("apartment"),
		BudgetMax: floatPtr(5000000),
	}

	resp, err := h.engine.HandleMessage(context.Background(), phoneKey, "عايز شقة في زايد في زد تاورز بميزانية 5 مليون")
	require.NoError(t, err)

	assert.True(t, resp.IsComplete)
	assert.Equal(t, "Sheikh Zayed", resp.Slots["area"])
	assert.Equal(t, "Zed Towers", resp.Slots["project"])
	assert.Equal(t, "Apartment", resp.Slots["unitType"])
	assert.Empty(t, resp.LeadID)

	saved := h.store.get(t, phoneKey)
	assert.True(t, saved.AwaitingConfirmation)
	assert.False(t, saved.Confirmed)
	assert.Equal(t, "a1", saved.Slots.ID(models.SlotArea))
	assert.Equal(t, "p1", saved.Slots.ID(models.SlotProject))
	assert.Zero(t, h.leads.calls())
}

func TestHandleMessage_ConfirmWithoutNameWaitsForContact(t *testing.T) {
	h := newHarness(t)
	s := confirmableSession()
	delete(s.Slots, models.SlotCustomerName)
	h.store.put(s)

	resp, err := h.engine.HandleMessage(context.Background(), phoneKey, "تمام اكيد ماشي ok")
	require.NoError(t, err)

	assert.Equal(t, models.IntentConfirm, resp.Intent)
	saved := h.store.get(t, phoneKey)
	assert.False(t, saved.Confirmed)
	assert.True(t, saved.ConfirmPendingContact)
	assert.Zero(t, h.leads.calls())
}

func TestHandleMessage_ConfirmCreatesLeadOnce(t *testing.T) {
	h := newHarness(t)
	h.store.put(confirmableSession())

	resp, err := h.engine.HandleMessage(context.Background(), phoneKey, "تمام")
	require.NoError(t, err)

	assert.Equal(t, models.IntentConfirm, resp.Intent)
	assert.Contains(t, resp.ResponseText, "رقم الطلب: #lead-1")
	assert.Equal(t, "lead-1", resp.LeadID)
	require.Equal(t, 1, h.leads.calls())
	req := h.leads.requests[0]
	assert.Equal(t, phoneKey+":0", req.IdempotencyKey)
	assert.Equal(t, phoneKey, req.Phone)
	assert.Equal(t, "a1", req.AreaID)
	assert.Equal(t, "Ahmed", req.CustomerName)

	saved := h.store.get(t, phoneKey)
	assert.True(t, saved.Confirmed)
	assert.Equal(t, models.LeadStatusCreated, saved.LeadStatus)

	h.classifier = classifyAs(models.IntentConfirm)
	resp, err = h.engine.HandleMessage(context.Background(), phoneKey, "تمام")
	require.NoError(t, err)
	assert.Contains(t, resp.ResponseText, "طلبك مسجل بالفعل")
	assert.Equal(t, 1, h.leads.calls())
}

func TestHandleMessage_DuplicateLeadCountsAsCreated(t *testing.T) {
	h := newHarness(t)
	h.store.put(confirmableSession())
	h.leads.results = []leadResult{{id: "lead-7", err: fmt.Errorf("%w: %s:0", apperrors.ErrDuplicateLead, phoneKey)}}

	resp, err := h.engine.HandleMessage(context.Background(), phoneKey, "تمام")
	require.NoError(t, err)

	assert.Equal(t, "lead-7", resp.LeadID)
	assert.Empty(t, resp.ErrorCode)
	assert.Equal(t, models.LeadStatusCreated, h.store.get(t, phoneKey).LeadStatus)
}

func TestHandleMessage_AmbiguousAreaAsksForCorrection(t *testing.T) {
	h := newHarness(t)
	h.classifier = classifyAs(models.IntentNewSearch)
	h.extractor.ext = &models.Extraction{Area: strPtr("Zayid Hieghts xyz"), BudgetMax: floatPtr(3000000)}

	resp, err := h.engine.HandleMessage(context.Background(), "k", "Zayid Hieghts xyz 3 million")
	require.NoError(t, err)

	assert.Contains(t, resp.ResponseText, "Sheikh Zayed")
	assert.NotContains(t, resp.Slots, "area")

	saved := h.store.get(t, "k")
	assert.True(t, saved.AwaitingNameCorrection)
	require.NotNil(t, saved.PendingCorrection)
	assert.Equal(t, models.SlotArea, saved.PendingCorrection.Field)
	assert.Equal(t, "Sheikh Zayed", saved.PendingCorrection.Suggested)
	assert.True(t, saved.Slots.Has(models.SlotBudgetMax))
}

func TestHandleMessage_ProjectSuggestionShownOnce(t *testing.T) {
	h := newHarness(t)
	h.catalog.projects["a1"] = []models.CatalogEntry{{ID: "p1", PrimaryName: "Zed Towers", ParentID: "a1"}}
	h.classifier = classifyAs(models.IntentNewSearch)
	h.extractor.ext = &models.Extraction{Area: strPtr("Zayed")}

	resp, err := h.engine.HandleMessage(context.Background(), "k", "زايد")
	require.NoError(t, err)
	assert.Contains(t, resp.ResponseText, "مشاريع مميزة")
	assert.Contains(t, resp.ResponseText, "Zed Towers")
	assert.False(t, resp.IsComplete)

	h.classifier = classifyAs(models.IntentUpdateRequirements)
	h.extractor.ext = &models.Extraction{BudgetMax: floatPtr(4000000)}
	resp, err = h.engine.HandleMessage(context.Background(), "k", "المنطقة كلها بميزانية 4 مليون")
	require.NoError(t, err)

	assert.NotContains(t, resp.ResponseText, "مشاريع مميزة")
	assert.True(t, resp.IsComplete)
	assert.Equal(t, 1, h.catalog.projectCalls)
	assert.True(t, h.store.get(t, "k").ProjectSuggested)
}

func TestHandleMessage_CatalogResolverTiers(t *testing.T) {
	h := newCatalogHarness(t)
	h.classifier = classifyAs(models.IntentNewSearch)
	h.extractor.ext = &models.Extraction{
		Area:      strPtr("sheikh zayd"),
		UnitType:  strPtr("شقة"),
		BudgetMax: floatPtr(5000000),
	}

	resp, err := h.engine.HandleMessage(context.Background(), phoneKey, "عايز شقة في sheikh zayd بميزانية 5 مليون")
	require.NoError(t, err)

	assert.True(t, resp.IsComplete)
	assert.Equal(t, "Sheikh Zayed", resp.Slots["area"])
	assert.Equal(t, "Apartment", resp.Slots["unitType"])
	saved := h.store.get(t, phoneKey)
	assert.Equal(t, "a1", saved.Slots.ID(models.SlotArea))
	assert.Equal(t, "u1", saved.Slots.ID(models.SlotUnitType))
	assert.Nil(t, saved.PendingCorrection)

	h.extractor.ext = &models.Extraction{Area: strPtr("nw kiro"), BudgetMax: floatPtr(3000000)}
	resp, err = h.engine.HandleMessage(context.Background(), "k", "nw kiro 3 million")
	require.NoError(t, err)

	assert.Contains(t, resp.ResponseText, "New Cairo")
	assert.NotContains(t, resp.Slots, "area")
	saved = h.store.get(t, "k")
	assert.True(t, saved.AwaitingNameCorrection)
	require.NotNil(t, saved.PendingCorrection)
	assert.Equal(t, "New Cairo", saved.PendingCorrection.Suggested)
	assert.Equal(t, []string{"New Cairo", "Sheikh Zayed"}, saved.PendingCorrection.Alternatives)

	h.classifier = classifyAs(models.IntentCorrection)
	h.extractor.ext = &models.Extraction{}
	resp, err = h.engine.HandleMessage(context.Background(), "k", "1")
	require.NoError(t, err)

	assert.Equal(t, "New Cairo", resp.Slots["area"])
	saved = h.store.get(t, "k")
	assert.Equal(t, "a2", saved.Slots.ID(models.SlotArea))
	assert.False(t, saved.AwaitingNameCorrection)
	assert.Nil(t, saved.PendingCorrection)
}

func TestHandleMessage_InquiryAnswersFromCatalog(t *testing.T) {
	h := newHarness(t)
	h.classifier = classifyAs(models.IntentInquiry)

	resp, err := h.engine.HandleMessage(context.Background(), "k", "فين")
	require.NoError(t, err)

	assert.Equal(t, models.IntentInquiry, resp.Intent)
	assert.NotEqual(t, apologyText, resp.ResponseText)
	assert.Empty(t, resp.ErrorCode)
}

// ==========================
// Cancel and restart
// ==========================

func TestHandleMessage_CancelResetsRequest(t *testing.T) {
	h := newHarness(t)
	h.store.put(confirmableSession())

	resp, err := h.engine.HandleMessage(context.Background(), phoneKey, "الغي")
	require.NoError(t, err)

	assert.Equal(t, models.IntentCancel, resp.Intent)
	assert.Empty(t, resp.Slots)
	assert.Zero(t, h.extractor.calls)

	saved := h.store.get(t, phoneKey)
	assert.Equal(t, 1, saved.LeadEpoch)
	assert.False(t, saved.AwaitingConfirmation)
	assert.False(t, saved.IsComplete)
	assert.Equal(t, phoneKey+":1", saved.IdempotencyKey())
}

func TestHandleMessage_NewSearchAfterLeadRestarts(t *testing.T) {
	h := newHarness(t)
	s := confirmableSession()
	s.AwaitingConfirmation = false
	s.Confirmed = true
	s.LeadID = "lead-1"
	s.LeadStatus = models.LeadStatusCreated
	h.store.put(s)

	h.classifier = classifyAs(models.IntentNewSearch)
	h.extractor.ext = &models.Extraction{Area: strPtr("New Cairo")}

	resp, err := h.engine.HandleMessage(context.Background(), phoneKey, "عايز ادور في القاهرة الجديدة")
	require.NoError(t, err)

	assert.Empty(t, resp.LeadID)
	assert.False(t, resp.IsComplete)

	saved := h.store.get(t, phoneKey)
	assert.Equal(t, 1, saved.LeadEpoch)
	assert.False(t, saved.Confirmed)
	assert.Empty(t, saved.LeadID)
	assert.Equal(t, "Ahmed", saved.Slots.Value(models.SlotCustomerName))
	assert.Equal(t, "a2", saved.Slots.ID(models.SlotArea))
	assert.False(t, saved.Slots.Has(models.SlotBudgetMax))
}

// ==========================
// Failures
// ==========================

func TestHandleMessage_ClassifierFailureKeepsState(t *testing.T) {
	h := newHarness(t)
	s := confirmableSession()
	h.store.put(s)
	h.classifier = &fakeClassifier{ClassifyFunc: func(context.Context, string) (models.Intent, error) {
		return "", fmt.Errorf("%w: llm timeout", apperrors.ErrExternalServiceUnavailable)
	}}

	resp, err := h.engine.HandleMessage(context.Background(), phoneKey, "تمام")
	require.NoError(t, err)

	assert.Equal(t, apologyText, resp.ResponseText)
	assert.Equal(t, string(apperrors.ErrCodeExternalServiceUnavailable), resp.ErrorCode)
	assert.Zero(t, h.extractor.calls)

	saved := h.store.get(t, phoneKey)
	assert.Equal(t, s.Slots, saved.Slots)
	assert.False(t, saved.Confirmed)
	assert.Len(t, saved.History, 2)
}

func TestHandleMessage_ResolverFailureStoresNothing(t *testing.T) {
	h := newHarness(t)
	h.classifier = classifyAs(models.IntentNewSearch)
	h.extractor.ext = &models.Extraction{Area: strPtr("Zayed"), BudgetMax: floatPtr(3000000)}
	h.resolver.ResolveFunc = func(models.EntityKind, string, string) (models.MatchResult, error) {
		return models.MatchResult{}, fmt.Errorf("%w: catalog down", apperrors.ErrExternalServiceUnavailable)
	}

	resp, err := h.engine.HandleMessage(context.Background(), "k", "زايد 3 مليون")
	require.NoError(t, err)

	assert.Equal(t, apologyText, resp.ResponseText)
	saved := h.store.get(t, "k")
	assert.False(t, saved.Slots.Has(models.SlotBudgetMax))
	assert.False(t, saved.Slots.Has(models.SlotArea))
}

func TestHandleMessage_MalformedExtractionIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.classifier = classifyAs(models.IntentNewSearch)
	h.extractor.err = fmt.Errorf("%w: not json", apperrors.ErrMalformedExtraction)

	resp, err := h.engine.HandleMessage(context.Background(), "k", "عايز شقة")
	require.NoError(t, err)

	assert.Equal(t, string(apperrors.ErrCodeMalformedExtraction), resp.ErrorCode)
	assert.NotEqual(t, apologyText, resp.ResponseText)
	assert.Contains(t, resp.ResponseText, "المنطقة")
}

func TestHandleMessage_CorruptedSessionReturnsError(t *testing.T) {
	h := newHarness(t)
	h.store.loadErr = fmt.Errorf("%w: invalid character", apperrors.ErrSessionCorrupted)

	resp, err := h.engine.HandleMessage(context.Background(), "k", "hello")
	assert.ErrorIs(t, err, apperrors.ErrSessionCorrupted)
	assert.Nil(t, resp)
	assert.Zero(t, h.store.saveCount())
}

func TestHandleMessage_StoreUnavailableApologises(t *testing.T) {
	h := newHarness(t)
	h.store.loadErr = fmt.Errorf("%w: dial tcp", apperrors.ErrExternalServiceUnavailable)

	resp, err := h.engine.HandleMessage(context.Background(), "k", "hello")
	require.NoError(t, err)

	assert.Equal(t, apologyText, resp.ResponseText)
	assert.Equal(t, string(apperrors.ErrCodeExternalServiceUnavailable), resp.ErrorCode)
	assert.Zero(t, h.store.saveCount())
}

func TestHandleMessage_CancelledTurnIsNotSaved(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.classifier = &fakeClassifier{ClassifyFunc: func(context.Context, string) (models.Intent, error) {
		cancel()
		return models.IntentNewSearch, nil
	}}

	resp, err := h.engine.HandleMessage(ctx, "k", "عايز شقة")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, resp)
	assert.Zero(t, h.store.saveCount())
}

// ==========================
// Lead failures and retry
// ==========================

func TestHandleMessage_AreaMissingFromCatalog(t *testing.T) {
	h := newHarness(t)
	h.store.put(confirmableSession())
	h.leads.results = []leadResult{
		{err: fmt.Errorf("%w: area a1", apperrors.ErrResourceNotFound)},
		{id: "lead-2"},
	}

	resp, err := h.engine.HandleMessage(context.Background(), phoneKey, "تمام")
	require.NoError(t, err)

	assert.Equal(t, string(apperrors.ErrCodeResourceNotFound), resp.ErrorCode)
	assert.Contains(t, resp.ResponseText, `"Sheikh Zayed"`)
	assert.Contains(t, resp.ResponseText, "New Cairo")
	saved := h.store.get(t, phoneKey)
	assert.True(t, saved.Confirmed)
	assert.Equal(t, models.LeadStatusAreaNotFound, saved.LeadStatus)
	assert.False(t, h.pending.has(phoneKey))

	h.classifier = classifyAs(models.IntentUpdateRequirements)
	h.extractor.ext = &models.Extraction{Area: strPtr("New Cairo")}
	resp, err = h.engine.HandleMessage(context.Background(), phoneKey, "New Cairo")
	require.NoError(t, err)

	assert.Contains(t, resp.ResponseText, "#lead-2")
	require.Equal(t, 2, h.leads.calls())
	assert.Equal(t, "a2", h.leads.requests[1].AreaID)
	assert.Equal(t, models.LeadStatusCreated, h.store.get(t, phoneKey).LeadStatus)
}

func TestHandleMessage_LeadFailureQueuesRetry(t *testing.T) {
	h := newHarness(t)
	h.store.put(confirmableSession())
	h.leads.results = []leadResult{
		{err: fmt.Errorf("%w: connection refused", apperrors.ErrExternalServiceUnavailable)},
		{id: "lead-9"},
	}

	resp, err := h.engine.HandleMessage(context.Background(), phoneKey, "تمام")
	require.NoError(t, err)

	assert.Equal(t, leadPendingText, resp.ResponseText)
	assert.Equal(t, string(apperrors.ErrCodeExternalServiceUnavailable), resp.ErrorCode)
	saved := h.store.get(t, phoneKey)
	assert.True(t, saved.Confirmed)
	assert.Equal(t, models.LeadStatusPendingRetry, saved.LeadStatus)
	assert.True(t, h.pending.has(phoneKey))

	h.classifier = classifyAs(models.IntentFollowUp)
	resp, err = h.engine.HandleMessage(context.Background(), phoneKey, "؟")
	require.NoError(t, err)
	assert.Equal(t, leadPendingText, resp.ResponseText)
	assert.Equal(t, 1, h.leads.calls())

	created, err := h.engine.RetryPendingLeads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	saved = h.store.get(t, phoneKey)
	assert.Equal(t, "lead-9", saved.LeadID)
	assert.Equal(t, models.LeadStatusCreated, saved.LeadStatus)
	assert.False(t, h.pending.has(phoneKey))
	assert.Equal(t, phoneKey+":0", h.leads.requests[1].IdempotencyKey)
}

func TestRetryPendingLeads_DropsStaleKeys(t *testing.T) {
	h := newHarness(t)
	h.store.put(models.NewSession("stale", time.Now()))
	require.NoError(t, h.pending.MarkPending(context.Background(), "stale"))

	created, err := h.engine.RetryPendingLeads(context.Background())
	require.NoError(t, err)

	assert.Zero(t, created)
	assert.False(t, h.pending.has("stale"))
	assert.Zero(t, h.leads.calls())
}

func TestRetryPendingLeads_FailureKeepsKey(t *testing.T) {
	h := newHarness(t)
	s := confirmableSession()
	s.AwaitingConfirmation = false
	s.Confirmed = true
	s.LeadStatus = models.LeadStatusPendingRetry
	h.store.put(s)
	require.NoError(t, h.pending.MarkPending(context.Background(), phoneKey))
	h.leads.results = []leadResult{{err: errors.New("still down")}}

	created, err := h.engine.RetryPendingLeads(context.Background())
	require.NoError(t, err)

	assert.Zero(t, created)
	assert.True(t, h.pending.has(phoneKey))
	assert.Equal(t, models.LeadStatusPendingRetry, h.store.get(t, phoneKey).LeadStatus)
}

// ==========================
// Concurrency
// ==========================

func TestHandleMessage_SameKeyTurnsAreSerialised(t *testing.T) {
	h := newHarness(t)
	h.classifier = classifyAs(models.IntentGreeting)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.HandleMessage(context.Background(), "k", "hi")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	saved := h.store.get(t, "k")
	assert.Equal(t, int64(n), saved.Version)
	assert.Len(t, saved.History, LoadConfig().HistoryLimit)
	assert.Zero(t, h.engine.locks.Len())
}
