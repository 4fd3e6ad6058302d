package resolveentity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "leadbot/internal/common/errors"
	"leadbot/internal/common/logger"
	"leadbot/internal/models"
)

// ==========================
// Mock Implementations
// ==========================

type fakeCatalog struct {
	areas     []models.CatalogEntry
	projects  []models.CatalogEntry
	unitTypes []models.CatalogEntry
	err       error
}

func (f *fakeCatalog) ListAreas(ctx context.Context) ([]models.CatalogEntry, error) {
	return f.areas, f.err
}

func (f *fakeCatalog) ListProjects(ctx context.Context, areaID string) ([]models.CatalogEntry, error) {
	if areaID == "" {
		return f.projects, f.err
	}
	var out []models.CatalogEntry
	for _, p := range f.projects {
		if p.ParentID == areaID {
			out = append(out, p)
		}
	}
	return out, f.err
}

func (f *fakeCatalog) ListUnitTypes(ctx context.Context) ([]models.CatalogEntry, error) {
	return f.unitTypes, f.err
}

type MockTransliterator struct {
	ConvertFunc func(ctx context.Context, text string) (string, error)
	calls       int
}

func (m *MockTransliterator) Convert(ctx context.Context, text string) (string, error) {
	m.calls++
	return m.ConvertFunc(ctx, text)
}

type MockSearcher struct {
	SearchFunc func(ctx context.Context, query string, kind models.EntityKind, topK int, threshold float64) ([]models.SearchHit, error)
}

func (m *MockSearcher) Search(ctx context.Context, query string, kind models.EntityKind, topK int, threshold float64) ([]models.SearchHit, error) {
	return m.SearchFunc(ctx, query, kind, topK, threshold)
}

// ==========================
// Test Helper Functions
// ==========================

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		areas: []models.CatalogEntry{
			{ID: "a1", PrimaryName: "Sheikh Zayed", SecondaryName: "الشيخ زايد"},
			{ID: "a2", PrimaryName: "New Cairo", SecondaryName: "القاهرة الجديدة"},
			{ID: "a3", PrimaryName: "6th of October", SecondaryName: "السادس من أكتوبر"},
			{ID: "a4", PrimaryName: "North Coast", SecondaryName: "الساحل الشمالي"},
		},
		projects: []models.CatalogEntry{
			{ID: "p1", PrimaryName: "Palm Hills October", ParentID: "a3"},
			{ID: "p2", PrimaryName: "Mountain View iCity", ParentID: "a2"},
			{ID: "p3", PrimaryName: "Hawaby", ParentID: "a3"},
			{ID: "p4", PrimaryName: "Palm Hills New Cairo", ParentID: "a2"},
			{ID: "p5", PrimaryName: "Zed West", ParentID: "a1"},
		},
		unitTypes: []models.CatalogEntry{
			{ID: "u1", PrimaryName: "Apartment", SecondaryName: "شقة"},
			{ID: "u2", PrimaryName: "Villa", SecondaryName: "فيلا"},
			{ID: "u3", PrimaryName: "Townhouse", SecondaryName: "تاون هاوس"},
			{ID: "u4", PrimaryName: "Duplex", SecondaryName: "دوبلكس"},
		},
	}
}

func unusedSearcher(t *testing.T) *MockSearcher {
	return &MockSearcher{SearchFunc: func(ctx context.Context, query string, kind models.EntityKind, topK int, threshold float64) ([]models.SearchHit, error) {
		t.Fatalf("semantic search should not run for %q", query)
		return nil, nil
	}}
}

func newTestHandler(t *testing.T, cat CatalogClient, tr Transliterator, s SemanticSearcher) *Handler {
	return NewHandler(LoadConfig(), cat, tr, s, logger.NewTestLogger(t))
}

// ==========================
// Tests
// ==========================

func TestResolve_ExactMatch(t *testing.T) {
	tr := &MockTransliterator{ConvertFunc: func(ctx context.Context, text string) (string, error) {
		t.Fatalf("transliteration should not run for %q", text)
		return "", nil
	}}
	h := newTestHandler(t, testCatalog(), tr, unusedSearcher(t))

	for _, mention := range []string{"الشيخ زايد", "sheikh ZAYED", "الشَّيخ  زايد", "Sheikh Zayed"} {
		res, err := h.ResolveArea(context.Background(), mention)
		require.NoError(t, err)
		assert.True(t, res.Matched, mention)
		assert.Equal(t, "a1", res.ID)
		assert.Equal(t, "Sheikh Zayed", res.Value)
		assert.Equal(t, 1.0, res.Confidence)
		assert.Equal(t, models.TierExact, res.Tier)
	}

	res, err := h.ResolveUnitType(context.Background(), "شقه")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.ID)
	assert.Equal(t, models.LanguageArabic, res.LanguageDetected)
}

func TestResolve_PhoneticTierIsIdempotent(t *testing.T) {
	tr := &MockTransliterator{ConvertFunc: func(ctx context.Context, text string) (string, error) {
		return "Hawaby", nil
	}}
	h := newTestHandler(t, testCatalog(), tr, unusedSearcher(t))

	first, err := h.ResolveProject(context.Background(), "هاواباي", "")
	require.NoError(t, err)
	assert.True(t, first.Matched)
	assert.Equal(t, "p3", first.ID)
	assert.Equal(t, 0.95, first.Confidence)
	assert.Equal(t, models.TierPhonetic, first.Tier)

	second, err := h.ResolveProject(context.Background(), "هاواباي", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, tr.calls)
}

func TestResolve_PhoneticFallsBackToLetterMap(t *testing.T) {
	tr := &MockTransliterator{ConvertFunc: func(ctx context.Context, text string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	h := newTestHandler(t, testCatalog(), tr, nil)

	res, err := h.ResolveProject(context.Background(), "هاواباي", "")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "Hawaby", res.Value)
	assert.Equal(t, models.TierFuzzy, res.Tier)
	assert.InDelta(t, 12.0/13.0, res.Confidence, 1e-9)
}

func TestResolve_SuggestRange(t *testing.T) {
	h := newTestHandler(t, testCatalog(), nil, unusedSearcher(t))

	res, err := h.ResolveArea(context.Background(), "zayed city")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, "Sheikh Zayed", res.Value)
	assert.Empty(t, res.ID)
	assert.InDelta(t, 2.0/3.0, res.Confidence, 1e-9)
	assert.Equal(t, models.TierSuggest, res.Tier)
	require.Len(t, res.Alternatives, 4)
	assert.Equal(t, "Sheikh Zayed", res.Alternatives[0])
	assert.Equal(t, models.LanguageEnglish, res.LanguageDetected)
}

func TestResolve_SemanticTier(t *testing.T) {
	s := &MockSearcher{SearchFunc: func(ctx context.Context, query string, kind models.EntityKind, topK int, threshold float64) ([]models.SearchHit, error) {
		assert.Equal(t, "beach houses", query)
		assert.Equal(t, models.KindArea, kind)
		assert.Equal(t, 5, topK)
		assert.Equal(t, 0.5, threshold)
		return []models.SearchHit{
			{Kind: models.KindProject, ID: "p1", Name: "Palm Hills October", Score: 0.9},
			{Kind: models.KindArea, ID: "a4", Name: "North Coast", Score: 0.8},
			{Kind: models.KindArea, ID: "gone", Name: "Ain Sokhna", Score: 0.7},
			{Name: "new cairo", Score: 0.6},
		}, nil
	}}
	h := newTestHandler(t, testCatalog(), nil, s)

	res, err := h.ResolveArea(context.Background(), "beach houses")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, models.TierSemantic, res.Tier)
	assert.Equal(t, []string{"North Coast", "New Cairo"}, res.Alternatives)
	assert.Equal(t, 0.8, res.Confidence)
}

func TestResolve_Fallback(t *testing.T) {
	empty := &MockSearcher{SearchFunc: func(ctx context.Context, query string, kind models.EntityKind, topK int, threshold float64) ([]models.SearchHit, error) {
		return nil, nil
	}}

	for name, s := range map[string]SemanticSearcher{"no search": nil, "no hits": empty} {
		t.Run(name, func(t *testing.T) {
			h := newTestHandler(t, testCatalog(), nil, s)
			res, err := h.ResolveArea(context.Background(), "xyz")
			require.NoError(t, err)
			assert.False(t, res.Matched)
			assert.Equal(t, models.TierFallback, res.Tier)
			assert.Equal(t, []string{"Sheikh Zayed", "New Cairo", "6th of October", "North Coast"}, res.Alternatives)
		})
	}

	h := newTestHandler(t, testCatalog(), nil, nil)
	res, err := h.ResolveArea(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, models.TierEmpty, res.Tier)
	assert.Len(t, res.Alternatives, 4)
}

func TestResolve_FallbackCapsAlternatives(t *testing.T) {
	cat := &fakeCatalog{}
	for i := 0; i < 15; i++ {
		cat.areas = append(cat.areas, models.CatalogEntry{ID: string(rune('a' + i)), PrimaryName: "Area " + string(rune('A'+i))})
	}
	h := newTestHandler(t, cat, nil, nil)

	res, err := h.ResolveArea(context.Background(), "qqqqqqqq")
	require.NoError(t, err)
	assert.Len(t, res.Alternatives, models.MaxAlternatives)
}

func TestResolve_Errors(t *testing.T) {
	failing := &MockSearcher{SearchFunc: func(ctx context.Context, query string, kind models.EntityKind, topK int, threshold float64) ([]models.SearchHit, error) {
		return nil, errors.New("connection refused")
	}}
	h := newTestHandler(t, testCatalog(), nil, failing)
	_, err := h.ResolveArea(context.Background(), "xyz")
	assert.ErrorIs(t, err, apperrors.ErrExternalServiceUnavailable)

	catErr := fmt.Errorf("%w: catalog down", apperrors.ErrExternalServiceUnavailable)
	h = newTestHandler(t, &fakeCatalog{err: catErr}, nil, nil)
	_, err = h.ResolveArea(context.Background(), "zayed")
	assert.ErrorIs(t, err, apperrors.ErrExternalServiceUnavailable)

	_, err = h.Resolve(context.Background(), models.EntityKind("city"), "x", "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestResolveProject_ParentFiltering(t *testing.T) {
	h := newTestHandler(t, testCatalog(), nil, nil)

	res, err := h.ResolveProject(context.Background(), "qqqqqqqq", "a3")
	require.NoError(t, err)
	assert.True(t, res.ParentFiltered)
	assert.Equal(t, []string{"Palm Hills October", "Hawaby"}, res.Alternatives)

	res, err = h.ResolveProject(context.Background(), "qqqqqqqq", "a9")
	require.NoError(t, err)
	assert.False(t, res.ParentFiltered)
	assert.Len(t, res.Alternatives, 5)

	res, err = h.ResolveProject(context.Background(), "qqqqqqqq", "")
	require.NoError(t, err)
	assert.False(t, res.ParentFiltered)
}

func TestResolve_ExactOutranksFuzzyAndSemantic(t *testing.T) {
	cat := testCatalog()
	h := newTestHandler(t, cat, nil, unusedSearcher(t))

	for _, e := range cat.areas {
		out, err := h.Execute(context.Background(), &Input{Kind: models.KindArea, Mention: e.SecondaryName})
		require.NoError(t, err)
		assert.Equal(t, 1.0, out.Result.Confidence)
		assert.Equal(t, e.ID, out.Result.ID)

		again, err := h.Execute(context.Background(), &Input{Kind: models.KindArea, Mention: e.SecondaryName})
		require.NoError(t, err)
		assert.Equal(t, out, again)
	}
}
