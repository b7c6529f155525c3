package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantiq/esg-cli/internal/model"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	catalog, err := LoadCatalog()
	require.NoError(t, err)
	return NewEngine(catalog)
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog()
	require.NoError(t, err)
	require.Len(t, catalog.Frameworks, 3)

	gri, ok := catalog.Get("gri")
	require.True(t, ok)
	assert.NotEmpty(t, gri.Metrics)
	assert.NotEmpty(t, gri.DetectionPatterns)
	assert.NotEmpty(t, gri.Requirements)

	_, ok = catalog.Get("missing")
	assert.False(t, ok)
}

func TestDetectGRIContent(t *testing.T) {
	e := newTestEngine(t)
	content := "This sustainability report follows GRI standards and discloses " +
		"scope 1 emissions alongside greenhouse gas (GHG) intensity figures."

	result := e.Detect(content)
	require.NotEmpty(t, result.Frameworks)
	assert.Equal(t, "gri", result.Frameworks[0].FrameworkID)
	assert.Greater(t, result.Frameworks[0].Confidence, 0.3)
	assert.Contains(t, result.Frameworks[0].MatchedMetrics, "gri-305-1")
	assert.Greater(t, result.Confidence, 0.0)
}

func TestDetectNothingRecommendsAdoption(t *testing.T) {
	e := newTestEngine(t)
	result := e.Detect("quarterly revenue was solid and the office moved")

	assert.Empty(t, result.Frameworks)
	assert.Zero(t, result.Confidence)
	require.Len(t, result.Recommendations, 1)
	assert.Contains(t, result.Recommendations[0], "GRI, SASB, or TCFD")
}

func TestDetectCrossFrameworkNote(t *testing.T) {
	e := newTestEngine(t)
	content := "Our sustainability report applies GRI standards with greenhouse gas data. " +
		"A SASB materiality assessment informed the industry-specific disclosures."

	result := e.Detect(content)
	ids := map[string]bool{}
	for _, d := range result.Frameworks {
		ids[d.FrameworkID] = true
	}
	require.True(t, ids["gri"])
	require.True(t, ids["sasb"])

	var crossNote bool
	for _, rec := range result.Recommendations {
		if rec == "Both GRI and SASB detected. Consider integrated reporting approach." {
			crossNote = true
		}
	}
	assert.True(t, crossNote)
}

func TestMapScopeMetricToGRI(t *testing.T) {
	e := newTestEngine(t)
	m := model.Metric{
		ID:       "m1",
		Name:     "Scope 1 emissions",
		Value:    model.Float(15000),
		Unit:     "tCO2e",
		Category: model.CategoryEnvironmental,
	}

	mappings := e.Map([]model.Metric{m})
	require.NotEmpty(t, mappings)

	var hit *model.FrameworkMapping
	for i := range mappings {
		if mappings[i].FrameworkMetricID == "gri-305-1" {
			hit = &mappings[i]
		}
	}
	require.NotNil(t, hit)
	assert.Equal(t, "m1", hit.MetricID)
	assert.Equal(t, "gri", hit.FrameworkID)
	assert.Equal(t, model.StatusCompliant, hit.Status)
	assert.Greater(t, hit.Confidence, 0.0)
	assert.LessOrEqual(t, hit.Confidence, 1.0)
}

func TestMapValuelessRequiredMetricNonCompliant(t *testing.T) {
	e := newTestEngine(t)
	m := model.Metric{
		ID:       "m1",
		Name:     "Direct (Scope 1) GHG emissions",
		Category: model.CategoryEnvironmental,
	}

	mappings := e.Map([]model.Metric{m})
	require.NotEmpty(t, mappings)
	for _, mp := range mappings {
		if mp.FrameworkMetricID == "gri-305-1" {
			assert.Equal(t, model.StatusNonCompliant, mp.Status)
		}
	}
}

func TestMapUnrelatedMetricProducesNothing(t *testing.T) {
	e := newTestEngine(t)
	m := model.Metric{ID: "m1", Name: "Cafeteria visits", Category: model.CategoryOther}
	assert.Empty(t, e.Map([]model.Metric{m}))
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, jaccard("carbon emissions", "carbon emissions"), 1e-9)
	assert.InDelta(t, 1.0/3.0, jaccard("carbon emissions", "carbon footprint"), 1e-9)
	assert.Zero(t, jaccard("", ""))
}
