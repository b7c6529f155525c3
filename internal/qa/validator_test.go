package qa

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantiq/esg-cli/internal/config"
	"github.com/verdantiq/esg-cli/internal/model"
)

func newTestValidator() *Validator {
	return NewValidator(config.QAConfig{OutlierThreshold: 1.5, OutlierMinPopulation: 10})
}

func metric(id string, value float64) model.Metric {
	return model.Metric{
		ID:         id,
		Name:       "Total emissions",
		Value:      model.Float(value),
		Unit:       "tCO2e",
		Category:   model.CategoryEnvironmental,
		Year:       2023,
		Confidence: 0.8,
	}
}

func TestValidateCleanMetric(t *testing.T) {
	v := newTestValidator()
	m := metric("m1", 5000)

	verdict := v.Validate(m, []model.Metric{m})
	assert.True(t, verdict.Valid)
	assert.Empty(t, verdict.Issues)
	// product of the four family base confidences
	assert.InDelta(t, 0.95*0.80*0.90*0.85, verdict.Confidence, 1e-9)
	assert.Len(t, verdict.RulesApplied, 4)
}

func TestValidateMissingFieldsAreCritical(t *testing.T) {
	v := newTestValidator()
	m := model.Metric{ID: "m1", Name: "Headcount", Category: model.CategorySocial}

	verdict := v.Validate(m, []model.Metric{m})
	assert.False(t, verdict.Valid)

	var fields []string
	for _, issue := range verdict.Issues {
		require.Equal(t, model.IssueFormat, issue.Kind)
		require.Equal(t, model.SeverityCritical, issue.Severity)
		fields = append(fields, issue.Field)
	}
	assert.ElementsMatch(t, []string{"value", "unit", "year"}, fields)
	assert.NotEmpty(t, verdict.Suggestions)
}

func TestValidatePercentageOutOfRange(t *testing.T) {
	v := newTestValidator()
	m := metric("m1", 150)
	m.Name = "Renewable share"
	m.Unit = "%"

	verdict := v.Validate(m, []model.Metric{m})
	assert.False(t, verdict.Valid)
	require.Len(t, verdict.Issues, 1)
	assert.Equal(t, model.IssueRange, verdict.Issues[0].Kind)
	assert.Equal(t, model.SeverityHigh, verdict.Issues[0].Severity)
}

func TestValidateEmissionsRangeBound(t *testing.T) {
	v := newTestValidator()
	m := metric("m1", 5000000)

	verdict := v.Validate(m, []model.Metric{m})
	// medium severity does not invalidate
	assert.True(t, verdict.Valid)
	require.Len(t, verdict.Issues, 1)
	assert.Equal(t, model.IssueRange, verdict.Issues[0].Kind)
	assert.Equal(t, model.SeverityMedium, verdict.Issues[0].Severity)
}

func TestValidateYearWindow(t *testing.T) {
	v := newTestValidator()

	far := metric("m1", 100)
	far.Year = 2090
	verdict := v.Validate(far, []model.Metric{far})
	var formatYear *model.ValidationIssue
	for i, issue := range verdict.Issues {
		if issue.Kind == model.IssueFormat && issue.Field == "year" {
			formatYear = &verdict.Issues[i]
		}
	}
	require.NotNil(t, formatYear)
	assert.Equal(t, model.SeverityMedium, formatYear.Severity)
	assert.True(t, verdict.Valid)

	next := metric("m2", 100)
	next.Year = time.Now().Year() + 1
	verdict = v.Validate(next, []model.Metric{next})
	for _, issue := range verdict.Issues {
		assert.NotEqual(t, "year", issue.Field)
	}
}

func TestOutlierRequiresMinimumPopulation(t *testing.T) {
	v := newTestValidator()

	batch := []model.Metric{metric("spike", 1000000)}
	for i := 0; i < 9; i++ {
		batch = append(batch, metric(fmt.Sprintf("m%d", i), 100))
	}

	verdict := v.Validate(batch[0], batch)
	for _, issue := range verdict.Issues {
		assert.NotEqual(t, model.IssueOutlier, issue.Kind)
	}
}

func TestOutlierFlaggedWithEnoughPeers(t *testing.T) {
	v := newTestValidator()

	batch := []model.Metric{metric("spike", 900000)}
	for i := 0; i < 12; i++ {
		batch = append(batch, metric(fmt.Sprintf("m%d", i), float64(100+i)))
	}

	verdict := v.Validate(batch[0], batch)
	var outlier bool
	for _, issue := range verdict.Issues {
		if issue.Kind == model.IssueOutlier {
			outlier = true
			assert.Equal(t, model.SeverityMedium, issue.Severity)
		}
	}
	assert.True(t, outlier)
	assert.True(t, verdict.Valid)
}

func TestUnitConsistencyMismatch(t *testing.T) {
	v := newTestValidator()

	m := metric("m1", 100)
	m.Unit = "barrels"
	batch := []model.Metric{m}
	other1 := metric("m2", 110)
	other2 := metric("m3", 120)
	other2.Unit = "kg"
	batch = append(batch, other1, other2)

	verdict := v.Validate(m, batch)
	var mismatch bool
	for _, issue := range verdict.Issues {
		if issue.Kind == model.IssueConsistency && issue.Field == "unit" {
			mismatch = true
		}
	}
	assert.True(t, mismatch)
}

func TestPercentileLinearInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, percentile(values, 25), 1e-9)
	assert.InDelta(t, 3.25, percentile(values, 75), 1e-9)
}

func TestCorrectionLogAccuracy(t *testing.T) {
	v := newTestValidator()
	m := metric("m1", 100)
	for i := 0; i < 4; i++ {
		v.Validate(m, []model.Metric{m})
	}

	v.Corrections().Record(model.Correction{
		Original:  m,
		Corrected: metric("m1", 110),
		Reason:    "transcription error",
		RuleIDs:   []string{RuleRange},
	})

	acc := v.Corrections().Accuracy()
	assert.InDelta(t, 0.75, acc[RuleRange], 1e-9)
	assert.InDelta(t, 1.0, acc[RuleFormat], 1e-9)
	assert.Len(t, v.Corrections().Corrections(), 1)
}
