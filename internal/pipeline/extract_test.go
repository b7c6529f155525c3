package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPatternMetricsScopes(t *testing.T) {
	metrics := ExtractPatternMetrics(scopeReport)
	require.Len(t, metrics, 3)

	assert.Equal(t, "Scope 1 Emissions", metrics[0].Name)
	assert.Equal(t, 15000.0, metrics[0].Val())
	assert.Equal(t, 1, metrics[0].Scope)
	assert.Equal(t, "tCO2e", metrics[0].Unit)
	assert.Equal(t, 45000.0, metrics[1].Val())
	assert.Equal(t, 2500000.0, metrics[2].Val())
}

func TestExtractPatternMetricsNoScopeDoubleCount(t *testing.T) {
	// a scope line also matches the generic carbon pattern; the value must
	// only be claimed once
	metrics := ExtractPatternMetrics("Scope 1 emissions: 500 tonnes CO2e")
	require.Len(t, metrics, 1)
	assert.Equal(t, "Scope 1 Emissions", metrics[0].Name)
}

func TestExtractPatternMetricsMixedUnits(t *testing.T) {
	content := "We consumed 450,000 kWh and produced 1,200 tons of waste. " +
		"Usage reached 30,000 liters of water in 2023."
	metrics := ExtractPatternMetrics(content)
	require.Len(t, metrics, 3)

	byName := map[string]float64{}
	for _, m := range metrics {
		byName[m.Name] = m.Val()
		assert.Equal(t, 2023, m.Year)
	}
	assert.Equal(t, 450000.0, byName["Energy Consumption"])
	assert.Equal(t, 1200.0, byName["Waste Generation"])
	assert.Equal(t, 30000.0, byName["Water Consumption"])
}

func TestExtractPatternMetricsEmptyContent(t *testing.T) {
	assert.Empty(t, ExtractPatternMetrics("nothing numeric here"))
}

func TestExtractPatternMetricsDeterministic(t *testing.T) {
	first := ExtractPatternMetrics(scopeReport)
	second := ExtractPatternMetrics(scopeReport)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Val(), second[i].Val())
	}
}
